package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/crypto"
)

// registerPrefix records a state-key prefix into statePrefixes so that
// ComputeRoot() always covers it.  All prefix constants must be declared
// via this function; manually editing statePrefixes is not required.
func registerPrefix(p string) string {
	statePrefixes = append(statePrefixes, p)
	return p
}

// statePrefixes is populated automatically by registerPrefix() below.
// ComputeRoot() iterates these prefixes to build the full world-state view.
var statePrefixes []string

var (
	prefixAccount   = registerPrefix("acct:")
	prefixEngine    = registerPrefix("engine:")
	prefixUnit      = registerPrefix("unit:")
	prefixClaimable = registerPrefix("claimable:")
)

// keyEngine is the singleton key holding the issuance-engine record.
const keyEngine = "engine:state"

func unitKey(id uint64) string {
	// Zero-padded so lexicographic prefix iteration yields numeric order.
	return fmt.Sprintf("%s%020d", prefixUnit, id)
}

type stateSnapshot struct {
	dirty   map[string][]byte
	deleted map[string]bool
}

// StateDB implements core.State on top of a DB with in-memory write buffer,
// snapshot/rollback, and deterministic state-root computation. Snapshots are
// what give every engine operation its all-or-nothing guarantee: the executor
// snapshots before dispatching a transaction and reverts on any error.
type StateDB struct {
	db        DB
	dirty     map[string][]byte
	deleted   map[string]bool
	snapshots []stateSnapshot
}

// NewStateDB creates a StateDB backed by db.
func NewStateDB(db DB) *StateDB {
	return &StateDB{
		db:      db,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

// ---- internal helpers ----

func (s *StateDB) get(key string) ([]byte, error) {
	if s.deleted[key] {
		return nil, core.ErrNotFound
	}
	if v, ok := s.dirty[key]; ok {
		return v, nil
	}
	return s.db.Get([]byte(key))
}

func (s *StateDB) set(key string, val []byte) {
	delete(s.deleted, key)
	s.dirty[key] = val
}

func (s *StateDB) del(key string) {
	delete(s.dirty, key)
	s.deleted[key] = true
}

// ---- Account ----

func (s *StateDB) GetAccount(address string) (*core.Account, error) {
	data, err := s.get(prefixAccount + address)
	if errors.Is(err, core.ErrNotFound) {
		return &core.Account{Address: address}, nil // zero-value account
	}
	if err != nil {
		return nil, err
	}
	var acc core.Account
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *StateDB) SetAccount(acc *core.Account) error {
	data, err := json.Marshal(acc)
	if err != nil {
		return err
	}
	s.set(prefixAccount+acc.Address, data)
	return nil
}

// ---- Engine singleton ----

func (s *StateDB) GetEngine() (*core.EngineState, error) {
	data, err := s.get(keyEngine)
	if err != nil {
		return nil, err
	}
	var eng core.EngineState
	if err := json.Unmarshal(data, &eng); err != nil {
		return nil, err
	}
	if eng.Operators == nil {
		eng.Operators = make(map[string]bool)
	}
	return &eng, nil
}

func (s *StateDB) SetEngine(eng *core.EngineState) error {
	data, err := json.Marshal(eng)
	if err != nil {
		return err
	}
	s.set(keyEngine, data)
	return nil
}

// ---- Units ----

func (s *StateDB) GetUnit(id uint64) (*core.Unit, error) {
	data, err := s.get(unitKey(id))
	if err != nil {
		return nil, err
	}
	var u core.Unit
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *StateDB) SetUnit(u *core.Unit) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	s.set(unitKey(u.ID), data)
	return nil
}

// ---- Claimable balances ----

// Claimable balances are stored as 8-byte big-endian values under their own
// prefix so conservation checks can iterate them without decoding accounts.
// A zero balance is represented by key absence.

func (s *StateDB) Claimable(address string) (uint64, error) {
	data, err := s.get(prefixClaimable + address)
	if errors.Is(err, core.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("claimable entry for %s: malformed value (%d bytes)", address, len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

func (s *StateDB) SetClaimable(address string, amount uint64) error {
	key := prefixClaimable + address
	if amount == 0 {
		s.del(key)
		return nil
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], amount)
	s.set(key, buf[:])
	return nil
}

// EachClaimable visits every non-zero claimable balance in address order,
// merging persisted entries with the uncommitted write buffer (so a check
// run mid-block sees the same view the handlers do).
func (s *StateDB) EachClaimable(fn func(address string, amount uint64) error) error {
	merged := make(map[string][]byte)
	it := s.db.NewIterator([]byte(prefixClaimable))
	for it.Next() {
		v := make([]byte, len(it.Value()))
		copy(v, it.Value())
		merged[string(it.Key())] = v
	}
	it.Release()
	if err := it.Error(); err != nil {
		return err
	}

	for k, v := range s.dirty {
		if strings.HasPrefix(k, prefixClaimable) {
			merged[k] = v
		}
	}
	for k := range s.deleted {
		delete(merged, k)
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := merged[k]
		if len(v) != 8 {
			return fmt.Errorf("claimable entry %s: malformed value (%d bytes)", k, len(v))
		}
		addr := strings.TrimPrefix(k, prefixClaimable)
		if err := fn(addr, binary.BigEndian.Uint64(v)); err != nil {
			return err
		}
	}
	return nil
}

// ---- Snapshot / Rollback / Commit ----

// Snapshot saves the current write buffer and returns a snapshot ID.
func (s *StateDB) Snapshot() (int, error) {
	snap := stateSnapshot{
		dirty:   make(map[string][]byte, len(s.dirty)),
		deleted: make(map[string]bool, len(s.deleted)),
	}
	for k, v := range s.dirty {
		cp := make([]byte, len(v))
		copy(cp, v)
		snap.dirty[k] = cp
	}
	for k, v := range s.deleted {
		snap.deleted[k] = v
	}
	s.snapshots = append(s.snapshots, snap)
	return len(s.snapshots) - 1, nil
}

// RevertToSnapshot restores the write buffer to a previously saved snapshot.
// The snapshot maps are deep-copied so that subsequent writes cannot corrupt them.
func (s *StateDB) RevertToSnapshot(id int) error {
	if id < 0 || id >= len(s.snapshots) {
		return fmt.Errorf("invalid snapshot id %d", id)
	}
	snap := s.snapshots[id]

	dirty := make(map[string][]byte, len(snap.dirty))
	for k, v := range snap.dirty {
		cp := make([]byte, len(v))
		copy(cp, v)
		dirty[k] = cp
	}
	deleted := make(map[string]bool, len(snap.deleted))
	for k, v := range snap.deleted {
		deleted[k] = v
	}

	s.dirty = dirty
	s.deleted = deleted
	s.snapshots = s.snapshots[:id]
	return nil
}

// ComputeRoot returns the deterministic hash of the complete world state.
// It merges all persisted state entries (scanned from DB by the known state
// prefixes) with the current write buffer, then hashes the sorted key-value
// pairs using length-prefix encoding.  It does NOT flush or modify state,
// so it is safe to call before signing a block.
func (s *StateDB) ComputeRoot() string {
	// Step 1: collect all persisted state entries from DB.
	merged := make(map[string][]byte)
	for _, prefix := range statePrefixes {
		it := s.db.NewIterator([]byte(prefix))
		for it.Next() {
			k := string(it.Key())
			v := make([]byte, len(it.Value()))
			copy(v, it.Value())
			merged[k] = v
		}
		it.Release()
	}

	// Step 2: apply in-memory write buffer (uncommitted changes this block).
	for k, v := range s.dirty {
		merged[k] = v
	}

	// Step 3: exclude deleted keys.
	for k := range s.deleted {
		delete(merged, k)
	}

	// Step 4: sort keys for determinism.
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Step 5: length-prefix encode each key-value pair and hash.
	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, k := range keys {
		v := merged[k]
		kb := []byte(k)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(kb)))
		buf.Write(lenBuf[:])
		buf.Write(kb)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf.Write(lenBuf[:])
		buf.Write(v)
	}
	return crypto.Hash(buf.Bytes())
}

// Commit atomically flushes the write buffer to the underlying DB via a
// WriteBatch and then clears it. Call ComputeRoot() before signing the block,
// then call Commit() after the block is safely stored.
func (s *StateDB) Commit() error {
	batch := s.db.NewBatch()
	for k, v := range s.dirty {
		batch.Set([]byte(k), v)
	}
	for k := range s.deleted {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return err
	}
	s.dirty = make(map[string][]byte)
	s.deleted = make(map[string]bool)
	s.snapshots = nil
	return nil
}
