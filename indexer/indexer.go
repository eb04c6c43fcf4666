// Package indexer maintains secondary indexes over committed events so
// collaborators can query units by prompt author and find units still
// awaiting reveal without scanning full state. The reveal pipeline polls
// the unrevealed index to decide what to render next.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/events"
	"github.com/NikitaPirate/glisk/storage"
)

const (
	prefixAuthorUnits = "idx:author:unit:"
	prefixUnrevealed  = "idx:unrevealed:"
)

func unrevealedKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixUnrevealed, id))
}

// Indexer subscribes to engine events and updates secondary lookup tables.
type Indexer struct {
	db      storage.DB
	emitter *events.Emitter
}

// New creates an Indexer backed by db and subscribes to relevant events.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db, emitter: emitter}
	emitter.Subscribe(events.EventBatchMinted, idx.onBatchMinted)
	emitter.Subscribe(events.EventRevealed, idx.onRevealed)
	return idx
}

// UnitsByAuthor returns all unit IDs whose prompt author is the given pubkey.
func (idx *Indexer) UnitsByAuthor(author string) ([]uint64, error) {
	return idx.getList(prefixAuthorUnits + author)
}

// UnrevealedUnits returns the IDs of all minted units not yet revealed, in
// ascending order.
func (idx *Indexer) UnrevealedUnits() ([]uint64, error) {
	var ids []uint64
	it := idx.db.NewIterator([]byte(prefixUnrevealed))
	for it.Next() {
		var id uint64
		if _, err := fmt.Sscanf(string(it.Key()), prefixUnrevealed+"%d", &id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	it.Release()
	return ids, it.Error()
}

// ---- event handlers ----

func (idx *Indexer) onBatchMinted(ev events.Event) {
	author, _ := ev.Data["prompt_author"].(string)
	firstID, okFirst := ev.Data["first_unit_id"].(uint64)
	quantity, okQty := ev.Data["quantity"].(uint64)
	if author == "" || !okFirst || !okQty {
		return
	}
	for i := uint64(0); i < quantity; i++ {
		id := firstID + i
		_ = idx.addToList(prefixAuthorUnits+author, id)
		_ = idx.db.Set(unrevealedKey(id), []byte{1})
	}
}

func (idx *Indexer) onRevealed(ev events.Event) {
	ids, ok := ev.Data["unit_ids"].([]uint64)
	if !ok {
		return
	}
	for _, id := range ids {
		_ = idx.db.Delete(unrevealedKey(id))
	}
}

// ---- list helpers ----

func (idx *Indexer) getList(key string) ([]uint64, error) {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil // empty list
		}
		return nil, err
	}
	var ids []uint64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return ids, nil
}

func (idx *Indexer) addToList(key string, value uint64) error {
	ids, _ := idx.getList(key)
	ids = append(ids, value)
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}
