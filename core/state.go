package core

import "time"

const (
	// MaxBatch bounds the number of units a single mint may issue. It caps
	// the work done per transaction so one call cannot monopolise a block.
	MaxBatch = 50

	// GracePeriod is how long after season end unclaimed author balances
	// stay claimable and cannot be swept into the pool. Ledger timestamps
	// are nanoseconds, so the comparison is against block time directly.
	GracePeriod = int64(14 * 24 * time.Hour)
)

// Account holds a participant's custodied fund balance and replay-protection
// nonce. Address is the hex-encoded ed25519 public key.
type Account struct {
	Address string `json:"address"` // pubkey hex
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// Unit is one issued item. Author is fixed at mint time; Descriptor is set
// exactly once when the unit is revealed and never changes afterwards.
// Unrevealed units resolve to the engine's global placeholder at read time.
type Unit struct {
	ID         uint64 `json:"id"`
	Author     string `json:"author"` // prompt author pubkey hex
	Revealed   bool   `json:"revealed"`
	Descriptor string `json:"descriptor,omitempty"`
	MintedAt   int64  `json:"minted_at"`
}

// EngineState is the singleton issuance-engine record: roles, pricing, the
// unit allocation cursor, the shared pool, the reveal placeholder, the season
// gate, and the royalty tuple. Author claimable balances live under their own
// state keys (see State.Claimable) so they can be iterated independently.
type EngineState struct {
	Owner      string          `json:"owner"`     // pubkey hex
	Operators  map[string]bool `json:"operators"` // pubkey hex → granted
	UnitPrice  uint64          `json:"unit_price"`
	NextUnitID uint64          `json:"next_unit_id"` // allocation cursor; first unit is 1

	PoolBalance uint64 `json:"pool_balance"`

	Placeholder string `json:"placeholder"` // descriptor for unrevealed units

	SeasonEnded   bool  `json:"season_ended"`
	SeasonEndedAt int64 `json:"season_ended_at,omitempty"`

	RoyaltyReceiver string `json:"royalty_receiver"`
	RoyaltyRateBps  uint32 `json:"royalty_rate_bps"` // fraction of sale price, basis points
}

// IsOwner reports whether addr holds the Owner role.
func (e *EngineState) IsOwner(addr string) bool {
	return addr != "" && addr == e.Owner
}

// IsOperator reports whether addr holds the Operator role.
func (e *EngineState) IsOperator(addr string) bool {
	return e.Operators[addr]
}

// IsPrivileged reports whether addr is the Owner or an Operator.
func (e *EngineState) IsPrivileged(addr string) bool {
	return e.IsOwner(addr) || e.IsOperator(addr)
}

// ResolveDescriptor returns the unit's permanent descriptor once revealed,
// otherwise the current global placeholder.
func (e *EngineState) ResolveDescriptor(u *Unit) string {
	if u.Revealed {
		return u.Descriptor
	}
	return e.Placeholder
}

// State is the full ledger state interface. Implementations must be
// snapshot-able so the executor can roll back failed transactions, which is
// what makes every engine rejection side-effect free.
type State interface {
	// Accounts (custodied wallet funds)
	GetAccount(address string) (*Account, error)
	SetAccount(account *Account) error

	// Issuance engine singleton
	GetEngine() (*EngineState, error)
	SetEngine(e *EngineState) error

	// Units
	GetUnit(id uint64) (*Unit, error)
	SetUnit(u *Unit) error

	// Author claimable balances (pull-based withdrawal ledger).
	// Claimable returns 0 for accounts never credited.
	Claimable(address string) (uint64, error)
	SetClaimable(address string, amount uint64) error
	// EachClaimable visits every non-zero claimable balance, including
	// uncommitted writes. Iteration stops at the first error.
	EachClaimable(fn func(address string, amount uint64) error) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeRoot returns the deterministic state root from the current write
	// buffer without flushing. Call this before signing a block.
	ComputeRoot() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	Commit() error
}
