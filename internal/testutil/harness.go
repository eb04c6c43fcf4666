package testutil

import (
	"testing"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/events"
	"github.com/NikitaPirate/glisk/storage"
	"github.com/NikitaPirate/glisk/vm"
	"github.com/NikitaPirate/glisk/wallet"
)

// ChainID is the network id used by all tests.
const ChainID = "glisk-test"

// Harness wires an in-memory state, emitter and executor so tests can drive
// engine handlers through the same path production uses.
type Harness struct {
	State   *storage.StateDB
	Emitter *events.Emitter
	Exec    *vm.Executor
}

// NewHarness creates a Harness over a fresh MemDB.
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	state := NewStateDB()
	emitter := events.NewEmitter()
	return &Harness{
		State:   state,
		Emitter: emitter,
		Exec:    vm.NewExecutor(state, emitter),
	}
}

// SeedEngine initialises the engine singleton with the given owner and unit
// price, the allocation cursor at 1 and an empty operator set.
func (h *Harness) SeedEngine(t *testing.T, owner string, price uint64) {
	t.Helper()
	err := h.State.SetEngine(&core.EngineState{
		Owner:       owner,
		Operators:   map[string]bool{},
		UnitPrice:   price,
		NextUnitID:  1,
		Placeholder: "ipfs://placeholder",
	})
	if err != nil {
		t.Fatalf("seed engine: %v", err)
	}
}

// Fund credits amount to the account's custodied balance.
func (h *Harness) Fund(t *testing.T, address string, amount uint64) {
	t.Helper()
	acc, err := h.State.GetAccount(address)
	if err != nil {
		t.Fatalf("fund %s: %v", address, err)
	}
	acc.Balance += amount
	if err := h.State.SetAccount(acc); err != nil {
		t.Fatalf("fund %s: %v", address, err)
	}
}

// Block returns a block at the given height whose timestamp is the ledger
// "now" observed by every transaction executed against it.
func (h *Harness) Block(height int64, timestamp int64) *core.Block {
	b := core.NewBlock(height, "0000", "", nil)
	b.Header.Timestamp = timestamp
	return b
}

// Run signs a transaction for w (reading the current account nonce from
// state) and executes it against block.
func (h *Harness) Run(t *testing.T, block *core.Block, w *wallet.Wallet, typ core.TxType, payload any) error {
	t.Helper()
	acc, err := h.State.GetAccount(w.PubKey())
	if err != nil {
		t.Fatalf("account %s: %v", w.PubKey(), err)
	}
	tx, err := w.NewTx(ChainID, typ, acc.Nonce, 0, payload)
	if err != nil {
		t.Fatalf("build tx: %v", err)
	}
	return h.Exec.ExecuteTx(block, tx)
}

// SumClaimable returns the total of all claimable balances.
func (h *Harness) SumClaimable(t *testing.T) uint64 {
	t.Helper()
	var total uint64
	err := h.State.EachClaimable(func(_ string, amount uint64) error {
		total += amount
		return nil
	})
	if err != nil {
		t.Fatalf("sum claimable: %v", err)
	}
	return total
}
