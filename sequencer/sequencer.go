// Package sequencer implements single-proposer block production. One
// authorised key builds, signs, executes and commits blocks; everyone else
// only verifies. This is what serialises all engine entry points: there is
// exactly one writer and it applies transactions one at a time.
package sequencer

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/NikitaPirate/glisk/config"
	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/crypto"
	"github.com/NikitaPirate/glisk/events"
	"github.com/NikitaPirate/glisk/vm"
)

// Sequencer produces and validates ledger blocks.
type Sequencer struct {
	cfg     *config.Config
	bc      *core.Blockchain
	state   core.State
	mempool *core.Mempool
	exec    *vm.Executor
	emitter *events.Emitter
	privKey crypto.PrivateKey
	pubKey  crypto.PublicKey
}

// New creates a Sequencer for the local node identified by privKey.
func New(
	cfg *config.Config,
	bc *core.Blockchain,
	state core.State,
	mempool *core.Mempool,
	exec *vm.Executor,
	emitter *events.Emitter,
	privKey crypto.PrivateKey,
) *Sequencer {
	return &Sequencer{
		cfg:     cfg,
		bc:      bc,
		state:   state,
		mempool: mempool,
		exec:    exec,
		emitter: emitter,
		privKey: privKey,
		pubKey:  privKey.Public(),
	}
}

// IsSequencer reports whether this node holds the authorised sequencer key.
func (s *Sequencer) IsSequencer() bool {
	return s.cfg.Sequencer != "" && s.cfg.Sequencer == s.pubKey.Hex()
}

// ProduceBlock builds, signs, executes and commits the next block.
func (s *Sequencer) ProduceBlock() (*core.Block, error) {
	if !s.IsSequencer() {
		return nil, errors.New("node does not hold the sequencer key")
	}

	limit := s.cfg.MaxBlockTxs
	if limit <= 0 {
		limit = 500
	}
	txs := s.mempool.Pending(limit)

	tip := s.bc.Tip()
	var prevHash string
	var nextHeight int64
	if tip == nil {
		prevHash = config.GenesisHash
		nextHeight = 1
	} else {
		prevHash = tip.Hash
		nextHeight = tip.Header.Height + 1
	}

	block := core.NewBlock(nextHeight, prevHash, s.pubKey.Hex(), txs)

	// Drop transactions that fail execution instead of rejecting the whole
	// block: a bad tx is the sender's problem, not the ledger's. Each attempt
	// runs against its own snapshot, so failed txs leave no trace in state.
	var included []*core.Transaction
	var droppedIDs []string
	for _, tx := range txs {
		if err := s.exec.ExecuteTx(block, tx); err != nil {
			log.Printf("[sequencer] dropping tx %s: %v", tx.ID, err)
			droppedIDs = append(droppedIDs, tx.ID)
			continue
		}
		included = append(included, tx)
	}
	block.Transactions = included
	block.Header.TxRoot = core.ComputeTxRoot(included)

	// Compute root from the write buffer BEFORE flushing so that if AddBlock
	// fails the state has not yet been persisted and the node stays consistent.
	block.Header.StateRoot = s.state.ComputeRoot()
	block.Sign(s.privKey)

	if err := s.bc.AddBlock(block); err != nil {
		return nil, fmt.Errorf("add block: %w", err)
	}

	// Flush state only after the block is safely stored.
	if err := s.state.Commit(); err != nil {
		log.Fatalf("[sequencer] FATAL: block %d stored but state commit failed: %v",
			block.Header.Height, err)
	}

	// Emit after Sign() so block.Hash is set correctly.
	s.emitter.Emit(events.Event{
		Type:        events.EventBlockCommit,
		BlockHeight: block.Header.Height,
		Data:        map[string]any{"hash": block.Hash, "txs": len(included)},
	})

	removed := make([]string, 0, len(included)+len(droppedIDs))
	for _, tx := range included {
		removed = append(removed, tx.ID)
	}
	removed = append(removed, droppedIDs...)
	s.mempool.Remove(removed)

	return block, nil
}

// ValidateBlock checks that block was produced and signed by the authorised
// sequencer and links correctly onto the current tip.
func (s *Sequencer) ValidateBlock(block *core.Block) error {
	if s.cfg.Sequencer == "" {
		return errors.New("no sequencer configured")
	}
	if block.Header.Proposer != s.cfg.Sequencer {
		return fmt.Errorf("wrong proposer: got %s want %s", block.Header.Proposer, s.cfg.Sequencer)
	}

	pub, err := crypto.PubKeyFromHex(block.Header.Proposer)
	if err != nil {
		return fmt.Errorf("invalid proposer pubkey: %w", err)
	}
	if err := block.Verify(pub); err != nil {
		return fmt.Errorf("block signature invalid: %w", err)
	}

	tip := s.bc.Tip()
	if tip == nil {
		if !config.IsGenesisHash(block.Header.PrevHash) {
			return errors.New("first block must reference genesis prev-hash")
		}
	} else {
		if block.Header.PrevHash != tip.Hash {
			return fmt.Errorf("prev_hash mismatch: got %s want %s", block.Header.PrevHash, tip.Hash)
		}
		if block.Header.Height != tip.Header.Height+1 {
			return fmt.Errorf("height mismatch: got %d want %d", block.Header.Height, tip.Header.Height+1)
		}
	}
	return nil
}

// Run starts the block-production loop with the given interval. It blocks
// until done is closed. Empty ticks are skipped so the ledger does not fill
// with empty blocks.
func (s *Sequencer) Run(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !s.IsSequencer() || s.mempool.Size() == 0 {
				continue
			}
			if _, err := s.ProduceBlock(); err != nil {
				log.Printf("[sequencer] produce block error: %v", err)
			}
		}
	}
}
