package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NikitaPirate/glisk/core"
	"github.com/NikitaPirate/glisk/indexer"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	bc      *core.Blockchain
	mempool *core.Mempool
	state   core.State
	indexer *indexer.Indexer
	chainID string // expected chain_id; used to reject cross-chain replay transactions
}

// NewHandler creates an RPC Handler.
func NewHandler(bc *core.Blockchain, mempool *core.Mempool, state core.State, idx *indexer.Indexer, chainID string) *Handler {
	return &Handler{bc: bc, mempool: mempool, state: state, indexer: idx, chainID: chainID}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "getBlockHeight":
		return okResponse(req.ID, h.bc.Height())

	case "getBlock":
		return h.getBlock(req)

	case "getBalance":
		return h.getBalance(req)

	case "getClaimable":
		return h.getClaimable(req)

	case "getPoolBalance":
		return h.getPoolBalance(req)

	case "getPrice":
		return h.getPrice(req)

	case "getUnit":
		return h.getUnit(req)

	case "getSeason":
		return h.getSeason(req)

	case "getRoyalty":
		return h.getRoyalty(req)

	case "getUnitsByAuthor":
		return h.getUnitsByAuthor(req)

	case "getUnrevealedUnits":
		return h.getUnrevealedUnits(req)

	case "sendTx":
		return h.sendTx(req)

	case "getMempoolSize":
		return okResponse(req.ID, h.mempool.Size())

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) engine() (*core.EngineState, error) {
	eng, err := h.state.GetEngine()
	if err != nil {
		return nil, fmt.Errorf("engine state: %w", err)
	}
	return eng, nil
}

func (h *Handler) getBlock(req Request) Response {
	var params struct {
		Hash   string `json:"hash"`
		Height *int64 `json:"height"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}

	var block *core.Block
	var err error
	if params.Hash != "" {
		block, err = h.bc.GetBlock(params.Hash)
	} else if params.Height != nil {
		block, err = h.bc.GetBlockByHeight(*params.Height)
	} else {
		block = h.bc.Tip()
	}
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	if block == nil {
		return errResponse(req.ID, CodeInternalError, "no block found")
	}
	return okResponse(req.ID, block)
}

func (h *Handler) getBalance(req Request) Response {
	var params struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Address == "" {
		return errResponse(req.ID, CodeInvalidParams, "address is required")
	}
	acc, err := h.state.GetAccount(params.Address)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"address": params.Address, "balance": acc.Balance, "nonce": acc.Nonce})
}

func (h *Handler) getClaimable(req Request) Response {
	var params struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Address == "" {
		return errResponse(req.ID, CodeInvalidParams, "address is required")
	}
	amount, err := h.state.Claimable(params.Address)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"address": params.Address, "claimable": amount})
}

func (h *Handler) getPoolBalance(req Request) Response {
	eng, err := h.engine()
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"pool_balance": eng.PoolBalance})
}

func (h *Handler) getPrice(req Request) Response {
	eng, err := h.engine()
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"unit_price": eng.UnitPrice})
}

func (h *Handler) getUnit(req Request) Response {
	var params struct {
		ID uint64 `json:"id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	unit, err := h.state.GetUnit(params.ID)
	if errors.Is(err, core.ErrNotFound) {
		return errResponse(req.ID, CodeInvalidParams, fmt.Sprintf("unit %d does not exist", params.ID))
	}
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	eng, err := h.engine()
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{
		"id":            unit.ID,
		"prompt_author": unit.Author,
		"revealed":      unit.Revealed,
		"descriptor":    eng.ResolveDescriptor(unit),
		"minted_at":     unit.MintedAt,
	})
}

func (h *Handler) getSeason(req Request) Response {
	eng, err := h.engine()
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	result := map[string]any{"ended": eng.SeasonEnded}
	if eng.SeasonEnded {
		result["ended_at"] = eng.SeasonEndedAt
	}
	return okResponse(req.ID, result)
}

func (h *Handler) getRoyalty(req Request) Response {
	var params struct {
		ID uint64 `json:"id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	// The tuple is global, but it is only defined for units that exist.
	if _, err := h.state.GetUnit(params.ID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return errResponse(req.ID, CodeInvalidParams, fmt.Sprintf("unit %d does not exist", params.ID))
		}
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	eng, err := h.engine()
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{
		"receiver": eng.RoyaltyReceiver,
		"rate_bps": eng.RoyaltyRateBps,
	})
}

func (h *Handler) getUnitsByAuthor(req Request) Response {
	var params struct {
		Author string `json:"author"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Author == "" {
		return errResponse(req.ID, CodeInvalidParams, "author is required")
	}
	ids, err := h.indexer.UnitsByAuthor(params.Author)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, ids)
}

func (h *Handler) getUnrevealedUnits(req Request) Response {
	ids, err := h.indexer.UnrevealedUnits()
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, ids)
}

func (h *Handler) sendTx(req Request) Response {
	var tx core.Transaction
	if err := json.Unmarshal(req.Params, &tx); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	// Reject transactions destined for a different network to prevent
	// cross-chain replay attacks.
	if tx.ChainID != h.chainID {
		return errResponse(req.ID, CodeInvalidParams,
			fmt.Sprintf("chain ID mismatch: got %q want %q", tx.ChainID, h.chainID))
	}
	// Recompute the ID server-side; do not trust the client-provided value.
	tx.ID = tx.Hash()
	if err := h.mempool.Add(&tx); err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]string{"tx_id": tx.ID})
}
