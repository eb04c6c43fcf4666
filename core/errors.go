package core

import "errors"

// ErrNotFound is returned when a requested object does not exist in storage.
var ErrNotFound = errors.New("not found")

// Engine rejection sentinels. Every rejected transaction leaves state
// untouched: the executor snapshots before dispatch and reverts on error.
var (
	// ErrInvalidQuantity indicates a mint quantity of zero or above MaxBatch.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInsufficientPayment indicates the declared payment does not cover
	// unit price times quantity.
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrMintingClosed indicates a mint after the season has ended.
	ErrMintingClosed = errors.New("minting closed")

	// ErrUnauthorized indicates the sender lacks the required role.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyEnded indicates a repeated season end.
	ErrAlreadyEnded = errors.New("season already ended")

	// ErrSeasonNotEnded indicates a sweep while the season is still active.
	ErrSeasonNotEnded = errors.New("season not ended")

	// ErrGracePeriodActive indicates a sweep before the grace window expired.
	ErrGracePeriodActive = errors.New("grace period active")

	// ErrAlreadyRevealed indicates a reveal of an already revealed unit.
	ErrAlreadyRevealed = errors.New("unit already revealed")

	// ErrTransferFailed indicates the outbound fund transfer could not be
	// completed. The revert restores the claimable balance.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrReentrantCall indicates a nested call into a fund-moving handler.
	ErrReentrantCall = errors.New("reentrant call")
)
