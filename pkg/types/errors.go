package types

import "errors"

// Engine error taxonomy. Validation errors mean the caller supplied bad input
// and nothing was mutated. State errors mean the request conflicts with the
// duel's current lifecycle state. Resource errors are recoverable by the
// caller (top up the balance, fix the id). ErrIntegrity marks an internal
// invariant violation that should never be observable under normal operation.
var (
	// ErrNotFound indicates the referenced account, duel, or bet does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidAmount indicates a zero or negative amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds indicates the account balance cannot cover a debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidParticipants indicates a duel was created with a bad roster:
	// wrong count, duplicate ids, or kinds inconsistent with the duel type.
	ErrInvalidParticipants = errors.New("invalid participants")

	// ErrUnknownParticipant indicates the referenced id is not one of the
	// duel's two participants.
	ErrUnknownParticipant = errors.New("unknown participant")

	// ErrIllegalTransition indicates a lifecycle transition that the state
	// machine does not permit from the duel's current status.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrDuelNotAcceptingBets indicates the duel is not in a status that
	// accepts wagers.
	ErrDuelNotAcceptingBets = errors.New("duel not accepting bets")

	// ErrIntegrity indicates a broken internal invariant, e.g. a partial
	// debit/insert that could not be compensated. Operator intervention
	// is required; callers must not retry.
	ErrIntegrity = errors.New("integrity violation")
)
