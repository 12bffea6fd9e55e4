package market

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidStake rejects stakes below the minimum or malformed planck strings.
	ErrInvalidStake = errors.New("stake below minimum or malformed")
	// ErrInvalidInput rejects malformed claim/vote fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidState rejects operations illegal for the claim's current status.
	ErrInvalidState = errors.New("operation not allowed in current claim state")
	// ErrClaimNotFound is returned by stores when the claim does not exist.
	ErrClaimNotFound = errors.New("claim not found")
	// ErrDuplicateVote surfaces the (claim, voter) uniqueness constraint.
	ErrDuplicateVote = errors.New("voter already voted on this claim")
	// ErrAlreadyFinalizing means another finalize call holds the resolving gate.
	ErrAlreadyFinalizing = errors.New("settlement already in progress")
	// ErrAlreadyFinalized means the claim is resolved; rewards are locked.
	ErrAlreadyFinalized = errors.New("claim already finalized")
	// ErrNoVerdict blocks settlement when verification is missing or Uncertain.
	ErrNoVerdict = fmt.Errorf("%w: no definite verification result", ErrInvalidState)
	// ErrVotingOpen blocks settlement before the voting deadline.
	ErrVotingOpen = fmt.Errorf("%w: voting period not ended yet", ErrInvalidState)
)
