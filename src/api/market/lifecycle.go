package market

import (
	"time"

	"github.com/veristake/veristake/src/api/types"
)

// Claim lifecycle statuses. Flagged is orthogonal: any pre-resolved claim can
// be flagged by moderation and later restored to the status it held.
const (
	StatusPending   = "pending"
	StatusVoting    = "voting"
	StatusEnded     = "ended"
	StatusVerified  = "verified"
	StatusFlagged   = "flagged"
	StatusResolving = "resolving"
	StatusResolved  = "resolved"
)

// Vote positions and verdict results.
const (
	PositionTruth = "truth"
	PositionFake  = "fake"

	ResultTruth     = "Truth"
	ResultFake      = "Fake"
	ResultUncertain = "Uncertain"
)

// Payout statuses.
const (
	PayoutPending = "pending"
	PayoutSettled = "settled"
	PayoutSkipped = "skipped"
)

var transitions = map[string][]string{
	StatusPending:   {StatusVoting, StatusFlagged},
	StatusVoting:    {StatusEnded, StatusVerified, StatusResolving, StatusFlagged},
	StatusEnded:     {StatusVerified, StatusResolving, StatusFlagged},
	StatusVerified:  {StatusResolving, StatusFlagged},
	StatusResolving: {StatusResolved},
	StatusResolved:  {},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
// Unflagging is validated separately against the remembered prior status.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// FinalizableStatuses are the statuses from which settlement may begin.
func FinalizableStatuses() []string {
	return []string{StatusVoting, StatusVerified, StatusEnded}
}

// VotingEndsAt derives the deadline from postedAt + duration when the claim
// carries no explicit deadline.
func VotingEndsAt(c *types.Claim) time.Time {
	if c.VotingEndsAt != nil {
		return *c.VotingEndsAt
	}
	return c.PostedAt.Add(time.Duration(c.VotingDurationSec) * time.Second)
}

// DeadlinePassed checks the voting deadline lazily; there is no background
// timer that moves claims to ended.
func DeadlinePassed(c *types.Claim, now time.Time) bool {
	return !now.Before(VotingEndsAt(c))
}

// IsOpenForVotes reports whether a vote may be accepted right now.
func IsOpenForVotes(c *types.Claim, now time.Time) bool {
	return c.Status == StatusVoting && !DeadlinePassed(c, now)
}

// CanReverify reports whether a new verification result may overwrite the
// stored one. Settlement locks the claim.
func CanReverify(c *types.Claim) bool {
	switch c.Status {
	case StatusVoting, StatusEnded, StatusVerified:
		return true
	}
	return false
}
