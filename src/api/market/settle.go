package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/veristake/veristake/src/api/types"
)

// PlanckPerToken converts planck to display units (DOT has 10 decimals).
const PlanckPerToken = 1e10

// Store is the persistence contract settlement depends on. Implementations
// must provide an atomic conditional status update and enforce vote
// uniqueness at the write.
type Store interface {
	GetClaim(ctx context.Context, claimID string) (*types.Claim, error)
	// ClaimStatusCAS moves the claim from any of the listed statuses to the
	// target status atomically; it reports whether this caller won the move.
	ClaimStatusCAS(ctx context.Context, claimID string, from []string, to string) (bool, error)
	FindVotes(ctx context.Context, claimID string) ([]types.Vote, error)
	SaveRewards(ctx context.Context, rewards []VoteReward) error
	SaveSettlement(ctx context.Context, claimID string, s Settlement) error
}

// VoteReward is a per-vote payout assignment.
type VoteReward struct {
	VoteID       uint64
	RewardPlanck string
	Reward       float64
}

// Settlement is the one-shot write that locks a claim's outcome.
type Settlement struct {
	Verdict     types.FinalVerdict
	Payout      types.Payout
	Totals      string // advisory totals JSON
	FinalizedAt time.Time
}

// SideTotals mirrors one side's aggregate; the planck strings are the exact
// sums, the floats are display mirrors.
type SideTotals struct {
	Votes        int     `json:"votes"`
	Stake        float64 `json:"stake"`
	Weight       float64 `json:"weight"`
	StakePlanck  string  `json:"stakePlanck"`
	WeightPlanck string  `json:"weightPlanck"`
}

// Outcome reports what Finalize did.
type Outcome struct {
	ClaimID             string                `json:"claimId"`
	Winner              string                `json:"winner"`
	FeeBps              int                   `json:"feeBps"`
	FeePlanck           string                `json:"feePlanck"`
	DistributablePlanck string                `json:"distributablePlanck"`
	PerWeightPlanck     string                `json:"perWeightPlanck"`
	WinnersRewarded     int                   `json:"winnersRewarded"`
	PayoutStatus        string                `json:"payoutStatus"`
	Totals              map[string]SideTotals `json:"totals"`
}

// SettlementEngine aggregates votes with exact integer arithmetic and
// assigns payouts. One finalize may be in flight per claim; the resolving
// status transition is the gate.
type SettlementEngine struct {
	store Store
	now   func() time.Time
}

func NewSettlementEngine(store Store) *SettlementEngine {
	return &SettlementEngine{store: store, now: time.Now}
}

type sideSum struct {
	votes   int
	stake   float64
	weight  float64
	stakeP  *big.Int
	weightP *big.Int
}

// Finalize settles a claim: winning side from the stored verdict, losing pool
// minus fee distributed per weight unit, all in truncating integer division.
// The remainder of the per-weight division is an accepted, deterministic
// rounding loss and is never redistributed.
func (e *SettlementEngine) Finalize(ctx context.Context, claimID string, feeBps int) (*Outcome, error) {
	claim, err := e.store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}

	switch claim.Status {
	case StatusResolved:
		return nil, ErrAlreadyFinalized
	case StatusResolving:
		return nil, ErrAlreadyFinalizing
	case StatusVoting, StatusVerified, StatusEnded:
	default:
		return nil, fmt.Errorf("%w: cannot finalize from status %s", ErrInvalidState, claim.Status)
	}

	if !DeadlinePassed(claim, e.now().UTC()) {
		return nil, ErrVotingOpen
	}

	verdict := claim.Verification.Result
	if verdict != ResultTruth && verdict != ResultFake {
		return nil, ErrNoVerdict
	}

	if feeBps < 0 {
		feeBps = 0
	}
	if feeBps > 10000 {
		feeBps = 10000
	}

	prior := claim.Status
	won, err := e.store.ClaimStatusCAS(ctx, claimID, FinalizableStatuses(), StatusResolving)
	if err != nil {
		return nil, err
	}
	if !won {
		// Someone else holds or held the gate; report which.
		current, err := e.store.GetClaim(ctx, claimID)
		if err == nil && current.Status == StatusResolved {
			return nil, ErrAlreadyFinalized
		}
		return nil, ErrAlreadyFinalizing
	}

	outcome, err := e.settle(ctx, claim, verdict, feeBps)
	if err != nil {
		// Release the gate so a later finalize can retry.
		if _, casErr := e.store.ClaimStatusCAS(ctx, claimID, []string{StatusResolving}, prior); casErr != nil {
			log.Printf("settle: failed to release resolving gate for %s: %v", claimID, casErr)
		}
		return nil, err
	}
	return outcome, nil
}

func (e *SettlementEngine) settle(ctx context.Context, claim *types.Claim, verdict string, feeBps int) (*Outcome, error) {
	winner := PositionTruth
	if verdict == ResultFake {
		winner = PositionFake
	}
	loser := PositionFake
	if winner == PositionFake {
		loser = PositionTruth
	}

	// Always a fresh full scan; cached totals are advisory only and never
	// feed money math.
	votes, err := e.store.FindVotes(ctx, claim.ClaimID)
	if err != nil {
		return nil, err
	}

	sums := map[string]*sideSum{
		PositionTruth: {stakeP: new(big.Int), weightP: new(big.Int)},
		PositionFake:  {stakeP: new(big.Int), weightP: new(big.Int)},
	}
	for i := range votes {
		v := &votes[i]
		side := PositionFake
		if v.Position == PositionTruth {
			side = PositionTruth
		}
		s := sums[side]
		s.votes++
		s.stake += v.Stake
		s.weight += v.Weight
		if n, ok := parsePlanck(v.StakePlanck); ok {
			s.stakeP.Add(s.stakeP, n)
		}
		if n, ok := parsePlanck(v.WeightPlanck); ok {
			s.weightP.Add(s.weightP, n)
		}
	}

	winnerWeight := sums[winner].weightP
	losingPool := sums[loser].stakeP
	totals := totalsView(sums)
	totalsJSON, _ := json.Marshal(totals)

	verdictRecord := types.FinalVerdict{
		Side:    winner,
		Score:   claim.Verification.FinalScore,
		Reason:  claim.Verification.Reasoning,
		Sources: claim.Verification.Sources,
	}
	now := e.now().UTC()

	// No winners or nothing to distribute: a valid terminal outcome, not an
	// error.
	if winnerWeight.Sign() == 0 || losingPool.Sign() == 0 {
		settlement := Settlement{
			Verdict:     verdictRecord,
			Payout:      types.Payout{Status: PayoutSkipped, Pool: "0", PerWeight: "0"},
			Totals:      string(totalsJSON),
			FinalizedAt: now,
		}
		if err := e.store.SaveSettlement(ctx, claim.ClaimID, settlement); err != nil {
			return nil, err
		}
		return &Outcome{
			ClaimID:             claim.ClaimID,
			Winner:              winner,
			FeeBps:              feeBps,
			FeePlanck:           "0",
			DistributablePlanck: "0",
			PerWeightPlanck:     "0",
			PayoutStatus:        PayoutSkipped,
			Totals:              totals,
		}, nil
	}

	fee := new(big.Int).Mul(losingPool, big.NewInt(int64(feeBps)))
	fee.Quo(fee, big.NewInt(10000))
	distributable := new(big.Int).Sub(losingPool, fee)
	perWeight := new(big.Int).Quo(distributable, winnerWeight)

	rewards := make([]VoteReward, 0, sums[winner].votes)
	for i := range votes {
		v := &votes[i]
		if v.Position != winner {
			continue
		}
		w, ok := parsePlanck(v.WeightPlanck)
		if !ok {
			continue
		}
		reward := new(big.Int).Mul(perWeight, w)
		rewards = append(rewards, VoteReward{
			VoteID:       v.ID,
			RewardPlanck: reward.String(),
			Reward:       planckToFloat(reward),
		})
	}
	if err := e.store.SaveRewards(ctx, rewards); err != nil {
		return nil, err
	}

	settlement := Settlement{
		Verdict: verdictRecord,
		Payout: types.Payout{
			Status:    PayoutSettled,
			Pool:      distributable.String(),
			PerWeight: perWeight.String(),
			Ref:       "", // filled once the on-chain settle tx confirms
		},
		Totals:      string(totalsJSON),
		FinalizedAt: now,
	}
	if err := e.store.SaveSettlement(ctx, claim.ClaimID, settlement); err != nil {
		return nil, err
	}

	return &Outcome{
		ClaimID:             claim.ClaimID,
		Winner:              winner,
		FeeBps:              feeBps,
		FeePlanck:           fee.String(),
		DistributablePlanck: distributable.String(),
		PerWeightPlanck:     perWeight.String(),
		WinnersRewarded:     len(rewards),
		PayoutStatus:        PayoutSettled,
		Totals:              totals,
	}, nil
}

func totalsView(sums map[string]*sideSum) map[string]SideTotals {
	out := make(map[string]SideTotals, len(sums))
	for side, s := range sums {
		out[side] = SideTotals{
			Votes:        s.votes,
			Stake:        s.stake,
			Weight:       s.weight,
			StakePlanck:  s.stakeP.String(),
			WeightPlanck: s.weightP.String(),
		}
	}
	return out
}

func planckToFloat(n *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(n), big.NewFloat(PlanckPerToken)).Float64()
	return f
}
