package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/veristake/veristake/src/api/types"
)

type fakeStore struct {
	claim      *types.Claim
	votes      []types.Vote
	rewards    []VoteReward
	settlement *Settlement

	denyCAS    bool
	rewardsErr error
}

func (f *fakeStore) GetClaim(ctx context.Context, claimID string) (*types.Claim, error) {
	if f.claim == nil || f.claim.ClaimID != claimID {
		return nil, ErrClaimNotFound
	}
	c := *f.claim
	return &c, nil
}

func (f *fakeStore) ClaimStatusCAS(ctx context.Context, claimID string, from []string, to string) (bool, error) {
	if f.denyCAS {
		return false, nil
	}
	for _, st := range from {
		if f.claim.Status == st {
			f.claim.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) FindVotes(ctx context.Context, claimID string) ([]types.Vote, error) {
	return f.votes, nil
}

func (f *fakeStore) SaveRewards(ctx context.Context, rewards []VoteReward) error {
	if f.rewardsErr != nil {
		return f.rewardsErr
	}
	f.rewards = rewards
	return nil
}

func (f *fakeStore) SaveSettlement(ctx context.Context, claimID string, s Settlement) error {
	if f.claim.Status != StatusResolving {
		return ErrAlreadyFinalized
	}
	f.settlement = &s
	f.claim.Status = StatusResolved
	return nil
}

var testNow = time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)

func settledClaim(status, verdict string) *types.Claim {
	c := &types.Claim{
		ClaimID:           "claim-1",
		PostedAt:          testNow.Add(-time.Hour),
		VotingDurationSec: 300,
		Status:            status,
	}
	c.Verification.Result = verdict
	c.Verification.FinalScore = 72
	return c
}

func newTestEngine(store *fakeStore) *SettlementEngine {
	e := NewSettlementEngine(store)
	e.now = func() time.Time { return testNow }
	return e
}

func vote(id uint64, position, stakePlanck, weightPlanck string) types.Vote {
	return types.Vote{
		ID:           id,
		ClaimID:      "claim-1",
		Position:     position,
		StakePlanck:  stakePlanck,
		WeightPlanck: weightPlanck,
	}
}

func TestFinalizeDistributesLosingPool(t *testing.T) {
	store := &fakeStore{
		claim: settledClaim(StatusVerified, ResultTruth),
		votes: []types.Vote{
			vote(1, PositionTruth, "400000", "2"),
			vote(2, PositionTruth, "200000", "1"),
			vote(3, PositionFake, "1000000", "5"),
		},
	}
	engine := newTestEngine(store)

	out, err := engine.Finalize(context.Background(), "claim-1", 250)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if out.Winner != PositionTruth {
		t.Errorf("Winner = %s, want truth", out.Winner)
	}
	if out.FeePlanck != "25000" {
		t.Errorf("FeePlanck = %s, want 25000", out.FeePlanck)
	}
	if out.DistributablePlanck != "975000" {
		t.Errorf("DistributablePlanck = %s, want 975000", out.DistributablePlanck)
	}
	if out.PerWeightPlanck != "325000" {
		t.Errorf("PerWeightPlanck = %s, want 325000", out.PerWeightPlanck)
	}
	if out.WinnersRewarded != 2 || out.PayoutStatus != PayoutSettled {
		t.Errorf("got %d winners / %s, want 2 / settled", out.WinnersRewarded, out.PayoutStatus)
	}

	if len(store.rewards) != 2 {
		t.Fatalf("rewards = %d entries, want 2", len(store.rewards))
	}
	if store.rewards[0].RewardPlanck != "650000" || store.rewards[1].RewardPlanck != "325000" {
		t.Errorf("rewards = %s/%s, want 650000/325000",
			store.rewards[0].RewardPlanck, store.rewards[1].RewardPlanck)
	}

	if store.claim.Status != StatusResolved {
		t.Errorf("claim status = %s, want resolved", store.claim.Status)
	}
	if store.settlement == nil || store.settlement.Verdict.Side != PositionTruth {
		t.Errorf("settlement verdict = %+v, want truth side", store.settlement)
	}
	if store.settlement.Payout.Pool != "975000" {
		t.Errorf("payout pool = %s, want 975000", store.settlement.Payout.Pool)
	}

	if tot := out.Totals[PositionFake]; tot.StakePlanck != "1000000" || tot.Votes != 1 {
		t.Errorf("fake totals = %+v", tot)
	}
	if tot := out.Totals[PositionTruth]; tot.WeightPlanck != "3" || tot.Votes != 2 {
		t.Errorf("truth totals = %+v", tot)
	}
}

func TestFinalizeTruncatesPerWeight(t *testing.T) {
	store := &fakeStore{
		claim: settledClaim(StatusVerified, ResultTruth),
		votes: []types.Vote{
			vote(1, PositionTruth, "10", "2"),
			vote(2, PositionTruth, "10", "1"),
			vote(3, PositionFake, "1000", "1"),
		},
	}
	engine := newTestEngine(store)

	out, err := engine.Finalize(context.Background(), "claim-1", 0)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	// 1000 / 3 truncates to 333; the 1-planck remainder is never paid out.
	if out.PerWeightPlanck != "333" {
		t.Errorf("PerWeightPlanck = %s, want 333", out.PerWeightPlanck)
	}
	if store.rewards[0].RewardPlanck != "666" || store.rewards[1].RewardPlanck != "333" {
		t.Errorf("rewards = %s/%s, want 666/333",
			store.rewards[0].RewardPlanck, store.rewards[1].RewardPlanck)
	}
}

func TestFinalizeFakeVerdictFlipsSides(t *testing.T) {
	store := &fakeStore{
		claim: settledClaim(StatusVerified, ResultFake),
		votes: []types.Vote{
			vote(1, PositionTruth, "500000", "4"),
			vote(2, PositionFake, "100000", "1"),
		},
	}
	engine := newTestEngine(store)

	out, err := engine.Finalize(context.Background(), "claim-1", 0)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if out.Winner != PositionFake {
		t.Errorf("Winner = %s, want fake", out.Winner)
	}
	if out.DistributablePlanck != "500000" || out.PerWeightPlanck != "500000" {
		t.Errorf("distributable/perWeight = %s/%s", out.DistributablePlanck, out.PerWeightPlanck)
	}
}

func TestFinalizeSkipsWithNoWinners(t *testing.T) {
	store := &fakeStore{
		claim: settledClaim(StatusVerified, ResultTruth),
		votes: []types.Vote{
			vote(1, PositionFake, "1000000", "5"),
		},
	}
	engine := newTestEngine(store)

	out, err := engine.Finalize(context.Background(), "claim-1", 250)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if out.PayoutStatus != PayoutSkipped {
		t.Errorf("PayoutStatus = %s, want skipped", out.PayoutStatus)
	}
	if out.DistributablePlanck != "0" || out.PerWeightPlanck != "0" {
		t.Errorf("skipped settlement must carry zero amounts, got %+v", out)
	}
	if store.claim.Status != StatusResolved {
		t.Errorf("claim status = %s, want resolved", store.claim.Status)
	}
}

func TestFinalizeSkipsWithEmptyLosingPool(t *testing.T) {
	store := &fakeStore{
		claim: settledClaim(StatusVerified, ResultTruth),
		votes: []types.Vote{
			vote(1, PositionTruth, "500000", "3"),
		},
	}
	engine := newTestEngine(store)

	out, err := engine.Finalize(context.Background(), "claim-1", 250)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if out.PayoutStatus != PayoutSkipped || len(store.rewards) != 0 {
		t.Errorf("one-sided claim must settle skipped, got %+v", out)
	}
}

func TestFinalizeStateGuards(t *testing.T) {
	tests := []struct {
		name    string
		claim   *types.Claim
		wantErr error
	}{
		{"already resolved", settledClaim(StatusResolved, ResultTruth), ErrAlreadyFinalized},
		{"already resolving", settledClaim(StatusResolving, ResultTruth), ErrAlreadyFinalizing},
		{"still pending", settledClaim(StatusPending, ResultTruth), ErrInvalidState},
		{"flagged", settledClaim(StatusFlagged, ResultTruth), ErrInvalidState},
		{"no verdict yet", settledClaim(StatusVerified, ResultUncertain), ErrNoVerdict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(&fakeStore{claim: tt.claim})
			_, err := engine.Finalize(context.Background(), "claim-1", 250)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFinalizeRejectsOpenVoting(t *testing.T) {
	claim := settledClaim(StatusVoting, ResultTruth)
	claim.PostedAt = testNow.Add(-time.Minute) // deadline not reached
	engine := newTestEngine(&fakeStore{claim: claim})

	_, err := engine.Finalize(context.Background(), "claim-1", 250)
	if !errors.Is(err, ErrVotingOpen) {
		t.Fatalf("err = %v, want ErrVotingOpen", err)
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("ErrVotingOpen should wrap ErrInvalidState")
	}
}

func TestFinalizeLostRace(t *testing.T) {
	store := &fakeStore{claim: settledClaim(StatusVerified, ResultTruth), denyCAS: true}
	engine := newTestEngine(store)

	_, err := engine.Finalize(context.Background(), "claim-1", 250)
	if !errors.Is(err, ErrAlreadyFinalizing) {
		t.Fatalf("err = %v, want ErrAlreadyFinalizing", err)
	}
}

func TestFinalizeReleasesGateOnError(t *testing.T) {
	store := &fakeStore{
		claim: settledClaim(StatusVerified, ResultTruth),
		votes: []types.Vote{
			vote(1, PositionTruth, "100", "1"),
			vote(2, PositionFake, "100", "1"),
		},
		rewardsErr: errors.New("db down"),
	}
	engine := newTestEngine(store)

	_, err := engine.Finalize(context.Background(), "claim-1", 250)
	if err == nil {
		t.Fatal("Finalize should surface the store error")
	}
	if store.claim.Status != StatusVerified {
		t.Fatalf("claim status = %s, want gate released back to verified", store.claim.Status)
	}

	// A retry after the transient failure succeeds.
	store.rewardsErr = nil
	if _, err := engine.Finalize(context.Background(), "claim-1", 250); err != nil {
		t.Fatalf("retry Finalize: %v", err)
	}
	if store.claim.Status != StatusResolved {
		t.Fatalf("claim status = %s, want resolved after retry", store.claim.Status)
	}
}

func TestValidPlanck(t *testing.T) {
	valid := []string{"0", "1", "10", "999999999999999999999999"}
	invalid := []string{"", "-1", "01", "1.5", "1e9", " 1", "abc"}

	for _, s := range valid {
		if !ValidPlanck(s) {
			t.Errorf("ValidPlanck(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if ValidPlanck(s) {
			t.Errorf("ValidPlanck(%q) = true, want false", s)
		}
	}
}
