package data

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/veristake/veristake/src/api/market"
	"github.com/veristake/veristake/src/api/types"
)

// Store is the gorm-backed implementation of market.Store plus the vote and
// claim writes the handlers need.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) GetClaim(ctx context.Context, claimID string) (*types.Claim, error) {
	var claim types.Claim
	err := s.db.WithContext(ctx).First(&claim, "claim_id = ?", claimID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, market.ErrClaimNotFound
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// ClaimStatusCAS is the single conditional UPDATE that serializes settlement:
// only one caller observes RowsAffected == 1 for a given move.
func (s *Store) ClaimStatusCAS(ctx context.Context, claimID string, from []string, to string) (bool, error) {
	tx := s.db.WithContext(ctx).
		Model(&types.Claim{}).
		Where("claim_id = ? AND status IN ?", claimID, from).
		Update("status", to)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (s *Store) FindVotes(ctx context.Context, claimID string) ([]types.Vote, error) {
	var votes []types.Vote
	if err := s.db.WithContext(ctx).Where("claim_id = ?", claimID).Find(&votes).Error; err != nil {
		return nil, err
	}
	return votes, nil
}

func (s *Store) SaveRewards(ctx context.Context, rewards []market.VoteReward) error {
	if len(rewards) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range rewards {
			err := tx.Model(&types.Vote{}).Where("id = ?", r.VoteID).Updates(map[string]interface{}{
				"reward_planck": r.RewardPlanck,
				"reward":        r.Reward,
				"rewarded":      false,
			}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveSettlement writes verdict + payout and lands the claim in resolved.
// It only fires from resolving, so a claim can never be settled twice.
func (s *Store) SaveSettlement(ctx context.Context, claimID string, set market.Settlement) error {
	tx := s.db.WithContext(ctx).
		Model(&types.Claim{}).
		Where("claim_id = ? AND status = ?", claimID, market.StatusResolving).
		Updates(map[string]interface{}{
			"verdict_side":      set.Verdict.Side,
			"verdict_score":     set.Verdict.Score,
			"verdict_reason":    set.Verdict.Reason,
			"verdict_sources":   set.Verdict.Sources,
			"payout_status":     set.Payout.Status,
			"payout_pool":       set.Payout.Pool,
			"payout_per_weight": set.Payout.PerWeight,
			"payout_ref":        set.Payout.Ref,
			"totals":            set.Totals,
			"finalized_at":      set.FinalizedAt,
			"status":            market.StatusResolved,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return market.ErrAlreadyFinalized
	}
	return nil
}

// CreateVote inserts a vote; the (claim_id, voter_address) unique index is
// the sole duplicate-vote enforcement point.
func (s *Store) CreateVote(ctx context.Context, v *types.Vote) error {
	err := s.db.WithContext(ctx).Create(v).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return market.ErrDuplicateVote
	}
	return err
}

// SaveVerification overwrites the stored AI result; legal until settlement
// locks the claim.
func (s *Store) SaveVerification(ctx context.Context, claimID string, ver types.AIVerification, toStatus string) error {
	updates := map[string]interface{}{
		"ai_result":       ver.Result,
		"ai_final_score":  ver.FinalScore,
		"ai_reasoning":    ver.Reasoning,
		"ai_breakdown":    ver.Breakdown,
		"ai_sources":      ver.Sources,
		"ai_model_used":   ver.ModelUsed,
		"ai_models_tried": ver.ModelsTried,
		"ai_verified_at":  ver.VerifiedAt,
	}
	if toStatus != "" {
		updates["status"] = toStatus
	}
	tx := s.db.WithContext(ctx).
		Model(&types.Claim{}).
		Where("claim_id = ? AND status IN ?", claimID, []string{market.StatusVoting, market.StatusEnded, market.StatusVerified}).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return market.ErrInvalidState
	}
	return nil
}

// ConfirmClaim moves a pending claim into voting once its creation remark is
// seen on-chain. The signer must be the poster.
func (s *Store) ConfirmClaim(ctx context.Context, claimID, signer, blockHash string, now time.Time) (bool, error) {
	var claim types.Claim
	err := s.db.WithContext(ctx).First(&claim, "claim_id = ?", claimID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if signer != "" && !sameAccount(signer, claim.Poster) {
		return false, nil
	}

	updates := map[string]interface{}{
		"status":          market.StatusVoting,
		"confirmed_block": blockHash,
	}
	if claim.VotingEndsAt == nil {
		endsAt := now.Add(time.Duration(claim.VotingDurationSec) * time.Second)
		updates["voting_ends_at"] = endsAt
	}

	tx := s.db.WithContext(ctx).
		Model(&types.Claim{}).
		Where("claim_id = ? AND status = ?", claimID, market.StatusPending).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
