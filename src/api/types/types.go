package types

import "time"

// Runtime-tunable settings (trusted domains, model order, fee bps)
type Setting struct {
	ID    uint32 `gorm:"primaryKey"`
	Name  string `gorm:"size:64;unique;not null"`
	Value string `gorm:"size:2048"`
}

// Wallet-keyed voter profiles; badge tier feeds vote weighting
type User struct {
	Address     string  `gorm:"primaryKey;size:128"`
	DisplayName string  `gorm:"size:64"`
	BadgeTier   string  `gorm:"size:16"` // expert, gold, silver, bronze
	TruthScore  float64 `gorm:"default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AIVerification is the stored result of the verification pipeline.
// Overwritten on re-verify until the claim is settled.
type AIVerification struct {
	Result      string `gorm:"size:16;default:Uncertain"` // Truth | Fake | Uncertain
	FinalScore  int    `gorm:"default:0"`
	Reasoning   string `gorm:"type:text"`
	Breakdown   string `gorm:"type:text"` // JSON: sub-scores + normalized weights
	Sources     string `gorm:"type:text"` // JSON array, at most 6 URLs
	ModelUsed   string `gorm:"size:64"`
	ModelsTried string `gorm:"size:512"` // JSON array, attempted order
	VerifiedAt  *time.Time
}

// FinalVerdict is written exactly once, at settlement.
type FinalVerdict struct {
	Side    string `gorm:"size:8"` // truth | fake
	Score   int
	Reason  string `gorm:"type:text"`
	Sources string `gorm:"type:text"` // JSON array
}

// Payout is written exactly once, at settlement.
type Payout struct {
	Status    string `gorm:"size:16;default:pending"` // pending | settled | skipped
	Pool      string `gorm:"size:64;default:0"`       // distributable pool, planck string
	PerWeight string `gorm:"size:64;default:0"`       // reward per weight unit, planck string
	Ref       string `gorm:"size:128"`                // settlement tx ref, filled by disburser
}

// Claims under adjudication
type Claim struct {
	ID                uint64 `gorm:"primaryKey"`
	ClaimID           string `gorm:"size:64;uniqueIndex;not null"`
	Title             string `gorm:"size:255;not null"`
	Summary           string `gorm:"type:text"`
	URL               string `gorm:"size:512"`
	Category          string `gorm:"size:32;index;not null"`
	Poster            string `gorm:"size:128;index;not null"`
	EligibilityHash   string `gorm:"size:32"`
	PostedAt          time.Time
	VotingDurationSec uint32     `gorm:"default:300"`
	VotingEndsAt      *time.Time `gorm:"index"`
	Status            string     `gorm:"size:16;index;default:pending"`
	FlaggedFrom       string     `gorm:"size:16"`  // status to restore on unflag
	ConfirmedBlock    string     `gorm:"size:128"` // block hash carrying the creation remark

	Verification AIVerification `gorm:"embedded;embeddedPrefix:ai_"`
	Totals       string         `gorm:"type:text"` // advisory cache, never used for money math
	Verdict      FinalVerdict   `gorm:"embedded;embeddedPrefix:verdict_"`
	Payout       Payout         `gorm:"embedded;embeddedPrefix:payout_"`
	FinalizedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Evidence []ClaimEvidence `gorm:"foreignKey:ClaimID;references:ClaimID"`
}

// Evidence attached to a claim
type ClaimEvidence struct {
	ID           uint64 `gorm:"primaryKey"`
	ClaimID      string `gorm:"size:64;index;not null"`
	URL          string `gorm:"size:512;not null"`
	QualityScore *float64
	AddedBy      string `gorm:"size:128"`
	CreatedAt    time.Time
}

// Stake-backed votes; (claim_id, voter_address) is the identity and the DB
// enforces it, closing the duplicate-vote race at the write.
type Vote struct {
	ID           uint64 `gorm:"primaryKey"`
	ClaimID      string `gorm:"size:64;not null;uniqueIndex:idx_claim_voter,priority:1;index:idx_claim_position,priority:1"`
	VoterAddress string `gorm:"size:128;not null;uniqueIndex:idx_claim_voter,priority:2;index"`
	Position     string `gorm:"size:8;not null;index:idx_claim_position,priority:2"` // truth | fake

	Stake        float64 `gorm:"not null"`         // display mirror, DOT
	StakePlanck  string  `gorm:"size:64;not null"` // exact integer string, planck
	Weight       float64 `gorm:"not null"`         // display mirror
	WeightPlanck string  `gorm:"size:64;not null"` // exact integer string, used for payout math

	Evidence             string  `gorm:"type:text;not null"` // JSON array of URLs, non-empty
	EvidenceQualityScore float64 `gorm:"default:1"`
	TruthScore           float64 `gorm:"default:1"`
	BadgeTier            string  `gorm:"size:16"`

	RewardPlanck string  `gorm:"size:64;default:0"`
	Reward       float64 `gorm:"default:0"`
	Rewarded     bool    `gorm:"default:false"` // flipped by the external disburser

	CreatedAt time.Time
	UpdatedAt time.Time
}
