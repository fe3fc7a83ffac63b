package contract

import (
	"database/sql"
	"time"
)

// Status of a contract drafted by a notary.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusReviewed  Status = "reviewed"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusReviewed, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// SubmissionStatus of a contract handed to the notary office for review.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionInReview SubmissionStatus = "in_review"
	SubmissionAccepted SubmissionStatus = "accepted"
	SubmissionRejected SubmissionStatus = "rejected"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionPending, SubmissionInReview, SubmissionAccepted, SubmissionRejected:
		return true
	}
	return false
}

// Final reports whether no further review transition is allowed.
func (s SubmissionStatus) Final() bool {
	return s == SubmissionAccepted || s == SubmissionRejected
}

type ContractType struct {
	ID          int64          `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Description sql.NullString `json:"description" db:"description"`
	IsActive    bool           `json:"is_active" db:"is_active"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// Contract content is encrypted at rest.
type Contract struct {
	ID             int64         `json:"id" db:"id"`
	NotaryID       int64         `json:"notary_id" db:"notary_id"`
	ContractTypeID int64         `json:"contract_type_id" db:"contract_type_id"`
	TypeName       string        `json:"type_name,omitempty" db:"-"`
	ContractNumber string        `json:"contract_number" db:"contract_number"`
	Title          string        `json:"title" db:"title"`
	PartyA         string        `json:"party_a" db:"party_a"`
	PartyB         string        `json:"party_b" db:"party_b"`
	Content        string        `json:"content,omitempty" db:"content"`
	VillageID      sql.NullInt64 `json:"village_id" db:"village_id"`
	ContractDate   time.Time     `json:"contract_date" db:"contract_date"`
	Status         Status        `json:"status" db:"status"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

type Submission struct {
	ID          int64            `json:"id" db:"id"`
	ContractID  int64            `json:"contract_id" db:"contract_id"`
	NotaryID    int64            `json:"notary_id" db:"notary_id"`
	NotaryName  string           `json:"notary_name,omitempty" db:"-"`
	Title       string           `json:"title,omitempty" db:"-"`
	ReviewerID  sql.NullInt64    `json:"reviewer_id" db:"reviewer_id"`
	Status      SubmissionStatus `json:"status" db:"status"`
	Notes       sql.NullString   `json:"notes" db:"notes"`
	SubmittedAt time.Time        `json:"submitted_at" db:"submitted_at"`
	ReviewedAt  sql.NullTime     `json:"reviewed_at" db:"reviewed_at"`
}

// Performance is the monthly activity summary of one notary.
type Performance struct {
	NotaryID       int64  `json:"notary_id" db:"notary_id"`
	FullName       string `json:"full_name" db:"-"`
	Period         string `json:"period" db:"period"`
	ContractsCount int64  `json:"contracts_count" db:"contracts_count"`
	ApprovedCount  int64  `json:"approved_count" db:"approved_count"`
	RejectedCount  int64  `json:"rejected_count" db:"rejected_count"`
}
