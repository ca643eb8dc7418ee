package entity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProspectNotFound = errors.New("prospect not found")
	ErrConflict         = errors.New("prospect conflicts with an existing record")
	ErrInvalid          = errors.New("prospect rejected by storage constraints")
)

const (
	FirstStage = 1
	LastStage  = 5
)

// StageNames follows the pipeline order shown on the kanban board.
var StageNames = map[int]string{
	1: "Research",
	2: "Initial Meeting (BANT+)",
	3: "Roadmap & Value Proposition",
	4: "Commercial Proposal",
	5: "Technical Handoff",
}

func ValidStage(stage int) bool {
	return stage >= FirstStage && stage <= LastStage
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Prospect is a sales lead moving through the five qualification stages.
type Prospect struct {
	ID                string        `json:"id"`
	CompanyName       string        `json:"company_name"`
	ContactName       string        `json:"contact_name"`
	ContactEmail      *string       `json:"contact_email,omitempty"`
	ContactPhone      *string       `json:"contact_phone,omitempty"`
	FirstContactDate  string        `json:"first_contact_date"` // YYYY-MM-DD
	AssignedTo        string        `json:"assigned_to"`
	CurrentStage      int           `json:"current_stage"`
	StageProgress     StageProgress `json:"stage_progress"`
	IsLost            bool          `json:"is_lost"`
	LostReason        *string       `json:"lost_reason,omitempty"`
	PriorityLevel     Priority      `json:"priority_level"`
	EstimatedValue    *float64      `json:"estimated_value,omitempty"`
	ExpectedCloseDate *string       `json:"expected_close_date,omitempty"`
	LastAction        *string       `json:"last_action,omitempty"`
	NextStep          *string       `json:"next_step,omitempty"`
	Tags              []string      `json:"tags"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Value returns the estimated value, treating an absent one as zero.
func (p Prospect) Value() float64 {
	if p.EstimatedValue == nil {
		return 0
	}
	return *p.EstimatedValue
}

func (p Prospect) StageName() string {
	return StageNames[p.CurrentStage]
}

// NewProspect is the insert payload: everything but identity and timestamps,
// which storage assigns.
type NewProspect struct {
	CompanyName       string
	ContactName       string
	ContactEmail      *string
	ContactPhone      *string
	FirstContactDate  string
	AssignedTo        string
	CurrentStage      int
	StageProgress     StageProgress
	IsLost            bool
	LostReason        *string
	PriorityLevel     Priority
	EstimatedValue    *float64
	ExpectedCloseDate *string
	LastAction        *string
	NextStep          *string
	Tags              []string
}

// ProspectUpdate is a partial update; nil fields are left untouched.
// Nullable columns use Nullable so a patch can also clear them.
type ProspectUpdate struct {
	CompanyName       *string           `json:"company_name,omitempty"`
	ContactName       *string           `json:"contact_name,omitempty"`
	ContactEmail      Nullable[string]  `json:"contact_email,omitzero"`
	ContactPhone      Nullable[string]  `json:"contact_phone,omitzero"`
	FirstContactDate  *string           `json:"first_contact_date,omitempty"`
	AssignedTo        *string           `json:"assigned_to,omitempty"`
	CurrentStage      *int              `json:"current_stage,omitempty"`
	StageProgress     *StageProgress    `json:"stage_progress,omitempty"`
	IsLost            *bool             `json:"is_lost,omitempty"`
	LostReason        Nullable[string]  `json:"lost_reason,omitzero"`
	PriorityLevel     *Priority         `json:"priority_level,omitempty"`
	EstimatedValue    Nullable[float64] `json:"estimated_value,omitzero"`
	ExpectedCloseDate Nullable[string]  `json:"expected_close_date,omitzero"`
	LastAction        Nullable[string]  `json:"last_action,omitzero"`
	NextStep          Nullable[string]  `json:"next_step,omitzero"`
	Tags              *[]string         `json:"tags,omitempty"`
}

func (u ProspectUpdate) Empty() bool {
	return u == (ProspectUpdate{})
}

// Actor is the authenticated identity performing a mutation.
type Actor struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Label is what gets stamped into author fields.
func (a Actor) Label() string {
	if a.Email != "" {
		return a.Email
	}
	return a.UserID
}

type ProspectGateway interface {
	SelectAll(ctx context.Context) ([]Prospect, error)
	Insert(ctx context.Context, p NewProspect) (*Prospect, error)
	UpdateByID(ctx context.Context, id string, u ProspectUpdate) (*Prospect, error)
	DeleteByID(ctx context.Context, id string) error
}
