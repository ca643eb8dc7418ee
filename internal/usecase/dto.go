package usecase

import (
	"time"

	"github.com/xavierca1/prospect-crm/internal/entity"
)

type CreateProspectInput struct {
	CompanyName       string               `json:"company_name" validate:"required,max=200"`
	ContactName       string               `json:"contact_name" validate:"required,max=200"`
	ContactEmail      *string              `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone      *string              `json:"contact_phone,omitempty" validate:"omitempty,max=40"`
	FirstContactDate  string               `json:"first_contact_date" validate:"required,datetime=2006-01-02"`
	AssignedTo        string               `json:"assigned_to" validate:"required,max=200"`
	StageProgress     entity.StageProgress `json:"stage_progress"`
	IsLost            bool                 `json:"is_lost"`
	LostReason        *string              `json:"lost_reason,omitempty"`
	PriorityLevel     entity.Priority      `json:"priority_level" validate:"omitempty,oneof=low medium high"`
	EstimatedValue    *float64             `json:"estimated_value,omitempty" validate:"omitempty,gte=0"`
	ExpectedCloseDate *string              `json:"expected_close_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	LastAction        *string              `json:"last_action,omitempty"`
	NextStep          *string              `json:"next_step,omitempty"`
	Tags              []string             `json:"tags,omitempty" validate:"omitempty,dive,required,max=50"`
}

// toNewProspect builds the insert payload. New prospects always start at
// the first stage.
func (in CreateProspectInput) toNewProspect() entity.NewProspect {
	priority := in.PriorityLevel
	if priority == "" {
		priority = entity.PriorityMedium
	}
	return entity.NewProspect{
		CompanyName:       in.CompanyName,
		ContactName:       in.ContactName,
		ContactEmail:      in.ContactEmail,
		ContactPhone:      in.ContactPhone,
		FirstContactDate:  in.FirstContactDate,
		AssignedTo:        in.AssignedTo,
		CurrentStage:      entity.FirstStage,
		StageProgress:     in.StageProgress,
		IsLost:            in.IsLost,
		LostReason:        in.LostReason,
		PriorityLevel:     priority,
		EstimatedValue:    in.EstimatedValue,
		ExpectedCloseDate: in.ExpectedCloseDate,
		LastAction:        in.LastAction,
		NextStep:          in.NextStep,
		Tags:              in.Tags,
	}
}

// PlaceholderProspect is the record seeded by the dashboard's "new prospect"
// action, to be filled in afterwards.
func PlaceholderProspect(actor entity.Actor, now time.Time) CreateProspectInput {
	email := "contacto@empresa.com"
	return CreateProspectInput{
		CompanyName:      "Nueva Empresa",
		ContactName:      "Contacto Principal",
		ContactEmail:     &email,
		FirstContactDate: now.Format("2006-01-02"),
		AssignedTo:       actor.Label(),
		PriorityLevel:    entity.PriorityMedium,
	}
}

// Notice is a transient, user-facing announcement of an operation outcome.
type Notice struct {
	UserID      string    `json:"-"`    // recipient; empty for everyone
	Kind        string    `json:"kind"` // success, error
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ProspectID  string    `json:"prospect_id,omitempty"`
	At          time.Time `json:"at"`
}

const (
	NoticeSuccess = "success"
	NoticeError   = "error"
)
