package entity

import (
	"context"
	"fmt"
	"time"
)

const (
	ActivityProspectCreated = "prospect_created"
	ActivityStageUpdated    = "stage_updated"
)

// ProspectActivity is an immutable audit-trail entry.
type ProspectActivity struct {
	ID           string    `json:"id"`
	ProspectID   string    `json:"prospect_id"`
	ActivityType string    `json:"activity_type"`
	Description  string    `json:"description"`
	Stage        *int      `json:"stage,omitempty"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewCreatedActivity(p Prospect, actor Actor) ProspectActivity {
	stage := p.CurrentStage
	return ProspectActivity{
		ProspectID:   p.ID,
		ActivityType: ActivityProspectCreated,
		Description:  fmt.Sprintf("Prospecto creado: %s", p.CompanyName),
		Stage:        &stage,
		CreatedBy:    actor.Label(),
	}
}

func NewStageActivity(prospectID string, stage int, actor Actor) ProspectActivity {
	return ProspectActivity{
		ProspectID:   prospectID,
		ActivityType: ActivityStageUpdated,
		Description:  fmt.Sprintf("Prospecto movido a etapa %d", stage),
		Stage:        &stage,
		CreatedBy:    actor.Label(),
	}
}

type ActivityGateway interface {
	Insert(ctx context.Context, a ProspectActivity) error
	SelectByProspect(ctx context.Context, prospectID string) ([]ProspectActivity, error)
}

// ProspectFile references a file kept in external storage.
type ProspectFile struct {
	ID         string    `json:"id"`
	ProspectID string    `json:"prospect_id"`
	Stage      int       `json:"stage"`
	FileName   string    `json:"file_name"`
	FileURL    string    `json:"file_url"`
	FileType   *string   `json:"file_type,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type FileGateway interface {
	SelectByProspect(ctx context.Context, prospectID string) ([]ProspectFile, error)
}
