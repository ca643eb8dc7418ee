package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xavierca1/prospect-crm/internal/entity"
)

type ActivityStore struct {
	DB *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{DB: db}
}

// Insert keeps a.CreatedAt when set, so entries delivered late through the
// queue still sort by when they happened.
func (r *ActivityStore) Insert(ctx context.Context, a entity.ProspectActivity) error {
	query := `
		INSERT INTO prospect_activities (prospect_id, activity_type, description, stage, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
	`
	var createdAt *time.Time
	if !a.CreatedAt.IsZero() {
		createdAt = &a.CreatedAt
	}
	_, err := r.DB.ExecContext(ctx, query, a.ProspectID, a.ActivityType, a.Description, a.Stage, a.CreatedBy, createdAt)
	if err != nil {
		return translateError("insert activity", err)
	}
	return nil
}

func (r *ActivityStore) SelectByProspect(ctx context.Context, prospectID string) ([]entity.ProspectActivity, error) {
	query := `
		SELECT id, prospect_id, activity_type, description, stage, created_by, created_at
		FROM prospect_activities
		WHERE prospect_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, prospectID)
	if err != nil {
		return nil, translateError("select activities", err)
	}
	defer rows.Close()

	activities := []entity.ProspectActivity{}
	for rows.Next() {
		var a entity.ProspectActivity
		if err := rows.Scan(&a.ID, &a.ProspectID, &a.ActivityType, &a.Description, &a.Stage, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
