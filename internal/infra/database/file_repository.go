package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xavierca1/prospect-crm/internal/entity"
)

type FileStore struct {
	DB *sql.DB
}

func NewFileStore(db *sql.DB) *FileStore {
	return &FileStore{DB: db}
}

func (r *FileStore) SelectByProspect(ctx context.Context, prospectID string) ([]entity.ProspectFile, error) {
	query := `
		SELECT id, prospect_id, stage, file_name, file_url, file_type, uploaded_at
		FROM prospect_files
		WHERE prospect_id = $1
		ORDER BY uploaded_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, prospectID)
	if err != nil {
		return nil, translateError("select files", err)
	}
	defer rows.Close()

	files := []entity.ProspectFile{}
	for rows.Next() {
		var f entity.ProspectFile
		if err := rows.Scan(&f.ID, &f.ProspectID, &f.Stage, &f.FileName, &f.FileURL, &f.FileType, &f.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
