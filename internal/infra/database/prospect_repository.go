package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/xavierca1/prospect-crm/internal/entity"
)

const prospectColumns = `
	id, company_name, contact_name, contact_email, contact_phone,
	first_contact_date::text, assigned_to, COALESCE(current_stage, 1), stage_progress,
	COALESCE(is_lost, false), lost_reason, COALESCE(priority_level, 'medium'),
	estimated_value, expected_close_date::text, last_action, next_step,
	COALESCE(tags, '{}'), created_at, updated_at`

type ProspectStore struct {
	DB     *sql.DB
	Logger *zap.Logger
}

func NewProspectStore(db *sql.DB, logger *zap.Logger) *ProspectStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProspectStore{DB: db, Logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProspect reads one row. stage_progress is not enforced by storage, so
// sections that fail to decode are dropped and returned as problems rather
// than failing the row.
func scanProspect(row rowScanner) (*entity.Prospect, []error, error) {
	var (
		p        entity.Prospect
		progress []byte
		priority string
	)
	err := row.Scan(
		&p.ID,
		&p.CompanyName,
		&p.ContactName,
		&p.ContactEmail,
		&p.ContactPhone,
		&p.FirstContactDate,
		&p.AssignedTo,
		&p.CurrentStage,
		&progress,
		&p.IsLost,
		&p.LostReason,
		&priority,
		&p.EstimatedValue,
		&p.ExpectedCloseDate,
		&p.LastAction,
		&p.NextStep,
		pq.Array(&p.Tags),
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, nil, err
	}
	p.PriorityLevel = entity.Priority(priority)

	var problems []error
	p.StageProgress, problems = entity.SalvageStageProgress(progress)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, problems, nil
}

func (r *ProspectStore) scan(row rowScanner) (*entity.Prospect, error) {
	p, problems, err := scanProspect(row)
	if err != nil {
		return nil, err
	}
	for _, problem := range problems {
		r.Logger.Warn("ignoring invalid stage_progress section",
			zap.String("prospect_id", p.ID),
			zap.Error(problem),
		)
	}
	return p, nil
}

func (r *ProspectStore) SelectAll(ctx context.Context) ([]entity.Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, translateError("select prospects", err)
	}
	defer rows.Close()

	prospects := []entity.Prospect{}
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prospect: %w", err)
		}
		prospects = append(prospects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("select prospects", err)
	}
	return prospects, nil
}

func (r *ProspectStore) Insert(ctx context.Context, np entity.NewProspect) (*entity.Prospect, error) {
	progress, err := json.Marshal(np.StageProgress)
	if err != nil {
		return nil, fmt.Errorf("encode stage_progress: %w", err)
	}
	tags := np.Tags
	if tags == nil {
		tags = []string{}
	}

	query := `
		INSERT INTO prospects (
			company_name, contact_name, contact_email, contact_phone,
			first_contact_date, assigned_to, current_stage, stage_progress,
			is_lost, lost_reason, priority_level, estimated_value,
			expected_close_date, last_action, next_step, tags
		) VALUES (
			$1, $2, $3, $4,
			$5::date, $6, $7, $8::jsonb,
			$9, $10, $11, $12,
			$13::date, $14, $15, $16
		)
		RETURNING ` + prospectColumns

	row := r.DB.QueryRowContext(ctx, query,
		np.CompanyName,
		np.ContactName,
		np.ContactEmail,
		np.ContactPhone,
		np.FirstContactDate,
		np.AssignedTo,
		np.CurrentStage,
		string(progress),
		np.IsLost,
		np.LostReason,
		string(np.PriorityLevel),
		np.EstimatedValue,
		np.ExpectedCloseDate,
		np.LastAction,
		np.NextStep,
		pq.Array(tags),
	)

	p, err := r.scan(row)
	if err != nil {
		return nil, translateError("insert prospect", err)
	}
	return p, nil
}

// UpdateByID writes only the columns set on u and returns the stored row.
func (r *ProspectStore) UpdateByID(ctx context.Context, id string, u entity.ProspectUpdate) (*entity.Prospect, error) {
	sets, args, err := updateAssignments(u)
	if err != nil {
		return nil, err
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE prospects SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), prospectColumns)

	p, err := r.scan(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translateError("update prospect", err)
	}
	return p, nil
}

func updateAssignments(u entity.ProspectUpdate) ([]string, []any, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any, cast string) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d%s", column, len(args), cast))
	}

	if u.CompanyName != nil {
		add("company_name", *u.CompanyName, "")
	}
	if u.ContactName != nil {
		add("contact_name", *u.ContactName, "")
	}
	if u.ContactEmail.Set {
		add("contact_email", nullableArg(u.ContactEmail), "")
	}
	if u.ContactPhone.Set {
		add("contact_phone", nullableArg(u.ContactPhone), "")
	}
	if u.FirstContactDate != nil {
		add("first_contact_date", *u.FirstContactDate, "::date")
	}
	if u.AssignedTo != nil {
		add("assigned_to", *u.AssignedTo, "")
	}
	if u.CurrentStage != nil {
		add("current_stage", *u.CurrentStage, "")
	}
	if u.StageProgress != nil {
		body, err := json.Marshal(u.StageProgress)
		if err != nil {
			return nil, nil, fmt.Errorf("encode stage_progress: %w", err)
		}
		add("stage_progress", string(body), "::jsonb")
	}
	if u.IsLost != nil {
		add("is_lost", *u.IsLost, "")
	}
	if u.LostReason.Set {
		add("lost_reason", nullableArg(u.LostReason), "")
	}
	if u.PriorityLevel != nil {
		add("priority_level", string(*u.PriorityLevel), "")
	}
	if u.EstimatedValue.Set {
		add("estimated_value", nullableArg(u.EstimatedValue), "")
	}
	if u.ExpectedCloseDate.Set {
		add("expected_close_date", nullableArg(u.ExpectedCloseDate), "::date")
	}
	if u.LastAction.Set {
		add("last_action", nullableArg(u.LastAction), "")
	}
	if u.NextStep.Set {
		add("next_step", nullableArg(u.NextStep), "")
	}
	if u.Tags != nil {
		add("tags", pq.Array(*u.Tags), "")
	}
	return sets, args, nil
}

// nullableArg is nil for an explicit clear so the column is written as NULL.
func nullableArg[T any](n entity.Nullable[T]) any {
	if n.Value == nil {
		return nil
	}
	return *n.Value
}

func (r *ProspectStore) DeleteByID(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM prospects WHERE id = $1`, id)
	if err != nil {
		return translateError("delete prospect", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateError("delete prospect", err)
	}
	if n == 0 {
		return translateError("delete prospect", sql.ErrNoRows)
	}
	return nil
}
