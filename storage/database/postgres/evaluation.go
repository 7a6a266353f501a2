package pgrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trainingcmd/portal/core/evaluation"
)

type evaluationRepository struct {
	db *sqlx.DB
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(db *sqlx.DB) evaluation.Repository {
	return &evaluationRepository{db: db}
}

// templateRow is an evaluation_template row; criteria are stored as JSON.
type templateRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Criteria    []byte    `db:"criteria"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r templateRow) template() (evaluation.Template, error) {
	t := evaluation.Template{ID: r.ID, Title: r.Title, Description: r.Description, CreatedAt: r.CreatedAt}
	if err := json.Unmarshal(r.Criteria, &t.Criteria); err != nil {
		return evaluation.Template{}, errors.Wrap(err, "decoding criteria")
	}
	return t, nil
}

func (repo *evaluationRepository) CreateTemplate(ctx context.Context, t evaluation.Template) (evaluation.Template, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	criteria, err := json.Marshal(t.Criteria)
	if err != nil {
		return evaluation.Template{}, errors.Wrap(err, "encoding criteria")
	}
	row := templateRow{ID: t.ID, Title: t.Title, Description: t.Description, Criteria: criteria, CreatedAt: t.CreatedAt}
	q := `INSERT INTO evaluation_template (id, title, description, criteria, created_at)
		VALUES (:id, :title, :description, :criteria, :created_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return evaluation.Template{}, errors.Wrap(err, "inserting template")
	}
	return t, nil
}

func (repo *evaluationRepository) GetTemplate(ctx context.Context, id string) (evaluation.Template, error) {
	if _, err := uuid.Parse(id); err != nil {
		return evaluation.Template{}, evaluation.ErrTemplateNotFound
	}
	var row templateRow
	err := repo.db.GetContext(ctx, &row, `SELECT id, title, description, criteria, created_at FROM evaluation_template WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return evaluation.Template{}, evaluation.ErrTemplateNotFound
	}
	if err != nil {
		return evaluation.Template{}, errors.Wrap(err, "selecting template")
	}
	return row.template()
}

func (repo *evaluationRepository) ListTemplates(ctx context.Context) ([]evaluation.Template, error) {
	var rows []templateRow
	q := `SELECT id, title, description, criteria, created_at FROM evaluation_template ORDER BY created_at DESC, title`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting templates")
	}
	list := make([]evaluation.Template, 0, len(rows))
	for _, r := range rows {
		t, err := r.template()
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, nil
}

func (repo *evaluationRepository) CreateEvaluation(ctx context.Context, e evaluation.Evaluation) (evaluation.Evaluation, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	scores, err := json.Marshal(e.Scores)
	if err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "encoding scores")
	}
	q := `INSERT INTO student_evaluation
		(id, template_id, student_id, evaluator_id, scores, comment, total, max_total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = repo.db.ExecContext(ctx, q,
		e.ID, e.TemplateID, e.StudentID, e.EvaluatorID, scores, e.Comment, e.Total, e.MaxTotal, e.CreatedAt)
	if err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "inserting evaluation")
	}
	return e, nil
}
