package pgrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trainingcmd/portal/core/schedule"
)

const scheduleColumns = `id, title, start_at, end_at, all_day, teacher_id, location, color, created_at, updated_at`

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) Create(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	q := `INSERT INTO teaching_schedule (` + scheduleColumns + `)
		VALUES (:id, :title, :start_at, :end_at, :all_day, :teacher_id, :location, :color, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, s); err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "inserting schedule")
	}
	return s, nil
}

func (repo *scheduleRepository) Get(ctx context.Context, id string) (schedule.Schedule, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	var s schedule.Schedule
	err := repo.db.GetContext(ctx, &s, `SELECT `+scheduleColumns+` FROM teaching_schedule WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "selecting schedule")
	}
	return s, nil
}

func (repo *scheduleRepository) Update(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	q := `UPDATE teaching_schedule SET
		title = :title, start_at = :start_at, end_at = :end_at, all_day = :all_day, teacher_id = :teacher_id,
		location = :location, color = :color, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, s)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "updating schedule")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	return s, nil
}

func (repo *scheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM teaching_schedule WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schedule.ErrNotFound
	}
	return nil
}

func (repo *scheduleRepository) List(ctx context.Context, filter schedule.Filter) ([]schedule.Schedule, error) {
	q := `SELECT ` + scheduleColumns + ` FROM teaching_schedule`
	var args []interface{}
	if filter.TeacherID != "" {
		q += ` WHERE teacher_id = $1`
		args = append(args, filter.TeacherID)
	}
	q += ` ORDER BY start_at, id`

	list := make([]schedule.Schedule, 0)
	if err := repo.db.SelectContext(ctx, &list, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting schedules")
	}
	return list, nil
}
