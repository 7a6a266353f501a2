package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trainingcmd/portal/core"
	"github.com/trainingcmd/portal/core/user"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrNotFound       = errors.New("schedule not found")
	errInvalidTime    = errors.New("must be an RFC 3339 timestamp or a date (YYYY-MM-DD)")
	errTeacherUnknown = errors.New("teacher not found")
)

type (
	// Filter narrows a schedule listing. An empty TeacherID lists every schedule.
	Filter struct {
		TeacherID string
	}

	Repository interface {
		Create(ctx context.Context, s Schedule) (Schedule, error)
		Get(ctx context.Context, id string) (Schedule, error)
		Update(ctx context.Context, s Schedule) (Schedule, error)
		Delete(ctx context.Context, id string) error
		// List returns the matching schedules ordered by start.
		List(ctx context.Context, filter Filter) ([]Schedule, error)
	}

	Service struct {
		repo     Repository
		users    user.Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, users user.Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, users: users, validate: validate}
}

func (svc *Service) Create(ctx context.Context, in Input) (Schedule, error) {
	if err := svc.check(ctx, &in); err != nil {
		return Schedule{}, err
	}
	now := nowFunc().UTC()
	s := Schedule{CreatedAt: now, UpdatedAt: now}
	in.apply(&s)
	s, err := svc.repo.Create(ctx, s)
	if err != nil {
		return Schedule{}, err
	}
	return svc.withTeacher(ctx, s), nil
}

func (svc *Service) Update(ctx context.Context, id string, in Input) (Schedule, error) {
	s, err := svc.repo.Get(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	if err = svc.check(ctx, &in); err != nil {
		return Schedule{}, err
	}
	in.apply(&s)
	s.UpdatedAt = nowFunc().UTC()
	if s, err = svc.repo.Update(ctx, s); err != nil {
		return Schedule{}, err
	}
	return svc.withTeacher(ctx, s), nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.Delete(ctx, id)
}

func (svc *Service) Get(ctx context.Context, id string) (Schedule, error) {
	s, err := svc.repo.Get(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	return svc.withTeacher(ctx, s), nil
}

// List returns the schedules matching filter, each with its teacher summary.
func (svc *Service) List(ctx context.Context, filter Filter) ([]Schedule, error) {
	list, err := svc.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i] = svc.withTeacher(ctx, list[i])
	}
	return list, nil
}

func (svc *Service) check(ctx context.Context, in *Input) error {
	if err := in.Validate(svc.validate); err != nil {
		return err
	}
	if in.TeacherID == "" {
		return nil
	}
	acc, err := svc.users.GetAccountByID(ctx, in.TeacherID)
	if err == user.ErrNotFound || (err == nil && !acc.IsTeacher()) {
		return core.NewValidationError(nil, core.FieldError{Field: "teacherId", Error: errTeacherUnknown.Error()})
	}
	return err
}

func (svc *Service) withTeacher(ctx context.Context, s Schedule) Schedule {
	s.Teacher = nil
	if s.TeacherID == "" {
		return s
	}
	if acc, err := svc.users.GetAccountByID(ctx, s.TeacherID); err == nil {
		s.Teacher = NewTeacherRef(acc.User)
	}
	return s
}

func (in Input) apply(s *Schedule) {
	s.Title = in.Title
	s.Start = in.Start
	s.End = in.End
	s.AllDay = in.AllDay
	s.TeacherID = in.TeacherID
	s.Location = in.Location
	s.Color = in.Color
}
