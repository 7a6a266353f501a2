package evaluation

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/trainingcmd/portal/core"
	"github.com/trainingcmd/portal/core/user"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrTemplateNotFound = errors.New("evaluation template not found")
	errNotAStudent      = errors.New("student not found")
)

type (
	Repository interface {
		CreateTemplate(ctx context.Context, t Template) (Template, error)
		GetTemplate(ctx context.Context, id string) (Template, error)
		// ListTemplates returns every template, newest first.
		ListTemplates(ctx context.Context) ([]Template, error)
		CreateEvaluation(ctx context.Context, e Evaluation) (Evaluation, error)
	}

	Service struct {
		repo  Repository
		users user.Repository
	}
)

func NewService(repo Repository, users user.Repository) *Service {
	return &Service{repo: repo, users: users}
}

func (svc *Service) CreateTemplate(ctx context.Context, nt NewTemplate) (Template, error) {
	if err := nt.Validate(); err != nil {
		return Template{}, err
	}
	return svc.repo.CreateTemplate(ctx, Template{
		Title:       nt.Title,
		Description: nt.Description,
		Criteria:    nt.Criteria,
		CreatedAt:   nowFunc().UTC(),
	})
}

func (svc *Service) ListTemplates(ctx context.Context) ([]Template, error) {
	return svc.repo.ListTemplates(ctx)
}

// Submit stores the evaluation of a student by evaluatorID.
func (svc *Service) Submit(ctx context.Context, evaluatorID string, s Submission) (Evaluation, error) {
	s.TemplateID = core.CleanString(s.TemplateID)
	if s.TemplateID == "" {
		return Evaluation{}, s.Validate(Template{})
	}
	tmpl, err := svc.repo.GetTemplate(ctx, s.TemplateID)
	if err == ErrTemplateNotFound {
		return Evaluation{}, core.NewValidationError(nil, core.FieldError{Field: "templateId", Error: ErrTemplateNotFound.Error()})
	}
	if err != nil {
		return Evaluation{}, err
	}
	if err = s.Validate(tmpl); err != nil {
		return Evaluation{}, err
	}

	student, err := svc.users.GetAccountByID(ctx, s.StudentID)
	if err == user.ErrNotFound || (err == nil && !student.IsStudent()) {
		return Evaluation{}, core.NewValidationError(nil, core.FieldError{Field: "studentId", Error: errNotAStudent.Error()})
	}
	if err != nil {
		return Evaluation{}, err
	}

	total, maxTotal := Total(s, tmpl)
	return svc.repo.CreateEvaluation(ctx, Evaluation{
		TemplateID:  tmpl.ID,
		StudentID:   student.ID,
		EvaluatorID: evaluatorID,
		Scores:      s.Scores,
		Comment:     s.Comment,
		Total:       total,
		MaxTotal:    maxTotal,
		CreatedAt:   nowFunc().UTC(),
	})
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
