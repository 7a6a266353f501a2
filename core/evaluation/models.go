// Package evaluation holds student evaluation templates and the evaluations filed against them.
package evaluation

import (
	"errors"
	"fmt"
	"time"

	"github.com/trainingcmd/portal/core"
)

var (
	ErrTitleRequired    = errors.New("title is required")
	ErrNoCriteria       = errors.New("a template needs at least one criterion")
	ErrTemplateRequired = errors.New("template is required")
	ErrStudentRequired  = errors.New("student is required")
)

// Criterion is one scored line of a template.
type Criterion struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	MaxScore int    `json:"maxScore"`
}

// Template is an evaluation form defined by an admin.
type Template struct {
	ID          string      `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description,omitempty" db:"description"`
	Criteria    []Criterion `json:"criteria" db:"-"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"` // UTC
}

// NewTemplate contains what an admin sends to define a template.
type NewTemplate struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Criteria    []Criterion `json:"criteria"`
}

// Validate cleans nt and checks the title, and that criteria keys are non-empty and unique with
// a positive max score. Criteria without a label are labelled with their key.
func (nt *NewTemplate) Validate() error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)

	var fldErrs []core.FieldError
	if nt.Title == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "title", Error: ErrTitleRequired.Error()})
	}
	if len(nt.Criteria) == 0 {
		fldErrs = append(fldErrs, core.FieldError{Field: "criteria", Error: ErrNoCriteria.Error()})
	}

	seen := make(map[string]struct{}, len(nt.Criteria))
	for i := range nt.Criteria {
		c := &nt.Criteria[i]
		c.Key = core.CleanString(c.Key)
		c.Label = core.CleanString(c.Label)
		if c.Label == "" {
			c.Label = c.Key
		}
		field := fmt.Sprintf("criteria[%d]", i)
		switch _, dup := seen[c.Key]; {
		case c.Key == "":
			fldErrs = append(fldErrs, core.FieldError{Field: field + ".key", Error: "key is required"})
		case dup:
			fldErrs = append(fldErrs, core.FieldError{Field: field + ".key", Error: fmt.Sprintf("duplicate key %q", c.Key)})
		}
		seen[c.Key] = struct{}{}
		if c.MaxScore < 1 {
			fldErrs = append(fldErrs, core.FieldError{Field: field + ".maxScore", Error: "max score must be at least 1"})
		}
	}

	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

// MaxTotal is the sum of the max scores of t.
func (t Template) MaxTotal() int {
	var total int
	for _, c := range t.Criteria {
		total += c.MaxScore
	}
	return total
}

func (t Template) criterion(key string) (Criterion, bool) {
	for _, c := range t.Criteria {
		if c.Key == key {
			return c, true
		}
	}
	return Criterion{}, false
}

// Submission is an evaluation of a student against a template.
type Submission struct {
	TemplateID string         `json:"templateId"`
	StudentID  string         `json:"studentId"`
	Scores     map[string]int `json:"scores"`
	Comment    string         `json:"comment,omitempty"`
}

// Validate checks s against t: every criterion scored within 0..MaxScore, no unknown criteria.
func (s *Submission) Validate(t Template) error {
	s.TemplateID = core.CleanString(s.TemplateID)
	s.StudentID = core.CleanString(s.StudentID)
	s.Comment = core.CleanString(s.Comment)

	var fldErrs []core.FieldError
	if s.TemplateID == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "templateId", Error: ErrTemplateRequired.Error()})
	}
	if s.StudentID == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "studentId", Error: ErrStudentRequired.Error()})
	}
	for _, c := range t.Criteria {
		score, ok := s.Scores[c.Key]
		switch {
		case !ok:
			fldErrs = append(fldErrs, core.FieldError{Field: "scores." + c.Key, Error: "score is required"})
		case score < 0 || score > c.MaxScore:
			fldErrs = append(fldErrs, core.FieldError{
				Field: "scores." + c.Key,
				Error: fmt.Sprintf("score must be between 0 and %d", c.MaxScore),
			})
		}
	}
	for _, key := range sortedKeys(s.Scores) {
		if _, ok := t.criterion(key); !ok {
			fldErrs = append(fldErrs, core.FieldError{Field: "scores." + key, Error: "unknown criterion"})
		}
	}

	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

// Total returns the score of s and the maximum reachable with t.
// Scores of unknown criteria are ignored.
func Total(s Submission, t Template) (score, maxScore int) {
	for _, c := range t.Criteria {
		score += s.Scores[c.Key]
	}
	return score, t.MaxTotal()
}

// Evaluation is a stored Submission.
type Evaluation struct {
	ID          string         `json:"id" db:"id"`
	TemplateID  string         `json:"templateId" db:"template_id"`
	StudentID   string         `json:"studentId" db:"student_id"`
	EvaluatorID string         `json:"evaluatorId" db:"evaluator_id"`
	Scores      map[string]int `json:"scores" db:"-"`
	Comment     string         `json:"comment,omitempty" db:"comment"`
	Total       int            `json:"total" db:"total"`
	MaxTotal    int            `json:"maxTotal" db:"max_total"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"` // UTC
}
