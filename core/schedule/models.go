package schedule

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trainingcmd/portal/core"
	"github.com/trainingcmd/portal/core/user"
)

// Schedule is a teaching session as stored by the API.
type Schedule struct {
	ID        string      `json:"id" db:"id"`
	Title     string      `json:"title" db:"title"`
	Start     string      `json:"start" db:"start_at"`
	End       string      `json:"end,omitempty" db:"end_at"`
	AllDay    bool        `json:"allDay" db:"all_day"`
	TeacherID string      `json:"teacherId,omitempty" db:"teacher_id"`
	Location  string      `json:"location,omitempty" db:"location"`
	Color     string      `json:"color,omitempty" db:"color"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updatedAt" db:"updated_at"` // UTC
	Teacher   *TeacherRef `json:"teacher,omitempty" db:"-"`
}

// TeacherRef is the summary of the assigned teacher embedded in API responses.
type TeacherRef struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      string `json:"role"`
}

func NewTeacherRef(usr user.User) *TeacherRef {
	return &TeacherRef{
		ID:        usr.ID,
		Username:  usr.Username,
		FirstName: usr.FirstName,
		LastName:  usr.LastName,
		Role:      usr.Role,
	}
}

// Input contains what an admin sends to create or replace a schedule.
type Input struct {
	Title     string `json:"title" validate:"required"`
	Start     string `json:"start" validate:"required"`
	End       string `json:"end"`
	AllDay    bool   `json:"allDay"`
	TeacherID string `json:"teacherId"`
	Location  string `json:"location"`
	Color     string `json:"color" validate:"omitempty,hexcolor"`
}

// Validate checks in: title and start are required, start and end are RFC 3339 timestamps
// or YYYY-MM-DD dates, and end is not before start.
func (in *Input) Validate(v *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	in.Start = core.CleanString(in.Start)
	in.End = core.CleanString(in.End)
	in.TeacherID = core.CleanString(in.TeacherID)
	in.Location = core.CleanString(in.Location)
	in.Color = core.CleanString(in.Color)
	if err := v.Struct(in); err != nil {
		return err
	}

	start, err := ParseTime(in.Start)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "start", Error: err.Error()})
	}
	if in.End == "" {
		return nil
	}
	end, err := ParseTime(in.End)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "end", Error: err.Error()})
	}
	if end.Before(start) {
		return core.NewValidationError(nil, core.FieldError{Field: "end", Error: "end must not be before start"})
	}
	return nil
}

// ParseTime accepts RFC 3339 timestamps and YYYY-MM-DD dates.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, errInvalidTime
}
