package portalapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trainingcmd/portal/core/evaluation"
	"github.com/trainingcmd/portal/core/news"
	"github.com/trainingcmd/portal/core/schedule"
	"github.com/trainingcmd/portal/core/user"
)

// ListUsers lists the users with role, or every user when role is empty. Admin only.
func (c *Client) ListUsers(ctx context.Context, role string) ([]user.User, error) {
	path := "/api/admin/users"
	if role != "" {
		path += "?" + url.Values{"role": {role}}.Encode()
	}
	var users []user.User
	if err := c.getList(ctx, path, "users", &users); err != nil {
		return nil, errors.Wrap(err, "listing users")
	}
	return users, nil
}

// CreateUser creates an account. Admin only.
func (c *Client) CreateUser(ctx context.Context, na user.NewAccount) (user.User, error) {
	var usr user.User
	if err := c.doJSON(ctx, http.MethodPost, "/api/admin/users", na, &usr); err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

// Schedules lists every teaching schedule. Admin only.
func (c *Client) Schedules(ctx context.Context) ([]schedule.Record, error) {
	var recs []schedule.Record
	if err := c.getList(ctx, "/api/admin/teaching-schedules", "schedules", &recs); err != nil {
		return nil, errors.Wrap(err, "listing schedules")
	}
	return recs, nil
}

// MySchedules lists the teaching schedules visible to the current user.
func (c *Client) MySchedules(ctx context.Context) ([]schedule.Record, error) {
	var recs []schedule.Record
	if err := c.getList(ctx, "/api/teaching-schedules", "schedules", &recs); err != nil {
		return nil, errors.Wrap(err, "listing schedules")
	}
	return recs, nil
}

func (c *Client) CreateSchedule(ctx context.Context, in schedule.Input) (schedule.Record, error) {
	var rec schedule.Record
	if err := c.doJSON(ctx, http.MethodPost, "/api/admin/teaching-schedules", in, &rec); err != nil {
		return nil, errors.Wrap(err, "creating schedule")
	}
	return rec, nil
}

func (c *Client) UpdateSchedule(ctx context.Context, id string, in schedule.Input) (schedule.Record, error) {
	var rec schedule.Record
	if err := c.doJSON(ctx, http.MethodPut, "/api/admin/teaching-schedules/"+url.PathEscape(id), in, &rec); err != nil {
		return nil, errors.Wrap(err, "updating schedule")
	}
	return rec, nil
}

func (c *Client) DeleteSchedule(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/api/admin/teaching-schedules/"+url.PathEscape(id), nil, nil); err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	return nil
}

// Templates lists the evaluation templates. Admin only.
func (c *Client) Templates(ctx context.Context) ([]evaluation.Template, error) {
	var tmpls []evaluation.Template
	if err := c.getList(ctx, "/api/admin/student-evaluation-templates", "templates", &tmpls); err != nil {
		return nil, errors.Wrap(err, "listing templates")
	}
	return tmpls, nil
}

func (c *Client) CreateTemplate(ctx context.Context, nt evaluation.NewTemplate) (evaluation.Template, error) {
	var tmpl evaluation.Template
	if err := c.doJSON(ctx, http.MethodPost, "/api/admin/student-evaluation-templates", nt, &tmpl); err != nil {
		return evaluation.Template{}, errors.Wrap(err, "creating template")
	}
	return tmpl, nil
}

// SubmitEvaluation files an evaluation of a student.
func (c *Client) SubmitEvaluation(ctx context.Context, s evaluation.Submission) (evaluation.Evaluation, error) {
	var ev evaluation.Evaluation
	if err := c.doJSON(ctx, http.MethodPost, "/api/student-evaluations", s, &ev); err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "submitting evaluation")
	}
	return ev, nil
}

// News returns the latest announcements; limit <= 0 lets the API decide.
func (c *Client) News(ctx context.Context, limit int) ([]news.Item, error) {
	path := "/api/news"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var items []news.Item
	if err := c.getList(ctx, path, "items", &items); err != nil {
		return nil, errors.Wrap(err, "fetching news")
	}
	return items, nil
}

// getList decodes either a bare JSON array or an object holding it under key.
func (c *Client) getList(ctx context.Context, path, key string, out interface{}) error {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrap(raw, key), out); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}
