// Package news holds the portal announcements and renders their markdown bodies.
package news

import (
	"bytes"
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	pkgerrors "github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/trainingcmd/portal/core"
)

var (
	nowFunc = time.Now // mockable

	ErrNotFound = errors.New("news item not found")

	md         = goldmark.New(goldmark.WithExtensions(extension.GFM))
	ugcPolicy  = bluemonday.UGCPolicy()
	textPolicy = bluemonday.StrictPolicy()
)

// Item is an announcement. Body is markdown.
type Item struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Body        string    `json:"body" db:"body"`
	Author      string    `json:"author" db:"author"`
	PublishedAt time.Time `json:"publishedAt" db:"published_at"` // UTC
}

// RenderHTML converts markdown into HTML safe to embed in a page.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", pkgerrors.Wrap(err, "rendering markdown")
	}
	return ugcPolicy.Sanitize(buf.String()), nil
}

// RenderText converts markdown into plain text on a single line.
func RenderText(markdown string) (string, error) {
	h, err := RenderHTML(markdown)
	if err != nil {
		return "", err
	}
	text := html.UnescapeString(textPolicy.Sanitize(h))
	return strings.Join(strings.Fields(text), " "), nil
}

type (
	Repository interface {
		Create(ctx context.Context, it Item) (Item, error)
		// List returns the items published at or before now, newest first.
		List(ctx context.Context, now time.Time, limit int) ([]Item, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Publish stores an item dated now. Title and body are required.
func (svc *Service) Publish(ctx context.Context, title, body, author string) (Item, error) {
	it := Item{
		Title:       core.CleanString(title),
		Body:        strings.TrimSpace(body),
		Author:      core.CleanString(author),
		PublishedAt: nowFunc().UTC(),
	}
	var fldErrs []core.FieldError
	if it.Title == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "title", Error: "this field is required"})
	}
	if it.Body == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "body", Error: "this field is required"})
	}
	if len(fldErrs) > 0 {
		return Item{}, core.NewValidationError(nil, fldErrs...)
	}
	return svc.repo.Create(ctx, it)
}

// Latest returns up to limit published items, newest first. limit <= 0 means no limit.
func (svc *Service) Latest(ctx context.Context, limit int) ([]Item, error) {
	return svc.repo.List(ctx, nowFunc().UTC(), limit)
}
