package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trainingcmd/portal/core/news"
)

type newsRepository struct {
	db *sqlx.DB
}

var _ news.Repository = (*newsRepository)(nil) // interface compliance check

func NewNewsRepository(db *sqlx.DB) news.Repository {
	return &newsRepository{db: db}
}

func (repo *newsRepository) Create(ctx context.Context, it news.Item) (news.Item, error) {
	if it.ID == "" {
		it.ID = uuid.New().String()
	}
	q := `INSERT INTO news_item (id, title, body, author, published_at)
		VALUES (:id, :title, :body, :author, :published_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, it); err != nil {
		return news.Item{}, errors.Wrap(err, "inserting news item")
	}
	return it, nil
}

func (repo *newsRepository) List(ctx context.Context, now time.Time, limit int) ([]news.Item, error) {
	q := `SELECT id, title, body, author, published_at FROM news_item WHERE published_at <= $1 ORDER BY published_at DESC`
	args := []interface{}{now}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	items := make([]news.Item, 0)
	if err := repo.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting news")
	}
	return items, nil
}
