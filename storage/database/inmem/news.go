package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trainingcmd/portal/core/news"
)

type newsRepository struct {
	db *DB
}

var _ news.Repository = (*newsRepository)(nil) // interface compliance check

func NewNewsRepository(db *DB) news.Repository {
	return &newsRepository{db: db}
}

func (repo *newsRepository) Create(_ context.Context, it news.Item) (news.Item, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if it.ID == "" {
		it.ID = newID()
	}
	stored := it
	repo.db.news[it.ID] = &stored
	return it, nil
}

func (repo *newsRepository) List(_ context.Context, now time.Time, limit int) ([]news.Item, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	items := make([]news.Item, 0, len(repo.db.news))
	for _, it := range repo.db.news {
		if it.PublishedAt.After(now) {
			continue
		}
		items = append(items, *it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].PublishedAt.After(items[j].PublishedAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
