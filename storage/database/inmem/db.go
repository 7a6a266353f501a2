// Package inmemdb keeps the development API data in memory.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trainingcmd/portal/core/evaluation"
	"github.com/trainingcmd/portal/core/news"
	"github.com/trainingcmd/portal/core/schedule"
	"github.com/trainingcmd/portal/core/user"
)

type DB struct {
	mutex       sync.RWMutex
	accounts    map[string]*user.Account
	schedules   map[string]*schedule.Schedule
	templates   map[string]*evaluation.Template
	evaluations map[string]*evaluation.Evaluation
	news        map[string]*news.Item
}

func Open() *DB {
	return &DB{
		accounts:    make(map[string]*user.Account),
		schedules:   make(map[string]*schedule.Schedule),
		templates:   make(map[string]*evaluation.Template),
		evaluations: make(map[string]*evaluation.Evaluation),
		news:        make(map[string]*news.Item),
	}
}

// Reset drops every row.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.accounts = make(map[string]*user.Account)
	db.schedules = make(map[string]*schedule.Schedule)
	db.templates = make(map[string]*evaluation.Template)
	db.evaluations = make(map[string]*evaluation.Evaluation)
	db.news = make(map[string]*news.Item)
}

func newID() string {
	return uuid.New().String()
}
