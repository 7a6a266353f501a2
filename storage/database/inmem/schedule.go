package inmemdb

import (
	"context"
	"sort"

	"github.com/trainingcmd/portal/core/schedule"
)

type scheduleRepository struct {
	db *DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) Create(_ context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if s.ID == "" {
		s.ID = newID()
	}
	s.Teacher = nil
	stored := s
	repo.db.schedules[s.ID] = &stored
	return s, nil
}

func (repo *scheduleRepository) Get(_ context.Context, id string) (schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.schedules[id]; ok {
		return *s, nil
	}
	return schedule.Schedule{}, schedule.ErrNotFound
}

func (repo *scheduleRepository) Update(_ context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.schedules[s.ID]; !ok {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	s.Teacher = nil
	stored := s
	repo.db.schedules[s.ID] = &stored
	return s, nil
}

func (repo *scheduleRepository) Delete(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.schedules[id]; !ok {
		return schedule.ErrNotFound
	}
	delete(repo.db.schedules, id)
	return nil
}

func (repo *scheduleRepository) List(_ context.Context, filter schedule.Filter) ([]schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	list := make([]schedule.Schedule, 0, len(repo.db.schedules))
	for _, s := range repo.db.schedules {
		if filter.TeacherID != "" && s.TeacherID != filter.TeacherID {
			continue
		}
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Start == list[j].Start {
			return list[i].ID < list[j].ID
		}
		return list[i].Start < list[j].Start
	})
	return list, nil
}
