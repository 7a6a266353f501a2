package inmemdb

import (
	"context"
	"sort"

	"github.com/trainingcmd/portal/core/evaluation"
)

type evaluationRepository struct {
	db *DB
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(db *DB) evaluation.Repository {
	return &evaluationRepository{db: db}
}

func cloneTemplate(t *evaluation.Template) evaluation.Template {
	c := *t
	c.Criteria = append([]evaluation.Criterion(nil), t.Criteria...)
	return c
}

func (repo *evaluationRepository) CreateTemplate(_ context.Context, t evaluation.Template) (evaluation.Template, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if t.ID == "" {
		t.ID = newID()
	}
	stored := cloneTemplate(&t)
	repo.db.templates[t.ID] = &stored
	return t, nil
}

func (repo *evaluationRepository) GetTemplate(_ context.Context, id string) (evaluation.Template, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.templates[id]; ok {
		return cloneTemplate(t), nil
	}
	return evaluation.Template{}, evaluation.ErrTemplateNotFound
}

func (repo *evaluationRepository) ListTemplates(_ context.Context) ([]evaluation.Template, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	list := make([]evaluation.Template, 0, len(repo.db.templates))
	for _, t := range repo.db.templates {
		list = append(list, cloneTemplate(t))
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].Title < list[j].Title
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (repo *evaluationRepository) CreateEvaluation(_ context.Context, e evaluation.Evaluation) (evaluation.Evaluation, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if e.ID == "" {
		e.ID = newID()
	}
	stored := e
	stored.Scores = make(map[string]int, len(e.Scores))
	for k, v := range e.Scores {
		stored.Scores[k] = v
	}
	repo.db.evaluations[e.ID] = &stored
	return e, nil
}
