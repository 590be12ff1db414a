package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/application"
)

type applicationRepository struct {
	db *applicationTable
}

var _ application.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *DB) *applicationRepository {
	return &applicationRepository{db: db.application}
}

func (repo *applicationRepository) CreateApplication(_ context.Context, app application.Application) (application.Application, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	app.ApplicationDate = app.ApplicationDate.UTC()
	stored := app
	repo.db.table[app.ID] = &stored
	return app, nil
}

func (repo *applicationRepository) GetApplication(_ context.Context, id string) (application.Application, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if app, ok := repo.db.table[id]; ok {
		return *app, nil
	}
	return application.Application{}, application.ErrNotFound
}

func (repo *applicationRepository) QueryApplications(
	_ context.Context,
	filter application.QueryFilter,
	ordering []core.DBOrdering,
) ([]application.Application, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	apps := make([]application.Application, 0)
	for _, app := range repo.db.table {
		if filter.Match(*app) {
			apps = append(apps, *app)
		}
	}
	sortApplications(apps, ordering)
	return apps, nil
}

func (repo *applicationRepository) UpdateApplication(_ context.Context, id string, upd application.Update) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	app, ok := repo.db.table[id]
	if !ok {
		return application.ErrNotFound
	}
	updated := upd.Apply(*app)
	repo.db.table[id] = &updated
	return nil
}

func (repo *applicationRepository) TransitionApplication(
	_ context.Context,
	id string,
	from application.Status,
	upd application.Update,
) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	app, ok := repo.db.table[id]
	if !ok {
		return application.ErrNotFound
	}
	if app.Status != from {
		return application.ErrStatusChanged
	}
	updated := upd.Apply(*app)
	repo.db.table[id] = &updated
	return nil
}

func (repo *applicationRepository) RecordPayment(_ context.Context, id string, p application.Payment) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	app, ok := repo.db.table[id]
	if !ok {
		return application.ErrNotFound
	}
	if app.Status != application.StatusApproved || app.Payment != nil {
		return application.ErrStatusChanged
	}
	updated := application.Update{Payment: &p}.Apply(*app)
	repo.db.table[id] = &updated
	return nil
}

func (repo *applicationRepository) DeleteApplication(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.table, id)
	return nil
}

// sortApplications defaults to the most recent applications first.
func sortApplications(apps []application.Application, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: application.OrderApplicationDate}}
	}
	sort.SliceStable(apps, func(i, j int) bool {
		a, b := apps[i], apps[j]
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case application.OrderApplicationDate:
				cmp = compareTimes(a, b)
			case application.OrderReferenceNumber:
				cmp = compareStrings(a.ReferenceNumber, b.ReferenceNumber)
			}
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return a.ID < b.ID
	})
}

func compareTimes(a, b application.Application) int {
	switch {
	case a.ApplicationDate.Before(b.ApplicationDate):
		return -1
	case a.ApplicationDate.After(b.ApplicationDate):
		return 1
	}
	return 0
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
