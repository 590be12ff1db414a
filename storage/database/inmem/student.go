package inmemdb

import (
	"context"
	"strings"

	"github.com/Kingsman71/Binary-Learning/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	std.CreatedAt = std.CreatedAt.UTC()
	stored := std
	repo.db.table[std.ID] = &stored
	return std, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, filter student.GetFilter) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if std, ok := repo.db.table[filter.ID]; ok {
			return *std, nil
		}
		return student.Student{}, student.ErrNotFound
	}
	if filter.Email != "" {
		for _, std := range repo.db.table {
			if strings.EqualFold(std.Email, filter.Email) {
				return *std, nil
			}
		}
	}
	return student.Student{}, student.ErrNotFound
}
