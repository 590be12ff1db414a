// Package sqlxrepos stores applications and students in PostgreSQL.
package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/Kingsman71/Binary-Learning/core/student"
)

const (
	uniqueViolation = "23505"

	studentByEmailQuery = `SELECT id, full_name, email, phone, created_at FROM student WHERE lower(email) = lower($1)`
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	std.CreatedAt = std.CreatedAt.UTC()
	q := `INSERT INTO student (id, full_name, email, phone, created_at) VALUES (:id, :full_name, :email, :phone, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, std); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return student.Student{}, student.ErrStudentExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

// trapNoRowsErr maps psql "no rows" err to student.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *studentRepository) GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error) {
	var std student.Student
	var err error
	switch {
	case filter.ID != "":
		err = repo.db.GetContext(ctx, &std, `SELECT id, full_name, email, phone, created_at FROM student WHERE id = $1`, filter.ID)
	case filter.Email != "":
		err = repo.db.GetContext(ctx, &std, studentByEmailQuery, filter.Email)
	default:
		return student.Student{}, student.ErrNotFound
	}
	if err != nil {
		return student.Student{}, trapNoRowsErr(err, "finding student")
	}
	std.CreatedAt = std.CreatedAt.UTC()
	return std, nil
}
