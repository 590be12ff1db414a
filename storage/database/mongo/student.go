package mongodb

import (
	"context"
	"regexp"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Kingsman71/Binary-Learning/core/student"
)

type studentRepository struct {
	coll *mongo.Collection
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *mongo.Database) *studentRepository {
	return &studentRepository{coll: db.Collection(StudentsCollection)}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	std.CreatedAt = std.CreatedAt.UTC()
	if _, err := repo.coll.InsertOne(ctx, std); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return student.Student{}, student.ErrStudentExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error) {
	var query bson.M
	switch {
	case filter.ID != "":
		query = bson.M{"_id": filter.ID}
	case filter.Email != "":
		query = emailQuery(filter.Email)
	default:
		return student.Student{}, student.ErrNotFound
	}

	var std student.Student
	if err := repo.coll.FindOne(ctx, query).Decode(&std); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student")
	}
	return std, nil
}

// emailQuery matches the whole email, ignoring case.
func emailQuery(email string) bson.M {
	return bson.M{"email": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(email) + "$", Options: "i"}}
}
