package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/auth"
)

var (
	// errors
	ErrNotFound      = core.NotFoundError{Resource: "student"}
	ErrStudentExists = errors.New("a student is already registered for this account")
	ErrEmailExists   = errors.New("a student with this email already exists")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudent(ctx context.Context, filter GetFilter) (Student, error)
	}

	Service struct {
		repo     Repository
		validate *core.Validator
	}
)

func NewService(repo Repository, validate *core.Validator) *Service {
	return &Service{repo: repo, validate: validate}
}

// Register creates the Student record of the authenticated identity.
func (svc *Service) Register(ctx context.Context, id auth.Identity, ns NewStudent) (Student, error) {
	if !id.IsAuthenticated() {
		return Student{}, core.ErrUnauthenticated
	}
	if core.CleanString(ns.Email) == "" {
		ns.Email = id.Email
	}
	if core.CleanString(ns.FullName) == "" {
		ns.FullName = id.DisplayName
	}
	ns.Clean()
	if err := svc.validate.Check(ns); err != nil {
		return Student{}, err
	}
	if err := svc.checkUniqueness(ctx, id.UID, ns.Email); err != nil {
		return Student{}, err
	}

	std, err := svc.repo.CreateStudent(ctx, Student{
		ID:        id.UID,
		FullName:  ns.FullName,
		Email:     ns.Email,
		Phone:     ns.Phone,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Student{}, core.NewDependencyError("store", errors.Wrap(err, "creating student"))
	}
	return std, nil
}

func (svc *Service) checkUniqueness(ctx context.Context, uid, email string) error {
	if _, err := svc.repo.GetStudent(ctx, GetFilter{ID: uid}); err == nil {
		return core.NewValidationError(ErrStudentExists)
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.NewDependencyError("store", errors.Wrap(err, "finding student by ID"))
	}
	if _, err := svc.repo.GetStudent(ctx, GetFilter{Email: email}); err == nil {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.NewDependencyError("store", errors.Wrap(err, "finding student by email"))
	}
	return nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{ID: core.CleanString(id)})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}
