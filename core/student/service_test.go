package student_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/auth"
	"github.com/Kingsman71/Binary-Learning/core/student"
	"github.com/Kingsman71/Binary-Learning/storage/database/inmem"
)

func setup(t *testing.T) *student.Service {
	db := inmemdb.Open()
	t.Cleanup(func() { _ = db.Close() })
	return student.NewService(inmemdb.NewStudentRepository(db), core.NewValidator())
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)
	ada := auth.Identity{UID: "uid-1", Email: "Ada@Test.cd", DisplayName: "Ada Lovelace", Role: auth.RoleStudent}

	_, err := svc.Register(ctx, auth.Identity{}, student.NewStudent{Phone: "5550100000"})
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	_, err = svc.Register(ctx, ada, student.NewStudent{Phone: "555-01"})
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "phone", vErr.Fields[0].Field)

	std, err := svc.Register(ctx, ada, student.NewStudent{Phone: "+1 (555) 010-0000"})
	require.NoError(t, err)
	assert.Equal(t, "uid-1", std.ID)
	assert.Equal(t, "ada@test.cd", std.Email)
	assert.Equal(t, "Ada Lovelace", std.FullName)

	got, err := svc.GetByEmail(ctx, " ADA@test.cd")
	require.NoError(t, err)
	assert.Equal(t, std.ID, got.ID)

	t.Run("already registered", func(t *testing.T) {
		_, err := svc.Register(ctx, ada, student.NewStudent{Phone: "+1 (555) 010-0000"})
		assert.True(t, errors.As(err, new(*core.ValidationError)))
		assert.EqualError(t, err, student.ErrStudentExists.Error())
	})

	t.Run("email taken", func(t *testing.T) {
		other := auth.Identity{UID: "uid-2", Email: "other@test.cd"}
		_, err := svc.Register(ctx, other, student.NewStudent{FullName: "Impostor", Email: "ada@test.cd", Phone: "5550100000"})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr), "got %v", err)
		require.Len(t, vErr.Fields, 1)
		assert.Equal(t, "email", vErr.Fields[0].Field)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.GetByID(ctx, "uid-404")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}
