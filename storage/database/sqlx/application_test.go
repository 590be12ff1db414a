package sqlxrepos

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/application"
)

func Test_whereClause(t *testing.T) {
	tests := []struct {
		name     string
		filter   application.QueryFilter
		wantSQL  string
		wantArgs []interface{}
	}{
		{name: "empty"},
		{
			name:    "unlinked",
			filter:  application.QueryFilter{Unlinked: true},
			wantSQL: " WHERE (student_id IS NULL OR student_id = '')",
		},
		{
			name:     "student and statuses",
			filter:   application.QueryFilter{StudentID: "uid-1", Statuses: []application.Status{application.StatusApproved}},
			wantSQL:  " WHERE student_id = $1 AND status = ANY($2)",
			wantArgs: []interface{}{"uid-1", pq.Array([]string{"Approved"})},
		},
		{
			name:     "search",
			filter:   application.QueryFilter{Search: "50%_off"},
			wantSQL:  " WHERE (applicant_full_name ILIKE $1 OR applicant_email ILIKE $1 OR reference_number ILIKE $1)",
			wantArgs: []interface{}{`%50\%\_off%`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSQL, gotArgs := whereClause(tt.filter)
			assert.Equal(t, tt.wantSQL, gotSQL)
			assert.Equal(t, tt.wantArgs, gotArgs)
		})
	}
}

func Test_orderClause(t *testing.T) {
	assert.Equal(t, " ORDER BY application_date DESC, id", orderClause(nil))
	assert.Equal(t,
		" ORDER BY reference_number ASC, id",
		orderClause([]core.DBOrdering{{Field: application.OrderReferenceNumber, Ascending: true}, {Field: "1; DROP TABLE application"}}))
}

func Test_setClause(t *testing.T) {
	status := application.StatusApproved
	by := "counselor-1"
	sets, args := setClause(application.Update{Status: &status, ReviewedBy: &by}, 2)
	assert.Equal(t, "status = $3, reviewed_by = $4", sets)
	assert.Len(t, args, 2)

	sets, args = setClause(application.Update{}, 1)
	assert.Empty(t, sets)
	assert.Empty(t, args)
}

func Test_applicationRow(t *testing.T) {
	reviewed := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	app := application.Application{
		ID:              "5f0c6c1e-7c5e-4c4b-9a43-5b8ab4c1f001",
		ReferenceNumber: "BB-ABC123XYZ",
		ProgramID:       "digital-fortress",
		ProgramTitle:    "The Digital Fortress",
		Applicant:       application.Applicant{FullName: "Ada", Email: "ada@test.cd", Phone: "5550100000"},
		Status:          application.StatusApproved,
		ReviewedBy:      "counselor-1",
		ReviewedAt:      &reviewed,
		Payment:         &application.Payment{Option: application.PaymentFull, ConfirmedAt: reviewed},
		ApplicationDate: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	row := toApplicationRow(app)
	assert.False(t, row.StudentID.Valid, "unlinked applications store NULL")
	assert.Equal(t, app, row.toApplication())
}
