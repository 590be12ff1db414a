package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/application"
)

const applicationColumns = `id, reference_number, student_id, program_id, program_title,
	applicant_full_name, applicant_email, applicant_phone,
	highest_qualification, field_of_study, institution, statement_of_purpose,
	status, recommended_program_id, denial_reason, reviewed_by, reviewed_at,
	payment_option, payment_confirmed_at, application_date`

var orderingColumns = map[string]string{
	application.OrderApplicationDate: "application_date",
	application.OrderReferenceNumber: "reference_number",
}

// applicationRow is the flattened "application" table row.
type applicationRow struct {
	ID                   string         `db:"id"`
	ReferenceNumber      string         `db:"reference_number"`
	StudentID            sql.NullString `db:"student_id"`
	ProgramID            string         `db:"program_id"`
	ProgramTitle         string         `db:"program_title"`
	FullName             string         `db:"applicant_full_name"`
	Email                string         `db:"applicant_email"`
	Phone                string         `db:"applicant_phone"`
	HighestQualification string         `db:"highest_qualification"`
	FieldOfStudy         string         `db:"field_of_study"`
	Institution          string         `db:"institution"`
	StatementOfPurpose   string         `db:"statement_of_purpose"`
	Status               string         `db:"status"`
	RecommendedProgramID sql.NullString `db:"recommended_program_id"`
	DenialReason         sql.NullString `db:"denial_reason"`
	ReviewedBy           sql.NullString `db:"reviewed_by"`
	ReviewedAt           sql.NullTime   `db:"reviewed_at"`
	PaymentOption        sql.NullString `db:"payment_option"`
	PaymentConfirmedAt   sql.NullTime   `db:"payment_confirmed_at"`
	ApplicationDate      time.Time      `db:"application_date"`
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toApplicationRow(app application.Application) applicationRow {
	row := applicationRow{
		ID:                   app.ID,
		ReferenceNumber:      app.ReferenceNumber,
		StudentID:            nullString(app.StudentID),
		ProgramID:            app.ProgramID,
		ProgramTitle:         app.ProgramTitle,
		FullName:             app.Applicant.FullName,
		Email:                app.Applicant.Email,
		Phone:                app.Applicant.Phone,
		HighestQualification: app.Education.HighestQualification,
		FieldOfStudy:         app.Education.FieldOfStudy,
		Institution:          app.Education.Institution,
		StatementOfPurpose:   app.StatementOfPurpose,
		Status:               string(app.Status),
		RecommendedProgramID: nullString(app.RecommendedProgramID),
		DenialReason:         nullString(app.DenialReason),
		ReviewedBy:           nullString(app.ReviewedBy),
		ApplicationDate:      app.ApplicationDate.UTC(),
	}
	if app.ReviewedAt != nil {
		row.ReviewedAt = sql.NullTime{Time: app.ReviewedAt.UTC(), Valid: true}
	}
	if app.Payment != nil {
		row.PaymentOption = nullString(app.Payment.Option)
		row.PaymentConfirmedAt = sql.NullTime{Time: app.Payment.ConfirmedAt.UTC(), Valid: true}
	}
	return row
}

func (row applicationRow) toApplication() application.Application {
	app := application.Application{
		ID:                   row.ID,
		ReferenceNumber:      row.ReferenceNumber,
		StudentID:            row.StudentID.String,
		ProgramID:            row.ProgramID,
		ProgramTitle:         row.ProgramTitle,
		Applicant:            application.Applicant{FullName: row.FullName, Email: row.Email, Phone: row.Phone},
		StatementOfPurpose:   row.StatementOfPurpose,
		Status:               application.Status(row.Status),
		RecommendedProgramID: row.RecommendedProgramID.String,
		DenialReason:         row.DenialReason.String,
		ReviewedBy:           row.ReviewedBy.String,
		ApplicationDate:      row.ApplicationDate.UTC(),
		Education: application.Education{
			HighestQualification: row.HighestQualification,
			FieldOfStudy:         row.FieldOfStudy,
			Institution:          row.Institution,
		},
	}
	if row.ReviewedAt.Valid {
		t := row.ReviewedAt.Time.UTC()
		app.ReviewedAt = &t
	}
	if row.PaymentOption.Valid {
		app.Payment = &application.Payment{Option: row.PaymentOption.String, ConfirmedAt: row.PaymentConfirmedAt.Time.UTC()}
	}
	return app
}

type applicationRepository struct {
	db *sqlx.DB
}

var _ application.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *sqlx.DB) *applicationRepository {
	return &applicationRepository{db: db}
}

func (repo *applicationRepository) CreateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	app.ApplicationDate = app.ApplicationDate.UTC()

	q := `INSERT INTO application (` + applicationColumns + `) VALUES (
		:id, :reference_number, :student_id, :program_id, :program_title,
		:applicant_full_name, :applicant_email, :applicant_phone,
		:highest_qualification, :field_of_study, :institution, :statement_of_purpose,
		:status, :recommended_program_id, :denial_reason, :reviewed_by, :reviewed_at,
		:payment_option, :payment_confirmed_at, :application_date)`
	if _, err := repo.db.NamedExecContext(ctx, q, toApplicationRow(app)); err != nil {
		return application.Application{}, errors.Wrap(err, "inserting application")
	}
	return app, nil
}

func (repo *applicationRepository) GetApplication(ctx context.Context, id string) (application.Application, error) {
	if _, err := uuid.Parse(id); err != nil {
		return application.Application{}, application.ErrNotFound
	}
	var row applicationRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+applicationColumns+` FROM application WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return application.Application{}, application.ErrNotFound
		}
		return application.Application{}, errors.Wrap(err, "finding application by ID")
	}
	return row.toApplication(), nil
}

// whereClause translates `filter` into a WHERE clause using $n placeholders.
func whereClause(filter application.QueryFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Unlinked {
		conds = append(conds, "(student_id IS NULL OR student_id = '')")
	}
	if filter.StudentID != "" {
		conds = append(conds, "student_id = "+arg(filter.StudentID))
	}
	if filter.Email != "" {
		conds = append(conds, "applicant_email = "+arg(filter.Email))
	}
	if filter.ReferenceNumber != "" {
		conds = append(conds, "reference_number = "+arg(filter.ReferenceNumber))
	}
	if filter.ProgramID != "" {
		conds = append(conds, "program_id = "+arg(filter.ProgramID))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		conds = append(conds, "status = ANY("+arg(pq.Array(statuses))+")")
	}
	// applications with the applicant's name, email or the reference number matching the search keyword
	if filter.Search != "" {
		val := arg("%" + escapeLike(filter.Search) + "%")
		conds = append(conds, fmt.Sprintf(
			"(applicant_full_name ILIKE %s OR applicant_email ILIKE %s OR reference_number ILIKE %s)", val, val, val))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func orderClause(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: application.OrderApplicationDate}}
	}
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		col, ok := orderingColumns[ord.Field]
		if !ok {
			continue
		}
		orderList = append(orderList, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	orderList = append(orderList, "id")
	return " ORDER BY " + strings.Join(orderList, ", ")
}

func (repo *applicationRepository) QueryApplications(
	ctx context.Context,
	filter application.QueryFilter,
	ordering []core.DBOrdering,
) ([]application.Application, error) {
	where, args := whereClause(filter)
	q := `SELECT ` + applicationColumns + ` FROM application` + where + orderClause(ordering)

	var rows []applicationRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}
	apps := make([]application.Application, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, row.toApplication())
	}
	return apps, nil
}

// setClause lists the columns of `upd` to write, numbering placeholders after the first `offset` args.
func setClause(upd application.Update, offset int) (string, []interface{}) {
	var sets []string
	var args []interface{}
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, offset+len(args)))
	}

	if upd.StudentID != nil {
		set("student_id", nullString(*upd.StudentID))
	}
	if upd.Status != nil {
		set("status", string(*upd.Status))
	}
	if upd.RecommendedProgramID != nil {
		set("recommended_program_id", nullString(*upd.RecommendedProgramID))
	}
	if upd.DenialReason != nil {
		set("denial_reason", nullString(*upd.DenialReason))
	}
	if upd.ReviewedBy != nil {
		set("reviewed_by", nullString(*upd.ReviewedBy))
	}
	if upd.ReviewedAt != nil {
		set("reviewed_at", upd.ReviewedAt.UTC())
	}
	if upd.Payment != nil {
		set("payment_option", upd.Payment.Option)
		set("payment_confirmed_at", upd.Payment.ConfirmedAt.UTC())
	}
	return strings.Join(sets, ", "), args
}

func (repo *applicationRepository) UpdateApplication(ctx context.Context, id string, upd application.Update) error {
	if _, err := uuid.Parse(id); err != nil {
		return application.ErrNotFound
	}
	sets, args := setClause(upd, 1)
	if sets == "" {
		return nil
	}
	res, err := repo.db.ExecContext(ctx, `UPDATE application SET `+sets+` WHERE id = $1`, append([]interface{}{id}, args...)...)
	if err != nil {
		return errors.Wrap(err, "updating application")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return application.ErrNotFound
	}
	return nil
}

func (repo *applicationRepository) TransitionApplication(
	ctx context.Context,
	id string,
	from application.Status,
	upd application.Update,
) error {
	if _, err := uuid.Parse(id); err != nil {
		return application.ErrNotFound
	}
	sets, args := setClause(upd, 2)
	if sets == "" {
		return nil
	}
	q := `UPDATE application SET ` + sets + ` WHERE id = $1 AND status = $2`
	return repo.conditionalUpdate(ctx, q, append([]interface{}{id, string(from)}, args...), "updating application status")
}

func (repo *applicationRepository) RecordPayment(ctx context.Context, id string, p application.Payment) error {
	if _, err := uuid.Parse(id); err != nil {
		return application.ErrNotFound
	}
	sets, args := setClause(application.Update{Payment: &p}, 2)
	q := `UPDATE application SET ` + sets + ` WHERE id = $1 AND status = $2 AND payment_option IS NULL`
	return repo.conditionalUpdate(ctx, q, append([]interface{}{id, string(application.StatusApproved)}, args...), "recording payment")
}

// conditionalUpdate runs `q`, whose first arg is the application id. When no row matched it tells
// ErrNotFound from ErrStatusChanged.
func (repo *applicationRepository) conditionalUpdate(ctx context.Context, q string, args []interface{}, msg string) error {
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n > 0 {
		return nil
	}

	id := args[0]
	var exists bool
	if err = repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM application WHERE id = $1)`, id); err != nil {
		return errors.Wrap(err, "checking application")
	}
	if !exists {
		return application.ErrNotFound
	}
	return application.ErrStatusChanged
}

func (repo *applicationRepository) DeleteApplication(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM application WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting application")
	}
	return nil
}
