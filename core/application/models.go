package application

import (
	"time"

	"github.com/Kingsman71/Binary-Learning/core"
)

// Status vocabulary, stored verbatim.
const (
	StatusPending  Status = "Pending Review"
	StatusApproved Status = "Approved"
	StatusDenied   Status = "Denied"
)

// Payment options
const (
	PaymentFull = "full"
	PaymentPlan = "plan"
)

// Ordering fields
const (
	OrderApplicationDate = "application_date"
	OrderReferenceNumber = "reference_number"
)

var AllStatuses = []Status{StatusPending, StatusApproved, StatusDenied}

// Status is compared by exact match only. Any other value read from the store is a data-integrity defect.
type Status string

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDenied:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusDenied
}

type (
	Applicant struct {
		FullName string `json:"full_name" bson:"fullName" validate:"required,notblank,min=2"`
		Email    string `json:"email" bson:"email" validate:"required,email"`
		Phone    string `json:"phone" bson:"phone" validate:"required,phone"`
	}

	Education struct {
		HighestQualification string `json:"highest_qualification" bson:"highestQualification" validate:"required,notblank,min=2"`
		FieldOfStudy         string `json:"field_of_study" bson:"fieldOfStudy" validate:"required,notblank,min=2"`
		Institution          string `json:"institution" bson:"institution" validate:"required,notblank,min=2"`
	}

	Payment struct {
		Option      string    `json:"option" bson:"option"`
		ConfirmedAt time.Time `json:"confirmed_at" bson:"confirmedAt"` // UTC
	}

	// Application is a student's submission for one program.
	// An empty StudentID marks an un-migrated (orphaned) record.
	Application struct {
		ID                   string     `json:"id" bson:"_id"`
		ReferenceNumber      string     `json:"reference_number" bson:"referenceNumber"`
		StudentID            string     `json:"student_id,omitempty" bson:"studentId,omitempty"`
		ProgramID            string     `json:"program_id" bson:"programId"`
		ProgramTitle         string     `json:"program_title" bson:"programTitle"`
		Applicant            Applicant  `json:"applicant" bson:"applicant"`
		Education            Education  `json:"education" bson:"education"`
		StatementOfPurpose   string     `json:"statement_of_purpose" bson:"statementOfPurpose"`
		Status               Status     `json:"status" bson:"status"`
		RecommendedProgramID string     `json:"recommended_program_id,omitempty" bson:"recommendedProgramId,omitempty"`
		DenialReason         string     `json:"denial_reason,omitempty" bson:"denialReason,omitempty"`
		ReviewedBy           string     `json:"reviewed_by,omitempty" bson:"reviewedBy,omitempty"`
		ReviewedAt           *time.Time `json:"reviewed_at,omitempty" bson:"reviewedAt,omitempty"` // UTC
		Payment              *Payment   `json:"payment,omitempty" bson:"payment,omitempty"`
		ApplicationDate      time.Time  `json:"application_date" bson:"applicationDate"` // UTC
	}

	// Update is a partial update: only non-nil fields are written.
	Update struct {
		StudentID            *string
		Status               *Status
		RecommendedProgramID *string
		DenialReason         *string
		ReviewedBy           *string
		ReviewedAt           *time.Time
		Payment              *Payment
	}
)

// IsLinked reports whether StudentID is set; a whitespace value counts as set.
func (app Application) IsLinked() bool {
	return app.StudentID != ""
}

// Apply returns a copy of `app` with the set fields of `upd` written over it.
func (upd Update) Apply(app Application) Application {
	if upd.StudentID != nil {
		app.StudentID = *upd.StudentID
	}
	if upd.Status != nil {
		app.Status = *upd.Status
	}
	if upd.RecommendedProgramID != nil {
		app.RecommendedProgramID = *upd.RecommendedProgramID
	}
	if upd.DenialReason != nil {
		app.DenialReason = *upd.DenialReason
	}
	if upd.ReviewedBy != nil {
		app.ReviewedBy = *upd.ReviewedBy
	}
	if upd.ReviewedAt != nil {
		t := upd.ReviewedAt.UTC()
		app.ReviewedAt = &t
	}
	if upd.Payment != nil {
		p := *upd.Payment
		app.Payment = &p
	}
	return app
}

// NewApplication contains the information a student submits.
type NewApplication struct {
	ProgramID          string    `json:"program_id" validate:"required"`
	Applicant          Applicant `json:"applicant"`
	Education          Education `json:"education"`
	StatementOfPurpose string    `json:"statement_of_purpose" validate:"required,min=50,max=1000"`
}

func (na *NewApplication) Clean() {
	na.ProgramID = core.CleanString(na.ProgramID, true /* lower */)
	na.Applicant.FullName = core.CleanString(na.Applicant.FullName)
	na.Applicant.Email = core.CleanString(na.Applicant.Email, true /* lower */)
	na.Applicant.Phone = core.CleanString(na.Applicant.Phone)
	na.Education.HighestQualification = core.CleanString(na.Education.HighestQualification)
	na.Education.FieldOfStudy = core.CleanString(na.Education.FieldOfStudy)
	na.Education.Institution = core.CleanString(na.Education.Institution)
}

// Denial is the counselor's decision to deny an application.
type Denial struct {
	Reason               string `json:"reason" validate:"required,min=10"`
	RecommendedProgramID string `json:"recommended_program_id"`
}

func (d *Denial) Clean() {
	d.Reason = core.CleanString(d.Reason)
	d.RecommendedProgramID = core.CleanString(d.RecommendedProgramID, true /* lower */)
}

type PaymentRequest struct {
	Option string `json:"option" validate:"required,oneof=full plan"`
}

// QueryFilter applies AND operation on its set fields.
// Search does a case-insensitive match on the applicant's full name, email or the reference number.
type QueryFilter struct {
	StudentID       string   `query:"student"`
	Email           string   `query:"email"`
	ReferenceNumber string   `query:"reference"`
	ProgramID       string   `query:"program"`
	Statuses        []Status `query:"status"`
	Unlinked        bool     `query:"-"` // StudentID absent
	Search          string   `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.Email = core.CleanString(qf.Email, true /* lower */)
	qf.ReferenceNumber = core.CleanString(qf.ReferenceNumber)
	qf.ProgramID = core.CleanString(qf.ProgramID, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
}

// Match reports whether `app` satisfies the filter. Stores without a query language use it directly.
func (qf QueryFilter) Match(app Application) bool {
	if qf.Unlinked && app.IsLinked() {
		return false
	}
	if qf.StudentID != "" && app.StudentID != qf.StudentID {
		return false
	}
	if qf.Email != "" && app.Applicant.Email != qf.Email {
		return false
	}
	if qf.ReferenceNumber != "" && app.ReferenceNumber != qf.ReferenceNumber {
		return false
	}
	if qf.ProgramID != "" && app.ProgramID != qf.ProgramID {
		return false
	}
	if len(qf.Statuses) > 0 {
		var ok bool
		for _, s := range qf.Statuses {
			if app.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if qf.Search != "" {
		search := core.CleanString(qf.Search, true /* lower */)
		if !containsFold(app.Applicant.FullName, search) &&
			!containsFold(app.Applicant.Email, search) &&
			!containsFold(app.ReferenceNumber, search) {
			return false
		}
	}
	return true
}
