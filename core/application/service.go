package application

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/auth"
	"github.com/Kingsman71/Binary-Learning/core/program"
)

var (
	// errors
	ErrNotFound      = core.NotFoundError{Resource: "application"}
	ErrStatusChanged = errors.New("application status changed concurrently")

	errSameProgram       = "cannot recommend the program that was applied for"
	errUnknownRecommend  = "unknown program"
	errAlreadyReviewed   = "application has already been reviewed"
	errNotApproved       = "application has not been approved"
	errAlreadyPaid       = "tuition payment has already been confirmed"
	errUnknownStatusText = "stored status is not canonical"
)

type (
	Repository interface {
		CreateApplication(ctx context.Context, app Application) (Application, error)
		GetApplication(ctx context.Context, id string) (Application, error)
		// QueryApplications applies AND operation on available QueryFilter fields.
		QueryApplications(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Application, error)
		UpdateApplication(ctx context.Context, id string, upd Update) error
		// TransitionApplication applies `upd` only if the stored status still equals `from`,
		// otherwise it returns ErrStatusChanged.
		TransitionApplication(ctx context.Context, id string, from Status, upd Update) error
		// RecordPayment sets the payment of an Approved application that has none,
		// otherwise it returns ErrStatusChanged.
		RecordPayment(ctx context.Context, id string, p Payment) error
		DeleteApplication(ctx context.Context, id string) error
	}

	// Metrics observes lifecycle events.
	Metrics interface {
		Transition(to string)
	}

	Service struct {
		repo     Repository
		catalog  *program.Catalog
		mailSvc  core.EmailService
		validate *core.Validator
		logger   core.Logger
		metrics  Metrics
		now      func() time.Time
	}
)

type noopMetrics struct{}

func (noopMetrics) Transition(string) {}

func NewService(
	repo Repository,
	catalog *program.Catalog,
	mailSvc core.EmailService,
	validate *core.Validator,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		catalog:  catalog,
		mailSvc:  mailSvc,
		validate: validate,
		logger:   logger,
		metrics:  noopMetrics{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics sets the lifecycle observer.
func (svc *Service) WithMetrics(m Metrics) *Service {
	if m != nil {
		svc.metrics = m
	}
	return svc
}

// notify hands messages to the email service once the state change is committed.
// Delivery is best-effort: the email service logs failures and never reports them back.
func (svc *Service) notify(messages ...*core.EmailMessage) {
	svc.mailSvc.SendMessages(messages...)
}

func (svc *Service) storeErr(err error, msg string) error {
	return core.NewDependencyError("store", errors.Wrap(err, msg))
}

// Submit creates a Pending Review application owned by `studentID` and sends the
// "received" notification. Success only depends on the write.
func (svc *Service) Submit(ctx context.Context, studentID string, na NewApplication) (Application, error) {
	studentID = core.CleanString(studentID)
	if studentID == "" {
		return Application{}, core.ErrUnauthenticated
	}
	na.Clean()
	if err := svc.validate.Check(na); err != nil {
		return Application{}, err
	}
	prog, err := svc.catalog.Get(na.ProgramID)
	if err != nil {
		return Application{}, err
	}

	app, err := svc.repo.CreateApplication(ctx, Application{
		ReferenceNumber:    newReferenceNumber(),
		StudentID:          studentID,
		ProgramID:          prog.ID,
		ProgramTitle:       prog.Title,
		Applicant:          na.Applicant,
		Education:          na.Education,
		StatementOfPurpose: na.StatementOfPurpose,
		Status:             StatusPending,
		ApplicationDate:    svc.now(),
	})
	if err != nil {
		return Application{}, svc.storeErr(err, "creating application")
	}
	svc.metrics.Transition(string(StatusPending))

	svc.notify(receivedMessage(app))
	return app, nil
}

func checkCounselor(counselor auth.Identity) error {
	if !counselor.IsAuthenticated() {
		return core.ErrUnauthenticated
	}
	if !counselor.IsCounselor() {
		return core.ErrForbidden
	}
	return nil
}

// getPending loads the application and checks that it can still be reviewed.
func (svc *Service) getPending(ctx context.Context, id string, to Status) (Application, error) {
	app, err := svc.Get(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if !app.Status.IsValid() {
		svc.logger.Warn("application has a non-canonical status", map[string]interface{}{"id": app.ID, "status": app.Status})
		return Application{}, &core.TransitionError{From: string(app.Status), To: string(to), Reason: errUnknownStatusText}
	}
	if app.Status != StatusPending {
		return Application{}, &core.TransitionError{From: string(app.Status), To: string(to), Reason: errAlreadyReviewed}
	}
	return app, nil
}

// review commits a Pending Review -> `to` transition. A concurrent review makes it fail with a TransitionError.
func (svc *Service) review(ctx context.Context, app Application, to Status, upd Update) (Application, error) {
	if err := svc.repo.TransitionApplication(ctx, app.ID, StatusPending, upd); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return Application{}, &core.TransitionError{From: string(StatusPending), To: string(to), Reason: errAlreadyReviewed}
		}
		if errors.Is(err, core.ErrNotFound) {
			return Application{}, ErrNotFound
		}
		return Application{}, svc.storeErr(err, "updating application status")
	}
	svc.metrics.Transition(string(to))
	return upd.Apply(app), nil
}

// Approve moves a Pending Review application to Approved and notifies the applicant.
func (svc *Service) Approve(ctx context.Context, id string, counselor auth.Identity) (Application, error) {
	if err := checkCounselor(counselor); err != nil {
		return Application{}, err
	}
	app, err := svc.getPending(ctx, id, StatusApproved)
	if err != nil {
		return Application{}, err
	}

	status := StatusApproved
	now := svc.now()
	app, err = svc.review(ctx, app, status, Update{
		Status:     &status,
		ReviewedBy: &counselor.UID,
		ReviewedAt: &now,
	})
	if err != nil {
		return Application{}, err
	}

	svc.notify(approvedMessage(app))
	return app, nil
}

// Deny moves a Pending Review application to Denied, optionally recommending another program,
// and notifies the applicant with the reason.
func (svc *Service) Deny(ctx context.Context, id string, counselor auth.Identity, d Denial) (Application, error) {
	if err := checkCounselor(counselor); err != nil {
		return Application{}, err
	}
	d.Clean()
	if err := svc.validate.Check(d); err != nil {
		return Application{}, err
	}

	var recommended program.Program
	if d.RecommendedProgramID != "" {
		var err error
		if recommended, err = svc.catalog.Get(d.RecommendedProgramID); err != nil {
			return Application{}, core.NewValidationError(nil, core.FieldError{Field: "recommended_program_id", Error: errUnknownRecommend})
		}
	}

	app, err := svc.getPending(ctx, id, StatusDenied)
	if err != nil {
		return Application{}, err
	}
	if recommended.ID != "" && recommended.ID == app.ProgramID {
		return Application{}, core.NewValidationError(nil, core.FieldError{Field: "recommended_program_id", Error: errSameProgram})
	}

	status := StatusDenied
	now := svc.now()
	upd := Update{
		Status:       &status,
		DenialReason: &d.Reason,
		ReviewedBy:   &counselor.UID,
		ReviewedAt:   &now,
	}
	if recommended.ID != "" {
		upd.RecommendedProgramID = &recommended.ID
	}
	if app, err = svc.review(ctx, app, status, upd); err != nil {
		return Application{}, err
	}

	svc.notify(deniedMessage(app, recommended.Title))
	return app, nil
}

// ResolveDashboardApplication returns the one application shown on the student's dashboard,
// or ErrNotFound when the student has none.
func (svc *Service) ResolveDashboardApplication(ctx context.Context, studentID string) (Application, error) {
	studentID = core.CleanString(studentID)
	if studentID == "" {
		return Application{}, core.ErrUnauthenticated
	}
	apps, err := svc.repo.QueryApplications(ctx, QueryFilter{StudentID: studentID}, nil)
	if err != nil {
		return Application{}, svc.storeErr(err, "querying student applications")
	}

	app, ok, invalid := PickDashboardApplication(apps)
	for _, inv := range invalid {
		svc.logger.Warn("application has a non-canonical status", map[string]interface{}{"id": inv.ID, "status": inv.Status})
	}
	if !ok {
		return Application{}, ErrNotFound
	}
	return app, nil
}

// ConfirmPayment records the tuition payment choice of an approved application and sends its confirmation.
// No charge is made.
func (svc *Service) ConfirmPayment(ctx context.Context, studentID, id string, pr PaymentRequest) (Application, error) {
	studentID = core.CleanString(studentID)
	if studentID == "" {
		return Application{}, core.ErrUnauthenticated
	}
	pr.Option = core.CleanString(pr.Option, true /* lower */)
	if err := svc.validate.Check(pr); err != nil {
		return Application{}, err
	}

	app, err := svc.Get(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if app.StudentID != studentID {
		return Application{}, core.ErrForbidden
	}
	if app.Status != StatusApproved {
		return Application{}, &core.TransitionError{From: string(app.Status), To: "Paid", Reason: errNotApproved}
	}
	if app.Payment != nil {
		return Application{}, &core.TransitionError{From: string(app.Status), To: "Paid", Reason: errAlreadyPaid}
	}

	p := Payment{Option: pr.Option, ConfirmedAt: svc.now()}
	if err = svc.repo.RecordPayment(ctx, app.ID, p); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return Application{}, &core.TransitionError{From: string(app.Status), To: "Paid", Reason: errAlreadyPaid}
		}
		if errors.Is(err, core.ErrNotFound) {
			return Application{}, ErrNotFound
		}
		return Application{}, svc.storeErr(err, "recording payment")
	}
	app = Update{Payment: &p}.Apply(app)
	svc.metrics.Transition("Paid")

	svc.notify(paymentMessage(app))
	return app, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Application, error) {
	id = core.CleanString(id)
	if id == "" {
		return Application{}, ErrNotFound
	}
	app, err := svc.repo.GetApplication(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Application{}, ErrNotFound
		}
		return Application{}, svc.storeErr(err, "finding application")
	}
	return app, nil
}

// GetByReference finds an application by its reference number.
func (svc *Service) GetByReference(ctx context.Context, ref string) (Application, error) {
	ref = core.CleanString(ref)
	if ref == "" {
		return Application{}, ErrNotFound
	}
	apps, err := svc.repo.QueryApplications(ctx, QueryFilter{ReferenceNumber: ref}, nil)
	if err != nil {
		return Application{}, svc.storeErr(err, "finding application by reference")
	}
	if len(apps) == 0 {
		return Application{}, ErrNotFound
	}
	return apps[0], nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Application, error) {
	filter.Clean()
	apps, err := svc.repo.QueryApplications(ctx, filter, ordering)
	if err != nil {
		return nil, svc.storeErr(err, "querying applications")
	}
	return apps, nil
}
