package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/application"
	"github.com/Kingsman71/Binary-Learning/core/auth"
)

const contextAppKey = "object"

var errAppNotFoundInCtx = errors.New("application object not found in echo.Context")

type applicationApi struct {
	svc *application.Service
}

func registerApplicationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *application.Service, submitLimit echo.MiddlewareFunc) {
	api := applicationApi{svc: svc}

	ag := g.Group("/applications", jwt)
	student := roleMiddleware(auth.RoleStudent)
	counselor := roleMiddleware(auth.RoleCounselor)

	// student endpoints
	ag.POST("", api.submit, student, submitLimit)
	ag.GET("/dashboard", api.dashboard, student)
	ag.GET("/reference/:ref", api.retrieveByReference)
	ag.POST("/:id/payment", api.confirmPayment, student)

	// counselor endpoints
	ag.GET("", api.query, counselor)
	dg := ag.Group("/:id", counselor, api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.POST("/approve", api.approve)
	dg.POST("/deny", api.deny)
}

// Handlers

func (api *applicationApi) submit(ctx echo.Context) error {
	var data application.NewApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplication")
	}

	app, err := api.svc.Submit(ctx.Request().Context(), getContextIdentity(ctx).UID, data)
	if err != nil {
		return errors.Wrap(err, "submitting application")
	}
	return ctx.JSON(http.StatusCreated, SubmitResponse{ID: app.ID, ReferenceNumber: app.ReferenceNumber})
}

func (api *applicationApi) dashboard(ctx echo.Context) error {
	app, err := api.svc.ResolveDashboardApplication(ctx.Request().Context(), getContextIdentity(ctx).UID)
	if err != nil {
		return errors.Wrap(err, "resolving dashboard application")
	}
	return ctx.JSON(http.StatusOK, app)
}

// retrieveByReference serves counselors and the owning student; other callers get a 404.
func (api *applicationApi) retrieveByReference(ctx echo.Context) error {
	id := getContextIdentity(ctx)
	app, err := api.svc.GetByReference(ctx.Request().Context(), ctx.Param("ref"))
	if err != nil {
		return errors.Wrap(err, "finding application by reference")
	}
	if !id.IsCounselor() && app.StudentID != id.UID {
		return application.ErrNotFound
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) confirmPayment(ctx echo.Context) error {
	var data application.PaymentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PaymentRequest")
	}

	app, err := api.svc.ConfirmPayment(ctx.Request().Context(), getContextIdentity(ctx).UID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "confirming payment")
	}
	return ctx.JSON(http.StatusOK, app)
}

// query lists applications, Pending Review ones by default.
func (api *applicationApi) query(ctx echo.Context) error {
	var filter application.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []application.Application{})
	}
	filter.Unlinked = false
	if len(filter.Statuses) == 0 {
		filter.Statuses = []application.Status{application.StatusPending}
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, application.OrderApplicationDate, application.OrderReferenceNumber)

	apps, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *applicationApi) retrieve(ctx echo.Context) error {
	app, ok := ctx.Get(contextAppKey).(application.Application)
	if !ok {
		return errors.Wrap(errAppNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) approve(ctx echo.Context) error {
	app, ok := ctx.Get(contextAppKey).(application.Application)
	if !ok {
		return errors.Wrap(errAppNotFoundInCtx, "retrieving object from context")
	}

	app, err := api.svc.Approve(ctx.Request().Context(), app.ID, getContextIdentity(ctx))
	if err != nil {
		return errors.Wrap(err, "approving application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) deny(ctx echo.Context) error {
	app, ok := ctx.Get(contextAppKey).(application.Application)
	if !ok {
		return errors.Wrap(errAppNotFoundInCtx, "retrieving object from context")
	}

	var data application.Denial
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Denial")
	}

	app, err := api.svc.Deny(ctx.Request().Context(), app.ID, getContextIdentity(ctx), data)
	if err != nil {
		return errors.Wrap(err, "denying application")
	}
	return ctx.JSON(http.StatusOK, app)
}

// objectMiddleware loads the application named by the ":id" path param.
func (api *applicationApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		app, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return err
			}
			return errors.Wrap(err, "finding application by ID")
		}
		ctx.Set(contextAppKey, app)
		return next(ctx)
	}
}
