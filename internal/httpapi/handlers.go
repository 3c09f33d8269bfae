package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/scheduling"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Credits is the ledger view used by the API.
type Credits interface {
	CreditsFor(ctx context.Context, patientID int64) ([]*model.CreditPackage, error)
}

// Scheduler previews, validates and books requests.
type Scheduler interface {
	Preview(ctx context.Context, req model.BookingRequest) *service.Preview
	Bound(start time.Time, rule model.RecurrenceRule, remaining int) time.Time
	ClampEndDate(ctx context.Context, patientID, packageID int64, start, proposedEnd time.Time, rule model.RecurrenceRule) (*service.EndDateCheck, error)
	Validate(ctx context.Context, req model.BookingRequest, packageID int64) (scheduling.Outcome, error)
	Book(ctx context.Context, req model.BookingRequest, packageID int64, submitToken string) (*model.BookingReceipt, error)
}

// Directory searches people to fill booking identifiers.
type Directory interface {
	Search(ctx context.Context, kind model.DirectoryKind, query string) ([]*model.DirectoryEntry, error)
}

type Handler struct {
	credits   Credits
	scheduler Scheduler
	directory Directory
	logger    *zap.Logger
}

func NewHandler(credits Credits, scheduler Scheduler, directory Directory, logger *zap.Logger) *Handler {
	return &Handler{
		credits:   credits,
		scheduler: scheduler,
		directory: directory,
		logger:    logger,
	}
}

// RegisterRoutes registers the scheduling API on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/patients/:id/credits", h.ListCredits)
	g.GET("/directory/:kind", h.SearchDirectory)
	g.POST("/schedule/bound", h.Bound)
	g.POST("/schedule/clamp", h.Clamp)
	g.POST("/schedule/preview", h.Preview)
	g.POST("/schedule/validate", h.Validate)
	g.POST("/bookings", h.Book)
}

// ListCredits handles GET /patients/:id/credits.
func (h *Handler) ListCredits(c echo.Context) error {
	patientID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || patientID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	packages, err := h.credits.CreditsFor(c.Request().Context(), patientID)
	if err != nil {
		return h.serviceError(err)
	}

	views := make([]creditView, 0, len(packages))
	for _, pkg := range packages {
		views = append(views, newCreditView(pkg))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient_id": patientID,
		"packages":   views,
	})
}

// SearchDirectory handles GET /directory/:kind?q=.
func (h *Handler) SearchDirectory(c echo.Context) error {
	entries, err := h.directory.Search(c.Request().Context(), model.DirectoryKind(c.Param("kind")), c.QueryParam("q"))
	if err != nil {
		return h.serviceError(err)
	}
	return c.JSON(http.StatusOK, entries)
}

// Bound handles POST /schedule/bound.
func (h *Handler) Bound(c echo.Context) error {
	var p boundPayload
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	start, err := parseDate(p.StartDate)
	if err != nil || start.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "start_date must be YYYY-MM-DD")
	}
	rule := model.RecurrenceRule(p.Rule)
	if !rule.IsValid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown rule")
	}

	if p.Remaining > scheduling.MaxCredit {
		return echo.NewHTTPError(http.StatusBadRequest,
			"remaining must not exceed "+strconv.Itoa(scheduling.MaxCredit))
	}

	end := h.scheduler.Bound(start, rule, p.Remaining)
	return c.JSON(http.StatusOK, map[string]string{
		"max_end_date": formatDate(end),
	})
}

// Clamp handles POST /schedule/clamp.
func (h *Handler) Clamp(c echo.Context) error {
	var p clampPayload
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	start, err := parseDate(p.StartDate)
	if err != nil || start.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "start_date must be YYYY-MM-DD")
	}
	end, err := parseDate(p.EndDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "end_date must be YYYY-MM-DD")
	}
	rule := model.RecurrenceRule(p.Rule)
	if !rule.IsValid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown rule")
	}

	check, err := h.scheduler.ClampEndDate(c.Request().Context(), p.PatientID, p.PackageID, start, end, rule)
	if err != nil {
		return h.serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"end_date":     formatDate(check.EndDate),
		"max_end_date": formatDate(check.MaxEndDate),
		"clamped":      check.Clamped,
		"remaining":    check.Remaining,
	})
}

// Preview handles POST /schedule/preview. Unparseable input yields an
// empty preview rather than an error.
func (h *Handler) Preview(c echo.Context) error {
	var p bookingPayload
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	req, err := p.request()
	if err != nil {
		return c.JSON(http.StatusOK, &service.Preview{
			Slots:   []model.GeneratedSlot{},
			Clashes: []time.Time{},
		})
	}

	return c.JSON(http.StatusOK, h.scheduler.Preview(c.Request().Context(), req))
}

// Validate handles POST /schedule/validate.
func (h *Handler) Validate(c echo.Context) error {
	var p bookingPayload
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req, err := p.request()
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, rejection{
			Reason:  string(scheduling.ReasonInvalidInput),
			Message: err.Error(),
		})
	}

	outcome, err := h.scheduler.Validate(c.Request().Context(), req, p.PackageID)
	if err != nil {
		return h.serviceError(err)
	}

	status := http.StatusOK
	if !outcome.Accepted {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, outcome)
}

// Book handles POST /bookings.
func (h *Handler) Book(c echo.Context) error {
	var p bookingPayload
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req, err := p.request()
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, rejection{
			Reason:  string(scheduling.ReasonInvalidInput),
			Message: err.Error(),
		})
	}

	receipt, err := h.scheduler.Book(c.Request().Context(), req, p.PackageID, p.SubmitToken)
	if err != nil {
		h.logger.Info("Booking refused",
			zap.String("operator_id", OperatorID(c)),
			zap.Int64("patient_id", req.Meta.PatientID),
			zap.Int64("package_id", p.PackageID),
			zap.Error(err))
		return h.bookingError(c, err)
	}

	h.logger.Info("Booking submitted",
		zap.String("operator_id", OperatorID(c)),
		zap.String("operator_role", OperatorRole(c)),
		zap.String("batch_id", receipt.BatchID.String()),
		zap.Int("sessions", len(receipt.AppointmentIDs)),
	)

	return c.JSON(http.StatusCreated, receipt)
}

func (h *Handler) bookingError(c echo.Context, err error) error {
	var ve *scheduling.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusUnprocessableEntity, rejection{
			Reason:    string(ve.Reason),
			Field:     ve.Field,
			Remaining: ve.Remaining,
			Message:   ve.Error(),
		})
	}

	var ce *service.CommitError
	if errors.As(err, &ce) {
		return c.JSON(http.StatusConflict, rejection{
			Reason:    string(ce.Reason),
			Remaining: ce.Remaining,
			Message:   ce.Error(),
		})
	}

	if errors.Is(err, service.ErrDuplicateSubmit) {
		return c.JSON(http.StatusConflict, rejection{
			Reason:  string(scheduling.ReasonConflict),
			Message: err.Error(),
		})
	}

	return h.serviceError(err)
}

func (h *Handler) serviceError(err error) error {
	switch {
	case errors.Is(err, service.ErrNoCreditInfo):
		return echo.NewHTTPError(http.StatusServiceUnavailable, service.ErrNoCreditInfo.Error())
	case errors.Is(err, service.ErrPackageNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUnknownDirectory):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrQueryTooShort):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.logger.Error("Request failed", zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
