package classroom

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Controller exposes the HTTP surface: auth endpoints plus the request
// lifecycle routes. Route guards compose as AuthGate then RoleGuard.
type Controller struct {
	Logger    Logger
	Auther    Authenticator
	Tokens    TokenService
	Repo      RepositoryManager
	Lifecycle *RequestLifecycle
}

// ControllerOption configures the controller.
type ControllerOption func(*Controller)

// WithControllerLogger overrides the default logger.
func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// NewController builds the HTTP controller.
func NewController(auther Authenticator, tokens TokenService, repo RepositoryManager, lifecycle *RequestLifecycle, opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:    defLogger{},
		Auther:    auther,
		Tokens:    tokens,
		Repo:      repo,
		Lifecycle: lifecycle,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in classroom controller...")
	}

	if c.Lifecycle == nil {
		panic("Missing RequestLifecycle in classroom controller...")
	}

	return c
}

// RegisterRoutes mounts every route on the app. Login and register are the
// only endpoints outside the auth gate.
func (ctrl *Controller) RegisterRoutes(app *fiber.App) {
	gate := RequireAuth(GateConfig{
		TokenService: ctrl.Tokens,
		Logger:       ctrl.Logger,
	})
	staff := RequireRole(RoleSecretaria)

	auth := app.Group("/api/auth")
	auth.Post("/login", ctrl.Login)
	auth.Post("/register", ctrl.Register)

	api := app.Group("/api", gate)
	api.Get("/bookings", ctrl.BookingsIndex)
	api.Get("/bookings/my", ctrl.MyBookings)
	api.Post("/bookings", staff, ctrl.BookingCreate)
	api.Get("/requests", staff, ctrl.RequestsIndex)
	api.Get("/requests/my", ctrl.MyRequests)
	api.Post("/requests", ctrl.RequestCreate)
	api.Put("/requests/:id/approve", staff, ctrl.RequestApprove)
	api.Put("/requests/:id/reject", staff, ctrl.RequestReject)
	api.Get("/classrooms", ctrl.ClassroomsIndex)
}

// HTTPErrorHandler translates rich errors into status codes and JSON bodies.
// Internal faults get a generic message; everything else keeps its own.
func HTTPErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"message": fiberErr.Message,
			})
		}

		var richErr *errors.Error
		if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
				WithCode(errors.CodeInternal)
		}

		status := statusFromError(richErr)

		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				"path", c.Path(),
				"error", richErr.Error(),
				"category", richErr.Category,
			)
			return c.Status(status).JSON(fiber.Map{
				"message": "Internal server error.",
			})
		}

		logger.Info("request rejected",
			"path", c.Path(),
			"status", status,
			"message", richErr.Message,
			"text_code", richErr.TextCode,
		)

		body := fiber.Map{"message": richErr.Message}
		if richErr.TextCode != "" {
			body["code"] = richErr.TextCode
		}
		return c.Status(status).JSON(body)
	}
}

func statusFromError(e *errors.Error) int {
	if e.Code >= fiber.StatusBadRequest {
		return e.Code
	}

	switch e.Category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		return fiber.StatusBadRequest
	case errors.CategoryAuth:
		return fiber.StatusUnauthorized
	case errors.CategoryAuthz:
		return fiber.StatusForbidden
	case errors.CategoryNotFound:
		return fiber.StatusNotFound
	case errors.CategoryConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// LoginPayload is the login body
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (p LoginPayload) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&p,
			validation.Field(&p.Email, validation.Required, is.Email),
			validation.Field(&p.Password, validation.Required),
		)
	}, "Invalid login payload")
}

// Login exchanges email and password for a session token. The response
// carries the token and the stored user without the password hash.
func (ctrl *Controller) Login(c *fiber.Ctx) error {
	payload := new(LoginPayload)
	if err := c.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "failed to parse login payload").
			WithCode(errors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	token, identity, err := ctrl.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	user, err := ctrl.Repo.Users().GetByEmail(c.UserContext(), identity.Email())
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to load user after login")
	}
	user.PasswordHash = ""

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// RegisterPayload is the registration body
type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Validate will run validation rules
func (p RegisterPayload) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&p,
			validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
			validation.Field(&p.Email, validation.Required, validation.Length(6, 100), is.Email),
			validation.Field(&p.Password, validation.Required, validation.Length(8, 100)),
			validation.Field(&p.Role, validation.Required, validation.By(validRole)),
		)
	}, "Invalid registration payload")
}

func validRole(value interface{}) error {
	s, _ := value.(string)
	if _, ok := ParseRole(s); !ok {
		return errors.New("role must be docente or secretaria", errors.CategoryValidation)
	}
	return nil
}

// Register creates a User with the given role. A duplicate email surfaces
// as a conflict.
func (ctrl *Controller) Register(c *fiber.Ctx) error {
	payload := new(RegisterPayload)
	if err := c.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "failed to parse registration payload").
			WithCode(errors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return richErr
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	role, _ := ParseRole(payload.Role)

	user, err := ctrl.Repo.Users().Register(c.UserContext(), &User{
		Name:         payload.Name,
		Email:        payload.Email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return richErr
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to register user")
	}

	user.PasswordHash = ""

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered.",
		"user":    user,
	})
}

// BookingsIndex lists every booking.
func (ctrl *Controller) BookingsIndex(c *fiber.Ctx) error {
	records, err := ctrl.Lifecycle.ListBookings(c.UserContext())
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to list bookings")
	}
	return c.JSON(records)
}

// MyBookings lists the caller's bookings.
func (ctrl *Controller) MyBookings(c *fiber.Ctx) error {
	userID, err := ctrl.callerID(c)
	if err != nil {
		return err
	}

	records, err := ctrl.Lifecycle.ListBookingsForUser(c.UserContext(), userID)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to list bookings")
	}
	return c.JSON(records)
}

// BookingPayload is the direct booking body. Times accept RFC3339 or the
// minute-precision form the frontend sends (2006-01-02T15:04).
type BookingPayload struct {
	ClassroomID string `json:"classroomId"`
	UserID      string `json:"userId"`
	Subject     string `json:"subject"`
	Career      string `json:"career"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
}

// BookingCreate inserts a booking directly, bypassing the request lifecycle.
func (ctrl *Controller) BookingCreate(c *fiber.Ctx) error {
	payload := new(BookingPayload)
	if err := c.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "failed to parse booking payload").
			WithCode(errors.CodeBadRequest)
	}

	classroomID, err := parseOptionalID(payload.ClassroomID)
	if err != nil {
		return err
	}
	userID, err := parseOptionalID(payload.UserID)
	if err != nil {
		return err
	}
	start, err := parseTimestamp(payload.StartTime)
	if err != nil {
		return err
	}
	end, err := parseTimestamp(payload.EndTime)
	if err != nil {
		return err
	}

	booking, err := ctrl.Lifecycle.CreateDirectBooking(c.UserContext(), CreateBookingMessage{
		ClassroomID: classroomID,
		UserID:      userID,
		Subject:     payload.Subject,
		Career:      payload.Career,
		StartTime:   start,
		EndTime:     end,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Booking created.",
		"booking": booking,
	})
}

// RequestsIndex lists every request; staff only.
func (ctrl *Controller) RequestsIndex(c *fiber.Ctx) error {
	records, err := ctrl.Lifecycle.ListRequests(c.UserContext())
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to list requests")
	}
	return c.JSON(records)
}

// MyRequests lists the caller's requests, newest start time first.
func (ctrl *Controller) MyRequests(c *fiber.Ctx) error {
	userID, err := ctrl.callerID(c)
	if err != nil {
		return err
	}

	records, err := ctrl.Lifecycle.ListRequestsForUser(c.UserContext(), userID)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to list requests")
	}
	return c.JSON(records)
}

// RequestPayload is the create-request body.
type RequestPayload struct {
	Subject              string `json:"subject"`
	Career               string `json:"career"`
	StartTime            string `json:"startTime"`
	EndTime              string `json:"endTime"`
	Reason               string `json:"reason"`
	RequestedClassroomID string `json:"requestedClassroomId"`
}

// RequestCreate files a new Pending request owned by the caller.
func (ctrl *Controller) RequestCreate(c *fiber.Ctx) error {
	userID, err := ctrl.callerID(c)
	if err != nil {
		return err
	}

	payload := new(RequestPayload)
	if err := c.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "failed to parse request payload").
			WithCode(errors.CodeBadRequest)
	}

	start, err := parseTimestamp(payload.StartTime)
	if err != nil {
		return err
	}
	end, err := parseTimestamp(payload.EndTime)
	if err != nil {
		return err
	}

	var requested *uuid.UUID
	if payload.RequestedClassroomID != "" {
		id, err := uuid.Parse(payload.RequestedClassroomID)
		if err != nil {
			return errors.New("requestedClassroomId must be a valid id", errors.CategoryValidation).
				WithCode(errors.CodeBadRequest)
		}
		requested = &id
	}

	record, err := ctrl.Lifecycle.CreateRequest(c.UserContext(), CreateRequestMessage{
		UserID:               userID,
		Subject:              payload.Subject,
		Career:               payload.Career,
		StartTime:            start,
		EndTime:              end,
		Reason:               payload.Reason,
		RequestedClassroomID: requested,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Request created.",
		"request": record,
	})
}

// ApprovePayload carries the classroom the request is bound to on approval.
type ApprovePayload struct {
	ClassroomID string `json:"classroomId"`
}

// RequestApprove runs the atomic approve transition.
func (ctrl *Controller) RequestApprove(c *fiber.Ctx) error {
	requestID, err := parsePathID(c)
	if err != nil {
		return err
	}

	payload := new(ApprovePayload)
	if err := c.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "failed to parse approval payload").
			WithCode(errors.CodeBadRequest)
	}

	if payload.ClassroomID == "" {
		return errors.New("a classroom id is required to approve a request", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}

	classroomID, err := uuid.Parse(payload.ClassroomID)
	if err != nil {
		return errors.New("classroomId must be a valid id", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}

	record, err := ctrl.Lifecycle.Approve(c.UserContext(), requestID, classroomID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Request approved and booking created.",
		"request": record,
	})
}

// RequestReject runs the reject transition.
func (ctrl *Controller) RequestReject(c *fiber.Ctx) error {
	requestID, err := parsePathID(c)
	if err != nil {
		return err
	}

	record, err := ctrl.Lifecycle.Reject(c.UserContext(), requestID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Request rejected.",
		"request": record,
	})
}

// ClassroomsIndex lists classroom reference data.
func (ctrl *Controller) ClassroomsIndex(c *fiber.Ctx) error {
	records, err := ctrl.Lifecycle.ListClassrooms(c.UserContext())
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to list classrooms")
	}
	return c.JSON(records)
}

func (ctrl *Controller) callerID(c *fiber.Ctx) (uuid.UUID, error) {
	claims, ok := ClaimsFromFiber(c, DefaultContextKey)
	if !ok {
		return uuid.Nil, ErrMissingToken
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CategoryAuth, "token carries an invalid user id").
			WithCode(errors.CodeUnauthorized)
	}

	return id, nil
}

func parsePathID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, errors.New("request id must be a valid id", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}
	return id, nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		// presence is enforced by message validation, which reports the
		// missing field by name
		return time.Time{}, nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}

	return time.Time{}, errors.New("timestamps must be ISO 8601", errors.CategoryValidation).
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{"value": raw})
}

func parseOptionalID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("ids must be valid uuids", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"value": raw})
	}
	return id, nil
}
