package classroom

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RequestLifecycle is the state machine governing ClassroomRequest status and
// the rule for when a Booking is derived from a request. All mutual exclusion
// between concurrent transitions is pushed to the storage layer's conditional
// updates; no in-process locks are held.
type RequestLifecycle struct {
	repo        RepositoryManager
	logger      Logger
	transitions map[RequestStatus]map[RequestStatus]struct{}
}

// LifecycleOption customizes lifecycle construction.
type LifecycleOption func(*RequestLifecycle)

// WithLifecycleLogger overrides the default logger.
func WithLifecycleLogger(logger Logger) LifecycleOption {
	return func(l *RequestLifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewRequestLifecycle returns the lifecycle backed by the given repositories.
func NewRequestLifecycle(repo RepositoryManager, opts ...LifecycleOption) *RequestLifecycle {
	l := &RequestLifecycle{
		repo:   repo,
		logger: defLogger{},
		transitions: map[RequestStatus]map[RequestStatus]struct{}{
			RequestStatusPending: {
				RequestStatusApproved: {},
				RequestStatusRejected: {},
			},
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	return l
}

// CanTransition reports whether the status change is allowed. Approved and
// Rejected have no outgoing edges; nothing ever leaves a terminal state.
func (l *RequestLifecycle) CanTransition(from, to RequestStatus) bool {
	if allowed, ok := l.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// CreateRequestMessage carries a teacher's ask for a room.
type CreateRequestMessage struct {
	UserID               uuid.UUID  `json:"user_id"`
	Subject              string     `json:"subject"`
	Career               string     `json:"career"`
	StartTime            time.Time  `json:"start_time"`
	EndTime              time.Time  `json:"end_time"`
	Reason               string     `json:"reason"`
	RequestedClassroomID *uuid.UUID `json:"requested_classroom_id"`
}

// Validate will run validation rules
func (m CreateRequestMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&m,
			validation.Field(&m.UserID, validation.Required),
			validation.Field(&m.Subject, validation.Required, validation.Length(1, 200)),
			validation.Field(&m.Career, validation.Required, validation.Length(1, 200)),
			validation.Field(&m.StartTime, validation.Required),
			validation.Field(&m.EndTime, validation.Required, validation.By(timeAfter(m.StartTime))),
		)
	}, "Invalid classroom request payload")
}

// CreateRequest inserts a new Pending request owned by the calling teacher.
// Validation failures are detected before any persistence call.
func (l *RequestLifecycle) CreateRequest(ctx context.Context, msg CreateRequestMessage) (*ClassroomRequest, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	record := &ClassroomRequest{
		UserID:               msg.UserID,
		Subject:              msg.Subject,
		Career:               msg.Career,
		StartTime:            msg.StartTime,
		EndTime:              msg.EndTime,
		Reason:               msg.Reason,
		Status:               RequestStatusPending,
		RequestedClassroomID: msg.RequestedClassroomID,
	}

	created, err := l.repo.Requests().Create(ctx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create classroom request")
	}

	l.logger.Info("classroom request created", "request_id", created.ID.String(), "user_id", created.UserID.String())

	return created, nil
}

// Approve transitions a Pending request to Approved, binds the assigned
// classroom, and inserts the derived Booking. The conditional update and the
// booking insert run in one atomic unit: if the insert fails the status
// change rolls back and the request is observably still Pending. A request
// that is unknown or no longer Pending yields ErrRequestConflict and no
// writes.
func (l *RequestLifecycle) Approve(ctx context.Context, requestID, classroomID uuid.UUID) (*ClassroomRequest, error) {
	if classroomID == uuid.Nil {
		return nil, goerrors.New("a classroom id is required to approve a request", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}
	if requestID == uuid.Nil {
		return nil, goerrors.New("a request id is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if !l.CanTransition(RequestStatusPending, RequestStatusApproved) {
		return nil, goerrors.New("transition to Approved is not allowed", goerrors.CategoryInternal)
	}

	var approved *ClassroomRequest

	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := l.repo.Requests().ApprovePendingTx(ctx, tx, requestID, classroomID)
		if err != nil {
			return err
		}

		// TODO: nothing prevents two approvals from double-booking the same
		// classroom for overlapping windows; needs an overlap guard on the
		// bookings table before this ships to a second campus.
		booking := BookingFromRequest(record, classroomID)
		if _, err := l.repo.Bookings().CreateTx(ctx, tx, booking); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create booking for approved request")
		}

		approved = record
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "approval transaction failed")
	}

	l.logger.Info("classroom request approved",
		"request_id", approved.ID.String(),
		"classroom_id", classroomID.String(),
	)

	return approved, nil
}

// Reject transitions a Pending request to Rejected. There is no companion
// write, so the conditional update alone is enough; the zero-rows case maps
// to the same conflict outcome as Approve.
func (l *RequestLifecycle) Reject(ctx context.Context, requestID uuid.UUID) (*ClassroomRequest, error) {
	if requestID == uuid.Nil {
		return nil, goerrors.New("a request id is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if !l.CanTransition(RequestStatusPending, RequestStatusRejected) {
		return nil, goerrors.New("transition to Rejected is not allowed", goerrors.CategoryInternal)
	}

	record, err := l.repo.Requests().RejectPending(ctx, requestID)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "rejection failed")
	}

	l.logger.Info("classroom request rejected", "request_id", record.ID.String())

	return record, nil
}

// CreateBookingMessage carries a direct staff booking on a teacher's behalf.
type CreateBookingMessage struct {
	ClassroomID uuid.UUID `json:"classroom_id"`
	UserID      uuid.UUID `json:"user_id"`
	Subject     string    `json:"subject"`
	Career      string    `json:"career"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// Validate will run validation rules
func (m CreateBookingMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&m,
			validation.Field(&m.ClassroomID, validation.Required),
			validation.Field(&m.UserID, validation.Required),
			validation.Field(&m.Subject, validation.Required, validation.Length(1, 200)),
			validation.Field(&m.Career, validation.Required, validation.Length(1, 200)),
			validation.Field(&m.StartTime, validation.Required),
			validation.Field(&m.EndTime, validation.Required, validation.By(timeAfter(m.StartTime))),
		)
	}, "Invalid booking payload")
}

// CreateDirectBooking inserts a Booking without a prior request, used when
// staff schedule a room on a teacher's behalf.
func (l *RequestLifecycle) CreateDirectBooking(ctx context.Context, msg CreateBookingMessage) (*Booking, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	booking := &Booking{
		ClassroomID: msg.ClassroomID,
		UserID:      msg.UserID,
		Subject:     msg.Subject,
		Career:      msg.Career,
		StartTime:   msg.StartTime,
		EndTime:     msg.EndTime,
	}

	created, err := l.repo.Bookings().Create(ctx, booking)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create booking")
	}

	l.logger.Info("direct booking created",
		"booking_id", created.ID.String(),
		"classroom_id", created.ClassroomID.String(),
	)

	return created, nil
}

// ListRequests returns every request, newest start time first.
func (l *RequestLifecycle) ListRequests(ctx context.Context) ([]*ClassroomRequest, error) {
	return l.repo.Requests().List(ctx)
}

// ListRequestsForUser returns the caller's requests, newest start time first.
func (l *RequestLifecycle) ListRequestsForUser(ctx context.Context, userID uuid.UUID) ([]*ClassroomRequest, error) {
	return l.repo.Requests().ListByUser(ctx, userID)
}

// ListBookings returns every booking.
func (l *RequestLifecycle) ListBookings(ctx context.Context) ([]*Booking, error) {
	return l.repo.Bookings().List(ctx)
}

// ListBookingsForUser returns the bookings recorded for the given teacher.
func (l *RequestLifecycle) ListBookingsForUser(ctx context.Context, userID uuid.UUID) ([]*Booking, error) {
	return l.repo.Bookings().ListByUser(ctx, userID)
}

// ListClassrooms returns the classroom reference data.
func (l *RequestLifecycle) ListClassrooms(ctx context.Context) ([]*Classroom, error) {
	return l.repo.Classrooms().List(ctx)
}

func timeAfter(start time.Time) validation.RuleFunc {
	return func(value interface{}) error {
		end, ok := value.(time.Time)
		if !ok || start.IsZero() || end.IsZero() {
			return nil
		}
		if !end.After(start) {
			return goerrors.New("end time must be after start time", goerrors.CategoryValidation)
		}
		return nil
	}
}
