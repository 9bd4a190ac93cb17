package classroom

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RequestStatus is the lifecycle state of a ClassroomRequest. Pending is the
// only state that accepts transitions; Approved and Rejected are terminal.
type RequestStatus string

const (
	// RequestStatusPending is the initial state of every request.
	RequestStatusPending RequestStatus = "Pending"
	// RequestStatusApproved is terminal; entering it also creates a Booking.
	RequestStatusApproved RequestStatus = "Approved"
	// RequestStatusRejected is terminal.
	RequestStatusRejected RequestStatus = "Rejected"
)

// IsValid checks if the status is one of the predefined values
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status accepts no further transitions.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          UserRole   `bun:"user_role,notnull" json:"role,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Classroom is reference data, read-only to this service.
type Classroom struct {
	bun.BaseModel      `bun:"table:classrooms,alias:cls"`
	ID                 uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name               string    `bun:"name,notnull" json:"name,omitempty"`
	Capacity           int       `bun:"capacity,notnull" json:"capacity,omitempty"`
	HasProjector       bool      `bun:"has_projector" json:"has_projector"`
	StudentComputers   int       `bun:"student_computers" json:"student_computers"`
	HasAirConditioning bool      `bun:"has_air_conditioning" json:"has_air_conditioning"`
	Faculty            string    `bun:"faculty" json:"faculty,omitempty"`
}

// ClassroomRequest is a teacher's ask for a room during a time window. It is
// created Pending and only ever mutated by the request lifecycle.
type ClassroomRequest struct {
	bun.BaseModel        `bun:"table:classroom_requests,alias:req"`
	ID                   uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID               uuid.UUID     `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Subject              string        `bun:"subject,notnull" json:"subject,omitempty"`
	Career               string        `bun:"career,notnull" json:"career,omitempty"`
	StartTime            time.Time     `bun:"start_time,notnull" json:"start_time"`
	EndTime              time.Time     `bun:"end_time,notnull" json:"end_time"`
	Reason               string        `bun:"reason" json:"reason,omitempty"`
	Status               RequestStatus `bun:"status,notnull" json:"status,omitempty"`
	RequestedClassroomID *uuid.UUID    `bun:"requested_classroom_id,nullzero,type:uuid" json:"requested_classroom_id,omitempty"`
	AssignedClassroomID  *uuid.UUID    `bun:"assigned_classroom_id,nullzero,type:uuid" json:"assigned_classroom_id,omitempty"`
	CreatedAt            *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt            *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus normalizes an empty status to Pending.
func (r *ClassroomRequest) EnsureStatus() {
	if r.Status == "" {
		r.Status = RequestStatusPending
	}
}

// Booking is a confirmed reservation. Rows are append-only: created either by
// staff directly or as the side effect of approving a request, then never
// mutated or deleted. The user/subject/career/time columns are a snapshot of
// the originating request, not a live reference.
type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:bkg"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ClassroomID   uuid.UUID  `bun:"classroom_id,notnull,type:uuid" json:"classroom_id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Subject       string     `bun:"subject,notnull" json:"subject,omitempty"`
	Career        string     `bun:"career,notnull" json:"career,omitempty"`
	StartTime     time.Time  `bun:"start_time,notnull" json:"start_time"`
	EndTime       time.Time  `bun:"end_time,notnull" json:"end_time"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// BookingFromRequest derives the booking snapshot for an approved request.
// The caller is responsible for inserting it in the same transaction as the
// status transition.
func BookingFromRequest(req *ClassroomRequest, classroomID uuid.UUID) *Booking {
	return &Booking{
		ClassroomID: classroomID,
		UserID:      req.UserID,
		Subject:     req.Subject,
		Career:      req.Career,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}
}
