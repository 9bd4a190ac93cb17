package classroom

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ClassroomRequests is the repository behind the request lifecycle. The
// mutation methods implement the conditional-update guard: a status change
// only lands while the row is still Pending, and a zero row count is the
// authoritative signal that a concurrent actor got there first.
type ClassroomRequests interface {
	Create(ctx context.Context, record *ClassroomRequest) (*ClassroomRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ClassroomRequest, error)
	List(ctx context.Context) ([]*ClassroomRequest, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*ClassroomRequest, error)

	ApprovePendingTx(ctx context.Context, tx bun.IDB, id, classroomID uuid.UUID) (*ClassroomRequest, error)
	RejectPending(ctx context.Context, id uuid.UUID) (*ClassroomRequest, error)
	RejectPendingTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*ClassroomRequest, error)
}

type classroomRequests struct {
	db *bun.DB
}

var _ ClassroomRequests = (*classroomRequests)(nil)

func NewClassroomRequestsRepository(db *bun.DB) ClassroomRequests {
	return &classroomRequests{db: db}
}

func (r *classroomRequests) Create(ctx context.Context, record *ClassroomRequest) (*ClassroomRequest, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.EnsureStatus()

	_, err := r.db.NewInsert().
		Model(record).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *classroomRequests) GetByID(ctx context.Context, id uuid.UUID) (*ClassroomRequest, error) {
	record := &ClassroomRequest{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (r *classroomRequests) List(ctx context.Context) ([]*ClassroomRequest, error) {
	var records []*ClassroomRequest
	err := r.db.NewSelect().
		Model(&records).
		Order("start_time DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	if records == nil {
		records = []*ClassroomRequest{}
	}

	return records, nil
}

func (r *classroomRequests) ListByUser(ctx context.Context, userID uuid.UUID) ([]*ClassroomRequest, error) {
	var records []*ClassroomRequest
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("start_time DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	if records == nil {
		records = []*ClassroomRequest{}
	}

	return records, nil
}

// ApprovePendingTx moves a request to Approved and binds the assigned room,
// guarded on the row still being Pending. It must run inside the same
// transaction as the booking insert that follows it. Zero affected rows
// means the request is unknown or already processed: ErrRequestConflict.
func (r *classroomRequests) ApprovePendingTx(ctx context.Context, tx bun.IDB, id, classroomID uuid.UUID) (*ClassroomRequest, error) {
	res, err := tx.NewUpdate().
		Model((*ClassroomRequest)(nil)).
		Set("status = ?", RequestStatusApproved).
		Set("assigned_classroom_id = ?", classroomID).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.status = ?", RequestStatusPending).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, NewRequestConflictError(id.String())
	}

	// read back our own write: the snapshot the booking is derived from
	record := &ClassroomRequest{}
	if err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

func (r *classroomRequests) RejectPending(ctx context.Context, id uuid.UUID) (*ClassroomRequest, error) {
	return r.RejectPendingTx(ctx, r.db, id)
}

// RejectPendingTx moves a request to Rejected under the same Pending guard.
// Rejection has no companion write, so callers may run it outside a
// transaction; the conditional update alone settles races.
func (r *classroomRequests) RejectPendingTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*ClassroomRequest, error) {
	res, err := tx.NewUpdate().
		Model((*ClassroomRequest)(nil)).
		Set("status = ?", RequestStatusRejected).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.status = ?", RequestStatusPending).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, NewRequestConflictError(id.String())
	}

	record := &ClassroomRequest{}
	if err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx); err != nil {
		return nil, err
	}

	return record, nil
}
