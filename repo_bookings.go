package classroom

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Bookings is the append-only bookings ledger. There is no update or delete:
// a booking row never changes once written.
type Bookings interface {
	Create(ctx context.Context, record *Booking) (*Booking, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Booking) (*Booking, error)
	List(ctx context.Context) ([]*Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Booking, error)
}

type bookings struct {
	db *bun.DB
}

var _ Bookings = (*bookings)(nil)

func NewBookingsRepository(db *bun.DB) Bookings {
	return &bookings{db: db}
}

func (r *bookings) Create(ctx context.Context, record *Booking) (*Booking, error) {
	return r.CreateTx(ctx, r.db, record)
}

func (r *bookings) CreateTx(ctx context.Context, tx bun.IDB, record *Booking) (*Booking, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	_, err := tx.NewInsert().
		Model(record).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *bookings) List(ctx context.Context) ([]*Booking, error) {
	var records []*Booking
	err := r.db.NewSelect().
		Model(&records).
		Order("start_time DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	if records == nil {
		records = []*Booking{}
	}

	return records, nil
}

func (r *bookings) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Booking, error) {
	var records []*Booking
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("start_time DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	if records == nil {
		records = []*Booking{}
	}

	return records, nil
}
