package classroom

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories and the transactional unit of
// work they share. It wraps an explicitly constructed, injected *bun.DB; no
// package-level pool exists anywhere in this module.
type RepositoryManager interface {
	Users() Users
	Classrooms() Classrooms
	Requests() ClassroomRequests
	Bookings() Bookings

	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Validate() error
	MustValidate()
}

type mngr struct {
	db         *bun.DB
	users      Users
	classrooms Classrooms
	requests   ClassroomRequests
	bookings   Bookings
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:         db,
		users:      NewUsersRepository(db),
		classrooms: NewClassroomsRepository(db),
		requests:   NewClassroomRequestsRepository(db),
		bookings:   NewBookingsRepository(db),
	}
}

func (m mngr) Users() Users                { return m.users }
func (m mngr) Classrooms() Classrooms      { return m.classrooms }
func (m mngr) Requests() ClassroomRequests { return m.requests }
func (m mngr) Bookings() Bookings          { return m.bookings }

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.classrooms == nil {
		return errors.New("repository classrooms should be initialized")
	}

	if m.requests == nil {
		return errors.New("repository requests should be initialized")
	}

	if m.bookings == nil {
		return errors.New("repository bookings should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// RunInTx runs f inside a database transaction: commit on nil, rollback on
// any error. The transaction holds one pooled connection for its full
// duration and releases it on every exit path.
func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}
