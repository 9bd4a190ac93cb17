package classroom

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Classrooms exposes the read-only classroom reference data.
type Classrooms interface {
	List(ctx context.Context) ([]*Classroom, error)
}

type classrooms struct {
	repository.Repository[*Classroom]
	db *bun.DB
}

var _ Classrooms = (*classrooms)(nil)

func NewClassroomsRepository(db *bun.DB) Classrooms {
	repo := repository.NewRepository[*Classroom](db, repository.ModelHandlers[*Classroom]{
		NewRecord: func() *Classroom { return &Classroom{} },
		GetID: func(c *Classroom) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Classroom, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
	})

	return &classrooms{
		Repository: repo,
		db:         db,
	}
}

func (a *classrooms) List(ctx context.Context) ([]*Classroom, error) {
	var records []*Classroom
	err := a.db.NewSelect().
		Model(&records).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	if records == nil {
		records = []*Classroom{}
	}

	return records, nil
}
