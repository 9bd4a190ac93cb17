package classroom

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// setupTestDB spins up an in-memory SQLite database with the service schema.
// A single connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	schema := []string{
		`CREATE TABLE users (
			id TEXT PRIMARY KEY,
			user_role TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE classrooms (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			capacity INTEGER NOT NULL,
			has_projector BOOLEAN NOT NULL DEFAULT 0,
			student_computers INTEGER NOT NULL DEFAULT 0,
			has_air_conditioning BOOLEAN NOT NULL DEFAULT 0,
			faculty TEXT
		)`,
		`CREATE TABLE classroom_requests (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			subject TEXT NOT NULL,
			career TEXT NOT NULL,
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP NOT NULL,
			reason TEXT,
			status TEXT NOT NULL,
			requested_classroom_id TEXT,
			assigned_classroom_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE bookings (
			id TEXT PRIMARY KEY,
			classroom_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			subject TEXT NOT NULL,
			career TEXT NOT NULL,
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range schema {
		_, err := bunDB.Exec(stmt)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		bunDB.Close()
	})

	return bunDB
}

func seedUser(t *testing.T, repo RepositoryManager, role UserRole, email, password string) *User {
	t.Helper()

	hash, err := HashPassword(password)
	require.NoError(t, err)

	user, err := repo.Users().Register(context.Background(), &User{
		Name:         "Test " + string(role),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	require.NoError(t, err)

	return user
}

func seedClassroom(t *testing.T, db *bun.DB, name string) *Classroom {
	t.Helper()

	room := &Classroom{
		ID:                 uuid.New(),
		Name:               name,
		Capacity:           30,
		HasProjector:       true,
		HasAirConditioning: true,
		Faculty:            "Engineering",
	}

	_, err := db.NewInsert().Model(room).Exec(context.Background())
	require.NoError(t, err)

	return room
}

func seedPendingRequest(t *testing.T, repo RepositoryManager, userID uuid.UUID, subject string) *ClassroomRequest {
	t.Helper()

	start := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	record, err := repo.Requests().Create(context.Background(), &ClassroomRequest{
		UserID:    userID,
		Subject:   subject,
		Career:    "Systems Engineering",
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Reason:    "lab session",
	})
	require.NoError(t, err)
	require.Equal(t, RequestStatusPending, record.Status)

	return record
}
