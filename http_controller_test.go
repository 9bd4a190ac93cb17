package classroom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type testServer struct {
	app  *fiber.App
	repo RepositoryManager
	db   *bun.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := setupTestDB(t)
	repo := NewRepositoryManager(db)

	cfg := &AppConfig{
		SigningKey:      "test-signing-key",
		TokenExpiration: 24,
		Issuer:          "go-classroom",
	}

	auther := NewAuthenticator(NewUserProvider(repo.Users()), cfg)
	lifecycle := NewRequestLifecycle(repo)
	ctrl := NewController(auther, auther.TokenService(), repo, lifecycle)

	app := fiber.New(fiber.Config{
		ErrorHandler: HTTPErrorHandler(nil),
	})
	ctrl.RegisterRoutes(app)

	return &testServer{app: app, repo: repo, db: db}
}

func (s *testServer) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return res
}

func decodeBody(t *testing.T, res *http.Response) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	res.Body.Close()
	return body
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()

	res := s.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	body := decodeBody(t, res)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestLoginEndpoint(t *testing.T) {
	srv := newTestServer(t)
	seedUser(t, srv.repo, RoleDocente, "docente@uni.edu", "secret-password")

	res := srv.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "docente@uni.edu",
		"password": "secret-password",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	body := decodeBody(t, res)
	assert.NotEmpty(t, body["token"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "docente@uni.edu", user["email"])
	assert.Equal(t, "docente", user["role"])
	// the hash never leaves the server
	_, leaked := user["password_hash"]
	assert.False(t, leaked)
}

func TestLoginInvalidCredentials(t *testing.T) {
	srv := newTestServer(t)
	seedUser(t, srv.repo, RoleDocente, "docente@uni.edu", "secret-password")

	// wrong password and unknown account are indistinguishable
	res := srv.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "docente@uni.edu",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	wrongPassword := decodeBody(t, res)

	res = srv.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "nobody@uni.edu",
		"password": "secret-password",
	})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	unknownAccount := decodeBody(t, res)

	assert.Equal(t, wrongPassword["message"], unknownAccount["message"])
}

func TestLoginValidation(t *testing.T) {
	srv := newTestServer(t)

	res := srv.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestRegisterEndpoint(t *testing.T) {
	srv := newTestServer(t)

	payload := map[string]string{
		"name":     "Ana Morales",
		"email":    "ana@uni.edu",
		"password": "secret-password",
		"role":     "secretaria",
	}

	res := srv.request(t, http.MethodPost, "/api/auth/register", "", payload)
	require.Equal(t, http.StatusCreated, res.StatusCode)

	body := decodeBody(t, res)
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "secretaria", user["role"])
	_, leaked := user["password_hash"]
	assert.False(t, leaked)

	// the account is immediately usable
	srv.login(t, "ana@uni.edu", "secret-password")

	// duplicate email is a conflict
	res = srv.request(t, http.MethodPost, "/api/auth/register", "", payload)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	srv := newTestServer(t)

	res := srv.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Ana Morales",
		"email":    "ana@uni.edu",
		"password": "secret-password",
		"role":     "admin",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestCreateRequestEndpoint(t *testing.T) {
	srv := newTestServer(t)
	seedUser(t, srv.repo, RoleDocente, "docente@uni.edu", "secret-password")
	token := srv.login(t, "docente@uni.edu", "secret-password")

	res := srv.request(t, http.MethodPost, "/api/requests", token, map[string]string{
		"subject":   "Databases II",
		"career":    "Systems Engineering",
		"startTime": "2026-09-14T10:00",
		"endTime":   "2026-09-14T12:00",
		"reason":    "midterm review",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	body := decodeBody(t, res)
	record, ok := body["request"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(RequestStatusPending), record["status"])
	assert.NotEmpty(t, record["id"])
}

func TestCreateRequestValidationErrors(t *testing.T) {
	srv := newTestServer(t)
	seedUser(t, srv.repo, RoleDocente, "docente@uni.edu", "secret-password")
	token := srv.login(t, "docente@uni.edu", "secret-password")

	// missing subject
	res := srv.request(t, http.MethodPost, "/api/requests", token, map[string]string{
		"career":    "Systems Engineering",
		"startTime": "2026-09-14T10:00",
		"endTime":   "2026-09-14T12:00",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	// missing start time
	res = srv.request(t, http.MethodPost, "/api/requests", token, map[string]string{
		"subject": "Databases II",
		"career":  "Systems Engineering",
		"endTime": "2026-09-14T12:00",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	// end before start
	res = srv.request(t, http.MethodPost, "/api/requests", token, map[string]string{
		"subject":   "Databases II",
		"career":    "Systems Engineering",
		"startTime": "2026-09-14T12:00",
		"endTime":   "2026-09-14T10:00",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	// unparseable timestamp
	res = srv.request(t, http.MethodPost, "/api/requests", token, map[string]string{
		"subject":   "Databases II",
		"career":    "Systems Engineering",
		"startTime": "next tuesday",
		"endTime":   "2026-09-14T12:00",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestCreateRequestRequiresAuth(t *testing.T) {
	srv := newTestServer(t)

	res := srv.request(t, http.MethodPost, "/api/requests", "", map[string]string{
		"subject": "Databases II",
	})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestApproveEndpoint(t *testing.T) {
	srv := newTestServer(t)
	teacher := seedUser(t, srv.repo, RoleDocente, "docente@uni.edu", "secret-password")
	seedUser(t, srv.repo, RoleSecretaria, "staff@uni.edu", "secret-password")
	room := seedClassroom(t, srv.db, "Lab 101")
	request := seedPendingRequest(t, srv.repo, teacher.ID, "Databases II")

	staffToken := srv.login(t, "staff@uni.edu", "secret-password")

	path := fmt.Sprintf("/api/requests/%s/approve", request.ID)
	res := srv.request(t, http.MethodPut, path, staffToken, map[string]string{
		"classroomId": room.ID.String(),
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	body := decodeBody(t, res)
	record, ok := body["request"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(RequestStatusApproved), record["status"])

	// a second approval is a conflict reported as not found
	res = srv.request(t, http.MethodPut, path, staffToken, map[string]string{
		"classroomId": room.ID.String(),
	})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	// the booking is now visible
	res = srv.request(t, http.MethodGet, "/api/bookings", staffToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var bookings []map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&bookings))
	res.Body.Close()
	require.Len(t, bookings, 1)
	assert.Equal(t, room.ID.String(), bookings[0]["classroom_id"])
}

func TestApproveRequiresClassroomID(t *testing.T) {
	srv := newTestServer(t)
	teacher := seedUser(t, srv.repo, RoleDocente, "docente@uni.edu", "secret-password")
	seedUser(t, srv.repo, RoleSecretaria, "staff@uni.edu", "secret-password")
	request := seedPendingRequest(t, srv.repo, teacher.ID, "Databases II")

	staffToken := srv.login(t, "staff@uni.edu", "secret-password")

	path := fmt.Sprintf("/api/requests/%s/approve", request.ID)
	res := srv.request(t, http.MethodPut, path, staffToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestApproveForbiddenForDocente(t *testing.T) {
	srv := newTestServer(t)
	teacher := seedUser(t, srv.repo, RoleDocente, "docente@uni.edu", "secret-password")
	request := seedPendingRequest(t, srv.repo, teacher.ID, "Databases II")

	teacherToken := srv.login(t, "docente@uni.edu", "secret-password")

	path := fmt.Sprintf("/api/requests/%s/approve", request.ID)
	res := srv.request(t, http.MethodPut, path, teacherToken, map[string]string{
		"classroomId": uuid.New().String(),
	})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	// the request is untouched
	record, err := srv.repo.Requests().GetByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestStatusPending, record.Status)
}

func TestRejectEndpoint(t *testing.T) {
	srv := newTestServer(t)
	teacher := seedUser(t, srv.repo, RoleDocente, "docente@uni.edu", "secret-password")
	seedUser(t, srv.repo, RoleSecretaria, "staff@uni.edu", "secret-password")
	request := seedPendingRequest(t, srv.repo, teacher.ID, "Databases II")

	staffToken := srv.login(t, "staff@uni.edu", "secret-password")

	path := fmt.Sprintf("/api/requests/%s/reject", request.ID)
	res := srv.request(t, http.MethodPut, path, staffToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	body := decodeBody(t, res)
	record, ok := body["request"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(RequestStatusRejected), record["status"])

	// already processed
	res = srv.request(t, http.MethodPut, path, staffToken, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestRequestsIndexStaffOnly(t *testing.T) {
	srv := newTestServer(t)
	seedUser(t, srv.repo, RoleDocente, "docente@uni.edu", "secret-password")
	seedUser(t, srv.repo, RoleSecretaria, "staff@uni.edu", "secret-password")

	teacherToken := srv.login(t, "docente@uni.edu", "secret-password")
	staffToken := srv.login(t, "staff@uni.edu", "secret-password")

	res := srv.request(t, http.MethodGet, "/api/requests", teacherToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res = srv.request(t, http.MethodGet, "/api/requests", staffToken, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestMyRequestsScopedToCaller(t *testing.T) {
	srv := newTestServer(t)
	teacher := seedUser(t, srv.repo, RoleDocente, "docente@uni.edu", "secret-password")
	other := seedUser(t, srv.repo, RoleDocente, "otro@uni.edu", "secret-password")

	seedPendingRequest(t, srv.repo, teacher.ID, "Databases II")
	seedPendingRequest(t, srv.repo, other.ID, "Physics I")

	token := srv.login(t, "docente@uni.edu", "secret-password")

	res := srv.request(t, http.MethodGet, "/api/requests/my", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var records []map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&records))
	res.Body.Close()
	require.Len(t, records, 1)
	assert.Equal(t, "Databases II", records[0]["subject"])
}

func TestDirectBookingEndpoint(t *testing.T) {
	srv := newTestServer(t)
	teacher := seedUser(t, srv.repo, RoleDocente, "docente@uni.edu", "secret-password")
	seedUser(t, srv.repo, RoleSecretaria, "staff@uni.edu", "secret-password")
	room := seedClassroom(t, srv.db, "Lab 101")

	staffToken := srv.login(t, "staff@uni.edu", "secret-password")
	teacherToken := srv.login(t, "docente@uni.edu", "secret-password")

	payload := map[string]string{
		"classroomId": room.ID.String(),
		"userId":      teacher.ID.String(),
		"subject":     "Operating Systems",
		"career":      "Systems Engineering",
		"startTime":   "2026-09-14T08:00",
		"endTime":     "2026-09-14T10:00",
	}

	// teachers cannot book directly
	res := srv.request(t, http.MethodPost, "/api/bookings", teacherToken, payload)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res = srv.request(t, http.MethodPost, "/api/bookings", staffToken, payload)
	require.Equal(t, http.StatusCreated, res.StatusCode)

	// the teacher sees it under their own bookings
	res = srv.request(t, http.MethodGet, "/api/bookings/my", teacherToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var bookings []map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&bookings))
	res.Body.Close()
	require.Len(t, bookings, 1)
	assert.Equal(t, "Operating Systems", bookings[0]["subject"])
}

func TestClassroomsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	seedUser(t, srv.repo, RoleDocente, "docente@uni.edu", "secret-password")
	seedClassroom(t, srv.db, "Lab 101")

	token := srv.login(t, "docente@uni.edu", "secret-password")

	res := srv.request(t, http.MethodGet, "/api/classrooms", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var rooms []map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&rooms))
	res.Body.Close()
	require.Len(t, rooms, 1)
	assert.Equal(t, "Lab 101", rooms[0]["name"])
}
