package api

import (
	"alcyxob/fitness-tracker/internal/domain"
	"alcyxob/fitness-tracker/internal/service"
	"alcyxob/fitness-tracker/internal/session"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	testTrainerID = primitive.NewObjectID()
	testClientID  = primitive.NewObjectID()
)

// stubAuth accepts the tokens "trainer" and "client".
type stubAuth struct {
	service.AuthService
}

func (stubAuth) VerifyToken(token string) (*service.Claims, error) {
	switch token {
	case "trainer":
		return &service.Claims{UserID: testTrainerID, Role: domain.RoleTrainer, Email: "coach@example.com"}, nil
	case "client":
		return &service.Claims{UserID: testClientID, Role: domain.RoleClient, Email: "client@example.com"}, nil
	case "expired":
		return nil, service.ErrTokenExpired
	}
	return nil, service.ErrInvalidToken
}

// stubMedia presigns anything that is not a full URL.
type stubMedia struct {
	service.MediaService
}

func (stubMedia) ResolveURL(_ context.Context, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return "https://signed.example.com/" + ref
}

// stubWorkouts keeps one session per user in memory.
type stubWorkouts struct {
	service.WorkoutService
	sessions  map[primitive.ObjectID]*session.Session
	finishErr error
	started   service.StartRequest
}

func (w *stubWorkouts) Start(_ context.Context, userID primitive.ObjectID, req service.StartRequest) (*session.Session, error) {
	w.started = req
	records := make([]domain.ExerciseRecord, len(req.ExerciseIDs))
	for i, id := range req.ExerciseIDs {
		records[i] = domain.ExerciseRecord{ExerciseID: id, Name: "Exercise " + id, VideoURL: "exercises/" + id + ".mp4"}
	}
	s, err := session.New(session.Options{OwnerID: userID, Name: req.Name}, records, req.Prior)
	if err != nil {
		return nil, err
	}
	w.sessions[userID] = s
	return s.Clone(), nil
}

func (w *stubWorkouts) Current(_ context.Context, userID primitive.ObjectID) (*session.Session, error) {
	s, ok := w.sessions[userID]
	if !ok {
		return nil, service.ErrNoActiveSession
	}
	return s.Clone(), nil
}

func (w *stubWorkouts) Mutate(_ context.Context, userID primitive.ObjectID, fn func(*session.Session)) (*session.Session, error) {
	s, ok := w.sessions[userID]
	if !ok {
		return nil, service.ErrNoActiveSession
	}
	fn(s)
	return s.Clone(), nil
}

func (w *stubWorkouts) Finish(_ context.Context, userID primitive.ObjectID, req service.FinishRequest) (*domain.WorkoutLog, error) {
	s, ok := w.sessions[userID]
	if !ok {
		return nil, service.ErrNoActiveSession
	}
	if w.finishErr != nil {
		return nil, w.finishErr
	}
	wl, err := session.Prepare(s, session.FinishOptions{ConfirmPartial: req.ConfirmPartial, DurationMinutes: req.DurationMinutes})
	if err != nil {
		return nil, err
	}
	delete(w.sessions, userID)
	return wl, nil
}

func (w *stubWorkouts) Cancel(_ context.Context, userID primitive.ObjectID) error {
	if _, ok := w.sessions[userID]; !ok {
		return service.ErrNoActiveSession
	}
	delete(w.sessions, userID)
	return nil
}

type stubBenchmarks struct {
	ids     []string
	exclude primitive.ObjectID
}

func (b *stubBenchmarks) Lookup(_ context.Context, _ primitive.ObjectID, ids []string, exclude primitive.ObjectID) (map[string]domain.Set, error) {
	b.ids, b.exclude = ids, exclude
	return map[string]domain.Set{ids[0]: {Weight: "100", Reps: "5"}}, nil
}

type stubExercises struct {
	service.ExerciseService
}

func (stubExercises) CreateExercise(_ context.Context, trainer primitive.ObjectID, in service.ExerciseInput) (*domain.Exercise, error) {
	return &domain.Exercise{ID: primitive.NewObjectID(), TrainerID: &trainer, Name: in.Name, ImageURLs: in.ImageURLs, TrackingType: domain.TrackingReps}, nil
}

type testServer struct {
	router     *gin.Engine
	workouts   *stubWorkouts
	benchmarks *stubBenchmarks
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	ts := &testServer{
		router:     gin.New(),
		workouts:   &stubWorkouts{sessions: map[primitive.ObjectID]*session.Session{}},
		benchmarks: &stubBenchmarks{},
	}
	SetupRoutes(ts.router, Services{
		Auth:       stubAuth{},
		Exercises:  stubExercises{},
		Media:      stubMedia{},
		Benchmarks: ts.benchmarks,
		Workouts:   ts.workouts,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestRoutes_Ping(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/ping", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rec.Body.String())
}

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer()

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"expired token", "Bearer expired", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/current", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			ts.router.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRoleMiddleware(t *testing.T) {
	ts := newTestServer()
	body := ExerciseRequest{Name: "Cable Fly", ImageURLs: []string{"exercises/fly.jpg"}}

	rec := ts.do(t, http.MethodPost, "/api/v1/exercises", "client", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/exercises", "trainer", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp ExerciseResponse
	decode(t, rec, &resp)
	assert.Equal(t, testTrainerID.Hex(), resp.TrainerID)
	assert.Equal(t, []string{"https://signed.example.com/exercises/fly.jpg"}, resp.ImageURLs)
}

func TestSessionRoutes_Lifecycle(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/api/v1/sessions/current", "client", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions", "client", StartSessionRequest{
		Name:        "Legs",
		ExerciseIDs: []string{"squat", "lunge"},
		Prior:       map[string][]domain.Set{"lunge": {{Weight: "20", Reps: "10"}}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var started SessionResponse
	decode(t, rec, &started)
	assert.Equal(t, "Legs", started.Name)
	require.Len(t, started.Exercises, 2)
	assert.Equal(t, "https://signed.example.com/exercises/squat.mp4", started.Exercises[0].VideoURL)
	assert.Equal(t, []domain.Set{{Weight: "20", Reps: "10"}}, started.Exercises[1].Sets)
	assert.Equal(t, "incomplete", started.Exercises[0].State)

	rec = ts.do(t, http.MethodPatch, "/api/v1/sessions/current/exercises/squat/sets/0", "client", UpdateSetRequest{Weight: strPtr("100")})
	require.Equal(t, http.StatusOK, rec.Code)
	var edited SessionResponse
	decode(t, rec, &edited)
	assert.Equal(t, "100", edited.Exercises[0].Sets[0].Weight)

	rec = ts.do(t, http.MethodPatch, "/api/v1/sessions/current/exercises/squat/sets/7", "client", UpdateSetRequest{Reps: strPtr("5")})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/current/exercises/squat/sets/x/toggle", "client", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/current/exercises/squat/sets/0/toggle", "client", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// lunge is still open
	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/current/finish", "client", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var conflict struct {
		Error      string   `json:"error"`
		Incomplete []string `json:"incompleteExercises"`
	}
	decode(t, rec, &conflict)
	assert.Equal(t, []string{"Exercise lunge"}, conflict.Incomplete)

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/current/finish", "client", FinishSessionRequest{ConfirmPartial: true})
	require.Equal(t, http.StatusOK, rec.Code)
	var finished domain.WorkoutLog
	decode(t, rec, &finished)
	assert.Equal(t, domain.WorkoutPartial, finished.Status)

	rec = ts.do(t, http.MethodDelete, "/api/v1/sessions/current", "client", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionRoutes_StartValidation(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/api/v1/sessions", "client", StartSessionRequest{TemplateID: "not-hex"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions", "client", StartSessionRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), session.ErrNoExercises.Error())

	templateID := primitive.NewObjectID()
	rec = ts.do(t, http.MethodPost, "/api/v1/sessions", "client", StartSessionRequest{TemplateID: templateID.Hex()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, ts.workouts.started.TemplateID)
	assert.Equal(t, templateID, *ts.workouts.started.TemplateID)
}

func TestSessionRoutes_SaveFailureIsRetryable(t *testing.T) {
	ts := newTestServer()
	rec := ts.do(t, http.MethodPost, "/api/v1/sessions", "client", StartSessionRequest{ExerciseIDs: []string{"squat"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	ts.workouts.finishErr = service.ErrSaveFailed

	rec = ts.do(t, http.MethodPost, "/api/v1/sessions/current/finish", "client", FinishSessionRequest{ConfirmPartial: true})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/api/v1/sessions/current", "client", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBenchmarksRoute(t *testing.T) {
	ts := newTestServer()
	exclude := primitive.NewObjectID()

	rec := ts.do(t, http.MethodGet, "/api/v1/benchmarks", "client", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/benchmarks?exerciseId=a,b&exerciseId=c&exclude="+exclude.Hex(), "client", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a", "b", "c"}, ts.benchmarks.ids)
	assert.Equal(t, exclude, ts.benchmarks.exclude)
	assert.JSONEq(t, `{"a":{"weight":"100","reps":"5","completed":false}}`, rec.Body.String())
}

func TestMapLogToResponse_ResolvesLegacyMedia(t *testing.T) {
	wl := domain.WorkoutLog{
		ID:        primitive.NewObjectID(),
		Status:    domain.WorkoutCompleted,
		UpdatedAt: time.Now(),
		Exercises: []domain.ExerciseRecord{{LegacyID: "x", LegacyImages: "exercises/x.jpg", MuscleGroupID: "back"}},
	}

	resp := MapLogToResponse(context.Background(), stubMedia{}, wl)

	require.Len(t, resp.Exercises, 1)
	assert.Equal(t, "x", resp.Exercises[0].ExerciseID)
	assert.Equal(t, "back", resp.Exercises[0].MuscleGroup)
	assert.Equal(t, []string{"https://signed.example.com/exercises/x.jpg"}, resp.Exercises[0].ImageURLs)
	assert.Equal(t, "exercises/x.jpg", wl.Exercises[0].LegacyImages)
}

func strPtr(s string) *string { return &s }
