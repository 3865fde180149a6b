package service

import (
	"alcyxob/fitness-tracker/internal/domain"
	"alcyxob/fitness-tracker/internal/events"
	"alcyxob/fitness-tracker/internal/repository"
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Workout logs ---

type fakeLogRepo struct {
	mu        sync.Mutex
	logs      map[primitive.ObjectID]domain.WorkoutLog
	inserts   int
	deleted   []primitive.ObjectID
	upsertErr error
	deleteErr error
	// afterInsert runs once a new document has been stored.
	afterInsert func()

	history    map[string][]domain.Set
	historyErr map[string]error
	excluded   []primitive.ObjectID
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{
		logs:       make(map[primitive.ObjectID]domain.WorkoutLog),
		history:    make(map[string][]domain.Set),
		historyErr: make(map[string]error),
	}
}

func (r *fakeLogRepo) Upsert(_ context.Context, wl *domain.WorkoutLog) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return primitive.NilObjectID, r.upsertErr
	}
	stored := *wl
	if stored.ID == primitive.NilObjectID {
		stored.ID = primitive.NewObjectID()
		r.inserts++
		if r.afterInsert != nil {
			defer r.afterInsert()
		}
	}
	r.logs[stored.ID] = stored
	return stored.ID, nil
}

func (r *fakeLogRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WorkoutLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wl, ok := r.logs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &wl, nil
}

func (r *fakeLogRepo) Delete(_ context.Context, id, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	if r.deleteErr != nil {
		return r.deleteErr
	}
	wl, ok := r.logs[id]
	if !ok || wl.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.logs, id)
	return nil
}

func (r *fakeLogRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]domain.WorkoutLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.WorkoutLog{}
	for _, wl := range r.logs {
		if wl.UserID == userID {
			out = append(out, wl)
		}
	}
	return out, nil
}

func (r *fakeLogRepo) ExerciseHistory(_ context.Context, _ primitive.ObjectID, exerciseID string, exclude primitive.ObjectID) ([]domain.Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.excluded = append(r.excluded, exclude)
	if err := r.historyErr[exerciseID]; err != nil {
		return nil, err
	}
	return r.history[exerciseID], nil
}

func (r *fakeLogRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.logs)
}

func (r *fakeLogRepo) deletes() []primitive.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]primitive.ObjectID(nil), r.deleted...)
}

// --- Exercise catalog ---

type fakeExerciseRepo struct {
	mu        sync.Mutex
	exercises map[primitive.ObjectID]domain.Exercise
	listCalls int
}

func newFakeExerciseRepo(exercises ...domain.Exercise) *fakeExerciseRepo {
	r := &fakeExerciseRepo{exercises: make(map[primitive.ObjectID]domain.Exercise)}
	for _, ex := range exercises {
		r.exercises[ex.ID] = ex
	}
	return r
}

func (r *fakeExerciseRepo) Create(_ context.Context, exercise *domain.Exercise) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exercise.ID = primitive.NewObjectID()
	r.exercises[exercise.ID] = *exercise
	return exercise.ID, nil
}

func (r *fakeExerciseRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.exercises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ex, nil
}

func (r *fakeExerciseRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Exercise{}
	for _, id := range ids {
		if ex, ok := r.exercises[id]; ok {
			out = append(out, ex)
		}
	}
	return out, nil
}

func (r *fakeExerciseRepo) List(_ context.Context, trainerID *primitive.ObjectID) ([]domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	out := []domain.Exercise{}
	for _, ex := range r.exercises {
		if ex.TrainerID == nil || (trainerID != nil && *ex.TrainerID == *trainerID) {
			out = append(out, ex)
		}
	}
	return out, nil
}

func (r *fakeExerciseRepo) Update(_ context.Context, exercise *domain.Exercise) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exercises[exercise.ID]; !ok {
		return repository.ErrNotFound
	}
	r.exercises[exercise.ID] = *exercise
	return nil
}

func (r *fakeExerciseRepo) Delete(_ context.Context, id, trainerID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.exercises[id]
	if !ok || !ex.IsOwnedBy(trainerID) {
		return repository.ErrNotFound
	}
	delete(r.exercises, id)
	return nil
}

func (r *fakeExerciseRepo) lists() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

type fakeMuscleGroupRepo struct {
	groups []domain.MuscleGroup
}

func (r *fakeMuscleGroupRepo) List(context.Context) ([]domain.MuscleGroup, error) {
	return r.groups, nil
}

func (r *fakeMuscleGroupRepo) Upsert(_ context.Context, group *domain.MuscleGroup) error {
	r.groups = append(r.groups, *group)
	return nil
}

// --- Templates ---

type fakeTemplateRepo struct {
	mu        sync.Mutex
	templates map[primitive.ObjectID]domain.WorkoutTemplate
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: make(map[primitive.ObjectID]domain.WorkoutTemplate)}
}

func (r *fakeTemplateRepo) Create(_ context.Context, template *domain.WorkoutTemplate) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	stored := *template
	stored.ID = id
	r.templates[id] = stored
	return id, nil
}

func (r *fakeTemplateRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WorkoutTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl, ok := r.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tpl, nil
}

func (r *fakeTemplateRepo) GetByOwnerID(_ context.Context, ownerID primitive.ObjectID) ([]domain.WorkoutTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.WorkoutTemplate{}
	for _, tpl := range r.templates {
		if tpl.OwnerID == ownerID {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (r *fakeTemplateRepo) Update(_ context.Context, template *domain.WorkoutTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[template.ID]; !ok {
		return repository.ErrNotFound
	}
	r.templates[template.ID] = *template
	return nil
}

func (r *fakeTemplateRepo) Delete(_ context.Context, id, ownerID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl, ok := r.templates[id]
	if !ok || tpl.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(r.templates, id)
	return nil
}

func (r *fakeTemplateRepo) add(tpl domain.WorkoutTemplate) primitive.ObjectID {
	id, _ := r.Create(context.Background(), &tpl)
	return id
}

// --- Assignments ---

type fakeAssignmentRepo struct {
	mu          sync.Mutex
	assignments map[primitive.ObjectID]domain.Assignment
	markErr     error
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{assignments: make(map[primitive.ObjectID]domain.Assignment)}
}

func (r *fakeAssignmentRepo) Create(_ context.Context, assignment *domain.Assignment) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	stored := *assignment
	stored.ID = id
	stored.AssignedAt = time.Now().UTC()
	r.assignments[id] = stored
	return id, nil
}

func (r *fakeAssignmentRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *fakeAssignmentRepo) GetByClientID(_ context.Context, clientID primitive.ObjectID) ([]domain.Assignment, error) {
	return r.filter(func(a domain.Assignment) bool { return a.ClientID == clientID }), nil
}

func (r *fakeAssignmentRepo) GetByTrainerID(_ context.Context, trainerID primitive.ObjectID) ([]domain.Assignment, error) {
	return r.filter(func(a domain.Assignment) bool { return a.TrainerID == trainerID }), nil
}

func (r *fakeAssignmentRepo) MarkCompleted(_ context.Context, id, logID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markErr != nil {
		return r.markErr
	}
	a, ok := r.assignments[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	a.Status = domain.StatusCompleted
	a.LogID = &logID
	a.CompletedAt = &now
	r.assignments[id] = a
	return nil
}

func (r *fakeAssignmentRepo) filter(keep func(domain.Assignment) bool) []domain.Assignment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Assignment{}
	for _, a := range r.assignments {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func (r *fakeAssignmentRepo) add(a domain.Assignment) primitive.ObjectID {
	id, _ := r.Create(context.Background(), &a)
	return id
}

// --- Users ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]domain.User
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[primitive.ObjectID]domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Upsert(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		stored = domain.User{ID: user.ID, CreatedAt: time.Now().UTC()}
	}
	stored.Name, stored.Email, stored.Role = user.Name, user.Email, user.Role
	stored.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = stored
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) AddClientIDToTrainer(_ context.Context, trainerID, clientID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.users[trainerID]
	if !ok {
		return repository.ErrNotFound
	}
	t.ClientIDs = append(t.ClientIDs, clientID)
	r.users[trainerID] = t
	return nil
}

func (r *fakeUserRepo) GetClientsByTrainerID(_ context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.User{}
	for _, u := range r.users {
		if u.TrainerID != nil && *u.TrainerID == trainerID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) SetTrainerForClient(_ context.Context, clientID, trainerID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.users[clientID]
	if !ok {
		return repository.ErrNotFound
	}
	c.TrainerID = &trainerID
	r.users[clientID] = c
	return nil
}

// --- Storage ---

type fakeStorage struct {
	mu      sync.Mutex
	deleted []string
}

func (s *fakeStorage) GeneratePresignedUploadURL(_ context.Context, objectKey, _ string, _ time.Duration) (string, error) {
	return "https://bucket.example.com/" + objectKey + "?upload", nil
}

func (s *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://bucket.example.com/" + objectKey + "?signed", nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, objectKey)
	return nil
}

// --- Events ---

type recordingPublisher struct {
	mu          sync.Mutex
	finished    []events.WorkoutFinished
	assignments []events.AssignmentCompleted
}

func (p *recordingPublisher) WorkoutFinished(_ context.Context, evt events.WorkoutFinished) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished = append(p.finished, evt)
	return nil
}

func (p *recordingPublisher) AssignmentCompleted(_ context.Context, evt events.AssignmentCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assignments = append(p.assignments, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) finishedEvents() []events.WorkoutFinished {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.WorkoutFinished(nil), p.finished...)
}

// catalogExercise builds a shared library entry.
func catalogExercise(name string) domain.Exercise {
	return domain.Exercise{
		ID:           primitive.NewObjectID(),
		Name:         name,
		MuscleGroup:  "chest",
		TrackingType: domain.TrackingReps,
	}
}
