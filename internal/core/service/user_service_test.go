package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/usuarios/registry/internal/core/domain"
	"github.com/usuarios/registry/internal/core/ports"
	"github.com/usuarios/registry/internal/core/registry"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubIdempotency struct {
	mu          sync.Mutex
	keys        map[string]int
	lookupErr   error
	saveErr     error
	lookupDelay time.Duration
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{keys: make(map[string]int)}
}

func (s *stubIdempotency) Lookup(_ context.Context, key string) (int, bool, error) {
	time.Sleep(s.lookupDelay)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return 0, false, s.lookupErr
	}
	id, ok := s.keys[key]
	return id, ok, nil
}

// Remember keeps the first id stored under key, like SETNX.
func (s *stubIdempotency) Remember(_ context.Context, key string, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if _, ok := s.keys[key]; !ok {
		s.keys[key] = id
	}
	return nil
}

type stubAudit struct {
	events []domain.AuditEvent
}

func (a *stubAudit) Publish(e domain.AuditEvent) { a.events = append(a.events, e) }

type stubNotifier struct {
	snapshots [][]domain.UserRecord
}

func (n *stubNotifier) NotifyList(users []domain.UserRecord) {
	n.snapshots = append(n.snapshots, users)
}

type stubMetrics struct {
	mu         sync.Mutex
	mutations  map[domain.AuditAction]int
	rejections map[string]int
	replays    int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{
		mutations:  make(map[domain.AuditAction]int),
		rejections: make(map[string]int),
	}
}

func (m *stubMetrics) UserMutated(a domain.AuditAction, _ domain.UserType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mutations[a]++
}

func (m *stubMetrics) ValidationFailed(op string, _ domain.ValidationError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections[op]++
}

func (m *stubMetrics) IdempotentReplay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replays++
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type fixture struct {
	svc      *UserService
	idem     *stubIdempotency
	audit    *stubAudit
	notifier *stubNotifier
	metrics  *stubMetrics
}

func newFixture() *fixture {
	f := &fixture{
		idem:     newStubIdempotency(),
		audit:    &stubAudit{},
		notifier: &stubNotifier{},
		metrics:  newStubMetrics(),
	}
	f.svc = NewUserService(registry.New(), zerolog.Nop(),
		WithIdempotency(f.idem),
		WithAudit(f.audit),
		WithNotifier(f.notifier),
		WithMetrics(f.metrics),
	)
	return f
}

func candidate(name string) domain.Candidate {
	return domain.Candidate{
		Name:        name,
		Type:        domain.UserTypeDocente,
		Institution: "UFRJ",
		Permissions: domain.PermissionCoordenadorPesquisa,
		Email:       "a@x.com",
	}
}

func mustCreate(t *testing.T, svc *UserService, name string) domain.UserRecord {
	t.Helper()
	res, err := svc.Create(context.Background(), ports.CreateUserInput{Candidate: candidate(name)})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return res.User
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestUserService_Create_Success(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Create(context.Background(), ports.CreateUserInput{Candidate: candidate("Ana"), RequestID: "req-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.User.ID != 1 {
		t.Errorf("expected id 1, got %d", res.User.ID)
	}
	if res.AlreadyExisted {
		t.Error("expected AlreadyExisted=false for a new user")
	}

	if len(f.audit.events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(f.audit.events))
	}
	ev := f.audit.events[0]
	if ev.Action != domain.AuditCreated || ev.UserID != 1 || ev.RequestID != "req-1" {
		t.Errorf("unexpected audit event: %+v", ev)
	}
	if ev.User == nil || ev.User.Name != "Ana" {
		t.Errorf("audit event must carry a snapshot, got %+v", ev.User)
	}
	if ev.ID == "" || ev.At.IsZero() {
		t.Error("audit event must have an id and timestamp")
	}

	if len(f.notifier.snapshots) != 1 || len(f.notifier.snapshots[0]) != 1 {
		t.Fatalf("expected one list snapshot with one user, got %+v", f.notifier.snapshots)
	}
	if f.metrics.mutations[domain.AuditCreated] != 1 {
		t.Errorf("expected created metric, got %+v", f.metrics.mutations)
	}
}

func TestUserService_Create_ValidationFailure(t *testing.T) {
	f := newFixture()

	c := candidate("")
	_, err := f.svc.Create(context.Background(), ports.CreateUserInput{Candidate: c})

	ve, ok := domain.AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve[domain.FieldName] != "Nome é obrigatório" || len(ve) != 1 {
		t.Errorf("unexpected field errors: %+v", ve)
	}

	users, _ := f.svc.List(context.Background())
	if len(users) != 0 {
		t.Errorf("store must be unchanged, got %d users", len(users))
	}
	if len(f.audit.events) != 0 || len(f.notifier.snapshots) != 0 {
		t.Error("rejected candidates must not be audited or broadcast")
	}
	if f.metrics.rejections["create"] != 1 {
		t.Errorf("expected one create rejection, got %+v", f.metrics.rejections)
	}
}

func TestUserService_Create_IdempotentReplay(t *testing.T) {
	f := newFixture()
	in := ports.CreateUserInput{Candidate: candidate("Ana"), IdempotencyKey: "key-1"}

	first, err := f.svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := f.svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}

	if !second.AlreadyExisted {
		t.Error("expected AlreadyExisted=true on replay")
	}
	if second.User != first.User {
		t.Errorf("replay returned %+v, want %+v", second.User, first.User)
	}
	users, _ := f.svc.List(context.Background())
	if len(users) != 1 {
		t.Errorf("replay must not add a record, got %d", len(users))
	}
	if f.metrics.replays != 1 {
		t.Errorf("expected 1 replay, got %d", f.metrics.replays)
	}
}

func TestUserService_Create_ConcurrentSameKeyCreatesOnce(t *testing.T) {
	f := newFixture()
	f.idem.lookupDelay = 5 * time.Millisecond
	in := ports.CreateUserInput{Candidate: candidate("Ana"), IdempotencyKey: "retry-1"}

	const callers = 8
	results := make([]*ports.CreateUserResult, callers)
	errs := make([]error, callers)

	var start, done sync.WaitGroup
	start.Add(1)
	for i := 0; i < callers; i++ {
		done.Add(1)
		go func(i int) {
			defer done.Done()
			start.Wait()
			results[i], errs[i] = f.svc.Create(context.Background(), in)
		}(i)
	}
	start.Done()
	done.Wait()

	fresh := 0
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i].User.ID != 1 {
			t.Errorf("caller %d got id %d, want 1", i, results[i].User.ID)
		}
		if !results[i].AlreadyExisted {
			fresh++
		}
	}

	users, _ := f.svc.List(context.Background())
	if len(users) != 1 {
		t.Fatalf("expected exactly 1 record, got %d", len(users))
	}
	if fresh != 1 {
		t.Errorf("expected exactly one caller to report a fresh create, got %d", fresh)
	}
	if f.metrics.mutations[domain.AuditCreated] != 1 {
		t.Errorf("expected 1 created mutation, got %d", f.metrics.mutations[domain.AuditCreated])
	}
}

func TestUserService_Create_ReplayOfDeletedRecordCreatesAgain(t *testing.T) {
	f := newFixture()
	in := ports.CreateUserInput{Candidate: candidate("Ana"), IdempotencyKey: "key-1"}

	first, _ := f.svc.Create(context.Background(), in)
	if _, err := f.svc.Delete(context.Background(), first.User.ID, ""); err != nil {
		t.Fatalf("delete: %v", err)
	}

	again, err := f.svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if again.AlreadyExisted || again.User.ID != 2 {
		t.Errorf("expected a fresh record with id 2, got %+v", again)
	}
}

func TestUserService_Create_IdempotencyFailureStillCreates(t *testing.T) {
	f := newFixture()
	f.idem.lookupErr = errors.New("redis down")
	f.idem.saveErr = errors.New("redis down")

	res, err := f.svc.Create(context.Background(), ports.CreateUserInput{Candidate: candidate("Ana"), IdempotencyKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.User.ID != 1 {
		t.Errorf("expected id 1, got %d", res.User.ID)
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestUserService_Update_Success(t *testing.T) {
	f := newFixture()
	mustCreate(t, f.svc, "Ana")
	bruno := mustCreate(t, f.svc, "Bruno")
	mustCreate(t, f.svc, "Carla")

	edit := bruno.Candidate()
	edit.Name = "Bruno Silva"
	edit.Permissions = domain.PermissionAdministrador

	rec, err := f.svc.Update(context.Background(), ports.UpdateUserInput{Candidate: edit})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != bruno.ID || rec.Name != "Bruno Silva" {
		t.Errorf("unexpected record: %+v", rec)
	}

	users, _ := f.svc.List(context.Background())
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	if users[1].Name != "Bruno Silva" {
		t.Errorf("edited record must keep its position, got %+v", users)
	}

	last := f.audit.events[len(f.audit.events)-1]
	if last.Action != domain.AuditUpdated || last.UserID != bruno.ID {
		t.Errorf("unexpected audit event: %+v", last)
	}
}

func TestUserService_Update_UnknownID(t *testing.T) {
	f := newFixture()
	mustCreate(t, f.svc, "Ana")

	edit := candidate("Ghost")
	edit.ID = 99

	_, err := f.svc.Update(context.Background(), ports.UpdateUserInput{Candidate: edit})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	users, _ := f.svc.List(context.Background())
	if len(users) != 1 || users[0].Name != "Ana" {
		t.Errorf("store must be unchanged, got %+v", users)
	}
	if len(f.audit.events) != 1 {
		t.Errorf("expected only the create to be audited, got %d events", len(f.audit.events))
	}
}

func TestUserService_Update_ValidationFailure(t *testing.T) {
	f := newFixture()
	ana := mustCreate(t, f.svc, "Ana")

	edit := ana.Candidate()
	edit.Institution = ""

	_, err := f.svc.Update(context.Background(), ports.UpdateUserInput{Candidate: edit})
	ve, ok := domain.AsValidationError(err)
	if !ok || ve[domain.FieldInstitution] != "Instituição é obrigatória" {
		t.Fatalf("expected institution error, got %v", err)
	}
	got, _ := f.svc.Get(context.Background(), ana.ID)
	if got.Institution != "UFRJ" {
		t.Errorf("record must be unchanged, got %+v", got)
	}
	if f.metrics.rejections["update"] != 1 {
		t.Errorf("expected one update rejection, got %+v", f.metrics.rejections)
	}
}

// ---------------------------------------------------------------------------
// Delete / Get
// ---------------------------------------------------------------------------

func TestUserService_Delete_Idempotent(t *testing.T) {
	f := newFixture()
	ana := mustCreate(t, f.svc, "Ana")
	mustCreate(t, f.svc, "Bruno")

	removed, err := f.svc.Delete(context.Background(), ana.ID, "req-9")
	if err != nil || !removed {
		t.Fatalf("expected removal, got removed=%v err=%v", removed, err)
	}
	removed, err = f.svc.Delete(context.Background(), ana.ID, "req-9")
	if err != nil || removed {
		t.Fatalf("second delete must be a no-op, got removed=%v err=%v", removed, err)
	}

	users, _ := f.svc.List(context.Background())
	if len(users) != 1 || users[0].Name != "Bruno" {
		t.Errorf("unexpected users: %+v", users)
	}

	deletes := 0
	for _, e := range f.audit.events {
		if e.Action == domain.AuditDeleted {
			deletes++
			if e.User != nil {
				t.Error("delete events carry no snapshot")
			}
		}
	}
	if deletes != 1 {
		t.Errorf("expected 1 delete event, got %d", deletes)
	}
}

func TestUserService_Get_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Get(context.Background(), 1)
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_NotifiesInCommitOrder(t *testing.T) {
	f := newFixture()
	mustCreate(t, f.svc, "Ana")
	mustCreate(t, f.svc, "Bruno")
	_, _ = f.svc.Delete(context.Background(), 1, "")

	sizes := make([]int, 0, len(f.notifier.snapshots))
	for _, s := range f.notifier.snapshots {
		sizes = append(sizes, len(s))
	}
	if len(sizes) != 3 || sizes[0] != 1 || sizes[1] != 2 || sizes[2] != 1 {
		t.Errorf("unexpected snapshot sizes: %v", sizes)
	}
}

func TestUserService_WithoutCollaborators(t *testing.T) {
	svc := NewUserService(registry.New(), zerolog.Nop())

	res, err := svc.Create(context.Background(), ports.CreateUserInput{Candidate: candidate("Ana"), IdempotencyKey: "ignored"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.User.ID != 1 {
		t.Errorf("expected id 1, got %d", res.User.ID)
	}
	if errs := svc.Validate(context.Background(), domain.Candidate{}); len(errs) != 5 {
		t.Errorf("expected 5 field errors, got %d", len(errs))
	}
}
