package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/usuarios/registry/internal/core/domain"
	"github.com/usuarios/registry/internal/core/ports"
	"github.com/usuarios/registry/internal/core/registry"
)

// MetricsRecorder abstracts the Prometheus counters the service reports to.
type MetricsRecorder interface {
	UserMutated(action domain.AuditAction, userType domain.UserType)
	ValidationFailed(op string, errs domain.ValidationError)
	IdempotentReplay()
}

// UserService serialises access to the registry and fans committed
// mutations out to the audit trail, live listeners and metrics.
type UserService struct {
	mu    sync.Mutex
	store *registry.Store

	// flight collapses concurrent creates sharing an idempotency key.
	flight singleflight.Group

	idem     ports.IdempotencyStore
	audit    ports.AuditPublisher
	notifier ports.ListNotifier
	metrics  MetricsRecorder
	log      zerolog.Logger
	now      func() time.Time
}

// Option configures optional collaborators of UserService.
type Option func(*UserService)

func WithIdempotency(s ports.IdempotencyStore) Option {
	return func(us *UserService) { us.idem = s }
}

func WithAudit(p ports.AuditPublisher) Option {
	return func(us *UserService) { us.audit = p }
}

func WithNotifier(n ports.ListNotifier) Option {
	return func(us *UserService) { us.notifier = n }
}

func WithMetrics(m MetricsRecorder) Option {
	return func(us *UserService) { us.metrics = m }
}

// NewUserService wraps store. Collaborators left unset are no-ops.
func NewUserService(store *registry.Store, log zerolog.Logger, opts ...Option) *UserService {
	s := &UserService{
		store:    store,
		idem:     nopIdempotency{},
		audit:    nopAudit{},
		notifier: nopNotifier{},
		metrics:  nopMetrics{},
		log:      log.With().Str("component", "user_service").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.UserService = (*UserService)(nil)

func (s *UserService) Validate(_ context.Context, c domain.Candidate) domain.ValidationError {
	return s.store.Validate(c)
}

// Create adds a new record. If an idempotency key is provided and already
// maps to a live record, that record is returned without side effects.
// Concurrent calls with the same key share a single create.
func (s *UserService) Create(ctx context.Context, in ports.CreateUserInput) (*ports.CreateUserResult, error) {
	if in.IdempotencyKey == "" {
		return s.create(ctx, in)
	}

	led := false
	v, err, _ := s.flight.Do(in.IdempotencyKey, func() (any, error) {
		led = true
		return s.create(ctx, in)
	})
	if err != nil {
		return nil, err
	}

	res := *v.(*ports.CreateUserResult)
	if !led && !res.AlreadyExisted {
		res.AlreadyExisted = true
		s.metrics.IdempotentReplay()
		s.log.Info().Str("idempotency_key", in.IdempotencyKey).Int("user_id", res.User.ID).Msg("idempotent replay of in-flight create")
	}
	return &res, nil
}

func (s *UserService) create(ctx context.Context, in ports.CreateUserInput) (*ports.CreateUserResult, error) {
	if in.IdempotencyKey != "" {
		if existing, ok := s.replay(ctx, in.IdempotencyKey); ok {
			s.metrics.IdempotentReplay()
			s.log.Info().Str("idempotency_key", in.IdempotencyKey).Int("user_id", existing.ID).Msg("idempotent replay")
			return &ports.CreateUserResult{User: existing, AlreadyExisted: true}, nil
		}
	}

	s.mu.Lock()
	rec, err := s.store.Add(in.Candidate)
	if err != nil {
		s.mu.Unlock()
		return nil, s.rejected("create", err)
	}
	s.committed(domain.AuditCreated, rec.ID, &rec, in.RequestID)
	s.mu.Unlock()

	if in.IdempotencyKey != "" {
		if err := s.idem.Remember(ctx, in.IdempotencyKey, rec.ID); err != nil {
			s.log.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("failed to store idempotency key")
		}
	}

	s.log.Info().Int("user_id", rec.ID).Str("type", rec.Type.Code()).Msg("user created")
	return &ports.CreateUserResult{User: rec}, nil
}

// Update replaces the record selected by in.Candidate.ID. A candidate whose id
// no longer exists leaves the registry untouched and yields ErrUserNotFound.
func (s *UserService) Update(_ context.Context, in ports.UpdateUserInput) (*domain.UserRecord, error) {
	s.mu.Lock()
	rec, applied, err := s.store.Update(in.Candidate)
	if err != nil {
		s.mu.Unlock()
		return nil, s.rejected("update", err)
	}
	if !applied {
		s.mu.Unlock()
		return nil, fmt.Errorf("update user %d: %w", in.Candidate.ID, domain.ErrUserNotFound)
	}
	s.committed(domain.AuditUpdated, rec.ID, &rec, in.RequestID)
	s.mu.Unlock()

	s.log.Info().Int("user_id", rec.ID).Msg("user updated")
	return &rec, nil
}

// Delete removes the record if present. Removing an absent id is a no-op.
func (s *UserService) Delete(_ context.Context, id int, requestID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Remove(id) {
		s.log.Debug().Int("user_id", id).Msg("delete of absent user ignored")
		return false, nil
	}
	s.committed(domain.AuditDeleted, id, nil, requestID)
	s.log.Info().Int("user_id", id).Msg("user deleted")
	return true, nil
}

func (s *UserService) Get(_ context.Context, id int) (*domain.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("get user %d: %w", id, domain.ErrUserNotFound)
	}
	return &rec, nil
}

func (s *UserService) List(_ context.Context) ([]domain.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.List(), nil
}

func (s *UserService) replay(ctx context.Context, key string) (domain.UserRecord, bool) {
	id, found, err := s.idem.Lookup(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed, creating anyway")
		return domain.UserRecord{}, false
	}
	if !found {
		return domain.UserRecord{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.store.Get(id)
	if !ok {
		s.log.Debug().Str("idempotency_key", key).Int("user_id", id).Msg("idempotent target was deleted, creating again")
	}
	return rec, ok
}

// rejected records a validation failure. Validation errors are expected user
// input, so they are logged at debug level only.
func (s *UserService) rejected(op string, err error) error {
	if ve, ok := domain.AsValidationError(err); ok {
		s.metrics.ValidationFailed(op, ve)
		s.log.Debug().Str("op", op).Int("fields", len(ve)).Msg("candidate rejected")
		return ve
	}
	return fmt.Errorf("%s user: %w", op, err)
}

// committed fans a mutation out. Must be called with s.mu held so listeners
// observe mutations in commit order.
func (s *UserService) committed(action domain.AuditAction, id int, rec *domain.UserRecord, requestID string) {
	var userType domain.UserType
	var snapshot *domain.UserRecord
	if rec != nil {
		userType = rec.Type
		cp := *rec
		snapshot = &cp
	}

	s.metrics.UserMutated(action, userType)
	s.audit.Publish(domain.AuditEvent{
		ID:        uuid.NewString(),
		Action:    action,
		UserID:    id,
		User:      snapshot,
		At:        s.now(),
		RequestID: requestID,
	})
	s.notifier.NotifyList(s.store.List())
}

type nopIdempotency struct{}

func (nopIdempotency) Lookup(context.Context, string) (int, bool, error) { return 0, false, nil }
func (nopIdempotency) Remember(context.Context, string, int) error { return nil }

type nopAudit struct{}

func (nopAudit) Publish(domain.AuditEvent) {}

type nopNotifier struct{}

func (nopNotifier) NotifyList([]domain.UserRecord) {}

type nopMetrics struct{}

func (nopMetrics) UserMutated(domain.AuditAction, domain.UserType) {}
func (nopMetrics) ValidationFailed(string, domain.ValidationError) {}
func (nopMetrics) IdempotentReplay() {}
