package ports

import (
	"context"

	"github.com/usuarios/registry/internal/core/domain"
)

// CreateUserInput carries a new candidate and the optional client-supplied
// idempotency key.
type CreateUserInput struct {
	Candidate      domain.Candidate
	IdempotencyKey string
	RequestID      string
}

// CreateUserResult is returned by Create.
type CreateUserResult struct {
	User domain.UserRecord
	// AlreadyExisted is true when the Idempotency-Key matched an earlier create.
	AlreadyExisted bool
}

// UpdateUserInput carries an edited candidate. Candidate.ID selects the record.
type UpdateUserInput struct {
	Candidate domain.Candidate
	RequestID string
}

// UserService defines the use-case operations on the registry.
type UserService interface {
	Validate(ctx context.Context, c domain.Candidate) domain.ValidationError
	Create(ctx context.Context, in CreateUserInput) (*CreateUserResult, error)
	Update(ctx context.Context, in UpdateUserInput) (*domain.UserRecord, error)
	// Delete removes the record and reports whether it existed.
	Delete(ctx context.Context, id int, requestID string) (bool, error)
	Get(ctx context.Context, id int) (*domain.UserRecord, error)
	List(ctx context.Context) ([]domain.UserRecord, error)
}
