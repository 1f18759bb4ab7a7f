package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/usuarios/registry/internal/core/domain"
	"github.com/usuarios/registry/internal/core/ports"
)

const collectionAudit = "user_audit"

// AuditRepository implements ports.AuditRepository using MongoDB. The
// collection is append-only and is never read back into the registry.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionAudit)}
}

var _ ports.AuditRepository = (*AuditRepository)(nil)

type auditUserDoc struct {
	Name        string `bson:"name"`
	Type        string `bson:"type"`
	Institution string `bson:"institution"`
	Permissions string `bson:"permissions"`
	Email       string `bson:"email"`
}

type auditDoc struct {
	ID          string        `bson:"_id"`
	Action      string        `bson:"action"`
	UserID      int           `bson:"user_id"`
	User        *auditUserDoc `bson:"user,omitempty"`
	At          time.Time     `bson:"at"`
	RequestID   string        `bson:"request_id,omitempty"`
	ProcessedAt time.Time     `bson:"processed_at"`
}

func toAuditDoc(e *domain.AuditEvent, processedAt time.Time) auditDoc {
	doc := auditDoc{
		ID:          e.ID,
		Action:      string(e.Action),
		UserID:      e.UserID,
		At:          e.At.UTC(),
		RequestID:   e.RequestID,
		ProcessedAt: processedAt.UTC(),
	}
	if e.User != nil {
		doc.User = &auditUserDoc{
			Name:        e.User.Name,
			Type:        e.User.Type.Code(),
			Institution: e.User.Institution,
			Permissions: e.User.Permissions.Code(),
			Email:       e.User.Email,
		}
	}
	return doc
}

// Insert persists one audit event. Re-inserting the same event id is ignored
// so retried deliveries do not duplicate entries.
func (r *AuditRepository) Insert(ctx context.Context, e *domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, toAuditDoc(e, time.Now()))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// EnsureIndexes creates the indexes used to browse a record's history.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "at", Value: 1}}},
		{Keys: bson.D{{Key: "action", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
