package ports

import "github.com/usuarios/registry/internal/core/domain"

// ListNotifier receives the full ordered collection after every mutation.
type ListNotifier interface {
	NotifyList(users []domain.UserRecord)
}
