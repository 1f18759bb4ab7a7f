// Package form holds the state of the registration screen explicitly: the
// new-user draft, the record being edited, whether the edit overlay is shown
// and the inline validation messages. Rendering is left to the client.
package form

import (
	"context"
	"errors"

	"github.com/usuarios/registry/internal/core/domain"
	"github.com/usuarios/registry/internal/core/ports"
)

// Patch carries field edits. Nil fields are left as they are.
type Patch struct {
	Name        *string
	Type        *domain.UserType
	Institution *string
	Permissions *domain.Permission
	Email       *string
}

func (p Patch) apply(c *domain.Candidate) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Institution != nil {
		c.Institution = *p.Institution
	}
	if p.Permissions != nil {
		c.Permissions = *p.Permissions
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
}

// State is a snapshot of everything the screen renders.
type State struct {
	Draft          domain.Candidate
	Editing        *domain.Candidate
	OverlayVisible bool
	Errors         domain.ValidationError
	Users          []domain.UserRecord
}

// Controller drives one registration screen against the user service.
// It is not safe for concurrent use.
type Controller struct {
	users ports.UserService

	draft   domain.Candidate
	editing *domain.Candidate
	overlay bool
	errors  domain.ValidationError
}

func NewController(users ports.UserService) *Controller {
	return &Controller{users: users, errors: domain.ValidationError{}}
}

// SetDraft edits the new-user form.
func (c *Controller) SetDraft(p Patch) {
	p.apply(&c.draft)
}

// SubmitDraft adds the draft. A rejected draft keeps its values and the
// field messages are exposed through State; an accepted one resets the form.
func (c *Controller) SubmitDraft(ctx context.Context, idempotencyKey string) (*domain.UserRecord, error) {
	res, err := c.users.Create(ctx, ports.CreateUserInput{
		Candidate:      c.draft,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		c.captureErrors(err)
		return nil, err
	}

	c.draft = domain.Candidate{}
	c.errors = domain.ValidationError{}
	return &res.User, nil
}

// BeginEdit loads the record into the edit form and shows the overlay.
func (c *Controller) BeginEdit(ctx context.Context, id int) error {
	rec, err := c.users.Get(ctx, id)
	if err != nil {
		return err
	}
	cand := rec.Candidate()
	c.editing = &cand
	c.overlay = true
	return nil
}

// SetEditing edits the record under edit.
func (c *Controller) SetEditing(p Patch) error {
	if c.editing == nil {
		return domain.ErrNotEditing
	}
	p.apply(c.editing)
	return nil
}

// SaveEdit commits the edit form. On validation failure the overlay stays
// open with the field messages. If the record vanished in the meantime the
// overlay is closed and domain.ErrUserNotFound is returned.
func (c *Controller) SaveEdit(ctx context.Context) (*domain.UserRecord, error) {
	if c.editing == nil {
		return nil, domain.ErrNotEditing
	}

	rec, err := c.users.Update(ctx, ports.UpdateUserInput{Candidate: *c.editing})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.DismissOverlay()
			return nil, err
		}
		c.captureErrors(err)
		return nil, err
	}

	c.DismissOverlay()
	c.errors = domain.ValidationError{}
	return rec, nil
}

// DismissOverlay hides the edit overlay and drops the edit target.
func (c *Controller) DismissOverlay() {
	c.overlay = false
	c.editing = nil
}

// Delete removes a record from the list.
func (c *Controller) Delete(ctx context.Context, id int) error {
	if _, err := c.users.Delete(ctx, id, ""); err != nil {
		return err
	}
	if c.editing != nil && c.editing.ID == id {
		c.DismissOverlay()
	}
	return nil
}

// State returns a snapshot that shares no memory with the controller.
func (c *Controller) State(ctx context.Context) (State, error) {
	users, err := c.users.List(ctx)
	if err != nil {
		return State{}, err
	}

	st := State{
		Draft:          c.draft,
		OverlayVisible: c.overlay,
		Errors:         make(domain.ValidationError, len(c.errors)),
		Users:          users,
	}
	if c.editing != nil {
		cp := *c.editing
		st.Editing = &cp
	}
	for k, v := range c.errors {
		st.Errors[k] = v
	}
	return st, nil
}

func (c *Controller) captureErrors(err error) {
	if ve, ok := domain.AsValidationError(err); ok {
		c.errors = ve
	}
}
