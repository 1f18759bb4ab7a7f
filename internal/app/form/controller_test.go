package form

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usuarios/registry/internal/core/domain"
	"github.com/usuarios/registry/internal/core/registry"
	"github.com/usuarios/registry/internal/core/service"
)

func ptr[T any](v T) *T { return &v }

func newController() *Controller {
	return NewController(service.NewUserService(registry.New(), zerolog.Nop()))
}

func fillDraft(c *Controller, name string) {
	c.SetDraft(Patch{
		Name:        ptr(name),
		Type:        ptr(domain.UserTypeDocente),
		Institution: ptr("UFRJ"),
		Permissions: ptr(domain.PermissionCoordenadorPesquisa),
		Email:       ptr("a@x.com"),
	})
}

func TestController_SubmitDraft_ResetsForm(t *testing.T) {
	ctx := context.Background()
	c := newController()
	fillDraft(c, "Ana")

	rec, err := c.SubmitDraft(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ID)

	st, err := c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Candidate{}, st.Draft)
	assert.Empty(t, st.Errors)
	require.Len(t, st.Users, 1)
	assert.Equal(t, "Ana", st.Users[0].Name)
}

func TestController_SubmitDraft_KeepsValuesOnError(t *testing.T) {
	ctx := context.Background()
	c := newController()
	c.SetDraft(Patch{Name: ptr("Ana"), Institution: ptr("UFRJ")})

	_, err := c.SubmitDraft(ctx, "")
	require.Error(t, err)

	st, err := c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", st.Draft.Name)
	assert.Equal(t, domain.ValidationError{
		domain.FieldType:        "Tipo é obrigatório",
		domain.FieldPermissions: "Permissões são obrigatórias",
		domain.FieldEmail:       "Email é obrigatório",
	}, st.Errors)
	assert.Empty(t, st.Users)

	c.SetDraft(Patch{
		Type:        ptr(domain.UserTypeEstudante),
		Permissions: ptr(domain.PermissionAdministrador),
		Email:       ptr("ana@ufrj.br"),
	})
	_, err = c.SubmitDraft(ctx, "")
	require.NoError(t, err)

	st, _ = c.State(ctx)
	assert.Empty(t, st.Errors, "a successful submit clears inline messages")
}

func TestController_EditFlow(t *testing.T) {
	ctx := context.Background()
	c := newController()
	fillDraft(c, "Ana")
	_, _ = c.SubmitDraft(ctx, "")
	fillDraft(c, "Bruno")
	_, _ = c.SubmitDraft(ctx, "")

	require.NoError(t, c.BeginEdit(ctx, 1))
	st, _ := c.State(ctx)
	assert.True(t, st.OverlayVisible)
	require.NotNil(t, st.Editing)
	assert.Equal(t, domain.UserTypeDocente, st.Editing.Type, "selections are preserved")

	require.NoError(t, c.SetEditing(Patch{Email: ptr("")}))
	_, err := c.SaveEdit(ctx)
	require.Error(t, err)

	st, _ = c.State(ctx)
	assert.True(t, st.OverlayVisible, "overlay stays open on validation failure")
	assert.Contains(t, st.Errors, domain.FieldEmail)

	require.NoError(t, c.SetEditing(Patch{Email: ptr("ana@ufrj.br"), Name: ptr("Ana Souza")}))
	rec, err := c.SaveEdit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ID)

	st, _ = c.State(ctx)
	assert.False(t, st.OverlayVisible)
	assert.Nil(t, st.Editing)
	assert.Empty(t, st.Errors)
	require.Len(t, st.Users, 2)
	assert.Equal(t, "Ana Souza", st.Users[0].Name, "edited record keeps its position")
}

func TestController_SaveEdit_RecordDeletedMeanwhile(t *testing.T) {
	ctx := context.Background()
	svc := service.NewUserService(registry.New(), zerolog.Nop())
	a := NewController(svc)
	b := NewController(svc)

	fillDraft(a, "Ana")
	_, _ = a.SubmitDraft(ctx, "")

	require.NoError(t, a.BeginEdit(ctx, 1))
	require.NoError(t, b.Delete(ctx, 1))

	_, err := a.SaveEdit(ctx)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	st, _ := a.State(ctx)
	assert.False(t, st.OverlayVisible)
	assert.Empty(t, st.Users)
}

func TestController_NotEditing(t *testing.T) {
	c := newController()

	assert.ErrorIs(t, c.SetEditing(Patch{Name: ptr("x")}), domain.ErrNotEditing)
	_, err := c.SaveEdit(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotEditing)
	assert.ErrorIs(t, c.BeginEdit(context.Background(), 7), domain.ErrUserNotFound)
}

func TestController_DeleteClosesOverlayOfDeletedRecord(t *testing.T) {
	ctx := context.Background()
	c := newController()
	fillDraft(c, "Ana")
	_, _ = c.SubmitDraft(ctx, "")

	require.NoError(t, c.BeginEdit(ctx, 1))
	require.NoError(t, c.Delete(ctx, 1))
	require.NoError(t, c.Delete(ctx, 1), "deleting twice is a no-op")

	st, _ := c.State(ctx)
	assert.False(t, st.OverlayVisible)
	assert.Empty(t, st.Users)
}

func TestManager_OpenGetSweep(t *testing.T) {
	m := NewManager(service.NewUserService(registry.New(), zerolog.Nop()), zerolog.Nop(), nil)

	s := m.Open()
	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	err = s.Do(func(c *Controller) error {
		c.SetDraft(Patch{Name: ptr("Ana")})
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 0, m.Sweep(time.Hour))
	assert.Equal(t, 1, m.Len())

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, m.Sweep(time.Millisecond))

	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, domain.ErrFormNotFound)

	m.Close("unknown")
}

type countObserver struct{ seen []int }

func (o *countObserver) SessionsOpen(n int) { o.seen = append(o.seen, n) }

func TestManager_ReportsOpenSessionsOnEveryChange(t *testing.T) {
	obs := &countObserver{}
	m := NewManager(service.NewUserService(registry.New(), zerolog.Nop()), zerolog.Nop(), obs)

	a := m.Open()
	m.Open()
	m.Close(a.ID)
	m.Close("unknown")

	time.Sleep(5 * time.Millisecond)
	m.Sweep(time.Millisecond)

	assert.Equal(t, []int{1, 2, 1, 0}, obs.seen)
}
