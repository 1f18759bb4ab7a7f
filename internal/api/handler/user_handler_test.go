package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/usuarios/registry/internal/core/domain"
	"github.com/usuarios/registry/internal/core/service"
)

// ─── Create ───────────────────────────────────────────────────────────────────

func TestUserHandler_Create_Success(t *testing.T) {
	h := NewUserHandler(newService())

	rec, err := call(t, h.Create, http.MethodPost, anaJSON, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	resp := decode[userResponse](t, rec)
	if resp.ID != 1 {
		t.Errorf("expected id 1, got %d", resp.ID)
	}
	if resp.Type != "docente" || resp.TypeLabel != "Docente" {
		t.Errorf("unexpected type %q / %q", resp.Type, resp.TypeLabel)
	}
	if resp.Permissions != "administrador" || resp.PermissionsLabel != "Administrador" {
		t.Errorf("unexpected permissions %q / %q", resp.Permissions, resp.PermissionsLabel)
	}
	if got := rec.Header().Get("Location"); got != "/v1/users/1" {
		t.Errorf("unexpected Location %q", got)
	}
}

func TestUserHandler_Create_AcceptsLabels(t *testing.T) {
	h := NewUserHandler(newService())
	body := `{"name":"Carla","type":"Técnico Administrativo","institution":"UFF","permissions":"Coordenador de Pesquisa","email":"c@uff.br"}`

	rec, err := call(t, h.Create, http.MethodPost, body, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := decode[userResponse](t, rec)
	if resp.Type != "tecnico_administrativo" || resp.Permissions != "coordenador_pesquisa" {
		t.Errorf("labels not parsed: %+v", resp)
	}
}

func TestUserHandler_Create_MissingFields(t *testing.T) {
	svc := newService()
	h := NewUserHandler(svc)

	_, err := call(t, h.Create, http.MethodPost, `{"type":"estudante","institution":"UFRJ","permissions":"administrador"}`, nil)

	ve, ok := domain.AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve) != 2 || ve[domain.FieldName] != "Nome é obrigatório" || ve[domain.FieldEmail] != "Email é obrigatório" {
		t.Errorf("unexpected fields: %v", ve)
	}
	if users, _ := svc.List(context.Background()); len(users) != 0 {
		t.Errorf("registry must stay empty, got %d", len(users))
	}
}

func TestUserHandler_Create_UnknownType(t *testing.T) {
	h := NewUserHandler(newService())

	_, err := call(t, h.Create, http.MethodPost, `{"name":"Ana","type":"aluno"}`, nil)
	if !errors.Is(err, domain.ErrUnknownUserType) {
		t.Fatalf("expected ErrUnknownUserType, got %v", err)
	}
}

func TestUserHandler_Create_MalformedBody(t *testing.T) {
	h := NewUserHandler(newService())

	_, err := call(t, h.Create, http.MethodPost, `{"name":`, nil)
	if !isHTTPError(err, http.StatusBadRequest) {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestUserHandler_Create_IdempotentReplay(t *testing.T) {
	h := NewUserHandler(newService(service.WithIdempotency(newMemIdempotency())))
	hdr := map[string]string{"Idempotency-Key": "form-42"}

	first, err := call(t, h.Create, http.MethodPost, anaJSON, hdr)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := call(t, h.Create, http.MethodPost, anaJSON, hdr)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}

	if second.Code != http.StatusOK {
		t.Errorf("expected 200 on replay, got %d", second.Code)
	}
	if second.Header().Get(HeaderIdempotentReplay) != "true" {
		t.Error("expected replay header")
	}
	if decode[userResponse](t, first).ID != decode[userResponse](t, second).ID {
		t.Error("replay must return the first record")
	}
}

func TestUserHandler_Create_IdempotencyKeyTooLong(t *testing.T) {
	h := NewUserHandler(newService())
	long := make([]byte, 129)
	for i := range long {
		long[i] = 'k'
	}

	_, err := call(t, h.Create, http.MethodPost, anaJSON, map[string]string{"Idempotency-Key": string(long)})
	if !isHTTPError(err, http.StatusBadRequest) {
		t.Fatalf("expected 400, got %v", err)
	}
}

// ─── Read ─────────────────────────────────────────────────────────────────────

func TestUserHandler_ListKeepsInsertionOrder(t *testing.T) {
	h := NewUserHandler(newService())
	for _, body := range []string{
		anaJSON,
		`{"name":"Bruno","type":"estudante","institution":"USP","permissions":"coordenador_pesquisa","email":"b@usp.br"}`,
	} {
		if _, err := call(t, h.Create, http.MethodPost, body, nil); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	rec, err := call(t, h.List, http.MethodGet, "", nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	resp := decode[listUsersResponse](t, rec)
	if resp.Total != 2 || resp.Data[0].Name != "Ana" || resp.Data[1].ID != 2 {
		t.Errorf("unexpected list: %+v", resp)
	}
}

func TestUserHandler_Get(t *testing.T) {
	h := NewUserHandler(newService())
	if _, err := call(t, h.Create, http.MethodPost, anaJSON, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec, err := call(t, h.Get, http.MethodGet, "", nil, "id", "1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if decode[userResponse](t, rec).Email != "ana@ufrj.br" {
		t.Error("wrong record")
	}

	if _, err := call(t, h.Get, http.MethodGet, "", nil, "id", "7"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserHandler_Get_InvalidID(t *testing.T) {
	h := NewUserHandler(newService())

	for _, id := range []string{"abc", "0", "-3"} {
		if _, err := call(t, h.Get, http.MethodGet, "", nil, "id", id); !isHTTPError(err, http.StatusBadRequest) {
			t.Errorf("id %q: expected 400, got %v", id, err)
		}
	}
}

// ─── Validate ─────────────────────────────────────────────────────────────────

func TestUserHandler_Validate(t *testing.T) {
	svc := newService()
	h := NewUserHandler(svc)

	rec, err := call(t, h.Validate, http.MethodPost, `{"name":"Ana"}`, nil)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	resp := decode[validateResponse](t, rec)
	if resp.Valid || len(resp.Fields) != 4 {
		t.Errorf("expected four missing fields, got %+v", resp)
	}
	if resp.Fields[domain.FieldPermissions] != "Permissões são obrigatórias" {
		t.Errorf("unexpected message %q", resp.Fields[domain.FieldPermissions])
	}

	rec, err = call(t, h.Validate, http.MethodPost, anaJSON, nil)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if resp := decode[validateResponse](t, rec); !resp.Valid || len(resp.Fields) != 0 {
		t.Errorf("expected valid, got %+v", resp)
	}
	if users, _ := svc.List(context.Background()); len(users) != 0 {
		t.Error("validate must not mutate the registry")
	}
}

// ─── Update / Delete ──────────────────────────────────────────────────────────

func TestUserHandler_Update(t *testing.T) {
	h := NewUserHandler(newService())
	if _, err := call(t, h.Create, http.MethodPost, anaJSON, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	body := `{"name":"Ana Maria","type":"docente","institution":"UFRJ","permissions":"coordenador_pesquisa","email":"ana@ufrj.br"}`
	rec, err := call(t, h.Update, http.MethodPut, body, nil, "id", "1")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	resp := decode[userResponse](t, rec)
	if resp.ID != 1 || resp.Name != "Ana Maria" || resp.Permissions != "coordenador_pesquisa" {
		t.Errorf("unexpected record: %+v", resp)
	}
}

func TestUserHandler_Update_UnknownID(t *testing.T) {
	h := NewUserHandler(newService())

	_, err := call(t, h.Update, http.MethodPut, anaJSON, nil, "id", "9")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserHandler_Update_MissingFields(t *testing.T) {
	h := NewUserHandler(newService())
	if _, err := call(t, h.Create, http.MethodPost, anaJSON, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := call(t, h.Update, http.MethodPut, `{"name":"","type":"docente","institution":"UFRJ","permissions":"administrador","email":"ana@ufrj.br"}`, nil, "id", "1")
	ve, ok := domain.AsValidationError(err)
	if !ok || len(ve) != 1 || ve[domain.FieldName] == "" {
		t.Fatalf("expected name error, got %v", err)
	}

	rec, _ := call(t, h.Get, http.MethodGet, "", nil, "id", "1")
	if decode[userResponse](t, rec).Name != "Ana" {
		t.Error("rejected update must not change the record")
	}
}

func TestUserHandler_DeleteIsIdempotent(t *testing.T) {
	h := NewUserHandler(newService())
	if _, err := call(t, h.Create, http.MethodPost, anaJSON, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 2; i++ {
		rec, err := call(t, h.Delete, http.MethodDelete, "", nil, "id", "1")
		if err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
		if rec.Code != http.StatusNoContent {
			t.Errorf("delete #%d: expected 204, got %d", i+1, rec.Code)
		}
	}
}

// ─── Options ──────────────────────────────────────────────────────────────────

func TestUserHandler_OptionsInDisplayOrder(t *testing.T) {
	h := NewUserHandler(newService())

	rec, err := call(t, h.Options, http.MethodGet, "", nil)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	resp := decode[optionsResponse](t, rec)

	wantTypes := []string{"Docente", "Estudante", "Técnico Administrativo"}
	if len(resp.Types) != len(wantTypes) {
		t.Fatalf("expected %d types, got %d", len(wantTypes), len(resp.Types))
	}
	for i, want := range wantTypes {
		if resp.Types[i].Label != want || resp.Types[i].Index != i {
			t.Errorf("type %d: got %+v", i, resp.Types[i])
		}
	}
	if len(resp.Permissions) != 2 || resp.Permissions[1].Label != "Coordenador de Pesquisa" {
		t.Errorf("unexpected permissions: %+v", resp.Permissions)
	}
}
