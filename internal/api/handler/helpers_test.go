package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/usuarios/registry/internal/core/registry"
	"github.com/usuarios/registry/internal/core/service"
)

// ─── Shared fixtures ──────────────────────────────────────────────────────────

const anaJSON = `{"name":"Ana","type":"docente","institution":"UFRJ","permissions":"administrador","email":"ana@ufrj.br"}`

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func newService(opts ...service.Option) *service.UserService {
	return service.NewUserService(registry.New(), zerolog.Nop(), opts...)
}

// call runs h against a request built from method, body and headers. params
// are name/value pairs for the route's path parameters.
func call(t *testing.T, h echo.HandlerFunc, method, body string, headers map[string]string, params ...string) (*httptest.ResponseRecorder, error) {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, "/", nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := newTestEcho().NewContext(req, rec)

	if len(params)%2 != 0 {
		t.Fatalf("params must be name/value pairs")
	}
	var names, values []string
	for i := 0; i < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)

	return rec, h(c)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func isHTTPError(err error, code int) bool {
	he, ok := err.(*echo.HTTPError)
	return ok && he.Code == code
}

// memIdempotency is an in-memory ports.IdempotencyStore.
type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]int
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{keys: map[string]int{}}
}

func (m *memIdempotency) Lookup(_ context.Context, key string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.keys[key]
	return id, ok, nil
}

func (m *memIdempotency) Remember(_ context.Context, key string, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; !ok {
		m.keys[key] = id
	}
	return nil
}
