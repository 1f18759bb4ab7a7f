package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/usuarios/registry/internal/core/domain"
	"github.com/usuarios/registry/internal/core/ports"
)

// HeaderIdempotentReplay is set on a create answered from an earlier
// Idempotency-Key.
const HeaderIdempotentReplay = "Idempotent-Replay"

// UserHandler handles HTTP requests for the user registry.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// List handles GET /v1/users.
//
// @Summary      List users in insertion order
// @Tags         users
// @Produce      json
// @Success      200  {object}  listUsersResponse
// @Failure      500  {object}  errorResponse
// @Router       /v1/users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(users))
}

// Get handles GET /v1/users/:id.
//
// @Summary      Get a user by id
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "User id"
// @Success      200  {object}  userResponse
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	var p userPathParams
	if err := bindPath(c, &p); err != nil {
		return err
	}

	rec, err := h.service.Get(c.Request().Context(), p.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(*rec))
}

// Validate handles POST /v1/users/validate. It never mutates the registry.
//
// @Summary      Check a candidate for missing fields
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      userRequest  true  "Candidate"
// @Success      200   {object}  validateResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/users/validate [post]
func (h *UserHandler) Validate(c echo.Context) error {
	var req userRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	cand, err := toCandidate(req, 0)
	if err != nil {
		return err
	}

	errs := h.service.Validate(c.Request().Context(), cand)
	return c.JSON(http.StatusOK, validateResponse{Valid: len(errs) == 0, Fields: errs})
}

// Create handles POST /v1/users.
//
// @Summary      Add a user
// @Description  Assigns the next id. Repeating a request with the same Idempotency-Key returns the record created first.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string       false  "Client supplied key"
// @Param        body             body      userRequest  true   "Candidate"
// @Success      201              {object}  userResponse
// @Success      200              {object}  userResponse  "Idempotent replay"
// @Failure      400              {object}  errorResponse
// @Failure      422              {object}  validationErrorResponse
// @Router       /v1/users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var hdr createHeaders
	if err := (&echo.DefaultBinder{}).BindHeaders(c, &hdr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid headers")
	}
	if err := c.Validate(&hdr); err != nil {
		return err
	}

	var req userRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	cand, err := toCandidate(req, 0)
	if err != nil {
		return err
	}

	res, err := h.service.Create(c.Request().Context(), ports.CreateUserInput{
		Candidate:      cand,
		IdempotencyKey: hdr.IdempotencyKey,
		RequestID:      requestID(c),
	})
	if err != nil {
		return err
	}

	resp := toUserResponse(res.User)
	c.Response().Header().Set(echo.HeaderLocation, resp.Links.Self)
	if res.AlreadyExisted {
		c.Response().Header().Set(HeaderIdempotentReplay, "true")
		return c.JSON(http.StatusOK, resp)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Update handles PUT /v1/users/:id. The body replaces every field of the record.
//
// @Summary      Update a user in place
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int          true  "User id"
// @Param        body  body      userRequest  true  "Candidate"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  validationErrorResponse
// @Router       /v1/users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	var p userPathParams
	if err := bindPath(c, &p); err != nil {
		return err
	}

	var req userRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	cand, err := toCandidate(req, p.ID)
	if err != nil {
		return err
	}

	rec, err := h.service.Update(c.Request().Context(), ports.UpdateUserInput{
		Candidate: cand,
		RequestID: requestID(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(*rec))
}

// Delete handles DELETE /v1/users/:id. Deleting an absent id succeeds.
//
// @Summary      Remove a user
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  int  true  "User id"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Router       /v1/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	var p userPathParams
	if err := bindPath(c, &p); err != nil {
		return err
	}

	if _, err := h.service.Delete(c.Request().Context(), p.ID, requestID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Options handles GET /v1/options.
//
// @Summary      List the selectable user types and permissions
// @Tags         users
// @Produce      json
// @Success      200  {object}  optionsResponse
// @Router       /v1/options [get]
func (h *UserHandler) Options(c echo.Context) error {
	return c.JSON(http.StatusOK, optionsResponse{
		Types:       toOptionsResponse(domain.UserTypeOptions()),
		Permissions: toOptionsResponse(domain.PermissionOptions()),
	})
}
