package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/usuarios/registry/internal/app/form"
	"github.com/usuarios/registry/internal/core/domain"
)

// FormHandler exposes registration screen sessions. Every endpoint answers
// with the full screen state so a client can render it as-is.
type FormHandler struct {
	forms *form.Manager
}

func NewFormHandler(forms *form.Manager) *FormHandler {
	return &FormHandler{forms: forms}
}

// Open handles POST /v1/forms.
//
// @Summary      Open a registration screen session
// @Tags         forms
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  formStateResponse
// @Router       /v1/forms [post]
func (h *FormHandler) Open(c echo.Context) error {
	s := h.forms.Open()
	return h.respond(c, s, http.StatusCreated, nil)
}

// State handles GET /v1/forms/:fid.
//
// @Summary      Get the state of a session
// @Tags         forms
// @Produce      json
// @Security     BearerAuth
// @Param        fid  path      string  true  "Session id"
// @Success      200  {object}  formStateResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/forms/{fid} [get]
func (h *FormHandler) State(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return h.respond(c, s, http.StatusOK, nil)
}

// PatchDraft handles PATCH /v1/forms/:fid/draft.
//
// @Summary      Edit the new-user draft
// @Tags         forms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        fid   path      string            true  "Session id"
// @Param        body  body      formPatchRequest  true  "Fields to change"
// @Success      200   {object}  formStateResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/forms/{fid}/draft [patch]
func (h *FormHandler) PatchDraft(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	patch, err := bindPatch(c)
	if err != nil {
		return err
	}
	return h.respond(c, s, http.StatusOK, func(_ context.Context, ctrl *form.Controller) error {
		ctrl.SetDraft(patch)
		return nil
	})
}

// Submit handles POST /v1/forms/:fid/submit.
//
// @Summary      Add the draft as a new user
// @Description  On missing fields the draft is kept and the state carries the messages.
// @Tags         forms
// @Produce      json
// @Security     BearerAuth
// @Param        fid              path      string  true   "Session id"
// @Param        Idempotency-Key  header    string  false  "Client supplied key"
// @Success      201              {object}  formStateResponse
// @Failure      404              {object}  errorResponse
// @Failure      422              {object}  formStateResponse
// @Router       /v1/forms/{fid}/submit [post]
func (h *FormHandler) Submit(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var hdr createHeaders
	if err := (&echo.DefaultBinder{}).BindHeaders(c, &hdr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid headers")
	}
	if err := c.Validate(&hdr); err != nil {
		return err
	}
	return h.respond(c, s, http.StatusCreated, func(ctx context.Context, ctrl *form.Controller) error {
		_, err := ctrl.SubmitDraft(ctx, hdr.IdempotencyKey)
		return err
	})
}

// BeginEdit handles POST /v1/forms/:fid/edit/:id.
//
// @Summary      Load a user into the edit overlay
// @Tags         forms
// @Produce      json
// @Security     BearerAuth
// @Param        fid  path      string  true  "Session id"
// @Param        id   path      int     true  "User id"
// @Success      200  {object}  formStateResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/forms/{fid}/edit/{id} [post]
func (h *FormHandler) BeginEdit(c echo.Context) error {
	var p formUserPathParams
	if err := bindPath(c, &p); err != nil {
		return err
	}
	s, err := h.forms.Get(p.FormID)
	if err != nil {
		return err
	}
	return h.respond(c, s, http.StatusOK, func(ctx context.Context, ctrl *form.Controller) error {
		return ctrl.BeginEdit(ctx, p.ID)
	})
}

// PatchEdit handles PATCH /v1/forms/:fid/edit.
//
// @Summary      Edit the record in the overlay
// @Tags         forms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        fid   path      string            true  "Session id"
// @Param        body  body      formPatchRequest  true  "Fields to change"
// @Success      200   {object}  formStateResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/forms/{fid}/edit [patch]
func (h *FormHandler) PatchEdit(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	patch, err := bindPatch(c)
	if err != nil {
		return err
	}
	return h.respond(c, s, http.StatusOK, func(_ context.Context, ctrl *form.Controller) error {
		return ctrl.SetEditing(patch)
	})
}

// Save handles POST /v1/forms/:fid/save.
//
// @Summary      Commit the edit overlay
// @Tags         forms
// @Produce      json
// @Security     BearerAuth
// @Param        fid  path      string  true  "Session id"
// @Success      200  {object}  formStateResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      422  {object}  formStateResponse
// @Router       /v1/forms/{fid}/save [post]
func (h *FormHandler) Save(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return h.respond(c, s, http.StatusOK, func(ctx context.Context, ctrl *form.Controller) error {
		_, err := ctrl.SaveEdit(ctx)
		return err
	})
}

// Dismiss handles DELETE /v1/forms/:fid/edit.
//
// @Summary      Close the edit overlay without saving
// @Tags         forms
// @Produce      json
// @Security     BearerAuth
// @Param        fid  path      string  true  "Session id"
// @Success      200  {object}  formStateResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/forms/{fid}/edit [delete]
func (h *FormHandler) Dismiss(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return h.respond(c, s, http.StatusOK, func(_ context.Context, ctrl *form.Controller) error {
		ctrl.DismissOverlay()
		return nil
	})
}

// DeleteUser handles DELETE /v1/forms/:fid/users/:id.
//
// @Summary      Remove a user from the list
// @Tags         forms
// @Produce      json
// @Security     BearerAuth
// @Param        fid  path      string  true  "Session id"
// @Param        id   path      int     true  "User id"
// @Success      200  {object}  formStateResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/forms/{fid}/users/{id} [delete]
func (h *FormHandler) DeleteUser(c echo.Context) error {
	var p formUserPathParams
	if err := bindPath(c, &p); err != nil {
		return err
	}
	s, err := h.forms.Get(p.FormID)
	if err != nil {
		return err
	}
	return h.respond(c, s, http.StatusOK, func(ctx context.Context, ctrl *form.Controller) error {
		return ctrl.Delete(ctx, p.ID)
	})
}

// Close handles DELETE /v1/forms/:fid. Closing an unknown session succeeds.
//
// @Summary      Close a session
// @Tags         forms
// @Security     BearerAuth
// @Param        fid  path  string  true  "Session id"
// @Success      204
// @Router       /v1/forms/{fid} [delete]
func (h *FormHandler) Close(c echo.Context) error {
	var p formPathParams
	if err := bindPath(c, &p); err != nil {
		return err
	}
	h.forms.Close(p.FormID)
	return c.NoContent(http.StatusNoContent)
}

func (h *FormHandler) session(c echo.Context) (*form.Session, error) {
	var p formPathParams
	if err := bindPath(c, &p); err != nil {
		return nil, err
	}
	return h.forms.Get(p.FormID)
}

func bindPatch(c echo.Context) (form.Patch, error) {
	var req formPatchRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return form.Patch{}, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return toPatch(req)
}

// respond runs op under the session lock and renders the resulting state.
// A validation failure is not an error for the screen: the state carrying the
// field messages is returned with 422.
func (h *FormHandler) respond(c echo.Context, s *form.Session, okStatus int, op func(context.Context, *form.Controller) error) error {
	ctx := c.Request().Context()

	var (
		st    form.State
		opErr error
	)
	err := s.Do(func(ctrl *form.Controller) error {
		if op != nil {
			opErr = op(ctx, ctrl)
			if opErr != nil {
				if _, ok := domain.AsValidationError(opErr); !ok {
					return opErr
				}
			}
		}
		var err error
		st, err = ctrl.State(ctx)
		return err
	})
	if err != nil {
		return err
	}

	status := okStatus
	if opErr != nil {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, toFormStateResponse(s.ID, st))
}
