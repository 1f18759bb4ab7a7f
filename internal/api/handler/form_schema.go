package handler

import (
	"github.com/usuarios/registry/internal/app/form"
	"github.com/usuarios/registry/internal/core/domain"
)

type formPathParams struct {
	FormID string `param:"fid" validate:"required,uuid"`
}

type formUserPathParams struct {
	FormID string `param:"fid" validate:"required,uuid"`
	ID     int    `param:"id" validate:"gt=0"`
}

// formPatchRequest edits some fields of the draft or the edit target. Absent
// fields are left untouched; an empty string clears the field.
type formPatchRequest struct {
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	Institution *string `json:"institution"`
	Permissions *string `json:"permissions"`
	Email       *string `json:"email"`
}

type candidateResponse struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Institution string `json:"institution"`
	Permissions string `json:"permissions"`
	Email       string `json:"email"`
}

type formStateResponse struct {
	ID             string             `json:"id"`
	Draft          candidateResponse  `json:"draft"`
	Editing        *candidateResponse `json:"editing"`
	OverlayVisible bool               `json:"overlay_visible"`
	Errors         map[string]string  `json:"errors"`
	Users          []userResponse     `json:"users"`
}

func toPatch(req formPatchRequest) (form.Patch, error) {
	p := form.Patch{
		Name:        req.Name,
		Institution: req.Institution,
		Email:       req.Email,
	}
	if req.Type != nil {
		t, err := domain.ParseUserType(*req.Type)
		if err != nil {
			return form.Patch{}, err
		}
		p.Type = &t
	}
	if req.Permissions != nil {
		perm, err := domain.ParsePermission(*req.Permissions)
		if err != nil {
			return form.Patch{}, err
		}
		p.Permissions = &perm
	}
	return p, nil
}

func toCandidateResponse(c domain.Candidate) candidateResponse {
	return candidateResponse{
		ID:          c.ID,
		Name:        c.Name,
		Type:        c.Type.Code(),
		Institution: c.Institution,
		Permissions: c.Permissions.Code(),
		Email:       c.Email,
	}
}

func toFormStateResponse(id string, st form.State) formStateResponse {
	resp := formStateResponse{
		ID:             id,
		Draft:          toCandidateResponse(st.Draft),
		OverlayVisible: st.OverlayVisible,
		Errors:         st.Errors,
		Users:          toListResponse(st.Users).Data,
	}
	if st.Editing != nil {
		e := toCandidateResponse(*st.Editing)
		resp.Editing = &e
	}
	return resp
}
