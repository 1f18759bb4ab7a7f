package handler

import (
	"strconv"

	"github.com/usuarios/registry/internal/core/domain"
)

// --- Request → domain ---

func toCandidate(req userRequest, id int) (domain.Candidate, error) {
	typ, err := domain.ParseUserType(req.Type)
	if err != nil {
		return domain.Candidate{}, err
	}
	perm, err := domain.ParsePermission(req.Permissions)
	if err != nil {
		return domain.Candidate{}, err
	}
	return domain.Candidate{
		ID:          id,
		Name:        req.Name,
		Type:        typ,
		Institution: req.Institution,
		Permissions: perm,
		Email:       req.Email,
	}, nil
}

// --- domain → HTTP response ---

func toUserResponse(r domain.UserRecord) userResponse {
	return userResponse{
		ID:               r.ID,
		Name:             r.Name,
		Type:             r.Type.Code(),
		TypeLabel:        r.Type.String(),
		Institution:      r.Institution,
		Permissions:      r.Permissions.Code(),
		PermissionsLabel: r.Permissions.String(),
		Email:            r.Email,
		Links: userLinks{
			Self: "/v1/users/" + strconv.Itoa(r.ID),
		},
	}
}

func toListResponse(users []domain.UserRecord) listUsersResponse {
	data := make([]userResponse, len(users))
	for i, u := range users {
		data[i] = toUserResponse(u)
	}
	return listUsersResponse{Data: data, Total: len(data)}
}

func toOptionsResponse(opts []domain.Option) []optionResponse {
	out := make([]optionResponse, len(opts))
	for i, o := range opts {
		out[i] = optionResponse{Index: i, Code: o.Code, Label: o.Label}
	}
	return out
}
