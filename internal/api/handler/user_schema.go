package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// validationErrorResponse carries the per-field messages shown inline by the form.
type validationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// --- Request / Response types ---

// userRequest is the body of create, update and validate. Type and
// permissions accept either the option code or its display label; an empty
// value means nothing was selected.
type userRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Institution string `json:"institution"`
	Permissions string `json:"permissions"`
	Email       string `json:"email"`
}

type userPathParams struct {
	ID int `param:"id" validate:"gt=0"`
}

type createHeaders struct {
	IdempotencyKey string `header:"Idempotency-Key" validate:"omitempty,max=128,printascii"`
}

type userLinks struct {
	Self string `json:"self"`
}

type userResponse struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	TypeLabel        string    `json:"type_label"`
	Institution      string    `json:"institution"`
	Permissions      string    `json:"permissions"`
	PermissionsLabel string    `json:"permissions_label"`
	Email            string    `json:"email"`
	Links            userLinks `json:"_links"`
}

type listUsersResponse struct {
	Data  []userResponse `json:"data"`
	Total int            `json:"total"`
}

type validateResponse struct {
	Valid  bool              `json:"valid"`
	Fields map[string]string `json:"fields"`
}

type optionResponse struct {
	Index int    `json:"index"`
	Code  string `json:"code"`
	Label string `json:"label"`
}

type optionsResponse struct {
	Types       []optionResponse `json:"types"`
	Permissions []optionResponse `json:"permissions"`
}
