package domain

// UserRecord is a committed entry of the registry.
type UserRecord struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Type        UserType   `json:"type"`
	Institution string     `json:"institution"`
	Permissions Permission `json:"permissions"`
	Email       string     `json:"email"`
}

// Candidate is a proposed record (new or edited) that has not been validated yet.
// A zero Type or Permissions means no selection was made.
type Candidate struct {
	ID          int        `json:"id,omitempty"`
	Name        string     `json:"name"        validate:"required"`
	Type        UserType   `json:"type"        validate:"required,option"`
	Institution string     `json:"institution" validate:"required"`
	Permissions Permission `json:"permissions" validate:"required,option"`
	Email       string     `json:"email"       validate:"required"`
}

// Record builds the record a valid candidate commits to under the given id.
func (c Candidate) Record(id int) UserRecord {
	return UserRecord{
		ID:          id,
		Name:        c.Name,
		Type:        c.Type,
		Institution: c.Institution,
		Permissions: c.Permissions,
		Email:       c.Email,
	}
}

// Candidate returns an editable copy of the record, selections included.
func (r UserRecord) Candidate() Candidate {
	return Candidate{
		ID:          r.ID,
		Name:        r.Name,
		Type:        r.Type,
		Institution: r.Institution,
		Permissions: r.Permissions,
		Email:       r.Email,
	}
}
