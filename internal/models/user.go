package models

// User is the canonical identity record. Optional fields are pointers so
// that absent values survive round-trips through the partial-upsert
// backing-store contract.
type User struct {
	ID               string
	Email            *string
	IsEmailConfirmed bool
	PhoneNumber      *string
	MsID             *int64
	Name             *string
	Info             *string
	IsSuppressed     bool
	Source           *string
}

// HasProviderID reports whether the user is linked to an external provider
// account. Email reassignment is only permitted for provider-linked users.
func (u *User) HasProviderID() bool {
	return u != nil && u.MsID != nil
}

// EmailEquals compares the user's email against an already-normalized value.
func (u *User) EmailEquals(normalized string) bool {
	return u != nil && u.Email != nil && *u.Email == normalized
}

// UserUpsert is the partial-update payload for the upsert_user backing-store
// operation. Nil fields are left unchanged on an existing row.
type UserUpsert struct {
	ID               string
	PartitionID      int
	MsID             *int64
	Email            *string
	PhoneNumber      *string
	Name             *string
	Info             *string
	Source           *string
	IsEmailConfirmed *bool
	IsSuppressed     *bool
}
