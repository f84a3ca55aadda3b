package models

// ExternalIDType discriminates external identity mappings.
type ExternalIDType byte

const (
	ExternalIDTypeEmail ExternalIDType = 1
	ExternalIDTypeMsID  ExternalIDType = 2
)

// String returns the storage-level name of the identity type.
func (t ExternalIDType) String() string {
	switch t {
	case ExternalIDTypeEmail:
		return "email"
	case ExternalIDTypeMsID:
		return "msid"
	default:
		return "unknown"
	}
}

// ExternalIdentity maps a provider-supplied or email identifier to an
// internal user id. At most one row exists per (ExternalID, Type).
type ExternalIdentity struct {
	ExternalID  string
	Type        ExternalIDType
	UserID      string
	PartitionID int
}
