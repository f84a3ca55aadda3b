package models

import "time"

// ConfirmEntityType names what kind of value a confirmation code verifies.
type ConfirmEntityType byte

const (
	ConfirmEntityTypeNone        ConfirmEntityType = 0
	ConfirmEntityTypeEmail       ConfirmEntityType = 1
	ConfirmEntityTypeAccountLink ConfirmEntityType = 2
)

// ConfirmationCode is a short-lived, single-use code keyed by
// (UserIDHash, EntityType). Issuing a new code for the same key replaces
// the prior pending one; a confirmed code is terminal.
type ConfirmationCode struct {
	UserIDHash    string
	EntityType    ConfirmEntityType
	Entity        string
	Code          int64
	UserID        string
	ExpirationUTC time.Time
	MaxRetryCount int
}

// ConfirmEntity is the read-only projection returned to callers that need
// to show what a pending code refers to.
type ConfirmEntity struct {
	UserID      string
	CreatedDate time.Time
	Entity      string
	Type        ConfirmEntityType
}

// ConfirmationEvaluation is the backing store's verdict on a submitted
// code. AttemptsUsed counts failed confirmation attempts recorded so far,
// including the one just evaluated when the code did not match.
type ConfirmationEvaluation struct {
	Entity        string
	UserID        string
	IsValid       bool
	IsConfirmed   bool
	AttemptsUsed  int
	MaxRetryCount int
}

// ConfirmStatus enumerates the outcomes of a confirmation attempt.
type ConfirmStatus int

const (
	ConfirmStatusCodeNotFound ConfirmStatus = iota
	ConfirmStatusInvalid
	ConfirmStatusCodeWrong
	ConfirmStatusCodeConfirmed
)

// String returns a stable name for logging.
func (s ConfirmStatus) String() string {
	switch s {
	case ConfirmStatusCodeNotFound:
		return "code_not_found"
	case ConfirmStatusInvalid:
		return "invalid"
	case ConfirmStatusCodeWrong:
		return "code_wrong"
	case ConfirmStatusCodeConfirmed:
		return "code_confirmed"
	default:
		return "unknown"
	}
}

// ConfirmResult is returned by ConfirmEntity. UserID and Entity are only
// populated when Status is ConfirmStatusCodeConfirmed.
type ConfirmResult struct {
	Status ConfirmStatus
	UserID string
	Entity string
}
