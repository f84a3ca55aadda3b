package retryx

import (
	"database/sql/driver"
	"errors"
	"net"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsTransient reports whether err belongs to the failure class expected to
// succeed on retry: connection loss, timeouts, and backing-store throttling.
// Everything else (constraint violations, syntax errors, business errors)
// must propagate to the caller on first occurrence.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if pgconn.SafeToRetry(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08xxx: connection exceptions, 53xxx: insufficient resources
		// (the throttling class), 57P03: cannot connect now,
		// 40001/40P01: serialization failure / deadlock.
		if len(pgErr.Code) >= 2 {
			switch pgErr.Code[:2] {
			case "08", "53":
				return true
			}
		}
		switch pgErr.Code {
		case "57P03", "40001", "40P01":
			return true
		}
	}

	return false
}
