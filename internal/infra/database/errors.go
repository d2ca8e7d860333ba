package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"

	"unisync/internal/domain/record"
)

const (
	constraintSessionDate       = "class_sessions_course_instructor_date_key"
	constraintAttendanceStudent = "attendances_session_student_key"
	constraintTelegramID        = "instructors_telegram_id_key"
)

// SQLSTATE codes that mean the server cannot serve us right now.
var unavailableCodes = map[pq.ErrorCode]bool{
	"57P01": true, // admin_shutdown
	"57P02": true, // crash_shutdown
	"57P03": true, // cannot_connect_now
	"53300": true, // too_many_connections
}

// classify tags connection-level failures with record.ErrUnavailable so
// callers can tell a flaky store from a bad query.
func classify(err error) error {
	if err == nil || !isUnavailable(err) {
		return err
	}
	return fmt.Errorf("%w: %w", record.ErrUnavailable, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "08" || unavailableCodes[pqErr.Code]
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isUniqueViolation reports a 23505 raised by the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && pqErr.Constraint == constraint
}
