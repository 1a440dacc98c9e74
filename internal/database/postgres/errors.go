package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koustreak/pgmeta/internal/errs"
)

// PostgreSQL SQLSTATE codes and classes that mean "no usable session".
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassConnectionException  = "08"
	pgClassInvalidAuthorization = "28"

	pgErrInvalidCatalogName = "3D000" // database does not exist
	pgErrAdminShutdown      = "57P01"
	pgErrCrashShutdown      = "57P02"
	pgErrCannotConnectNow   = "57P03"
)

const redactedSecret = "******"

// mapError translates pgx / pgconn native errors into *errs.Error.
// Server diagnostics are carried verbatim in Message, the SQLSTATE in Code.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	// Context cancellation / deadline
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || pgconn.Timeout(err) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := errs.ErrKindQuery
		if isConnectionState(pgErr.Code) {
			kind = errs.ErrKindConnection
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, pgErr.Message), err).WithCode(pgErr.Code)
	}

	// Dial, TLS and startup failures
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return errs.Wrap(errs.ErrKindConnection, msg, err)
	}

	// Link dropped mid-statement
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return errs.Wrap(errs.ErrKindConnection, msg, err)
	}

	// Anything else happened while running or decoding a statement
	return errs.Wrap(errs.ErrKindQuery, msg, err)
}

func isConnectionState(code string) bool {
	if strings.HasPrefix(code, pgClassConnectionException) || strings.HasPrefix(code, pgClassInvalidAuthorization) {
		return true
	}
	switch code {
	case pgErrInvalidCatalogName, pgErrAdminShutdown, pgErrCrashShutdown, pgErrCannotConnectNow:
		return true
	}
	return false
}

// redact hides secret wherever err's text would reveal it.
func redact(err error, secret string) error {
	if err == nil || secret == "" {
		return err
	}
	return &redactedError{err: err, secret: secret}
}

type redactedError struct {
	err    error
	secret string
}

func (e *redactedError) Error() string {
	return strings.ReplaceAll(e.err.Error(), e.secret, redactedSecret)
}

func (e *redactedError) Unwrap() error { return e.err }
