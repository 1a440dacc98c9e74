package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/pgmeta/internal/errs"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind errs.ErrKind
		wantCode string
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout, ""},
		{"cancelled", fmt.Errorf("read: %w", context.Canceled), errs.ErrKindTimeout, ""},
		{"syntax error", &pgconn.PgError{Code: "42601", Message: "syntax error"}, errs.ErrKindQuery, "42601"},
		{"undefined table", &pgconn.PgError{Code: "42P01", Message: `relation "x" does not exist`}, errs.ErrKindQuery, "42P01"},
		{"auth failed", &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}, errs.ErrKindConnection, "28P01"},
		{"missing database", &pgconn.PgError{Code: "3D000", Message: `database "nope" does not exist`}, errs.ErrKindConnection, "3D000"},
		{"connection exception", &pgconn.PgError{Code: "08006", Message: "connection failure"}, errs.ErrKindConnection, "08006"},
		{"admin shutdown", &pgconn.PgError{Code: "57P01", Message: "terminating connection"}, errs.ErrKindConnection, "57P01"},
		{"unexpected eof", io.ErrUnexpectedEOF, errs.ErrKindConnection, ""},
		{"other", errors.New("cannot scan"), errs.ErrKindQuery, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "op")
			require.NotNil(t, got)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.Nil(t, mapError(nil, "op"))
}

func TestMapError_CarriesServerMessage(t *testing.T) {
	got := mapError(&pgconn.PgError{Code: "42703", Message: `column "nme" does not exist`}, "query failed")
	assert.Equal(t, `query failed: column "nme" does not exist`, got.Message)
}

func TestRedact(t *testing.T) {
	cause := errors.New(`failed to connect to user=app password=s3cret host=db`)

	err := redact(cause, "s3cret")
	assert.NotContains(t, err.Error(), "s3cret")
	assert.Contains(t, err.Error(), redactedSecret)
	assert.ErrorIs(t, err, cause)

	wrapped := mapError(err, "failed to connect")
	assert.NotContains(t, wrapped.Error(), "s3cret")
}

func TestRedact_EmptySecret(t *testing.T) {
	cause := errors.New("boom")
	assert.Same(t, cause, redact(cause, ""))
	assert.Nil(t, redact(nil, "x"))
}
