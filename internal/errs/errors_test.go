package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	cause := errors.New("ERROR: syntax error at or near \"SELEC\" (SQLSTATE 42601)")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  New(ErrKindInvalidInput, "sql is required"),
			want: "[invalid_input] sql is required",
		},
		{
			name: "with cause",
			err:  Wrap(ErrKindQuery, "query failed", cause),
			want: "[query] query failed: ERROR: syntax error at or near \"SELEC\" (SQLSTATE 42601)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"connection", New(ErrKindConnection, "x"), IsConnection, true},
		{"query", New(ErrKindQuery, "x"), IsQuery, true},
		{"timeout", New(ErrKindTimeout, "x"), IsTimeout, true},
		{"invalid input", New(ErrKindInvalidInput, "x"), IsInvalidInput, true},
		{"not found", New(ErrKindNotFound, "x"), IsNotFound, true},
		{"permission denied", New(ErrKindPermissionDenied, "x"), IsPermissionDenied, true},
		{"query is not connection", New(ErrKindQuery, "x"), IsConnection, false},
		{"plain error", errors.New("x"), IsQuery, false},
		{"nil", nil, IsQuery, false},
		{"wrapped by fmt", fmt.Errorf("describe: %w", New(ErrKindQuery, "x")), IsQuery, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestCodeOf(t *testing.T) {
	base := Wrap(ErrKindQuery, "query failed", errors.New("boom"))
	coded := base.WithCode("42601")

	assert.Equal(t, "", CodeOf(base), "WithCode must not mutate the receiver")
	assert.Equal(t, "42601", CodeOf(coded))
	assert.Equal(t, "42601", CodeOf(fmt.Errorf("outer: %w", coded)))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(ErrKindConnection, "connect failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrKindConnection, KindOf(err))
	assert.Equal(t, "connection", KindOf(err).String())
	assert.Equal(t, "unknown", ErrKindUnknown.String())
}
