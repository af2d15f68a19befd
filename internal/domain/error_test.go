package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", (&Error{Code: CodeNotFound}).Error())
	assert.Equal(t, "NOT_FOUND: r1", (&Error{Code: CodeNotFound, Message: "r1"}).Error())
	assert.Equal(t, "remove registry: NOT_FOUND", (&Error{Code: CodeNotFound, Op: "remove registry"}).Error())
	assert.Equal(t, "remove registry: NOT_FOUND: not found",
		E(CodeNotFound, "remove registry", "", ErrNotFound).Error())
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(CodeInternal, "op", nil))

	plain := Wrap(CodeUnavailable, "fetch", errors.New("dial"))
	assert.Equal(t, CodeUnavailable, plain.Code)
	assert.Equal(t, "fetch", plain.Op)

	inner := E(CodeNotFound, "", "missing", ErrNotFound)
	scoped := Wrap(CodeInternal, "remove manifest", fmt.Errorf("store: %w", inner))
	assert.Equal(t, CodeNotFound, scoped.Code)
	assert.Equal(t, "remove manifest", scoped.Op)
	assert.Empty(t, inner.Op)
	assert.ErrorIs(t, scoped, ErrNotFound)

	named := E(CodeNotFound, "list", "", ErrNotFound)
	assert.Same(t, named, Wrap(CodeInternal, "outer", named))
}

func TestCodeFrom(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
		ok   bool
	}{
		{name: "nil", err: nil},
		{name: "plain", err: errors.New("boom")},
		{name: "explicit", err: E(CodeFailedPrecond, "op", "", nil), want: CodeFailedPrecond, ok: true},
		{name: "locator", err: fmt.Errorf("add: %w", ErrInvalidLocator), want: CodeInvalidArgument, ok: true},
		{name: "profile", err: ErrProfileNotFound, want: CodeNotFound, ok: true},
		{name: "duplicate", err: ErrAlreadyAdded, want: CodeAlreadyExists, ok: true},
		{name: "list fetch", err: ErrSourceListFetchFailed, want: CodeUnavailable, ok: true},
		{name: "deadline", err: fmt.Errorf("wait: %w", context.DeadlineExceeded), want: CodeCanceled, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := CodeFrom(tt.err)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, code)
		})
	}
}
