package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ruteri/weighted-membership-registry/identity"
	"github.com/ruteri/weighted-membership-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{interfaces.ErrZeroMembers, http.StatusBadRequest, CodeZeroMembers},
		{&interfaces.DuplicateMemberError{Address: interfaces.Address{1}}, http.StatusBadRequest, CodeDuplicateMember},
		{interfaces.ErrWeightOverflow, http.StatusBadRequest, CodeWeightOverflow},
		{fmt.Errorf("lookup: %w", interfaces.ErrNoMember), http.StatusNotFound, CodeNoMember},
		{interfaces.ErrRegistryNotFound, http.StatusNotFound, CodeRegistryNotFound},
		{interfaces.ErrUnauthorized, http.StatusForbidden, CodeUnauthorized},
		{identity.ErrMissingSignature, http.StatusUnauthorized, CodeUnauthenticated},
		{identity.ErrInvalidSignature, http.StatusUnauthorized, CodeUnauthenticated},
		{interfaces.ErrSequenceMismatch, http.StatusConflict, CodeSequenceMismatch},
		{interfaces.ErrInvariantViolated, http.StatusInternalServerError, CodeInvariantViolated},
		{fmt.Errorf("%w: no body", ErrBadRequest), http.StatusBadRequest, CodeBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := ErrorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestErrorResponse_RoundTrip(t *testing.T) {
	_, resp := NewErrorResponse(&interfaces.DuplicateMemberError{Address: interfaces.Address{7}})
	require.NotNil(t, resp.Address)

	var dup *interfaces.DuplicateMemberError
	require.True(t, errors.As(resp.AsError(), &dup))
	assert.Equal(t, interfaces.Address{7}, dup.Address)

	_, resp = NewErrorResponse(fmt.Errorf("%w: 0x01", interfaces.ErrUnauthorized))
	assert.Nil(t, resp.Address)
	assert.ErrorIs(t, resp.AsError(), interfaces.ErrUnauthorized)

	unknown := &ErrorResponse{Error: "teapot", Code: "teapot"}
	assert.EqualError(t, unknown.AsError(), "teapot")
}
