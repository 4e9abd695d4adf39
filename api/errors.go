package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ruteri/weighted-membership-registry/identity"
	"github.com/ruteri/weighted-membership-registry/interfaces"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeZeroMembers       = "zero_members"
	CodeDuplicateMember   = "duplicate_member"
	CodeWeightOverflow    = "weight_overflow"
	CodeNoMember          = "no_member"
	CodeRegistryNotFound  = "registry_not_found"
	CodeUnauthorized      = "unauthorized"
	CodeUnauthenticated   = "unauthenticated"
	CodeSequenceMismatch  = "sequence_mismatch"
	CodeInvariantViolated = "invariant_violated"
	CodeBadRequest        = "bad_request"
	CodeInternal          = "internal"
)

// ErrBadRequest marks malformed requests.
var ErrBadRequest = errors.New("bad request")

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Address *interfaces.Address `json:"address,omitempty"`
}

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{interfaces.ErrZeroMembers, http.StatusBadRequest, CodeZeroMembers},
	{interfaces.ErrDuplicateMember, http.StatusBadRequest, CodeDuplicateMember},
	{interfaces.ErrWeightOverflow, http.StatusBadRequest, CodeWeightOverflow},
	{interfaces.ErrNoMember, http.StatusNotFound, CodeNoMember},
	{interfaces.ErrRegistryNotFound, http.StatusNotFound, CodeRegistryNotFound},
	{interfaces.ErrUnauthorized, http.StatusForbidden, CodeUnauthorized},
	{identity.ErrMissingSignature, http.StatusUnauthorized, CodeUnauthenticated},
	{identity.ErrInvalidSignature, http.StatusUnauthorized, CodeUnauthenticated},
	{interfaces.ErrSequenceMismatch, http.StatusConflict, CodeSequenceMismatch},
	{interfaces.ErrInvariantViolated, http.StatusInternalServerError, CodeInvariantViolated},
	{ErrBadRequest, http.StatusBadRequest, CodeBadRequest},
}

// ErrorStatus maps an error to its HTTP status and code:
//
//	zero_members, duplicate_member, weight_overflow, bad_request  400
//	unauthenticated                                               401
//	unauthorized                                                  403
//	no_member, registry_not_found                                 404
//	sequence_mismatch                                             409
//	invariant_violated, internal                                  500
func ErrorStatus(err error) (int, string) {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.status, ec.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// NewErrorResponse builds the response body for err.
func NewErrorResponse(err error) (int, *ErrorResponse) {
	status, code := ErrorStatus(err)
	resp := &ErrorResponse{Error: err.Error(), Code: code}

	var dup *interfaces.DuplicateMemberError
	if errors.As(err, &dup) {
		resp.Address = &dup.Address
	}
	return status, resp
}

// AsError converts a decoded error body back into an error matching the
// sentinel of its code under errors.Is.
func (e *ErrorResponse) AsError() error {
	if e.Code == CodeDuplicateMember && e.Address != nil {
		return &interfaces.DuplicateMemberError{Address: *e.Address}
	}

	for _, ec := range errorCodes {
		if ec.code == e.Code {
			return fmt.Errorf("%w: %s", ec.err, e.Error)
		}
	}
	return errors.New(e.Error)
}
