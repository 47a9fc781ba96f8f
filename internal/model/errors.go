package model

import (
	"errors"
)

// Errors reported to clients of the export endpoint. All of them are
// translated to a single "bad request" class at the transport boundary.
var (
	ErrMissingTarget          = errors.New("target id is missing")
	ErrInvalidTargetReference = errors.New("invalid target reference")
	ErrInvalidParameterType   = errors.New("invalid filter parameter")
	ErrUnknownTestGroup       = errors.New("unknown test group")
	ErrTargetNotFound         = errors.New("target not found")
	ErrUnknownRank            = errors.New("unknown rank")
)

var clientErrors = []error{
	ErrMissingTarget,
	ErrInvalidTargetReference,
	ErrInvalidParameterType,
	ErrUnknownTestGroup,
	ErrTargetNotFound,
	ErrUnknownRank,
}

// IsClientError returns true if err wraps one of the export errors above.
func IsClientError(err error) bool {
	for _, e := range clientErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
