package recommendations

import (
	"errors"
	"fmt"
)

// Failure kinds returned by Service. Match them with errors.Is.
var (
	ErrNotFound = errors.New("recommendations: not found")
	ErrConflict = errors.New("recommendations: conflict")
	ErrInternal = errors.New("recommendations: internal error")
)

var (
	errMissingGateway        = errors.New("gateway is required")
	errRecommendationMissing = errors.New("recommendation does not exist")
	errNameTaken             = errors.New("recommendation names must be unique")
	errEmptyStore            = errors.New("no recommendations stored")
)

// ServiceError carries a dotted operation code, a failure kind and the underlying cause.
type ServiceError struct {
	code string
	kind error
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Is reports whether target is the failure kind of this error.
func (e *ServiceError) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

// Code returns the operation code, e.g. "recommendations.downvote.delete_failed".
func (e *ServiceError) Code() string {
	return e.code
}

// Kind returns ErrNotFound, ErrConflict or ErrInternal.
func (e *ServiceError) Kind() error {
	return e.kind
}

const (
	opServiceNew = "recommendations.service.new"
	opInsert     = "recommendations.insert"
	opUpvote     = "recommendations.upvote"
	opDownvote   = "recommendations.downvote"
	opGetByID    = "recommendations.get_by_id"
	opList       = "recommendations.list"
	opListTop    = "recommendations.list_top"
	opGetRandom  = "recommendations.get_random"
	opReset      = "recommendations.reset"

	reasonMissingGateway    = "missing_gateway"
	reasonNotFound          = "not_found"
	reasonNameTaken         = "name_taken"
	reasonLookupFailed      = "lookup_failed"
	reasonCreateFailed      = "create_failed"
	reasonAdjustFailed      = "adjust_failed"
	reasonDeleteFailed      = "delete_failed"
	reasonTransactionFailed = "transaction_failed"
	reasonQueryFailed       = "query_failed"
	reasonTruncateFailed    = "truncate_failed"
)

func newServiceError(operation, reason string, kind, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, kind: kind, err: cause}
}
