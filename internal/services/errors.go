package services

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Kind classifies a service error for callers such as the HTTP adapter.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindConsistency  Kind = "consistency"
	KindInternal     Kind = "internal"
)

// Error is a classified service error. The package-level values below are
// sentinels; compare with errors.Is.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrSelfRequest               = newError(KindValidation, "self_request", "cannot send a friend request to yourself")
	ErrInvalidDecision           = newError(KindValidation, "invalid_decision", "decision must be approved or rejected")
	ErrInvalidGroup              = newError(KindValidation, "invalid_group", "group name is required and must be at most 100 characters")
	ErrInvalidUser               = newError(KindValidation, "invalid_user", "user id and name are required")
	ErrAlreadyRequestedOrFriends = newError(KindConflict, "already_requested_or_friends", "a friend request or friendship already exists")
	ErrAlreadyMember             = newError(KindConflict, "already_member", "user is already a member of this group")
	ErrJoinRequestExists         = newError(KindConflict, "join_request_exists", "a pending join request already exists")
	ErrSoleAdmin                 = newError(KindConflict, "sole_admin", "the only admin cannot leave while other members remain")
	ErrGroupInactive             = newError(KindConflict, "group_inactive", "group is not active")
	ErrRequestNotFound           = newError(KindNotFound, "request_not_found", "request not found")
	ErrNotFriends                = newError(KindNotFound, "not_friends", "users are not friends")
	ErrGroupNotFound             = newError(KindNotFound, "group_not_found", "group not found")
	ErrNotAMember                = newError(KindNotFound, "not_a_member", "user is not a member of this group")
	ErrMemberNotFound            = newError(KindNotFound, "member_not_found", "member not found")
	ErrUserNotFound              = newError(KindNotFound, "user_not_found", "user not found")
	ErrUnauthorized              = newError(KindUnauthorized, "unauthorized", "group admin rights required")
	ErrNotOwner                  = newError(KindUnauthorized, "not_owner", "request was submitted by another user")
	ErrConsistency               = newError(KindConsistency, "internal", "internal error")
)

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the machine-readable code of err, or "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

// fail passes classified errors through untouched and wraps (and logs)
// infrastructure errors with the failed operation.
func fail(logger *zap.Logger, op string, err error) error {
	if KindOf(err) != KindInternal {
		return err
	}
	logger.Error(op+" failed", zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}
