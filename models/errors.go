package models

import "errors"

// Error taxonomy for the scoped authorization engine. Validation errors are
// raised before anything is persisted; stores wrap them with context via %w.
var (
	// ErrScopeTypeInvalid is returned when a scope reference names an entity
	// type that is not registered as a role-hosting scope.
	ErrScopeTypeInvalid = errors.New("scope type is not a registered scope")

	// ErrPermissionNotAllowed is returned when a role or public-permission
	// write contains a permission outside the scope type's whitelist.
	ErrPermissionNotAllowed = errors.New("permission cannot be assigned in this scope")

	// ErrScopeMismatch is returned when an object references a role whose
	// scope differs from the object's own scope.
	ErrScopeMismatch = errors.New("scopes of the role and this object don't match")

	// ErrIncorrectPassphrase is returned by enrollment when passphrase
	// checking is enabled and the supplied value doesn't match.
	ErrIncorrectPassphrase = errors.New("incorrect passphrase")

	// ErrMissingUser is returned when enroll/withdraw is invoked without a
	// resolvable subject user. This is a usage error, not user-recoverable.
	ErrMissingUser = errors.New("user missing")

	// ErrNotFound is the store-level not-found signal. Stores map the ORM's
	// record-not-found error to this before returning.
	ErrNotFound = errors.New("not found")

	// ErrInvalidData is returned for writes with missing required fields.
	ErrInvalidData = errors.New("invalid data")
)
