package interfaces

import (
	"errors"
)

// ErrorKind classifies registry errors. All registry errors are deterministic
// functions of the input and are never retried by the core.
type ErrorKind int

const (
	// KindUnknown is returned by KindOf for errors outside the registry taxonomy,
	// for example storage or transport failures.
	KindUnknown ErrorKind = iota
	// KindAuthorization means the caller is not the owner, recovery account or admin.
	KindAuthorization
	// KindNotFound means a referenced entity is absent.
	KindNotFound
	// KindConflict means the operation would violate a uniqueness invariant.
	KindConflict
	// KindValidation means an input exceeds a configured bound.
	KindValidation
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is a registry error with a stable code.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string

	parent error
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Error returns the error message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the more general error this one refines, if any.
func (e *Error) Unwrap() error {
	return e.parent
}

var (
	// ErrNotAllowed is returned when the caller may not act on the resource.
	ErrNotAllowed = newError(KindAuthorization, "NotAllowed", "caller is not allowed to perform this operation")

	// ErrNotContractOwner is returned when an admin-only operation is invoked by
	// another account. It unwraps to ErrNotAllowed.
	ErrNotContractOwner = &Error{Kind: KindAuthorization, Code: "NotContractOwner", Message: "caller is not the registry admin", parent: ErrNotAllowed}

	// ErrIdentityDoesntExist is returned when an identity is unknown.
	ErrIdentityDoesntExist = newError(KindNotFound, "IdentityDoesntExist", "identity does not exist")

	// ErrAddressBookDoesntExist is returned when the caller has no address book.
	ErrAddressBookDoesntExist = newError(KindNotFound, "AddressBookDoesntExist", "address book does not exist")

	// ErrInvalidChain is returned when a chain is unknown, or when an identity
	// has no address on the chain.
	ErrInvalidChain = newError(KindNotFound, "InvalidChain", "invalid chain")

	// ErrIdentityNotAdded is returned when an identity is not in the address book.
	ErrIdentityNotAdded = newError(KindNotFound, "IdentityNotAdded", "identity is not in the address book")

	// ErrAlreadyIdentityOwner is returned when an account would own a second identity.
	ErrAlreadyIdentityOwner = newError(KindConflict, "AlreadyIdentityOwner", "account already owns an identity")

	// ErrAddressBookAlreadyCreated is returned when the caller already has an address book.
	ErrAddressBookAlreadyCreated = newError(KindConflict, "AddressBookAlreadyCreated", "address book already created")

	// ErrAddressAlreadyAdded is returned when the identity already has an address on the chain.
	ErrAddressAlreadyAdded = newError(KindConflict, "AddressAlreadyAdded", "address already added for this chain")

	// ErrIdentityAlreadyAdded is returned when the identity is already in the address book.
	ErrIdentityAlreadyAdded = newError(KindConflict, "IdentityAlreadyAdded", "identity already added to the address book")

	// ErrAddressSizeExceeded is returned when an address exceeds the size limit.
	ErrAddressSizeExceeded = newError(KindValidation, "AddressSizeExceeded", "address size exceeded")

	// ErrNickNameTooLong is returned when a nickname exceeds the length limit.
	ErrNickNameTooLong = newError(KindValidation, "NickNameTooLong", "nickname too long")

	// ErrChainNameTooLong is returned when a chain name exceeds the length limit.
	ErrChainNameTooLong = newError(KindValidation, "ChainNameTooLong", "chain name too long")

	// ErrChainRpcUrlTooLong is returned when a chain RPC url exceeds the length limit.
	ErrChainRpcUrlTooLong = newError(KindValidation, "ChainRpcUrlTooLong", "chain rpc url too long")

	// ErrCounterExhausted is returned when no further identity numbers or chain ids
	// can be allocated.
	ErrCounterExhausted = newError(KindValidation, "CounterExhausted", "identifier space exhausted")
)

var registryErrors = []*Error{
	ErrNotAllowed,
	ErrNotContractOwner,
	ErrIdentityDoesntExist,
	ErrAddressBookDoesntExist,
	ErrInvalidChain,
	ErrIdentityNotAdded,
	ErrAlreadyIdentityOwner,
	ErrAddressBookAlreadyCreated,
	ErrAddressAlreadyAdded,
	ErrIdentityAlreadyAdded,
	ErrAddressSizeExceeded,
	ErrNickNameTooLong,
	ErrChainNameTooLong,
	ErrChainRpcUrlTooLong,
	ErrCounterExhausted,
}

// KindOf returns the kind of a registry error anywhere in err's chain.
func KindOf(err error) ErrorKind {
	var regErr *Error
	if errors.As(err, &regErr) {
		return regErr.Kind
	}
	return KindUnknown
}

// CodeOf returns the stable code of a registry error, or "" for other errors.
func CodeOf(err error) string {
	var regErr *Error
	if errors.As(err, &regErr) {
		return regErr.Code
	}
	return ""
}

// ErrorFromCode returns the registry error with the given code, used by clients
// to turn an API error response back into a sentinel.
func ErrorFromCode(code string) (*Error, bool) {
	for _, e := range registryErrors {
		if e.Code == code {
			return e, true
		}
	}
	return nil, false
}
