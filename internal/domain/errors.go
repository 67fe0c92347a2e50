package domain

import "errors"

// Argument errors
var (
	ErrNullArgument    = errors.New("argument must not be null")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOutOfRange      = errors.New("argument out of range")
)

// State and naming errors
var (
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrNameAlreadyInUse   = errors.New("name already in use")
	ErrInexistentName     = errors.New("no entity with that name")
	ErrImpossibleSchedule = errors.New("scheduled instant is in the past")
)

// Storage errors
var (
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrConcurrentChange = errors.New("lost race against a concurrent change")
)
