package environment

import "errors"

var (
	ErrUnknownID         = errors.New("environment id is not registered")
	ErrAlreadyRegistered = errors.New("environment id is already registered")
	ErrResetNeeded       = errors.New("cannot call step before reset")
	ErrClosed            = errors.New("environment is closed")
	ErrInvalidAction     = errors.New("action is not in the action space")
)
