package execution

import (
	"errors"
)

var (
	// ErrOutOfGas reports an exhausted gas budget. Always fatal to the
	// current entry point, never retried.
	ErrOutOfGas = errors.New("out of gas")
	// ErrUnknownSyscall reports an unrecognized syscall selector.
	ErrUnknownSyscall = errors.New("unknown syscall")
	// ErrMaxCallDepth reports a call tree deeper than the engine allows.
	ErrMaxCallDepth = errors.New("maximum call depth exceeded")
	// ErrForbiddenInValidateMode reports a syscall that account validation
	// is not allowed to perform.
	ErrForbiddenInValidateMode = errors.New("syscall forbidden in validate mode")
	// ErrNoVM reports an execution context without a virtual machine.
	ErrNoVM = errors.New("no virtual machine configured")
)
