package state

import (
	"errors"
)

var (
	ErrContractNotDeployed     = errors.New("contract not deployed")
	ErrContractAlreadyDeployed = errors.New("contract already deployed")
	ErrCacheAlreadyInitialized = errors.New("state cache already initialized")
)
