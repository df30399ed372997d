package exception

import "errors"

var (
	ErrDispatchRunning           = errors.New("dispatch: simulation already running")
	ErrDispatchDuplicateStrategy = errors.New("dispatch: strategy id already registered")
	ErrDispatchNilStrategy       = errors.New("dispatch: strategy factory returned nil")
)
