package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrAlreadyExists         = errors.New("already exists")
	ErrRateLimited           = errors.New("rate limited")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrProviderFailure       = errors.New("estimator provider failure")
	ErrInsufficientConsensus = errors.New("no surviving estimator providers")
	ErrInvalidPrice          = errors.New("invalid outcome prices")
	ErrSolverInfeasible      = errors.New("constraint set is infeasible")
	ErrSolverTimeout         = errors.New("solver timed out")
	ErrContextDone           = errors.New("context cancelled")
)
