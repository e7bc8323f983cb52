package executor

import (
	"context"
	"errors"

	"hypertuner/core/models"
	"hypertuner/core/space"
)

// ErrUnavailable indicates submission itself failed. The controller
// retries submissions with bounded backoff before giving up on a trial.
var ErrUnavailable = errors.New("executor unavailable")

// Handle identifies a submitted trial within an executor
type Handle string

// Result is an executor's view of a trial. Objective is meaningful only
// when Status is completed; Reason only when failed.
type Result struct {
	Status    models.TrialStatus
	Objective float64
	Reason    string
}

// TrialExecutor runs training trials. Implementations are free to
// execute anywhere (in-process, container, remote cluster); the
// controller treats them purely as a capability.
type TrialExecutor interface {
	Submit(ctx context.Context, assignment space.Assignment, resources models.ResourceSpec) (Handle, error)
	Poll(ctx context.Context, handle Handle) (Result, error)
}
