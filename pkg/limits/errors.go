package limits

import "errors"

// Domain errors for limit operations.
var (
	ErrPlanNotFound             = errors.New("limits: plan not found")
	ErrInvalidPlanConfiguration = errors.New("limits: invalid plan configuration")

	ErrLimitExceeded       = errors.New("limits: limit exceeded")
	ErrInvalidResource     = errors.New("limits: invalid resource")
	ErrNoCounterRegistered = errors.New("limits: no usage counter registered for resource")

	ErrFailedToLoadPlans          = errors.New("limits: failed to load plans")
	ErrFailedToCountResourceUsage = errors.New("limits: failed to count resource usage")
)
