package job

import "errors"

var (
	// ErrUnknownTask is returned when a job names a task that is not registered.
	ErrUnknownTask = errors.New("job: unknown task")

	// ErrInvalidPayload is returned when a payload does not decode into the task's type.
	ErrInvalidPayload = errors.New("job: invalid payload")

	ErrInvalidSchedule = errors.New("job: invalid cron schedule")
	ErrAlreadyStarted  = errors.New("job: already started")
	ErrNotStarted      = errors.New("job: not started")
	ErrPoolRequired    = errors.New("job: pool is required")
	ErrMigrate         = errors.New("job: failed to migrate river schema")
	ErrEnqueue         = errors.New("job: failed to enqueue")
)
