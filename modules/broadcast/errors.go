package broadcast

import "errors"

var (
	ErrBroadcastNotFound = errors.New("broadcast.errors.broadcast_not_found")
	ErrInvalidChannel    = errors.New("broadcast.errors.invalid_channel")
	ErrNoRecipients      = errors.New("broadcast.errors.no_recipients")
	ErrFailedToPersist   = errors.New("broadcast.errors.failed_to_persist")
	ErrFailedToSend      = errors.New("broadcast.errors.failed_to_send")
	ErrInvalidConfig     = errors.New("broadcast.errors.invalid_config")
)
