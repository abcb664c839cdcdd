package service

import (
	"errors"

	"github.com/fanlore/backend/internal/repository"
)

// Webhook validation failures. All reject at the boundary with no side
// effects; the handler maps them onto HTTP statuses.
var (
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrMissingField     = errors.New("missing required field")
	ErrBadToken         = errors.New("verification token mismatch")
	ErrAmountOutOfRange = errors.New("amount out of range")
	ErrStaleEvent       = errors.New("timestamp outside freshness window")
	ErrUnknownEventType = errors.New("unknown webhook event type")
)

func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicate)
}
