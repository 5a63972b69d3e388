package telegram

import (
	"errors"
	"strings"
	"time"

	"github.com/go-telegram/bot"
)

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeRateLimited
	OutcomePermanent
	OutcomeUnclassified
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomePermanent:
		return "permanent"
	default:
		return "unclassified"
	}
}

// ErrNoTarget marks a recipient that has no valid chat to deliver to.
var ErrNoTarget = errors.New("recipient has no delivery target")

// Descriptions Telegram returns with 400 Bad Request when the peer is gone.
var permanentBadRequest = []string{
	"chat not found",
	"user not found",
	"peer_id_invalid",
	"user is deactivated",
	"bot was blocked by the user",
}

// Classify maps a transport error onto the delivery taxonomy. For rate limits
// the second return value is the wait Telegram asked for.
func Classify(err error) (Outcome, time.Duration) {
	if err == nil {
		return OutcomeOK, 0
	}

	var tooMany *bot.TooManyRequestsError
	if errors.As(err, &tooMany) {
		return OutcomeRateLimited, time.Duration(tooMany.RetryAfter) * time.Second
	}

	if errors.Is(err, ErrNoTarget) || errors.Is(err, bot.ErrorForbidden) {
		return OutcomePermanent, 0
	}

	if errors.Is(err, bot.ErrorBadRequest) {
		desc := strings.ToLower(err.Error())
		for _, marker := range permanentBadRequest {
			if strings.Contains(desc, marker) {
				return OutcomePermanent, 0
			}
		}
	}

	return OutcomeUnclassified, 0
}

// RetryAfter is Classify narrowed to the rate-limit case.
func RetryAfter(err error) (time.Duration, bool) {
	outcome, wait := Classify(err)
	return wait, outcome == OutcomeRateLimited
}

