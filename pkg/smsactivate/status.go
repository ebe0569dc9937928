package smsactivate

import (
	"fmt"
	"strings"
)

type State string

const (
	StatePending   State = "pending"
	StateSuccess   State = "success"
	StateCancelled State = "cancelled"
)

// Status is a parsed getStatus reply.
type Status struct {
	State State   `json:"status"`
	Code  *string `json:"code"`
}

// ParseStatus maps a getStatus reply to a state. STATUS_OK carries the received code.
func ParseStatus(s string) (*Status, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "STATUS_OK:"):
		code := strings.TrimPrefix(s, "STATUS_OK:")
		return &Status{State: StateSuccess, Code: &code}, nil
	case s == "STATUS_WAIT_CODE", s == "STATUS_WAIT_RESEND", strings.HasPrefix(s, "STATUS_WAIT_RETRY"):
		return &Status{State: StatePending}, nil
	case s == "STATUS_CANCEL":
		return &Status{State: StateCancelled}, nil
	}
	if tok := errorToken([]byte(s)); tok != "" {
		return nil, &Error{Action: "getStatus", Token: tok}
	}
	return nil, fmt.Errorf("%w: getStatus: %q", ErrBadResponse, s)
}

// StateFromWebhook maps the numeric status pushed by the provider: 6 is
// success, 8 is cancelled, anything else is still pending.
func StateFromWebhook(status string) State {
	switch strings.TrimSpace(status) {
	case "6":
		return StateSuccess
	case "8":
		return StateCancelled
	default:
		return StatePending
	}
}
