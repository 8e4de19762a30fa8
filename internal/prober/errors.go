package prober

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a terminal probe failure
type ErrorKind string

const (
	KindNetworkUnreachable   ErrorKind = "network_unreachable"
	KindSessionCookieMissing ErrorKind = "session_cookie_missing"
	KindServerError          ErrorKind = "server_error"
	KindUnexpectedResponse   ErrorKind = "unexpected_response"
)

// Sentinels matched by errors.Is against a *ProbeError of the same kind
var (
	ErrNetworkUnreachable   = errors.New("no connection to server")
	ErrSessionCookieMissing = errors.New("could not obtain session cookie")
	ErrServerError          = errors.New("server error")
	ErrUnexpectedResponse   = errors.New("unexpected response")
)

// ProbeError is the terminal error of a failed probe
type ProbeError struct {
	Kind        ErrorKind
	StatusCode  int
	PriorCookie string
	Headers     http.Header
	Err         error
}

func (e *ProbeError) Error() string {
	msg := e.sentinel().Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *ProbeError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *ProbeError) sentinel() error {
	switch e.Kind {
	case KindNetworkUnreachable:
		return ErrNetworkUnreachable
	case KindSessionCookieMissing:
		return ErrSessionCookieMissing
	case KindServerError:
		return ErrServerError
	default:
		return ErrUnexpectedResponse
	}
}

// KindOf returns the kind of a probe error, or "" if err is not one
func KindOf(err error) ErrorKind {
	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		return probeErr.Kind
	}
	return ""
}
