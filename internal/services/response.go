package services

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/desertthunder/releasedash/internal/shared"
	"golang.org/x/oauth2"
)

// maxErrorBody caps how much of a provider error body is kept.
const maxErrorBody = 512

// ResponseError is a failed provider call: either a non-200 response or a transport error.
//
// It unwraps to Kind ([shared.ErrAuthExchange], [shared.ErrRefreshFailed] or [shared.ErrCatalogRequest]),
// to the transport cause, and to [shared.ErrTimeout] when the call timed out.
type ResponseError struct {
	Op         string
	Kind       error
	StatusCode int    // Zero when no response was received
	Body       string // Provider response text, truncated
	Timeout    bool
	Err        error
}

func (e *ResponseError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%v: %s: status %d: %s", e.Kind, e.Op, e.StatusCode, e.Body)
	case e.Timeout:
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, shared.ErrTimeout)
	default:
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, e.Err)
	}
}

func (e *ResponseError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Timeout {
		errs = append(errs, shared.ErrTimeout)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// StatusError builds a [ResponseError] for a non-200 response.
func StatusError(op string, kind error, status int, body []byte) *ResponseError {
	return &ResponseError{Op: op, Kind: kind, StatusCode: status, Body: truncate(body)}
}

// transportError classifies err, lifting status and body out of [oauth2.RetrieveError] or a rejected token
// response.
func transportError(op string, kind error, err error) *ResponseError {
	re := &ResponseError{Op: op, Kind: kind, Err: err, Timeout: isTimeout(err)}

	var retrieveErr *oauth2.RetrieveError
	var statusErr *tokenStatusError
	switch {
	case errors.As(err, &statusErr):
		re.StatusCode = statusErr.StatusCode
		re.Body = truncate(statusErr.Body)
	case errors.As(err, &retrieveErr) && retrieveErr.Response != nil:
		re.StatusCode = retrieveErr.Response.StatusCode
		re.Body = truncate(retrieveErr.Body)
	}

	return re
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
