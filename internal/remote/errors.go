package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Kind classifies a remote failure.
type Kind string

const (
	KindUnauthorized    Kind = "unauthorized"
	KindNetwork         Kind = "network"
	KindSaveFailed      Kind = "save_failed"
	KindInvalidResponse Kind = "invalid_response"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindBadRequest      Kind = "bad_request"
)

var (
	// ErrUnauthorized means the shared credential was rejected. Never retried.
	ErrUnauthorized = errors.New("remote: unauthorized")
	// ErrNetwork is a transient transport or server failure.
	ErrNetwork = errors.New("remote: network error")
	// ErrSaveFailed means a write exhausted retries or hit an unrecoverable conflict.
	ErrSaveFailed = errors.New("remote: save failed")
	// ErrInvalidResponse means the store answered with a payload that could not be used.
	ErrInvalidResponse = errors.New("remote: invalid response")
	// ErrNotFound is a legitimate miss.
	ErrNotFound = errors.New("remote: not found")
	// ErrConflict signals a uniqueness violation on insert.
	ErrConflict = errors.New("remote: conflict")
	// ErrBadRequest means the store rejected the request as malformed. Never retried.
	ErrBadRequest = errors.New("remote: bad request")
)

var kindSentinels = map[Kind]error{
	KindUnauthorized:    ErrUnauthorized,
	KindNetwork:         ErrNetwork,
	KindSaveFailed:      ErrSaveFailed,
	KindInvalidResponse: ErrInvalidResponse,
	KindNotFound:        ErrNotFound,
	KindConflict:        ErrConflict,
	KindBadRequest:      ErrBadRequest,
}

// Error describes a failed remote operation.
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int
	Body       string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (http %d)", e.StatusCode)
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		b.WriteString(": ")
		b.WriteString(body)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// ErrorKind returns the classification string.
func (e *Error) ErrorKind() string { return string(e.Kind) }

// Retryable reports whether another attempt may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindInvalidResponse
}

func isRetryable(err error) bool {
	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		return remoteErr.Retryable()
	}
	return false
}

// kindForStatus maps a non-2xx HTTP status onto the taxonomy.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= http.StatusInternalServerError:
		return KindNetwork
	default:
		return KindBadRequest
	}
}

func saveFailed(op string, err error) error {
	if errors.Is(err, ErrUnauthorized) {
		return err
	}
	return &Error{Op: op, Kind: KindSaveFailed, Err: err}
}
