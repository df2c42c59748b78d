package market

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by *Error for local validation failures.
var (
	ErrDuplicateItem     = errors.New("item id already registered")
	ErrItemNotFound      = errors.New("item id not registered")
	ErrNoCurrency        = errors.New("no currency resolvable")
	ErrInvalidItem       = errors.New("invalid item")
	ErrItemOwned         = errors.New("item belongs to another preference set")
	ErrNotAuthenticated  = errors.New("seller not authenticated")
	ErrNothingToRefresh  = errors.New("no refresh token available")
	ErrNoAccessToken     = errors.New("token response has no access_token")
	ErrNoPreference      = errors.New("no preference submitted yet, call Submit first")
	ErrDailyLimitReached = errors.New("daily API limit reached")
)

// Error is the single error kind returned by this package. Remote failures
// carry the HTTP StatusCode and response Body; local failures carry a
// Message and wrap one of the sentinel errors above.
type Error struct {
	StatusCode int
	Message    string
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("market API error (status %d): %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("market API error (status %d): %s", e.StatusCode, e.Body)
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Err, e.Message)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0 when err holds no
// remote failure.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func statusError(code int, body []byte) *Error {
	return &Error{StatusCode: code, Body: string(body)}
}

func localError(sentinel error, format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Err: sentinel}
}
