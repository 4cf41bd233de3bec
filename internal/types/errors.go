package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected     = errors.New("bot not connected")
	ErrLoginFailed      = errors.New("login failed")
	ErrTwoFactorTimeout = errors.New("2FA timeout - please complete within 5 minutes")
	ErrNavigation       = errors.New("failed to navigate")
	ErrReplyButton      = errors.New("could not find reply button")
	ErrTextArea         = errors.New("could not find reply text area")
	ErrPostButton       = errors.New("could not find enabled post/reply button")
	ErrPostNotFound     = errors.New("post not found")
	ErrInvalidInput     = errors.New("invalid input")
)

// SiteError is an error message shown by X itself after an action
type SiteError struct {
	Message string
}

func (e *SiteError) Error() string {
	return fmt.Sprintf("Twitter error: %s", e.Message)
}

// APIError is a failed call to the completion provider
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	switch e.StatusCode {
	case 401:
		return "Invalid API key. Please check your API key."
	case 429:
		return "API rate limit exceeded. Please try again later."
	}
	if e.Message == "" {
		return fmt.Sprintf("API error: %d Unknown error", e.StatusCode)
	}
	return fmt.Sprintf("API error: %d %s", e.StatusCode, e.Message)
}

// InputError is a user-facing validation failure; it matches ErrInvalidInput
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// InvalidInput returns an InputError with msg
func InvalidInput(msg string) error {
	return &InputError{Message: msg}
}
