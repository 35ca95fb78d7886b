package app

import (
	"errors"

	"taxportal/api/internal/authn"
	"taxportal/api/internal/store"
	"taxportal/api/internal/upload"
)

// FlashError carries a user-facing flash category and message through the
// service layer. Handlers surface it verbatim; anything else collapses to a
// generic message so raw store errors never reach the client.
type FlashError struct {
	Category string
	Message  string
}

func (e *FlashError) Error() string {
	return e.Message
}

func flashErr(category, message string) *FlashError {
	return &FlashError{Category: category, Message: message}
}

// flashForError converts any service error into a flash category and
// message for the redirect target page.
func flashForError(err error) (category, message string) {
	var fe *FlashError
	if errors.As(err, &fe) {
		return fe.Category, fe.Message
	}
	switch {
	case errors.Is(err, authn.ErrInvalidCredentials):
		return "danger", "Invalid credentials"
	case errors.Is(err, store.ErrNotFound):
		return "danger", "The data you are looking for is not available"
	case errors.Is(err, store.ErrForbidden):
		return "danger", "Not authorized"
	case errors.Is(err, store.ErrDuplicate):
		return "danger", "A record with the same details already exists"
	case errors.Is(err, upload.ErrTooLarge):
		return "danger", "The bill file exceeds the 5 MB limit"
	case errors.Is(err, upload.ErrBadType):
		return "danger", "The bill file must be a JPEG, PNG, GIF, or PDF"
	default:
		return "danger", "An error occurred. Please contact the administrator."
	}
}
