package sheetsclient

import (
	"errors"
	"strings"

	ggoogleapi "google.golang.org/api/googleapi"
)

// RemoteError is any transport or API failure of a sheets call.
type RemoteError struct {
	Message string
	Code    int
	Err     error
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func newRemoteError(err error) *RemoteError {
	out := &RemoteError{Message: err.Error(), Err: err}

	var gerr *ggoogleapi.Error
	if errors.As(err, &gerr) {
		out.Code = gerr.Code
		if msg := strings.TrimSpace(gerr.Message); msg != "" {
			out.Message = msg
		}
	}
	return out
}
