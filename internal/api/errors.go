package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// ErrAttachmentMissing means a referenced local file no longer exists.
// Resubmitting the same job can never succeed.
var ErrAttachmentMissing = errors.New("attachment file missing")

// StatusError is a non-2xx response from the backend
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API request failed: %s", e.Status)
	}
	return fmt.Sprintf("API request failed: %s: %s", e.Status, e.Body)
}

func newStatusError(resp *resty.Response) *StatusError {
	body := string(resp.Body())
	if len(body) > 512 {
		body = body[:512]
	}
	status := resp.Status()
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode(), http.StatusText(resp.StatusCode()))
	}
	return &StatusError{
		StatusCode: resp.StatusCode(),
		Status:     status,
		Body:       body,
	}
}

// IsPermanent reports whether resubmitting unchanged can never succeed:
// 400 Bad Request, 406 Not Acceptable, or a missing attachment.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAttachmentMissing) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusBadRequest || se.StatusCode == http.StatusNotAcceptable
	}
	return false
}

// IsCanceled reports whether the call was abandoned by its caller
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
