package backend

import (
	"fmt"

	"github.com/m3rciful/attendobot/core/netutil"
	"github.com/pkg/errors"
)

// UnknownReason is reported when a failed response carries no readable error.
const UnknownReason = "Unknown error"

var (
	// ErrAuthRejected means the token endpoint refused the credentials.
	ErrAuthRejected = errors.New("backend: credentials rejected")
	// ErrUnauthorized means an authenticated call was answered with 401.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrTransportUnavailable matches every failure to reach the backend.
	ErrTransportUnavailable = errors.New("backend: unavailable")
)

// LoadError reports a failed listing or fetch of a resource.
type LoadError struct {
	Resource string
	Status   int
	Reason   string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("backend: load %s failed (%d): %s", e.Resource, e.Status, e.Reason)
}

// Code implements the error code contract used by handler logs.
func (e *LoadError) Code() string { return "load_failed" }

// UploadError reports a rejected audio upload.
type UploadError struct {
	Status int
	Reason string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("backend: upload failed (%d): %s", e.Status, e.Reason)
}

// Code implements the error code contract used by handler logs.
func (e *UploadError) Code() string { return "upload_failed" }

// GenerationError reports a rejected content generation request.
type GenerationError struct {
	Status int
	Reason string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("backend: generation failed (%d): %s", e.Status, e.Reason)
}

// Code implements the error code contract used by handler logs.
func (e *GenerationError) Code() string { return "generation_failed" }

// RequestError reports a non-2xx answer to a call whose body is otherwise ignored.
type RequestError struct {
	Op     string
	Status int
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("backend: %s failed (%d): %s", e.Op, e.Status, e.Reason)
}

// Code implements the error code contract used by handler logs.
func (e *RequestError) Code() string { return "request_failed" }

// TransportError wraps a network level failure. It matches ErrTransportUnavailable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransportUnavailable.
func (e *TransportError) Is(target error) bool { return target == ErrTransportUnavailable }

// Code implements the error code contract used by handler logs.
func (e *TransportError) Code() string { return "transport_unavailable" }

// Kind classifies the underlying network failure for logs.
func (e *TransportError) Kind() string { return netutil.Classify(e.Err) }

// Reason extracts the user-facing reason from err, or UnknownReason.
func Reason(err error) string {
	var (
		up  *UploadError
		gen *GenerationError
		ld  *LoadError
		req *RequestError
	)
	switch {
	case errors.As(err, &up):
		return up.Reason
	case errors.As(err, &gen):
		return gen.Reason
	case errors.As(err, &ld):
		return ld.Reason
	case errors.As(err, &req):
		return req.Reason
	}
	return UnknownReason
}

// Kind returns a short error kind for logs: a network classification for
// transport failures, otherwise the error code.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind()
	}
	var c interface{ Code() string }
	if errors.As(err, &c) {
		return c.Code()
	}
	return "unknown"
}
