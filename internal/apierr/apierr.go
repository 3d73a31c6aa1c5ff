// Package apierr classifies errors returned by cloud API clients.
package apierr

import (
	"errors"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// httpStatusError is satisfied by AWS SDK response errors.
type httpStatusError interface {
	error
	HTTPStatusCode() int
}

// IsServerError returns true if err is a server-side failure (a 5xx-class
// response). These are worth retrying; client errors are not.
func IsServerError(err error) bool {
	if err == nil {
		return false
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= 500
	}

	var herr httpStatusError
	if errors.As(err, &herr) {
		return herr.HTTPStatusCode() >= 500
	}

	s, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch s.Code() {
	case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unimplemented,
		codes.Unavailable, codes.DeadlineExceeded:
		return true
	}
	return false
}
