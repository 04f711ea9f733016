package analytics

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Failure categories exposed to operators and, in coarse form, to clients.
const (
	CategoryTimeout           = "timeout"
	CategoryCanceled          = "canceled"
	CategoryPermissionDenied  = "permission_denied"
	CategoryQuotaExhausted    = "quota_exhausted"
	CategoryInvalidRequest    = "invalid_request"
	CategoryUnavailable       = "unavailable"
	CategoryMalformedResponse = "malformed_response"
	CategoryBackend           = "backend_error"
)

// Categorize maps a RunReport error onto a failure category.
func Categorize(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	case errors.Is(err, context.Canceled):
		return CategoryCanceled
	case errors.Is(err, ErrMalformedResponse):
		return CategoryMalformedResponse
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
			return CategoryPermissionDenied
		case gerr.Code == http.StatusTooManyRequests:
			return CategoryQuotaExhausted
		case gerr.Code == http.StatusBadRequest || gerr.Code == http.StatusNotFound:
			return CategoryInvalidRequest
		case gerr.Code >= 500:
			return CategoryUnavailable
		}
	}
	return CategoryBackend
}
