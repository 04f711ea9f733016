package analytics_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"github.com/rddigitech/dashboard-api/internal/analytics"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{context.DeadlineExceeded, analytics.CategoryTimeout},
		{fmt.Errorf("do: %w", context.Canceled), analytics.CategoryCanceled},
		{analytics.ErrMalformedResponse, analytics.CategoryMalformedResponse},
		{&googleapi.Error{Code: 403}, analytics.CategoryPermissionDenied},
		{&googleapi.Error{Code: 401}, analytics.CategoryPermissionDenied},
		{&googleapi.Error{Code: 429}, analytics.CategoryQuotaExhausted},
		{&googleapi.Error{Code: 400}, analytics.CategoryInvalidRequest},
		{&googleapi.Error{Code: 503}, analytics.CategoryUnavailable},
		{errors.New("connection reset"), analytics.CategoryBackend},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, analytics.Categorize(tt.err), "err=%v", tt.err)
	}
}
