package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsServerError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"grpc unavailable", status.Error(codes.Unavailable, "Job are not ready"), true},
		{"grpc internal", status.Error(codes.Internal, "oops"), true},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "slow"), true},
		{"grpc not found", status.Error(codes.NotFound, "no such job"), false},
		{"grpc permission denied", status.Error(codes.PermissionDenied, "nope"), false},
		{"grpc canceled", status.Error(codes.Canceled, "ctx"), false},
		{"wrapped grpc unavailable", fmt.Errorf("dataproc hook: GetJob: %w", status.Error(codes.Unavailable, "x")), true},
		{"googleapi 503", &googleapi.Error{Code: 503}, true},
		{"googleapi 404", &googleapi.Error{Code: 404}, false},
		{"wrapped googleapi 500", fmt.Errorf("call: %w", &googleapi.Error{Code: 500}), true},
		{"aws 503", awsResponseError(503), true},
		{"aws 400", awsResponseError(400), false},
		{"wrapped aws 500", fmt.Errorf("GetJobRun: %w", awsResponseError(500)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsServerError(tt.err))
		})
	}
}

func awsResponseError(code int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: code}},
			Err:      errors.New("service error"),
		},
		RequestID: "req-1",
	}
}
