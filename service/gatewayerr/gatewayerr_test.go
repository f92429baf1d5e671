package gatewayerr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestKind_HTTPStatusAndCode(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
		code   string
	}{
		{RouteNotFound, http.StatusNotFound, "NOT_FOUND"},
		{MissingToken, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{InvalidToken, http.StatusForbidden, "FORBIDDEN"},
		{InsufficientPermissions, http.StatusForbidden, "FORBIDDEN"},
		{PayloadTooLarge, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{InvalidPathParam, http.StatusBadRequest, "BAD_REQUEST"},
		{InvalidJSONBody, http.StatusBadRequest, "BAD_REQUEST"},
		{RateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMITED"},
		{Timeout, http.StatusGatewayTimeout, "TIMEOUT"},
		{CircuitOpen, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{ServiceUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{Internal, http.StatusInternalServerError, "INTERNAL"},
	}
	for _, c := range cases {
		assert.Equal(t, c.status, c.kind.HTTPStatus(), c.kind)
		assert.Equal(t, c.code, c.kind.Code(), c.kind)
	}
}

func TestError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("boom")
	e := Wrap(Internal, "failed", inner)
	assert.Contains(t, e.Error(), "failed")
	assert.Contains(t, e.Error(), "boom")
	assert.Equal(t, inner, errors.Unwrap(e))

	plain := New(RouteNotFound, "no route")
	assert.NotContains(t, plain.Error(), ": :")
}

func TestHTTPStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatusForCode(codes.InvalidArgument))
	assert.Equal(t, http.StatusBadRequest, HTTPStatusForCode(codes.OutOfRange))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatusForCode(codes.DeadlineExceeded))
	assert.Equal(t, http.StatusConflict, HTTPStatusForCode(codes.AlreadyExists))
	assert.Equal(t, http.StatusConflict, HTTPStatusForCode(codes.Aborted))
	assert.Equal(t, http.StatusPreconditionFailed, HTTPStatusForCode(codes.FailedPrecondition))
	assert.Equal(t, http.StatusNotImplemented, HTTPStatusForCode(codes.Unimplemented))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusForCode(codes.DataLoss))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusForCode(codes.Unknown))
}

func TestFromUpstream_HTTPStatus(t *testing.T) {
	err := status.Error(codes.Unavailable, "backend down")
	gwErr := FromUpstream(err, "trace-1")
	assert.Equal(t, UpstreamGrpc, gwErr.Kind)
	assert.Equal(t, "trace-1", gwErr.TraceID)
	assert.Equal(t, http.StatusServiceUnavailable, gwErr.HTTPStatus())
	assert.Equal(t, "Unavailable", gwErr.Details["grpc_code"])
}

func TestFromUpstream_NonStatusError(t *testing.T) {
	gwErr := FromUpstream(errors.New("plain transport failure"), "trace-2")
	assert.Equal(t, http.StatusInternalServerError, gwErr.HTTPStatus())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(status.Error(codes.Unavailable, "x")))
	assert.True(t, IsTransient(status.Error(codes.DeadlineExceeded, "x")))
	assert.True(t, IsTransient(status.Error(codes.ResourceExhausted, "x")))
	assert.False(t, IsTransient(status.Error(codes.InvalidArgument, "x")))
	assert.False(t, IsTransient(errors.New("not a status")))
}
