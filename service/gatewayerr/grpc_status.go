package gatewayerr

import (
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// grpcStatusToHTTP is the gRPC-status -> HTTP-status table from §7, applied when an
// upstream call returns a gRPC status rather than a transport failure.
var grpcStatusToHTTP = map[codes.Code]int{
	codes.OK:                 http.StatusOK,
	codes.Canceled:           http.StatusRequestTimeout,
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.OutOfRange:         http.StatusBadRequest,
	codes.DeadlineExceeded:   http.StatusGatewayTimeout,
	codes.NotFound:           http.StatusNotFound,
	codes.AlreadyExists:      http.StatusConflict,
	codes.Aborted:            http.StatusConflict,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.Unauthenticated:    http.StatusUnauthorized,
	codes.ResourceExhausted:  http.StatusTooManyRequests,
	codes.FailedPrecondition: http.StatusPreconditionFailed,
	codes.Unimplemented:      http.StatusNotImplemented,
	codes.Unavailable:        http.StatusServiceUnavailable,
	codes.Internal:           http.StatusInternalServerError,
	codes.DataLoss:           http.StatusInternalServerError,
	codes.Unknown:            http.StatusInternalServerError,
}

// transientCodes are the upstream statuses worth retrying, per §7's retry policy —
// validation and auth failures are terminal, only these three are transient.
var transientCodes = map[codes.Code]bool{
	codes.Unavailable:       true,
	codes.DeadlineExceeded:  true,
	codes.ResourceExhausted: true,
}

// FromUpstream builds an UpstreamGrpc Error from a gRPC error returned by a backend
// call. message is the generic client-facing text; the upstream's detailed message
// is kept only on Inner, for logging alongside traceID.
func FromUpstream(err error, traceID string) *Error {
	st, ok := status.FromError(err)
	code := codes.Unknown
	if ok {
		code = st.Code()
	}
	return &Error{
		Kind:    UpstreamGrpc,
		Message: "upstream call failed",
		TraceID: traceID,
		Details: map[string]string{"grpc_code": code.String()},
		Inner:   err,
	}
}

// HTTPStatusForCode returns the HTTP status for a gRPC status code per §7's table,
// defaulting to 500 for any code not in the table.
func HTTPStatusForCode(code codes.Code) int {
	if status, ok := grpcStatusToHTTP[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HTTPStatus overrides Kind.HTTPStatus for UpstreamGrpc errors: the status depends on
// the gRPC code of the wrapped Inner error, not a fixed mapping.
func (e *Error) HTTPStatus() int {
	if e.Kind == UpstreamGrpc {
		if st, ok := status.FromError(e.Inner); ok {
			return HTTPStatusForCode(st.Code())
		}
		return http.StatusInternalServerError
	}
	return e.Kind.HTTPStatus()
}

// IsTransient reports whether a gRPC error is worth retrying per §7's retry policy.
func IsTransient(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return transientCodes[st.Code()]
}
