package interfaces

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// DynamicInvoker performs a single unary gRPC call using a dynamically constructed
// request message, without any compiled client stub (component C7).
type DynamicInvoker interface {
	// Invoke marshals jsonPayload into the method's input type via the given
	// DescriptorPool, calls fullMethod over conn with outMD attached as outgoing
	// metadata, and marshals the response back to JSON.
	//
	// Returns the raw gRPC error (unwrapped via status.FromError by the caller) on
	// failure so the pipeline can map it per the error taxonomy.
	Invoke(ctx context.Context, conn *grpc.ClientConn, pool DescriptorPool, fullMethod string, jsonPayload []byte, outMD metadata.MD) ([]byte, error)
}
