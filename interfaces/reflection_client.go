package interfaces

import (
	"context"

	"google.golang.org/protobuf/types/descriptorpb"
)

// DiscoveredMethod is one RPC method surfaced by server reflection.
type DiscoveredMethod struct {
	ServiceFullName string // e.g. "user.UserService"
	MethodName      string // e.g. "GetUser"
	FullMethod      string // "package.Service/Method"
}

// ReflectionClient queries a backend's gRPC server-reflection service to enumerate
// its services and methods (component C4).
//
// Constructed in cmd/main over one channel acquired from a backend's ConnectionPool; a
// new instance is built for each discovery pass.
type ReflectionClient interface {
	// ListServices returns every service full name the backend's reflection endpoint
	// advertises, excluding the reflection and health services themselves.
	//
	// Returns ErrReflectionNotSupported when the backend answers Unimplemented for
	// server reflection.
	ListServices(ctx context.Context) ([]string, error)

	// ListMethods returns every method of serviceFullName plus the FileDescriptorProto
	// set needed to build a descriptor pool for it (component C6).
	ListMethods(ctx context.Context, serviceFullName string) ([]DiscoveredMethod, []*descriptorpb.FileDescriptorProto, error)
}
