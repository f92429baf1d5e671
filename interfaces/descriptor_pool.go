package interfaces

import "google.golang.org/protobuf/reflect/protoreflect"

// DescriptorPool resolves method descriptors from a set of FileDescriptorProtos
// patched with synthetic well-known-type files (component C6).
//
// One instance per backend, rebuilt each time that backend's discovery refresh
// succeeds; swapped atomically so in-flight dynamic invocations keep using the pool
// they started with.
type DescriptorPool interface {
	// FindMethod resolves a method descriptor for "package.Service/Method".
	//
	// Returns an error naming the requested service or method when the pool has no
	// matching service or method.
	FindMethod(fullMethod string) (protoreflect.MethodDescriptor, error)
}
