package service

import (
	"fmt"
	"strings"

	"apigateway/interfaces"

	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	durationpb "google.golang.org/protobuf/types/known/durationpb"
	emptypb "google.golang.org/protobuf/types/known/emptypb"
	timestamppb "google.golang.org/protobuf/types/known/timestamppb"
)

// descriptorPool implements interfaces.DescriptorPool over a protoregistry.Files built
// from reflection-discovered FileDescriptorProtos, patched with the well-known types a
// backend's .proto files reference but reflection doesn't always resend (component C6).
type descriptorPool struct {
	files       *protoregistry.Files
	serviceName string
}

// NewDescriptorPool builds a descriptorPool for one service from the FileDescriptorProtos
// reflection returned for it. Appends the well-known-type files (timestamp.proto,
// duration.proto, empty.proto) that a message field references but the set lacks, and
// adds the corresponding import to any file whose fields reference one of them without
// declaring it.
//
// Returns a DescriptorPoolError naming the requested service and the files actually
// available when protodesc fails to resolve the patched set.
func NewDescriptorPool(serviceName string, fds []*descriptorpb.FileDescriptorProto) (interfaces.DescriptorPool, error) {
	patched := patchWellKnownTypes(fds)
	set := &descriptorpb.FileDescriptorSet{File: patched}
	files, err := protodesc.NewFiles(set)
	if err != nil {
		return nil, &DescriptorPoolError{Service: serviceName, Available: fileNames(patched), Err: err}
	}
	return &descriptorPool{files: files, serviceName: serviceName}, nil
}

// FindMethod resolves "package.Service/Method". See interfaces.DescriptorPool.
func (p *descriptorPool) FindMethod(fullMethod string) (protoreflect.MethodDescriptor, error) {
	serviceName, methodName, ok := splitFullMethod(fullMethod)
	if !ok {
		return nil, fmt.Errorf("descriptor_pool: malformed full method %q", fullMethod)
	}
	desc, err := p.files.FindDescriptorByName(protoreflect.FullName(serviceName))
	if err != nil {
		return nil, &DescriptorPoolError{Service: serviceName, Err: err}
	}
	svcDesc, ok := desc.(protoreflect.ServiceDescriptor)
	if !ok {
		return nil, fmt.Errorf("descriptor_pool: %q is not a service", serviceName)
	}
	methodDesc := svcDesc.Methods().ByName(protoreflect.Name(methodName))
	if methodDesc == nil {
		return nil, fmt.Errorf("descriptor_pool: method %q not found on service %q", methodName, serviceName)
	}
	return methodDesc, nil
}

func splitFullMethod(fullMethod string) (service, method string, ok bool) {
	i := strings.LastIndex(fullMethod, "/")
	if i < 0 {
		return "", "", false
	}
	return fullMethod[:i], fullMethod[i+1:], true
}

// DescriptorPoolError is returned when a descriptor pool cannot be built or a lookup fails,
// carrying the requested symbol and (when building) the file names that were available,
// for diagnostics surfaced to the admin endpoint and logs.
type DescriptorPoolError struct {
	Service   string
	Available []string
	Err       error
}

func (e *DescriptorPoolError) Error() string {
	return fmt.Sprintf("descriptor_pool: resolving %q: %v (available files: %v)", e.Service, e.Err, e.Available)
}

func (e *DescriptorPoolError) Unwrap() error { return e.Err }

func fileNames(fds []*descriptorpb.FileDescriptorProto) []string {
	names := make([]string, len(fds))
	for i, fd := range fds {
		names[i] = fd.GetName()
	}
	return names
}

// patchWellKnownTypes appends the FileDescriptorProtos for google.protobuf.Timestamp,
// Duration and Empty when a reflected file's message fields reference one of them and the
// set does not already include that file, and ensures each referencing file's Dependency
// list includes it. The appended descriptors are taken from the timestamppb, durationpb and
// emptypb packages compiled into the binary, not fetched from the backend.
func patchWellKnownTypes(fds []*descriptorpb.FileDescriptorProto) []*descriptorpb.FileDescriptorProto {
	have := map[string]bool{}
	for _, fd := range fds {
		have[fd.GetName()] = true
	}
	referenced := map[string]bool{}
	for _, fd := range fds {
		for _, msg := range fd.GetMessageType() {
			scanFieldsForWellKnown(msg, referenced)
		}
	}

	out := make([]*descriptorpb.FileDescriptorProto, len(fds))
	copy(out, fds)

	addIfReferenced := func(name string, build func() *descriptorpb.FileDescriptorProto) {
		if referenced[name] && !have[name] {
			out = append(out, build())
			have[name] = true
		}
	}
	addIfReferenced("google/protobuf/timestamp.proto", func() *descriptorpb.FileDescriptorProto {
		return protodesc.ToFileDescriptorProto((&timestamppb.Timestamp{}).ProtoReflect().Descriptor().ParentFile())
	})
	addIfReferenced("google/protobuf/duration.proto", func() *descriptorpb.FileDescriptorProto {
		return protodesc.ToFileDescriptorProto((&durationpb.Duration{}).ProtoReflect().Descriptor().ParentFile())
	})
	addIfReferenced("google/protobuf/empty.proto", func() *descriptorpb.FileDescriptorProto {
		return protodesc.ToFileDescriptorProto((&emptypb.Empty{}).ProtoReflect().Descriptor().ParentFile())
	})

	for _, fd := range out {
		for wellKnown := range referenced {
			if have[wellKnown] && fd.GetName() != wellKnown && referencesType(fd, wellKnown) && !hasDependency(fd, wellKnown) {
				fd.Dependency = append(fd.Dependency, wellKnown)
			}
		}
	}
	return out
}

func scanFieldsForWellKnown(msg *descriptorpb.DescriptorProto, referenced map[string]bool) {
	for _, f := range msg.GetField() {
		switch f.GetTypeName() {
		case ".google.protobuf.Timestamp":
			referenced["google/protobuf/timestamp.proto"] = true
		case ".google.protobuf.Duration":
			referenced["google/protobuf/duration.proto"] = true
		case ".google.protobuf.Empty":
			referenced["google/protobuf/empty.proto"] = true
		}
	}
	for _, nested := range msg.GetNestedType() {
		scanFieldsForWellKnown(nested, referenced)
	}
}

func referencesType(fd *descriptorpb.FileDescriptorProto, wellKnownFile string) bool {
	want := map[string]string{
		"google/protobuf/timestamp.proto": ".google.protobuf.Timestamp",
		"google/protobuf/duration.proto":  ".google.protobuf.Duration",
		"google/protobuf/empty.proto":     ".google.protobuf.Empty",
	}[wellKnownFile]
	for _, msg := range fd.GetMessageType() {
		if messageReferences(msg, want) {
			return true
		}
	}
	return false
}

func messageReferences(msg *descriptorpb.DescriptorProto, typeName string) bool {
	for _, f := range msg.GetField() {
		if f.GetTypeName() == typeName {
			return true
		}
	}
	for _, nested := range msg.GetNestedType() {
		if messageReferences(nested, typeName) {
			return true
		}
	}
	return false
}

func hasDependency(fd *descriptorpb.FileDescriptorProto, name string) bool {
	for _, d := range fd.GetDependency() {
		if d == name {
			return true
		}
	}
	return false
}
