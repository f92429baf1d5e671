package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/emptypb"
)

func sampleFileDescriptorSet(t *testing.T) []*descriptorpb.FileDescriptorProto {
	t.Helper()
	name := "user.proto"
	pkg := "user"
	strType := descriptorpb.FieldDescriptorProto_TYPE_STRING
	label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	fd := &descriptorpb.FileDescriptorProto{
		Name:    &name,
		Package: &pkg,
		Syntax:  strPtr("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: strPtr("GetUserRequest"),
				Field: []*descriptorpb.FieldDescriptorProto{
					{Name: strPtr("id"), Number: int32Ptr(1), Type: &strType, Label: &label},
				},
			},
			{
				Name: strPtr("GetUserResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{
					{Name: strPtr("name"), Number: int32Ptr(1), Type: &strType, Label: &label},
				},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{
			{
				Name: strPtr("UserService"),
				Method: []*descriptorpb.MethodDescriptorProto{
					{
						Name:       strPtr("GetUser"),
						InputType:  strPtr(".user.GetUserRequest"),
						OutputType: strPtr(".user.GetUserResponse"),
					},
				},
			},
		},
	}
	return []*descriptorpb.FileDescriptorProto{fd}
}

func strPtr(s string) *string { return &s }
func int32Ptr(i int32) *int32 { return &i }

func TestNewDescriptorPool_FindMethod(t *testing.T) {
	pool, err := NewDescriptorPool("user.UserService", sampleFileDescriptorSet(t))
	require.NoError(t, err)

	desc, err := pool.FindMethod("user.UserService/GetUser")
	require.NoError(t, err)
	assert.Equal(t, "GetUser", string(desc.Name()))
	assert.Equal(t, "GetUserRequest", string(desc.Input().Name()))
}

func TestNewDescriptorPool_FindMethod_UnknownMethod(t *testing.T) {
	pool, err := NewDescriptorPool("user.UserService", sampleFileDescriptorSet(t))
	require.NoError(t, err)

	_, err = pool.FindMethod("user.UserService/DeleteEverything")
	assert.Error(t, err)
}

func TestPatchWellKnownTypes_AppendsTimestampWhenReferenced(t *testing.T) {
	fds := sampleFileDescriptorSet(t)
	tsType := ".google.protobuf.Timestamp"
	tType := descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
	label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	fds[0].MessageType[1].Field = append(fds[0].MessageType[1].Field, &descriptorpb.FieldDescriptorProto{
		Name: strPtr("created_at"), Number: int32Ptr(2), Type: &tType, Label: &label, TypeName: &tsType,
	})

	patched := patchWellKnownTypes(fds)
	var found bool
	for _, fd := range patched {
		if fd.GetName() == "google/protobuf/timestamp.proto" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPatchWellKnownTypes_EmptyRemainsUnpatchedWhenUnreferenced(t *testing.T) {
	fds := sampleFileDescriptorSet(t)
	patched := patchWellKnownTypes(fds)
	assert.Len(t, patched, len(fds))
}

func TestProtodescRoundTripSanity(t *testing.T) {
	// Confirms protodesc.ToFileDescriptorProto is usable the way patchWellKnownTypes uses it.
	fd := protodesc.ToFileDescriptorProto((&emptypb.Empty{}).ProtoReflect().Descriptor().ParentFile())
	assert.Equal(t, "google/protobuf/empty.proto", fd.GetName())
}
