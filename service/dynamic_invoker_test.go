package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/reflect/protoreflect"
)

type fakeDescriptorPool struct {
	err error
}

func (f *fakeDescriptorPool) FindMethod(fullMethod string) (protoreflect.MethodDescriptor, error) {
	return nil, f.err
}

func TestDynamicInvoker_PropagatesDescriptorLookupError(t *testing.T) {
	invoker := NewDynamicInvoker()
	pool := &fakeDescriptorPool{err: errors.New("not found")}

	_, err := invoker.Invoke(context.Background(), &grpc.ClientConn{}, pool, "pkg.Svc/Method", []byte(`{}`), metadata.MD{})
	assert.ErrorContains(t, err, "not found")
}
