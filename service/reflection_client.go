package service

import (
	"context"
	"errors"
	"io"

	"apigateway/helpers"
	"apigateway/interfaces"

	"github.com/go-kit/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

// ErrReflectionNotSupported is returned when a backend answers Unimplemented for
// server reflection, distinguishing "no reflection" from "unreachable" per §4.4.
var ErrReflectionNotSupported = errors.New("backend does not support server reflection")

// reflectionClient implements interfaces.ReflectionClient over
// grpc_reflection_v1.ServerReflectionClient (component C4).
type reflectionClient struct {
	conn   *grpc.ClientConn
	logger log.Logger
}

// NewReflectionClient builds a reflectionClient over conn. Panics on nil logger.
//
// Called from cmd/main: once for the auth backend at startup, and through the discovery
// factory on every discovery pass of each auto-discover backend.
func NewReflectionClient(conn *grpc.ClientConn, logger log.Logger) interfaces.ReflectionClient {
	return &reflectionClient{
		conn:   helpers.NilPanic(conn, "service.reflection_client.go: conn is required"),
		logger: helpers.NilPanic(logger, "service.reflection_client.go: logger is required"),
	}
}

// ListServices returns every service full name except reflection/health. See
// interfaces.ReflectionClient.
func (r *reflectionClient) ListServices(ctx context.Context) ([]string, error) {
	client := grpc_reflection_v1.NewServerReflectionClient(r.conn)
	stream, err := client.ServerReflectionInfo(ctx)
	if err != nil {
		return nil, classifyReflectionErr(err)
	}
	defer stream.CloseSend()

	if err := stream.Send(&grpc_reflection_v1.ServerReflectionRequest{
		MessageRequest: &grpc_reflection_v1.ServerReflectionRequest_ListServices{},
	}); err != nil {
		return nil, classifyReflectionErr(err)
	}
	resp, err := stream.Recv()
	if err != nil {
		return nil, classifyReflectionErr(err)
	}
	list := resp.GetListServicesResponse()
	if list == nil {
		return nil, errors.New("service.reflection_client.go: empty ListServices response")
	}
	var names []string
	for _, s := range list.GetService() {
		if s.GetName() == "grpc.reflection.v1.ServerReflection" ||
			s.GetName() == "grpc.reflection.v1alpha.ServerReflection" ||
			s.GetName() == "grpc.health.v1.Health" {
			continue
		}
		names = append(names, s.GetName())
	}
	return names, nil
}

// ListMethods returns methods and FileDescriptorProtos for serviceFullName. See
// interfaces.ReflectionClient.
func (r *reflectionClient) ListMethods(ctx context.Context, serviceFullName string) ([]interfaces.DiscoveredMethod, []*descriptorpb.FileDescriptorProto, error) {
	client := grpc_reflection_v1.NewServerReflectionClient(r.conn)
	stream, err := client.ServerReflectionInfo(ctx)
	if err != nil {
		return nil, nil, classifyReflectionErr(err)
	}
	defer stream.CloseSend()

	if err := stream.Send(&grpc_reflection_v1.ServerReflectionRequest{
		MessageRequest: &grpc_reflection_v1.ServerReflectionRequest_FileContainingSymbol{
			FileContainingSymbol: serviceFullName,
		},
	}); err != nil {
		return nil, nil, classifyReflectionErr(err)
	}
	resp, err := stream.Recv()
	if err != nil {
		if err == io.EOF {
			return nil, nil, errors.New("service.reflection_client.go: stream closed before response")
		}
		return nil, nil, classifyReflectionErr(err)
	}
	fdResp := resp.GetFileDescriptorResponse()
	if fdResp == nil {
		if errResp := resp.GetErrorResponse(); errResp != nil {
			return nil, nil, errors.New("service.reflection_client.go: " + errResp.GetErrorMessage())
		}
		return nil, nil, errors.New("service.reflection_client.go: empty FileContainingSymbol response")
	}

	files := make([]*descriptorpb.FileDescriptorProto, 0, len(fdResp.GetFileDescriptorProto()))
	for _, raw := range fdResp.GetFileDescriptorProto() {
		fd := &descriptorpb.FileDescriptorProto{}
		if err := proto.Unmarshal(raw, fd); err != nil {
			return nil, nil, err
		}
		files = append(files, fd)
	}

	var methods []interfaces.DiscoveredMethod
	for _, fd := range files {
		for _, svc := range fd.GetService() {
			full := fd.GetPackage() + "." + svc.GetName()
			if full != serviceFullName && svc.GetName() != serviceFullName {
				continue
			}
			for _, m := range svc.GetMethod() {
				methods = append(methods, interfaces.DiscoveredMethod{
					ServiceFullName: full,
					MethodName:      m.GetName(),
					FullMethod:      full + "/" + m.GetName(),
				})
			}
		}
	}
	return methods, files, nil
}

func classifyReflectionErr(err error) error {
	if status.Code(err) == codes.Unimplemented {
		return ErrReflectionNotSupported
	}
	return err
}
