package service

import (
	"context"
	"fmt"

	"apigateway/interfaces"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/dynamicpb"
)

// dynamicInvoker implements interfaces.DynamicInvoker: JSON in, proto out, over an
// arbitrary discovered method, with no compiled client stub (component C7).
type dynamicInvoker struct{}

// NewDynamicInvoker builds a stateless dynamicInvoker; there is one process-wide
// instance, since it carries no per-backend state (the DescriptorPool and
// *grpc.ClientConn are passed per call).
func NewDynamicInvoker() interfaces.DynamicInvoker {
	return &dynamicInvoker{}
}

// Invoke marshals jsonPayload into the resolved method's input type, issues a unary
// call, and marshals the response back to JSON. See interfaces.DynamicInvoker.
func (d *dynamicInvoker) Invoke(ctx context.Context, conn *grpc.ClientConn, pool interfaces.DescriptorPool, fullMethod string, jsonPayload []byte, outMD metadata.MD) ([]byte, error) {
	methodDesc, err := pool.FindMethod(fullMethod)
	if err != nil {
		return nil, err
	}

	reqMsg := dynamicpb.NewMessage(methodDesc.Input())
	if len(jsonPayload) > 0 {
		if err := protojson.Unmarshal(jsonPayload, reqMsg); err != nil {
			return nil, fmt.Errorf("dynamic_invoker: unmarshal request: %w", err)
		}
	}

	respMsg := dynamicpb.NewMessage(methodDesc.Output())
	callCtx := ctx
	if outMD.Len() > 0 {
		callCtx = metadata.NewOutgoingContext(ctx, outMD)
	}

	if err := conn.Invoke(callCtx, "/"+fullMethod, reqMsg, respMsg); err != nil {
		return nil, err
	}

	out, err := protojson.Marshal(respMsg)
	if err != nil {
		return nil, fmt.Errorf("dynamic_invoker: marshal response: %w", err)
	}
	return out, nil
}
