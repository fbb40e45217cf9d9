package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "ledger.v1.LedgerService"

// LedgerServiceServer is the server API for LedgerService.
// Every message is a google.protobuf.Struct.
type LedgerServiceServer interface {
	OpenAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Deposit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Withdraw(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Transfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CloseAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTransactions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAccountsForCustomer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCustomerSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterCustomer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCustomer(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterLedgerServiceServer registers srv on s
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerService_ServiceDesc, srv)
}

// LedgerService_ServiceDesc describes LedgerService for grpc.Server
var LedgerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "OpenAccount", Handler: unaryHandler("OpenAccount", LedgerServiceServer.OpenAccount)},
		{MethodName: "GetAccount", Handler: unaryHandler("GetAccount", LedgerServiceServer.GetAccount)},
		{MethodName: "Deposit", Handler: unaryHandler("Deposit", LedgerServiceServer.Deposit)},
		{MethodName: "Withdraw", Handler: unaryHandler("Withdraw", LedgerServiceServer.Withdraw)},
		{MethodName: "Transfer", Handler: unaryHandler("Transfer", LedgerServiceServer.Transfer)},
		{MethodName: "CloseAccount", Handler: unaryHandler("CloseAccount", LedgerServiceServer.CloseAccount)},
		{MethodName: "ListTransactions", Handler: unaryHandler("ListTransactions", LedgerServiceServer.ListTransactions)},
		{MethodName: "ListAccountsForCustomer", Handler: unaryHandler("ListAccountsForCustomer", LedgerServiceServer.ListAccountsForCustomer)},
		{MethodName: "GetCustomerSummary", Handler: unaryHandler("GetCustomerSummary", LedgerServiceServer.GetCustomerSummary)},
		{MethodName: "RegisterCustomer", Handler: unaryHandler("RegisterCustomer", LedgerServiceServer.RegisterCustomer)},
		{MethodName: "GetCustomer", Handler: unaryHandler("GetCustomer", LedgerServiceServer.GetCustomer)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger/v1/ledger.proto",
}

type unaryMethod func(LedgerServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + ServiceName + "/" + name

	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServiceServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(LedgerServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// LedgerServiceClient is the client API for LedgerService
type LedgerServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewLedgerServiceClient creates a client over cc
func NewLedgerServiceClient(cc grpc.ClientConnInterface) *LedgerServiceClient {
	return &LedgerServiceClient{cc: cc}
}

// Call invokes method with in and returns the decoded response
func (c *LedgerServiceClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) OpenAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, "OpenAccount", in, opts...)
}

func (c *LedgerServiceClient) GetAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, "GetAccount", in, opts...)
}

func (c *LedgerServiceClient) Deposit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, "Deposit", in, opts...)
}

func (c *LedgerServiceClient) Withdraw(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, "Withdraw", in, opts...)
}

func (c *LedgerServiceClient) Transfer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, "Transfer", in, opts...)
}

func (c *LedgerServiceClient) CloseAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, "CloseAccount", in, opts...)
}

func (c *LedgerServiceClient) ListTransactions(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, "ListTransactions", in, opts...)
}

func (c *LedgerServiceClient) ListAccountsForCustomer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, "ListAccountsForCustomer", in, opts...)
}

func (c *LedgerServiceClient) GetCustomerSummary(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, "GetCustomerSummary", in, opts...)
}

func (c *LedgerServiceClient) RegisterCustomer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, "RegisterCustomer", in, opts...)
}

func (c *LedgerServiceClient) GetCustomer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.Call(ctx, "GetCustomer", in, opts...)
}
