package grpcsvc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName — полное имя административного gRPC-сервиса.
const ServiceName = "bookstore.v1.OrderAdmin"

const (
	MethodCancelOrder    = "/" + ServiceName + "/CancelOrder"
	MethodSetOrderStatus = "/" + ServiceName + "/SetOrderStatus"
	MethodConfirmPayment = "/" + ServiceName + "/ConfirmPayment"
	MethodListOrders     = "/" + ServiceName + "/ListOrders"
	MethodAdjustStock    = "/" + ServiceName + "/AdjustStock"
	MethodGetAdminStats  = "/" + ServiceName + "/GetAdminStats"
)

// OrderAdminServer реализует серверную часть OrderAdmin.
// Сообщения передаются как google.protobuf.Struct.
type OrderAdminServer interface {
	CancelOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetOrderStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOrders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AdjustStock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAdminStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(OrderAdminServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OrderAdminServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(OrderAdminServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// OrderAdminServiceDesc описывает сервис для grpc.Server.
var OrderAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CancelOrder", Handler: unaryHandler(MethodCancelOrder, OrderAdminServer.CancelOrder)},
		{MethodName: "SetOrderStatus", Handler: unaryHandler(MethodSetOrderStatus, OrderAdminServer.SetOrderStatus)},
		{MethodName: "ConfirmPayment", Handler: unaryHandler(MethodConfirmPayment, OrderAdminServer.ConfirmPayment)},
		{MethodName: "ListOrders", Handler: unaryHandler(MethodListOrders, OrderAdminServer.ListOrders)},
		{MethodName: "AdjustStock", Handler: unaryHandler(MethodAdjustStock, OrderAdminServer.AdjustStock)},
		{MethodName: "GetAdminStats", Handler: unaryHandler(MethodGetAdminStats, OrderAdminServer.GetAdminStats)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: ProtoFile,
}

// ProtoFile — путь файлового дескриптора сервиса в protoregistry.GlobalFiles.
const ProtoFile = "bookstore/v1/order_admin.proto"

// Дескриптор собирается из OrderAdminServiceDesc и регистрируется глобально,
// чтобы grpc reflection (grpcurl describe/list) видел сервис без сгенерированного кода.
func init() {
	if err := registerFileDescriptor(); err != nil {
		panic(fmt.Sprintf("register %s: %v", ProtoFile, err))
	}
}

func orderAdminFileDescriptor() *descriptorpb.FileDescriptorProto {
	structType := "." + string((&structpb.Struct{}).ProtoReflect().Descriptor().FullName())

	service := &descriptorpb.ServiceDescriptorProto{Name: proto.String("OrderAdmin")}
	for _, m := range OrderAdminServiceDesc.Methods {
		service.Method = append(service.Method, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.MethodName),
			InputType:  proto.String(structType),
			OutputType: proto.String(structType),
		})
	}

	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(ProtoFile),
		Package:    proto.String("bookstore.v1"),
		Dependency: []string{structpb.File_google_protobuf_struct_proto.Path()},
		Service:    []*descriptorpb.ServiceDescriptorProto{service},
		Options:    &descriptorpb.FileOptions{GoPackage: proto.String("github.com/vladislavdragonenkov/bookstore/internal/service/grpc;grpcsvc")},
		Syntax:     proto.String("proto3"),
	}
}

func registerFileDescriptor() error {
	if _, err := protoregistry.GlobalFiles.FindFileByPath(ProtoFile); err == nil {
		return nil
	}
	file, err := protodesc.NewFile(orderAdminFileDescriptor(), protoregistry.GlobalFiles)
	if err != nil {
		return err
	}
	return protoregistry.GlobalFiles.RegisterFile(file)
}

// ServiceDescriptor возвращает зарегистрированный дескриптор OrderAdmin.
func ServiceDescriptor() (protoreflect.ServiceDescriptor, error) {
	desc, err := protoregistry.GlobalFiles.FindDescriptorByName(ServiceName)
	if err != nil {
		return nil, err
	}
	service, ok := desc.(protoreflect.ServiceDescriptor)
	if !ok {
		return nil, fmt.Errorf("%s is %T, not a service", ServiceName, desc)
	}
	return service, nil
}

// RegisterOrderAdminServer регистрирует реализацию на сервере.
func RegisterOrderAdminServer(s grpc.ServiceRegistrar, srv OrderAdminServer) {
	s.RegisterService(&OrderAdminServiceDesc, srv)
}

// OrderAdminClient — клиент OrderAdmin.
type OrderAdminClient struct {
	cc grpc.ClientConnInterface
}

// NewOrderAdminClient создаёт клиента поверх соединения.
func NewOrderAdminClient(cc grpc.ClientConnInterface) *OrderAdminClient {
	return &OrderAdminClient{cc: cc}
}

func (c *OrderAdminClient) invoke(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderAdminClient) CancelOrder(ctx context.Context, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCancelOrder, in, opts...)
}

func (c *OrderAdminClient) SetOrderStatus(ctx context.Context, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSetOrderStatus, in, opts...)
}

func (c *OrderAdminClient) ConfirmPayment(ctx context.Context, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodConfirmPayment, in, opts...)
}

func (c *OrderAdminClient) ListOrders(ctx context.Context, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListOrders, in, opts...)
}

func (c *OrderAdminClient) AdjustStock(ctx context.Context, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodAdjustStock, in, opts...)
}

func (c *OrderAdminClient) GetAdminStats(ctx context.Context, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetAdminStats, in, opts...)
}
