package chatrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "gophchat.ChatService"

const (
	MethodGetPublicKey  = "/" + ServiceName + "/GetPublicKey"
	MethodLogin         = "/" + ServiceName + "/Login"
	MethodSendMessage   = "/" + ServiceName + "/SendMessage"
	MethodListMessages  = "/" + ServiceName + "/ListMessages"
	MethodEditMessage   = "/" + ServiceName + "/EditMessage"
	MethodDeleteMessage = "/" + ServiceName + "/DeleteMessage"
	MethodStats         = "/" + ServiceName + "/Stats"
	MethodSubscribe     = "/" + ServiceName + "/Subscribe"
)

// PublicMethods may be called without a session token.
var PublicMethods = map[string]bool{
	MethodGetPublicKey: true,
	MethodLogin:        true,
}

// ChatServiceServer is implemented by the gRPC server.
type ChatServiceServer interface {
	GetPublicKey(context.Context, *GetPublicKeyRequest) (*GetPublicKeyResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	EditMessage(context.Context, *EditMessageRequest) (*EditMessageResponse, error)
	DeleteMessage(context.Context, *DeleteMessageRequest) (*DeleteMessageResponse, error)
	Stats(context.Context, *StatsRequest) (*StatsResponse, error)
	Subscribe(*SubscribeRequest, ChatService_SubscribeServer) error
}

// UnimplementedChatServiceServer can be embedded for forward compatibility.
type UnimplementedChatServiceServer struct{}

func (UnimplementedChatServiceServer) GetPublicKey(context.Context, *GetPublicKeyRequest) (*GetPublicKeyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPublicKey not implemented")
}
func (UnimplementedChatServiceServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedChatServiceServer) SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SendMessage not implemented")
}
func (UnimplementedChatServiceServer) ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListMessages not implemented")
}
func (UnimplementedChatServiceServer) EditMessage(context.Context, *EditMessageRequest) (*EditMessageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method EditMessage not implemented")
}
func (UnimplementedChatServiceServer) DeleteMessage(context.Context, *DeleteMessageRequest) (*DeleteMessageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteMessage not implemented")
}
func (UnimplementedChatServiceServer) Stats(context.Context, *StatsRequest) (*StatsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Stats not implemented")
}
func (UnimplementedChatServiceServer) Subscribe(*SubscribeRequest, ChatService_SubscribeServer) error {
	return status.Error(codes.Unimplemented, "method Subscribe not implemented")
}

// ChatService_SubscribeServer is the server side of the event stream.
type ChatService_SubscribeServer interface {
	Send(*Event) error
	grpc.ServerStream
}

type chatServiceSubscribeServer struct {
	grpc.ServerStream
}

func (x *chatServiceSubscribeServer) Send(e *Event) error {
	return x.ServerStream.SendMsg(e)
}

// RegisterChatServiceServer registers srv on s.
func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatService_ServiceDesc, srv)
}

func unary[Req, Resp any](method string, call func(ChatServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ChatServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ChatServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(SubscribeRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ChatServiceServer).Subscribe(in, &chatServiceSubscribeServer{stream})
}

// ChatService_ServiceDesc describes the service to grpc.Server.
var ChatService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetPublicKey", Handler: unary(MethodGetPublicKey, ChatServiceServer.GetPublicKey)},
		{MethodName: "Login", Handler: unary(MethodLogin, ChatServiceServer.Login)},
		{MethodName: "SendMessage", Handler: unary(MethodSendMessage, ChatServiceServer.SendMessage)},
		{MethodName: "ListMessages", Handler: unary(MethodListMessages, ChatServiceServer.ListMessages)},
		{MethodName: "EditMessage", Handler: unary(MethodEditMessage, ChatServiceServer.EditMessage)},
		{MethodName: "DeleteMessage", Handler: unary(MethodDeleteMessage, ChatServiceServer.DeleteMessage)},
		{MethodName: "Stats", Handler: unary(MethodStats, ChatServiceServer.Stats)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "chat.proto",
}
