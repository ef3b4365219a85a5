package api

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pulse.PulseService"

// FullMethod returns "/pulse.PulseService/<name>".
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// PulseServiceServer is implemented by the server transport.
type PulseServiceServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	MarkMessagesRead(context.Context, *MarkMessagesReadRequest) (*MarkReadResponse, error)
	CountUnreadMessages(context.Context, *CountUnreadRequest) (*CountUnreadResponse, error)
	CreateNotification(context.Context, *CreateNotificationRequest) (*CreateNotificationResponse, error)
	MarkNotificationsRead(context.Context, *MarkNotificationsReadRequest) (*MarkReadResponse, error)
	CountUnreadNotifications(context.Context, *CountUnreadRequest) (*CountUnreadResponse, error)
	RegisterPushToken(context.Context, *RegisterPushTokenRequest) (*RegisterPushTokenResponse, error)
	UnregisterPushToken(context.Context, *UnregisterPushTokenRequest) (*UnregisterPushTokenResponse, error)
	CreatePulse(context.Context, *CreatePulseRequest) (*CreatePulseResponse, error)
	ListPulses(context.Context, *ListPulsesRequest) (*ListPulsesResponse, error)
}

func unary[Req, Resp any](name string, call func(PulseServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := FullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PulseServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PulseServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc is registered on a *grpc.Server via RegisterPulseServiceServer.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PulseServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", PulseServiceServer.Ping),
		unary("Register", PulseServiceServer.Register),
		unary("Login", PulseServiceServer.Login),
		unary("RefreshToken", PulseServiceServer.RefreshToken),
		unary("Logout", PulseServiceServer.Logout),
		unary("SendMessage", PulseServiceServer.SendMessage),
		unary("MarkMessagesRead", PulseServiceServer.MarkMessagesRead),
		unary("CountUnreadMessages", PulseServiceServer.CountUnreadMessages),
		unary("CreateNotification", PulseServiceServer.CreateNotification),
		unary("MarkNotificationsRead", PulseServiceServer.MarkNotificationsRead),
		unary("CountUnreadNotifications", PulseServiceServer.CountUnreadNotifications),
		unary("RegisterPushToken", PulseServiceServer.RegisterPushToken),
		unary("UnregisterPushToken", PulseServiceServer.UnregisterPushToken),
		unary("CreatePulse", PulseServiceServer.CreatePulse),
		unary("ListPulses", PulseServiceServer.ListPulses),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pulse/api",
}

func RegisterPulseServiceServer(s grpc.ServiceRegistrar, srv PulseServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// PulseServiceClient is the client view of the service.
type PulseServiceClient interface {
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error)
	Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error)
	SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error)
	MarkMessagesRead(ctx context.Context, in *MarkMessagesReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error)
	CountUnreadMessages(ctx context.Context, in *CountUnreadRequest, opts ...grpc.CallOption) (*CountUnreadResponse, error)
	CreateNotification(ctx context.Context, in *CreateNotificationRequest, opts ...grpc.CallOption) (*CreateNotificationResponse, error)
	MarkNotificationsRead(ctx context.Context, in *MarkNotificationsReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error)
	CountUnreadNotifications(ctx context.Context, in *CountUnreadRequest, opts ...grpc.CallOption) (*CountUnreadResponse, error)
	RegisterPushToken(ctx context.Context, in *RegisterPushTokenRequest, opts ...grpc.CallOption) (*RegisterPushTokenResponse, error)
	UnregisterPushToken(ctx context.Context, in *UnregisterPushTokenRequest, opts ...grpc.CallOption) (*UnregisterPushTokenResponse, error)
	CreatePulse(ctx context.Context, in *CreatePulseRequest, opts ...grpc.CallOption) (*CreatePulseResponse, error)
	ListPulses(ctx context.Context, in *ListPulsesRequest, opts ...grpc.CallOption) (*ListPulsesResponse, error)
}

type pulseServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPulseServiceClient wraps cc. Every call is sent with the JSON codec.
func NewPulseServiceClient(cc grpc.ClientConnInterface) PulseServiceClient {
	return &pulseServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *pulseServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, "Ping", in, opts)
}

func (c *pulseServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, "Register", in, opts)
}

func (c *pulseServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, "Login", in, opts)
}

func (c *pulseServiceClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error) {
	return invoke[RefreshTokenResponse](ctx, c.cc, "RefreshToken", in, opts)
}

func (c *pulseServiceClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutResponse](ctx, c.cc, "Logout", in, opts)
}

func (c *pulseServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageResponse](ctx, c.cc, "SendMessage", in, opts)
}

func (c *pulseServiceClient) MarkMessagesRead(ctx context.Context, in *MarkMessagesReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error) {
	return invoke[MarkReadResponse](ctx, c.cc, "MarkMessagesRead", in, opts)
}

func (c *pulseServiceClient) CountUnreadMessages(ctx context.Context, in *CountUnreadRequest, opts ...grpc.CallOption) (*CountUnreadResponse, error) {
	return invoke[CountUnreadResponse](ctx, c.cc, "CountUnreadMessages", in, opts)
}

func (c *pulseServiceClient) CreateNotification(ctx context.Context, in *CreateNotificationRequest, opts ...grpc.CallOption) (*CreateNotificationResponse, error) {
	return invoke[CreateNotificationResponse](ctx, c.cc, "CreateNotification", in, opts)
}

func (c *pulseServiceClient) MarkNotificationsRead(ctx context.Context, in *MarkNotificationsReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error) {
	return invoke[MarkReadResponse](ctx, c.cc, "MarkNotificationsRead", in, opts)
}

func (c *pulseServiceClient) CountUnreadNotifications(ctx context.Context, in *CountUnreadRequest, opts ...grpc.CallOption) (*CountUnreadResponse, error) {
	return invoke[CountUnreadResponse](ctx, c.cc, "CountUnreadNotifications", in, opts)
}

func (c *pulseServiceClient) RegisterPushToken(ctx context.Context, in *RegisterPushTokenRequest, opts ...grpc.CallOption) (*RegisterPushTokenResponse, error) {
	return invoke[RegisterPushTokenResponse](ctx, c.cc, "RegisterPushToken", in, opts)
}

func (c *pulseServiceClient) UnregisterPushToken(ctx context.Context, in *UnregisterPushTokenRequest, opts ...grpc.CallOption) (*UnregisterPushTokenResponse, error) {
	return invoke[UnregisterPushTokenResponse](ctx, c.cc, "UnregisterPushToken", in, opts)
}

func (c *pulseServiceClient) CreatePulse(ctx context.Context, in *CreatePulseRequest, opts ...grpc.CallOption) (*CreatePulseResponse, error) {
	return invoke[CreatePulseResponse](ctx, c.cc, "CreatePulse", in, opts)
}

func (c *pulseServiceClient) ListPulses(ctx context.Context, in *ListPulsesRequest, opts ...grpc.CallOption) (*ListPulsesResponse, error) {
	return invoke[ListPulsesResponse](ctx, c.cc, "ListPulses", in, opts)
}
