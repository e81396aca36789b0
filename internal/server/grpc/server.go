// Package grpc exposes the chat services over gRPC.
package grpc

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/dmitrijs2005/gophchat/internal/chatrpc"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/broadcast"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"google.golang.org/grpc"
)

// AuthAPI is the login surface of services.AuthService.
type AuthAPI interface {
	GetPublicKey(ctx context.Context) (*services.PublicKey, error)
	Authenticate(ctx context.Context, cred services.Credential) (*services.Session, error)
}

// MessageAPI is the message surface of services.MessageService.
type MessageAPI interface {
	Send(ctx context.Context, in services.NewMessage) (*services.MessageView, error)
	List(ctx context.Context, q services.ListQuery) ([]*services.MessageView, error)
	Edit(ctx context.Context, id, text string) (*services.MessageView, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*services.Stats, error)
}

// TokenVerifier checks session tokens.
type TokenVerifier interface {
	Verify(token string) auth.Verification
}

// EventSource hands out event subscriptions.
type EventSource interface {
	Subscribe(topic string) (<-chan broadcast.Event, func())
}

type GRPCServer struct {
	chatrpc.UnimplementedChatServiceServer
	address  string
	auth     AuthAPI
	messages MessageAPI
	tokens   TokenVerifier
	events   EventSource
	logger   logging.Logger
	opts     []grpc.ServerOption

	// shutdown is closed before GracefulStop so open event streams end.
	shutdown chan struct{}
	stopOnce sync.Once
}

// NewGRPCServer builds the chat server. opts are passed to every grpc.Server
// it creates, e.g. grpc.MaxRecvMsgSize.
func NewGRPCServer(a string, l logging.Logger, as AuthAPI, ms MessageAPI, tv TokenVerifier, ev EventSource, opts ...grpc.ServerOption) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		auth:     as,
		messages: ms,
		tokens:   tv,
		events:   ev,
		opts:     opts,
		shutdown: make(chan struct{}),
	}
}

// NewServer builds a grpc.Server with the chat service and auth
// interceptors registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(append(opts, s.opts...),
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	)
	srv := grpc.NewServer(opts...)
	chatrpc.RegisterChatServiceServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done. Event streams are
// ended first, then in-flight calls are allowed to finish.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.stopOnce.Do(func() { close(s.shutdown) })
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}

	return nil
}
