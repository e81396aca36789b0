package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/chatrpc"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/cryptox"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// DefaultTimeout bounds unary calls when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// DefaultMaxMessageSize caps sent and received messages. A list page can
// carry many attachments, so it is far above grpc's 4 MiB receive default.
const DefaultMaxMessageSize = 256 << 20

// WithMaxMessageSize overrides DefaultMaxMessageSize in both directions.
func WithMaxMessageSize(n int) grpc.DialOption {
	return grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(n), grpc.MaxCallSendMsgSize(n))
}

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      chatrpc.ChatServiceClient

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time
	publicKey   *chatrpc.GetPublicKeyResponse
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if t := s.token(); t != "" && !chatrpc.PublicMethods[method] {
		ctx = withAccessToken(ctx, t)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (s *GRPCClient) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	if t := s.token(); t != "" {
		ctx = withAccessToken(ctx, t)
	}
	return streamer(ctx, desc, cc, method, opts...)
}

// NewChatClient connects to endpointURL. Extra dial options are appended
// after the defaults.
func NewChatClient(endpointURL string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithStreamInterceptor(s.streamAccessTokenInterceptor),
		WithMaxMessageSize(DefaultMaxMessageSize),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, dialOpts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = chatrpc.NewChatServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// PublicKey returns the cached server key, fetching it when absent or when
// refresh is set.
func (s *GRPCClient) PublicKey(ctx context.Context, refresh bool) (*chatrpc.GetPublicKeyResponse, error) {
	s.mu.RLock()
	pk := s.publicKey
	s.mu.RUnlock()
	if pk != nil && !refresh {
		return pk, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pk, err := s.client.GetPublicKey(ctx, &chatrpc.GetPublicKeyRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	if got := cryptox.Fingerprint(pk.PublicKeyPEM); got != pk.Fingerprint {
		return nil, fmt.Errorf("public key fingerprint mismatch: server sent %s, computed %s", pk.Fingerprint, got)
	}

	s.mu.Lock()
	s.publicKey = pk
	s.mu.Unlock()
	return pk, nil
}

// Login encrypts password with the server key and exchanges it for a
// session token. With plaintext set the password is sent as is.
func (s *GRPCClient) Login(ctx context.Context, password string, plaintext bool) error {
	if plaintext {
		return s.login(ctx, &chatrpc.LoginRequest{Credential: password})
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var pk *chatrpc.GetPublicKeyResponse
		pk, err = s.PublicKey(ctx, attempt > 0)
		if err != nil {
			return err
		}

		var enc string
		enc, err = cryptox.EncryptCredential(password, pk.PublicKeyPEM)
		if err != nil {
			return err
		}

		err = s.login(ctx, &chatrpc.LoginRequest{EncryptedCredential: enc})
		if !errors.Is(err, ErrStaleKey) {
			return err
		}
	}
	return err
}

func (s *GRPCClient) login(ctx context.Context, req *chatrpc.LoginRequest) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return s.mapError(err)
	}

	s.mu.Lock()
	s.accessToken = resp.Token
	s.expiresAt = resp.ExpiresAt
	s.mu.Unlock()
	return nil
}

// Logout forgets the session token. Tokens are stateless, so the server is
// not contacted.
func (s *GRPCClient) Logout() {
	s.mu.Lock()
	s.accessToken = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

func (s *GRPCClient) LoggedIn() bool {
	return s.token() != ""
}

func (s *GRPCClient) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *GRPCClient) Send(ctx context.Context, req *chatrpc.SendMessageRequest) (*chatrpc.Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.SendMessage(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Message, nil
}

func (s *GRPCClient) List(ctx context.Context, req *chatrpc.ListMessagesRequest) ([]*chatrpc.Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.ListMessages(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Messages, nil
}

func (s *GRPCClient) Edit(ctx context.Context, id, text string) (*chatrpc.Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.EditMessage(ctx, &chatrpc.EditMessageRequest{ID: id, Text: text})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Message, nil
}

func (s *GRPCClient) Delete(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.client.DeleteMessage(ctx, &chatrpc.DeleteMessageRequest{ID: id}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Stats(ctx context.Context) (*chatrpc.StatsResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Stats(ctx, &chatrpc.StatsRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

// Watch streams events into fn until ctx is cancelled or the server closes
// the stream. No timeout applies.
func (s *GRPCClient) Watch(ctx context.Context, fn func(*chatrpc.Event)) error {
	stream, err := s.client.Subscribe(ctx, &chatrpc.SubscribeRequest{})
	if err != nil {
		return s.mapError(err)
	}

	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return s.mapError(err)
		}
		fn(ev)
	}
}

// failureReason extracts the ErrorInfo reason attached to auth failures.
func failureReason(st *status.Status) string {
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.Reason
		}
	}
	return ""
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		if st.Message() == common.ErrTokenExpired.Error() {
			return ErrSessionExpired
		}
		if reason := failureReason(st); reason != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, reason)
		}
		return ErrUnauthorized
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.FailedPrecondition:
		return ErrStaleKey
	case codes.NotFound:
		return ErrNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidInput, st.Message())
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", ErrLimitExceeded, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
