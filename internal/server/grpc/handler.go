package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/chatrpc"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) GetPublicKey(ctx context.Context, req *chatrpc.GetPublicKeyRequest) (*chatrpc.GetPublicKeyResponse, error) {
	pk, err := s.auth.GetPublicKey(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &chatrpc.GetPublicKeyResponse{PublicKeyPEM: pk.PEM, Fingerprint: pk.Fingerprint}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *chatrpc.LoginRequest) (*chatrpc.LoginResponse, error) {
	s.logger.Info(ctx, "Login request", "encrypted", req.EncryptedCredential != "")

	sess, err := s.auth.Authenticate(ctx, services.Credential{
		Encrypted: req.EncryptedCredential,
		Plaintext: req.Credential,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &chatrpc.LoginResponse{
		Token:      sess.Token,
		TTLSeconds: int64(sess.TTL.Seconds()),
		ExpiresAt:  sess.ExpiresAt,
	}, nil
}

func (s *GRPCServer) SendMessage(ctx context.Context, req *chatrpc.SendMessageRequest) (*chatrpc.SendMessageResponse, error) {
	v, err := s.messages.Send(ctx, services.NewMessage{
		Text:  req.Text,
		Image: toUpload(req.Image),
		File:  toUpload(req.File),
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &chatrpc.SendMessageResponse{Message: toMessage(v)}, nil
}

func (s *GRPCServer) ListMessages(ctx context.Context, req *chatrpc.ListMessagesRequest) (*chatrpc.ListMessagesResponse, error) {
	views, err := s.messages.List(ctx, services.ListQuery{
		Before:   derefTime(req.Before),
		After:    derefTime(req.After),
		Limit:    int(req.Limit),
		Contains: req.Contains,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out := make([]*chatrpc.Message, 0, len(views))
	for _, v := range views {
		out = append(out, toMessage(v))
	}
	return &chatrpc.ListMessagesResponse{Messages: out}, nil
}

func (s *GRPCServer) EditMessage(ctx context.Context, req *chatrpc.EditMessageRequest) (*chatrpc.EditMessageResponse, error) {
	v, err := s.messages.Edit(ctx, req.ID, req.Text)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &chatrpc.EditMessageResponse{Message: toMessage(v)}, nil
}

func (s *GRPCServer) DeleteMessage(ctx context.Context, req *chatrpc.DeleteMessageRequest) (*chatrpc.DeleteMessageResponse, error) {
	if err := s.messages.Delete(ctx, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &chatrpc.DeleteMessageResponse{}, nil
}

func (s *GRPCServer) Stats(ctx context.Context, req *chatrpc.StatsRequest) (*chatrpc.StatsResponse, error) {
	st, err := s.messages.Stats(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &chatrpc.StatsResponse{Messages: st.Messages, StoredBytes: st.StoredBytes, Quota: st.Quota}, nil
}

// Subscribe streams message events until the client goes away, the server
// stops or the hub shuts down.
func (s *GRPCServer) Subscribe(req *chatrpc.SubscribeRequest, stream chatrpc.ChatService_SubscribeServer) error {
	ctx := stream.Context()

	events, cancel := s.events.Subscribe(common.MessagesTopic)
	defer cancel()

	s.logger.Info(ctx, "subscriber connected")
	defer s.logger.Info(ctx, "subscriber disconnected")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.shutdown:
			return status.Error(codes.Unavailable, "server is shutting down")
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			me, ok := ev.Payload.(services.MessageEvent)
			if !ok {
				continue
			}
			if err := stream.Send(toEvent(me)); err != nil {
				return err
			}
		}
	}
}
