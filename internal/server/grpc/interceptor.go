package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/chatrpc"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if err := s.authorize(ctx, info.FullMethod); err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

func (s *GRPCServer) streamAccessTokenInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if err := s.authorize(ss.Context(), info.FullMethod); err != nil {
		return err
	}
	return handler(srv, ss)
}

// authorize lets public methods through and requires a valid session token
// on everything else. Expired and invalid tokens get different messages so
// a client can tell "log in again" from "rejected".
func (s *GRPCServer) authorize(ctx context.Context, method string) error {
	if chatrpc.PublicMethods[method] {
		return nil
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return status.Error(codes.Unauthenticated, "missing token")
	}

	v := s.tokens.Verify(accessToken)
	if v.Valid {
		return nil
	}
	if v.Reason == auth.ReasonExpired {
		return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	}
	s.logger.Warn(ctx, "rejected token", "method", method, "reason", v.Reason)
	return status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
}
