package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/cryptox"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain tags ErrorInfo details attached to auth failures.
const ErrorDomain = "gophchat"

// authStatus maps a login refusal to a status carrying the failure kind in
// an ErrorInfo detail. The message stays generic.
func authStatus(ae *services.AuthError) error {
	code := codes.Unauthenticated
	switch ae.Kind {
	case services.KindDecryptionFailed:
		code = codes.FailedPrecondition
		if errors.Is(ae.Err, cryptox.ErrMalformedCiphertext) {
			code = codes.InvalidArgument
		}
	case services.KindExpiredCredentialPolicy:
		code = codes.PermissionDenied
	}

	st := status.New(code, "authentication failed: "+string(ae.Kind))
	if withInfo, err := st.WithDetails(&errdetails.ErrorInfo{Reason: string(ae.Kind), Domain: ErrorDomain}); err == nil {
		st = withInfo
	}
	return st.Err()
}

// toStatus translates service errors into gRPC statuses. Unknown errors
// are logged and reported as Internal without detail.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var ae *services.AuthError
	switch {
	case errors.As(err, &ae):
		return authStatus(ae)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrPayloadTooLarge):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, common.ErrQuotaExceeded):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
