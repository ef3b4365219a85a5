package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/pulse/internal/api"
	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newTestServer(secret string) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", logging.Nop{}, Services{}, secret)
}

func TestInterceptor_PublicMethodsSkipAuth(t *testing.T) {
	s := newTestServer(testSecret)

	for _, name := range []string{"Ping", "Register", "Login", "RefreshToken", "Logout"} {
		t.Run(name, func(t *testing.T) {
			info := &grpc.UnaryServerInfo{FullMethod: api.FullMethod(name)}
			called := false
			h := func(ctx context.Context, req interface{}) (interface{}, error) {
				called = true
				return "ok", nil
			}

			resp, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
			require.NoError(t, err)
			assert.Equal(t, "ok", resp)
			assert.True(t, called)
		})
	}
}

func TestInterceptor_ProtectedMethod(t *testing.T) {
	s := newTestServer(testSecret)

	valid, err := auth.GenerateToken("user-123", []byte(testSecret), time.Hour)
	require.NoError(t, err)
	expired, err := auth.GenerateToken("user-123", []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	foreign, err := auth.GenerateToken("user-123", []byte("other"), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantMsg string
		wantID  string
	}{
		{name: "missing", token: "", wantMsg: "missing token"},
		{name: "malformed", token: "not-a-valid-jwt", wantMsg: "invalid token"},
		{name: "wrong secret", token: foreign, wantMsg: "invalid token"},
		{name: "expired", token: expired, wantMsg: "token expired"},
		{name: "valid", token: valid, wantID: "user-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.token != "" {
				ctx = metadata.NewIncomingContext(ctx, metadata.New(map[string]string{
					common.AccessTokenHeaderName: tt.token,
				}))
			}
			info := &grpc.UnaryServerInfo{FullMethod: api.FullMethod("SendMessage")}

			var gotID string
			h := func(ctx context.Context, req interface{}) (interface{}, error) {
				gotID, _ = userIDFromContext(ctx)
				return "ok", nil
			}

			_, err := s.accessTokenInterceptor(ctx, nil, info, h)
			if tt.wantMsg != "" {
				require.Error(t, err)
				assert.Equal(t, codes.Unauthenticated, status.Code(err))
				assert.Equal(t, tt.wantMsg, status.Convert(err).Message())
				assert.Empty(t, gotID, "handler must not run")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, gotID)
		})
	}
}
