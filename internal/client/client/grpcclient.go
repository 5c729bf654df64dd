package client

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/client/models"
	"github.com/dmitrijs2005/healthsync/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      recordService
	tokens      tokenStore
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if method == methodLogin || method == methodRefreshToken || method == methodPing {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	sess := s.tokens.get()
	if sess.RefreshToken != "" && tokenExpired(sess.AccessToken, time.Now()) {
		next, err := s.refresh(ctx, sess)
		if err != nil {
			return err
		}
		sess = next
	}

	err := invoker(withAccessToken(ctx, sess.AccessToken), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated {
		return err
	}
	if st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if sess.RefreshToken == "" {
		return err
	}

	next, err := s.refresh(ctx, sess)
	if err != nil {
		return err
	}
	return invoker(withAccessToken(ctx, next.AccessToken), method, req, reply, cc, opts...)
}

func (s *GRPCClient) refresh(ctx context.Context, sess Session) (Session, error) {
	resp, err := s.client.RefreshToken(ctx, wrapperspb.String(sess.RefreshToken))
	if err != nil {
		return Session{}, err
	}
	next := sessionFromStruct(resp)
	if next.RefreshToken == "" {
		next.RefreshToken = sess.RefreshToken
	}
	s.tokens.set(next)
	return next, nil
}

func NewGRPCClient(endpointURL string, timeout time.Duration) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}
	conn, err := grpc.NewClient(endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor))
	if err != nil {
		return nil, fmt.Errorf("grpc client: %w", err)
	}
	c.conn = conn
	c.client = newRecordServiceClient(conn)
	return c, nil
}

func sessionFromStruct(s *structpb.Struct) Session {
	f := s.GetFields()
	return Session{
		AccessToken:  f["access_token"].GetStringValue(),
		RefreshToken: f["refresh_token"].GetStringValue(),
	}
}

func (s *GRPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *GRPCClient) Session() Session  { return s.tokens.get() }
func (s *GRPCClient) Restore(x Session) { s.tokens.set(x) }

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Fetch(ctx context.Context, endpoint string) (models.Payload, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Get(ctx, wrapperspb.String(endpoint))
	if err != nil {
		return nil, mapGRPCError(ctx, "Get "+endpoint, err)
	}
	return resp.AsMap(), nil
}

func (s *GRPCClient) Send(ctx context.Context, method models.Method, endpoint string, payload models.Payload) (models.Payload, error) {
	body, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"method":   structpb.NewStringValue(string(method)),
		"endpoint": structpb.NewStringValue(endpoint),
		"payload":  structpb.NewStructValue(body),
	}}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Apply(ctx, req)
	if err != nil {
		return nil, mapGRPCError(ctx, "Apply "+endpoint, err)
	}
	if len(resp.GetFields()) == 0 {
		return nil, nil
	}
	return resp.AsMap(), nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Ping(ctx, &emptypb.Empty{})
	if err != nil {
		return mapGRPCError(ctx, "Ping", err)
	}
	if resp.GetValue() != "OK" {
		return &common.NetworkError{Op: "Ping", Err: fmt.Errorf("unexpected status %q", resp.GetValue())}
	}
	return nil
}

func (s *GRPCClient) Login(ctx context.Context, username, password string) error {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"username": structpb.NewStringValue(username),
		"password": structpb.NewStringValue(password),
	}}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return mapGRPCError(ctx, "Login", err)
	}
	sess := sessionFromStruct(resp)
	if sess.AccessToken == "" {
		return fmt.Errorf("login response carries no access token")
	}
	s.tokens.set(sess)
	return nil
}
