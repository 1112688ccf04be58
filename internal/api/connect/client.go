package connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ReaderClient is a client for the ReaderService.
type ReaderClient struct {
	loadText  *connect.Client[wrapperspb.StringValue, structpb.Struct]
	setSpeed  *connect.Client[wrapperspb.StringValue, structpb.Struct]
	start     *connect.Client[emptypb.Empty, structpb.Struct]
	pause     *connect.Client[emptypb.Empty, structpb.Struct]
	rewind    *connect.Client[emptypb.Empty, structpb.Struct]
	fetch     *connect.Client[structpb.Struct, structpb.Struct]
	getStatus *connect.Client[emptypb.Empty, structpb.Struct]
	subscribe *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewReaderClient creates a client for the service at baseURL. The token is
// sent with every unary call.
func NewReaderClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *ReaderClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{
		connect.WithInterceptors(NewControlTokenInterceptor(token)),
	}, opts...)

	return &ReaderClient{
		loadText:  connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+ProcedureLoadText, opts...),
		setSpeed:  connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+ProcedureSetSpeed, opts...),
		start:     connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+ProcedureStart, opts...),
		pause:     connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+ProcedurePause, opts...),
		rewind:    connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+ProcedureRewind, opts...),
		fetch:     connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ProcedureFetch, opts...),
		getStatus: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+ProcedureGetStatus, opts...),
		subscribe: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+ProcedureSubscribe, opts...),
	}
}

// LoadText replaces the text on the server.
func (c *ReaderClient) LoadText(ctx context.Context, text string) (*structpb.Struct, error) {
	return unary(ctx, c.loadText, wrapperspb.String(text))
}

// SetSpeed sets the reading speed.
func (c *ReaderClient) SetSpeed(ctx context.Context, wpm string) (*structpb.Struct, error) {
	return unary(ctx, c.setSpeed, wrapperspb.String(wpm))
}

// Start starts or resumes playback.
func (c *ReaderClient) Start(ctx context.Context) (*structpb.Struct, error) {
	return unary(ctx, c.start, &emptypb.Empty{})
}

// Pause pauses playback.
func (c *ReaderClient) Pause(ctx context.Context) (*structpb.Struct, error) {
	return unary(ctx, c.pause, &emptypb.Empty{})
}

// Rewind moves back to the first word.
func (c *ReaderClient) Rewind(ctx context.Context) (*structpb.Struct, error) {
	return unary(ctx, c.rewind, &emptypb.Empty{})
}

// Fetch asks the server to acquire text from url.
func (c *ReaderClient) Fetch(ctx context.Context, email, password, url string) (*structpb.Struct, error) {
	return unary(ctx, c.fetch, &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldEmail:    structpb.NewStringValue(email),
		FieldPassword: structpb.NewStringValue(password),
		FieldURL:      structpb.NewStringValue(url),
	}})
}

// GetStatus returns the session status.
func (c *ReaderClient) GetStatus(ctx context.Context) (*structpb.Struct, error) {
	return unary(ctx, c.getStatus, &emptypb.Empty{})
}

// Subscribe opens the notification stream. The caller must close it.
func (c *ReaderClient) Subscribe(ctx context.Context) (*connect.ServerStreamForClient[structpb.Struct], error) {
	return c.subscribe.CallServerStream(ctx, connect.NewRequest(&emptypb.Empty{}))
}

func unary[Req any](ctx context.Context, client *connect.Client[Req, structpb.Struct], msg *Req) (*structpb.Struct, error) {
	res, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}
