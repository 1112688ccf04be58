package connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/osa030/flashread/internal/app/playback"
	"github.com/osa030/flashread/internal/app/session"
	"github.com/osa030/flashread/internal/app/source"
	"github.com/osa030/flashread/internal/infra/config"
)

// ReaderService implements the ReaderService RPC.
type ReaderService struct {
	session *session.Manager
	config  *config.Config
}

// NewReaderService creates a new ReaderService.
func NewReaderService(session *session.Manager, cfg *config.Config) *ReaderService {
	return &ReaderService{
		session: session,
		config:  cfg,
	}
}

// NewReaderServiceHandler builds an HTTP handler serving every procedure of
// the service, and returns the path on which to mount it. Control procedures
// require the control token; GetStatus and Subscribe are public.
func NewReaderServiceHandler(svc *ReaderService, opts ...connect.HandlerOption) (string, http.Handler) {
	control := append([]connect.HandlerOption{
		connect.WithInterceptors(NewControlAuthInterceptor(svc.config)),
	}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ProcedureLoadText, connect.NewUnaryHandler(ProcedureLoadText, svc.LoadText, control...))
	mux.Handle(ProcedureSetSpeed, connect.NewUnaryHandler(ProcedureSetSpeed, svc.SetSpeed, control...))
	mux.Handle(ProcedureStart, connect.NewUnaryHandler(ProcedureStart, svc.Start, control...))
	mux.Handle(ProcedurePause, connect.NewUnaryHandler(ProcedurePause, svc.Pause, control...))
	mux.Handle(ProcedureRewind, connect.NewUnaryHandler(ProcedureRewind, svc.Rewind, control...))
	mux.Handle(ProcedureFetch, connect.NewUnaryHandler(ProcedureFetch, svc.Fetch, control...))
	mux.Handle(ProcedureGetStatus, connect.NewUnaryHandler(ProcedureGetStatus, svc.GetStatus, opts...))
	mux.Handle(ProcedureSubscribe, connect.NewServerStreamHandler(ProcedureSubscribe, svc.Subscribe, opts...))

	return "/" + ReaderServiceName + "/", mux
}

// LoadText replaces the text.
func (s *ReaderService) LoadText(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	if err := s.session.LoadText(req.Msg.GetValue()); err != nil {
		return nil, s.toConnectError("load_text", err)
	}
	return s.statusResponse(), nil
}

// SetSpeed sets the reading speed from a words-per-minute string.
func (s *ReaderService) SetSpeed(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	if _, err := s.session.SetSpeed(req.Msg.GetValue()); err != nil {
		return nil, s.toConnectError("set_speed", err)
	}
	return s.statusResponse(), nil
}

// Start starts or resumes playback.
func (s *ReaderService) Start(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	if err := s.session.Start(); err != nil {
		return nil, s.toConnectError("start", err)
	}
	return s.statusResponse(), nil
}

// Pause pauses playback.
func (s *ReaderService) Pause(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	if err := s.session.Pause(); err != nil {
		return nil, s.toConnectError("pause", err)
	}
	return s.statusResponse(), nil
}

// Rewind moves back to the first word.
func (s *ReaderService) Rewind(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	if err := s.session.Rewind(); err != nil {
		return nil, s.toConnectError("rewind", err)
	}
	return s.statusResponse(), nil
}

// Fetch acquires text from a URL. The call returns when the acquisition has
// finished.
func (s *ReaderService) Fetch(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	fields := req.Msg.GetFields()
	fetchReq := source.Request{
		Email:    fields[FieldEmail].GetStringValue(),
		Password: fields[FieldPassword].GetStringValue(),
		URL:      strings.TrimSpace(fields[FieldURL].GetStringValue()),
	}
	if fetchReq.URL == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("url is required"))
	}

	if err := s.session.Fetch(ctx, fetchReq); err != nil {
		return nil, s.toConnectError("fetch", err)
	}
	return s.statusResponse(), nil
}

// GetStatus returns the current session status.
func (s *ReaderService) GetStatus(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	return s.statusResponse(), nil
}

// Subscribe streams the current status followed by every word and state
// change until the client disconnects.
func (s *ReaderService) Subscribe(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
	stream *connect.ServerStream[structpb.Struct],
) error {
	notifManager := s.session.GetNotificationManager()
	subscriptionID, ended := notifManager.Subscribe(stream, initialMessage(s.session.GetStatus()))
	defer notifManager.Unsubscribe(subscriptionID)

	zlog.Info().Msgf("subscriber connected: id=%s peer=%s", subscriptionID, req.Peer().Addr)

	// Wait for context cancellation, a dropped subscription or session end
	select {
	case <-ctx.Done():
	case <-ended:
	case <-s.session.Done():
	}

	zlog.Info().Msgf("subscriber disconnected: id=%s", subscriptionID)
	return nil
}

func (s *ReaderService) statusResponse() *connect.Response[structpb.Struct] {
	return connect.NewResponse(StatusToStruct(s.session.GetStatus()))
}

// toConnectError maps session errors to connect codes. The message is the
// status line the session recorded for the failure.
func (s *ReaderService) toConnectError(op string, err error) error {
	code := connect.CodeInternal
	switch {
	case errors.Is(err, session.ErrInvalidSpeed),
		errors.Is(err, session.ErrNoText),
		errors.Is(err, source.ErrUnsupportedURL):
		code = connect.CodeInvalidArgument
	case errors.Is(err, source.ErrPathNotAllowed):
		code = connect.CodePermissionDenied
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrNoSources):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, playback.ErrStopTimeout),
		errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	case op == "fetch":
		code = connect.CodeUnavailable
	}

	zlog.Warn().Msgf("%s failed: code=%s error=%v", op, code, err)

	message := s.session.GetStatus().Message
	if message == "" || code == connect.CodeInternal || code == connect.CodeDeadlineExceeded {
		message = err.Error()
	}
	return connect.NewError(code, errors.New(message))
}
