package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/soyeahso/loom/internal/activation"
	"github.com/soyeahso/loom/internal/domain"
	"github.com/soyeahso/loom/internal/logging"
	"github.com/soyeahso/loom/internal/version"
)

// Dialer dispatches activations to a server instance over WebSocket.
// It opens a connection per dispatch, runs the handshake, sends the
// activation, and waits for the matching response.
type Dialer struct {
	ClientID string
	// LocalToken authenticates against the local server when the
	// target carries no API key of its own.
	LocalToken string

	log *logging.Logger
}

func NewDialer(clientID string, log *logging.Logger) *Dialer {
	if clientID == "" {
		clientID = "loom-cli"
	}
	return &Dialer{ClientID: clientID, log: log.Sub("dial")}
}

// Dispatch implements activation.RemoteDispatcher.
func (d *Dialer) Dispatch(ctx context.Context, target domain.InstanceTarget, req activation.DispatchRequest) (any, error) {
	conn, err := d.connect(ctx, target)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &activation.TransportError{Endpoint: target.Endpoint, Err: err}
	}
	defer conn.Close()

	reqID := uuid.New().String()
	frame, err := NewRequest(reqID, "activation.dispatch", req)
	if err != nil {
		return nil, &activation.TransportError{Endpoint: target.Endpoint, Err: err}
	}
	if err := conn.WriteJSON(frame); err != nil {
		return nil, &activation.TransportError{Endpoint: target.Endpoint, Err: err}
	}

	resp, err := d.awaitResponse(ctx, conn, reqID, target.Endpoint)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, &activation.TransportError{
			Endpoint: target.Endpoint,
			Err:      fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message),
		}
	}

	// The server responds with the full remote record; the caller's
	// own record carries its output and error.
	var rec domain.ActivationRecord
	if err := json.Unmarshal(resp.Payload, &rec); err != nil {
		return nil, &activation.TransportError{Endpoint: target.Endpoint, Err: err}
	}
	if rec.Status == domain.StatusFailed {
		kind, msg := domain.ErrKindExecution, "remote activation failed"
		if rec.Error != nil {
			kind, msg = rec.Error.Kind, rec.Error.Message
		}
		return rec.Output, remoteFailure{kind: kind, msg: msg}
	}
	return rec.Output, nil
}

// remoteFailure carries a remote record's error kind through the local
// failure path unchanged.
type remoteFailure struct {
	kind string
	msg  string
}

func (e remoteFailure) Error() string     { return e.msg }
func (e remoteFailure) ErrorKind() string { return e.kind }

// connect establishes the WebSocket connection and completes the
// challenge/connect/hello-ok handshake.
func (d *Dialer) connect(ctx context.Context, target domain.InstanceTarget) (*websocket.Conn, error) {
	wsURL, err := websocketURL(target.Endpoint)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", wsURL, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	} else {
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	}

	// The server opens with a challenge event.
	var challenge Frame
	if err := conn.ReadJSON(&challenge); err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading challenge: %w", deadlineErr(ctx, err))
	}
	if challenge.Type != FrameTypeEvent || challenge.Event != "connect.challenge" {
		conn.Close()
		return nil, fmt.Errorf("expected challenge, got type=%s event=%s", challenge.Type, challenge.Event)
	}

	token := target.APIKey
	if token == "" {
		token = d.LocalToken
	}

	connectID := uuid.New().String()
	connect, err := NewRequest(connectID, "connect", ConnectParams{
		MinProtocol: ProtocolVersion,
		MaxProtocol: ProtocolVersion,
		Client: ClientInfo{
			ID:       d.ClientID,
			Version:  version.Version,
			Platform: runtime.GOOS,
			Mode:     "cli",
		},
		Auth: &ConnectAuth{Token: token},
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.WriteJSON(connect); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sending connect: %w", err)
	}

	var hello Frame
	if err := conn.ReadJSON(&hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading hello: %w", deadlineErr(ctx, err))
	}
	if hello.Error != nil {
		conn.Close()
		return nil, fmt.Errorf("connect rejected: %s: %s", hello.Error.Code, hello.Error.Message)
	}
	if hello.ID != connectID {
		conn.Close()
		return nil, fmt.Errorf("unexpected handshake response id %s", hello.ID)
	}

	conn.SetReadDeadline(time.Time{})
	d.log.Debug().Str("endpoint", target.Endpoint).Msg("connected")
	return conn, nil
}

// awaitResponse reads frames until the response matching reqID
// arrives, skipping interleaved events.
func (d *Dialer) awaitResponse(ctx context.Context, conn *websocket.Conn, reqID, endpoint string) (Frame, error) {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if err = deadlineErr(ctx, err); errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return Frame{}, err
			}
			return Frame{}, &activation.TransportError{Endpoint: endpoint, Err: err}
		}
		if frame.Type == FrameTypeResponse && frame.ID == reqID {
			return frame, nil
		}
		d.log.Debug().Str("type", frame.Type).Str("event", frame.Event).Msg("skipping interleaved frame")
	}
}

// deadlineErr maps a read failure caused by the context deadline back
// to the context error, so an expired dispatch timeout is recorded as
// a timeout rather than a transport fault. The read deadline on the
// connection is set from the context, so a deadline-exceeded read with
// a live context can only be the narrow race where the net deadline
// fired first.
func deadlineErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if _, ok := ctx.Deadline(); ok && errors.Is(err, os.ErrDeadlineExceeded) {
		return context.DeadlineExceeded
	}
	return err
}

// websocketURL converts an instance base URL to its /ws endpoint.
func websocketURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}
