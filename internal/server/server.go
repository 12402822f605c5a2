// Package server exposes a host.Runtime over websockets.
//
// Each text frame is one JSON Request answered by one Response with the same
// id. The caller principal is fixed for the whole connection and comes from
// the handshake; authenticating it is the job of the gateway in front.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"okinoko-higher_lower/internal/host"
	"okinoko-higher_lower/sdk"
)

// PrincipalHeader carries the caller address on the websocket handshake.
const PrincipalHeader = "X-Ledger-Principal"

// Host methods served next to the contract entry points.
const (
	MethodDeposit = "deposit"
	MethodBalance = "balance"
)

const readLimit = 64 << 10

// Request is one call sent by a client.
type Request struct {
	ID      string       `json:"id"`
	Method  string       `json:"method"`
	Payload string       `json:"payload,omitempty"`
	Intents []sdk.Intent `json:"intents,omitempty"`
}

// Response answers the Request with the same ID.
type Response struct {
	ID        string          `json:"id"`
	OK        bool            `json:"ok"`
	Result    string          `json:"result,omitempty"`
	TxID      string          `json:"txId,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Logs      []string        `json:"logs,omitempty"`
	Error     *host.CallError `json:"error,omitempty"`
}

// Options configures a Server.
type Options struct {
	// AllowOrigins lists extra origin patterns accepted on the handshake.
	AllowOrigins []string
	// Faucet enables the deposit method.
	Faucet   bool
	Logger   *zap.Logger
	Gatherer prometheus.Gatherer
	// CallTimeout bounds a single request; zero means no limit.
	CallTimeout time.Duration
}

// Server routes websocket requests to the runtime.
type Server struct {
	rt   *host.Runtime
	opts Options
	log  *zap.Logger
}

func New(rt *host.Runtime, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{rt: rt, opts: opts, log: opts.Logger}
}

// Handler serves /ws, /health and, with a gatherer, /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeWS)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func principalOf(r *http.Request) sdk.Address {
	p := strings.TrimSpace(r.Header.Get(PrincipalHeader))
	if p == "" {
		p = strings.TrimSpace(r.URL.Query().Get("principal"))
	}
	return sdk.Address(p)
}

// ServeWS upgrades the connection and serves requests until it closes.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	principal := principalOf(r)
	if principal == "" {
		http.Error(w, "missing principal", http.StatusUnauthorized)
		return
	}
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.opts.AllowOrigins})
	if err != nil {
		s.log.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer c.Close(websocket.StatusInternalError, "server error")
	c.SetReadLimit(readLimit)

	log := s.log.With(zap.String("principal", principal.String()))
	log.Info("client connected")

	ctx := r.Context()
	for {
		var req Request
		if err := wsjson.Read(ctx, c, &req); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || websocket.CloseStatus(err) == websocket.StatusGoingAway {
				log.Info("client disconnected")
				c.Close(websocket.StatusNormalClosure, "")
				return
			}
			log.Debug("read failed", zap.Error(err))
			return
		}
		resp := s.handle(ctx, principal, req)
		if err := wsjson.Write(ctx, c, resp); err != nil {
			log.Debug("write failed", zap.Error(err))
			return
		}
	}
}

func (s *Server) handle(ctx context.Context, principal sdk.Address, req Request) Response {
	if s.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.CallTimeout)
		defer cancel()
	}
	resp := Response{ID: req.ID}
	var err error
	switch req.Method {
	case MethodDeposit:
		resp.Result, err = s.deposit(ctx, principal, req.Payload)
	case MethodBalance:
		resp.Result, err = s.balance(ctx, principal, req.Payload)
	default:
		var res *host.Result
		res, err = s.rt.Call(ctx, host.Call{
			Method:  req.Method,
			Payload: req.Payload,
			Sender:  principal,
			Intents: req.Intents,
		})
		if err == nil {
			resp.Result = res.Output
			resp.TxID = res.TxID
			resp.Timestamp = res.Timestamp
			resp.Logs = res.Logs
		}
	}
	if err != nil {
		resp.Error = toCallError(err)
		return resp
	}
	resp.OK = true
	return resp
}

func toCallError(err error) *host.CallError {
	var ce *host.CallError
	if errors.As(err, &ce) {
		return ce
	}
	return &host.CallError{Kind: "Internal", Message: err.Error()}
}

// deposit payload: "amount".
func (s *Server) deposit(ctx context.Context, principal sdk.Address, payload string) (string, error) {
	if !s.opts.Faucet {
		return "", &host.CallError{Kind: "Unauthorized", Message: "faucet is disabled"}
	}
	amount, err := sdk.ParseAmount(payload)
	if err != nil || amount.IsZero() {
		return "", &host.CallError{Kind: "InvalidInput", Message: "deposit needs a positive integer amount"}
	}
	bal, err := s.rt.Deposit(ctx, principal, amount)
	if err != nil {
		return "", err
	}
	return bal.String(), nil
}

// balance payload: "address"; empty means the caller.
func (s *Server) balance(ctx context.Context, principal sdk.Address, payload string) (string, error) {
	addr := principal
	if payload != "" {
		addr = sdk.Address(payload)
	}
	bal, err := s.rt.Balance(ctx, addr)
	if err != nil {
		return "", err
	}
	return bal.String(), nil
}
