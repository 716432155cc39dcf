// Package transport is the hub's front door: a JSON-RPC/HTTP API, a
// discovery card endpoint, Server-Sent Event streaming, and a
// WebSocket peer fabric, all served from one chi mux.
package transport

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/cloi-dev/hub/internal/agentregistry"
	"github.com/cloi-dev/hub/internal/card"
	"github.com/cloi-dev/hub/internal/handler"
	"github.com/cloi-dev/hub/internal/hubcore"
	"github.com/cloi-dev/hub/internal/router"
	"github.com/cloi-dev/hub/internal/taskengine"
)

const maxBodyBytes = 10 << 20 // 10MB

// Deps bundles the components the transport layer dispatches into.
type Deps struct {
	Registry *agentregistry.Registry
	Engine   *taskengine.Engine
	Router   *router.Router
	Card     *card.Publisher
	Handler  handler.Handler

	// BearerToken, when non-empty, is required on every request via
	// an `Authorization: Bearer <token>` header, compared in constant
	// time. Empty disables authentication entirely.
	BearerToken string

	// DiscoveryInterval sizes the discovery-broadcast rate limiter;
	// see Server.BroadcastDiscovery.
	DiscoveryInterval time.Duration

	// Validator optionally checks message/send and message/stream
	// params against a compiled schema before a task is created. Nil
	// skips validation.
	Validator Validator
}

// Validator checks raw JSON-RPC params against a schema. It runs only
// when Deps.Validator is set; cmd/hub does not set it, and
// messaging.validateSchema is loaded into config but not read.
type Validator interface {
	Validate(data []byte) error
}

// Server holds the wiring needed to answer every hub HTTP/WS request.
type Server struct {
	deps    Deps
	limiter *rate.Limiter
	upgrade websocket.Upgrader
}

// New constructs a Server from deps.
func New(deps Deps) *Server {
	interval := deps.DiscoveryInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Server{
		deps:    deps,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		upgrade: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
	}
}

// Routes builds the hub's HTTP mux. /.well-known/agent.json and
// /health require no auth; every other route sits behind
// authMiddleware. CORS preflight and response headers are applied to
// every request, authenticated or not.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/.well-known/agent.json", s.handleAgentCard)
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/", s.handleRPC)
		r.Get("/stream/{identity}", s.handleSSEStream)
		r.Get("/ws/{identity}", s.handleWebSocket)
	})

	return r
}

// corsMiddleware answers OPTIONS preflight requests directly and
// stamps Access-Control-* headers on every other response, so browser
// clients on another origin can reach the hub.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "600")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if s.deps.BearerToken == "" {
			next.ServeHTTP(w, req)
			return
		}
		const prefix = "Bearer "
		header := req.Header.Get("Authorization")
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		got := header[len(prefix):]
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.deps.BearerToken)) != 1 {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (s *Server) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Card.Build())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"agents": s.deps.Registry.Len(),
		"tasks":  len(s.deps.Engine.All()),
	})
}

func (s *Server) handleRPC(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)

	var rpcReq request
	if err := json.NewDecoder(req.Body).Decode(&rpcReq); err != nil {
		writeJSON(w, http.StatusOK, errorResponse(nil, hubcore.NewError(hubcore.KindInvalidRequest, "malformed JSON-RPC request")))
		return
	}
	if rpcReq.JSONRPC != "2.0" || rpcReq.Method == "" {
		writeJSON(w, http.StatusOK, errorResponse(rpcReq.ID, hubcore.NewError(hubcore.KindInvalidRequest, "jsonrpc must be \"2.0\" and method must be set")))
		return
	}

	if rpcReq.Method == "message/stream" {
		s.handleMessageStream(w, req, rpcReq)
		return
	}

	result, err := s.dispatch(req.Context(), rpcReq.Method, rpcReq.Params)
	if err != nil {
		writeJSON(w, http.StatusOK, errorResponse(rpcReq.ID, err))
		return
	}
	writeJSON(w, http.StatusOK, resultResponse(rpcReq.ID, result))
}

func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "tasks/send":
		return s.tasksSend(ctx, params)
	case "tasks/get":
		return s.tasksGet(params)
	case "tasks/cancel":
		return s.tasksCancel(params)
	case "tasks/contribute":
		return s.tasksContribute(ctx, params)
	case "message/send":
		return s.messageSend(ctx, params)
	case "tasks/pushNotificationConfig/set", "tasks/pushNotificationConfig/get":
		return nil, hubcore.NewError(hubcore.KindReserved, method+" is reserved for a future protocol revision")
	case "tasks/resubscribe":
		return nil, hubcore.NewError(hubcore.KindNotImplemented, method+" is not implemented")
	default:
		return nil, hubcore.NewError(hubcore.KindMethodNotFound, method)
	}
}

type tasksSendParams struct {
	Requester            string                         `json:"requester"`
	Input                string                         `json:"input,omitempty"`
	RequiredCapabilities []string                       `json:"requiredCapabilities"`
	CoordinationPattern  hubcore.CoordinationPatternName `json:"coordinationPattern"`
}

func (s *Server) tasksSend(ctx context.Context, raw json.RawMessage) (any, error) {
	var p tasksSendParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, hubcore.NewError(hubcore.KindInvalidParams, "malformed tasks/send params")
	}
	pattern := p.CoordinationPattern
	if pattern == "" {
		pattern = hubcore.PatternPeerToPeer
	}
	return s.deps.Engine.Create(ctx, p.Requester, p.Input, p.RequiredCapabilities, pattern)
}

type idParams struct {
	ID string `json:"id"`
}

func (s *Server) tasksGet(raw json.RawMessage) (any, error) {
	var p idParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, hubcore.NewError(hubcore.KindInvalidParams, "malformed tasks/get params")
	}
	task, ok := s.deps.Engine.Get(p.ID)
	if !ok {
		return nil, hubcore.NewError(hubcore.KindTaskNotFound, p.ID)
	}
	return task, nil
}

type tasksCancelParams struct {
	ID        string `json:"id"`
	Requester string `json:"requester"`
}

func (s *Server) tasksCancel(raw json.RawMessage) (any, error) {
	var p tasksCancelParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, hubcore.NewError(hubcore.KindInvalidParams, "malformed tasks/cancel params")
	}
	return s.deps.Engine.Cancel(p.ID, p.Requester)
}

type tasksContributeParams struct {
	ID           string `json:"id"`
	Identity     string `json:"identity"`
	Contribution any    `json:"contribution"`
}

func (s *Server) tasksContribute(ctx context.Context, raw json.RawMessage) (any, error) {
	var p tasksContributeParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, hubcore.NewError(hubcore.KindInvalidParams, "malformed tasks/contribute params")
	}
	if p.Contribution == nil && s.deps.Handler != nil {
		result, err := s.deps.Handler.Handle(ctx, p.Identity)
		if err != nil {
			return nil, hubcore.Wrap(hubcore.KindHandlerFailure, "handler failed to produce a contribution", err)
		}
		p.Contribution = result
	}
	return s.deps.Engine.Contribute(p.ID, p.Identity, p.Contribution)
}

// messageSendParams is the JSON-RPC params shape for message/send and
// message/stream: a single conversational message addressed to the
// hub itself, optionally constrained to agents with given
// capabilities and a chosen coordination pattern.
type messageSendParams struct {
	Message              hubcore.TaskMessage             `json:"message"`
	Requester            string                          `json:"requester,omitempty"`
	RequiredCapabilities []string                        `json:"requiredCapabilities,omitempty"`
	CoordinationPattern  hubcore.CoordinationPatternName `json:"coordinationPattern,omitempty"`
}

// extractText concatenates every text part of a TaskMessage, in order.
func extractText(m hubcore.TaskMessage) string {
	var out string
	for _, part := range m.Parts {
		if part == nil || part.Type != "text" || part.Text == nil {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += *part.Text
	}
	return out
}

// replyMessage renders a task's outcome as the agent-role TaskMessage
// returned to the caller. A task resolved directly by the Handler
// Interface (the no-peer baseline) carries its Result as a
// handler.Result; a task still awaiting peer contributions gets an
// acknowledgement instead.
func replyMessage(task hubcore.Task) hubcore.TaskMessage {
	if result, ok := task.Result.(handler.Result); ok {
		return hubcore.TaskMessage{
			Role:     "agent",
			Parts:    []*hubcore.MessagePart{hubcore.TextPart(result.Output)},
			Metadata: map[string]any{"confidence": result.Confidence},
		}
	}
	return hubcore.TaskMessage{
		Role:  "agent",
		Parts: []*hubcore.MessagePart{hubcore.TextPart("task dispatched to connected agents")},
	}
}

func (s *Server) messageSend(ctx context.Context, raw json.RawMessage) (any, error) {
	if s.deps.Validator != nil {
		if err := s.deps.Validator.Validate(raw); err != nil {
			return nil, hubcore.Wrap(hubcore.KindInvalidParams, "message/send params failed schema validation", err)
		}
	}
	var p messageSendParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, hubcore.NewError(hubcore.KindInvalidParams, "malformed message/send params")
	}
	input := extractText(p.Message)
	if input == "" {
		return nil, hubcore.NewError(hubcore.KindInvalidParams, "message must contain at least one text part")
	}
	requester := p.Requester
	if requester == "" {
		requester = "anonymous"
	}
	pattern := p.CoordinationPattern
	if pattern == "" {
		pattern = hubcore.PatternPeerToPeer
	}

	task, err := s.deps.Engine.Create(ctx, requester, input, p.RequiredCapabilities, pattern)
	if err != nil {
		return nil, err
	}
	reply := replyMessage(task)
	return map[string]any{
		"taskId":  task.ID,
		"message": reply,
	}, nil
}

// BroadcastDiscovery routes a broadcast agent:discovery message from
// hostIdentity, throttled by the configured DiscoveryInterval. It
// reports whether the broadcast was actually sent (false means the
// rate limiter suppressed it).
func (s *Server) BroadcastDiscovery(hostIdentity string) bool {
	if !s.limiter.Allow() {
		return false
	}
	msg := hubcore.Message{
		ID:        hubcore.NewIdentity(),
		Type:      hubcore.MessageAgentDiscovery,
		From:      hostIdentity,
		To:        hubcore.BroadcastTarget,
		Timestamp: time.Now(),
	}
	_ = s.deps.Router.Route(msg)
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
