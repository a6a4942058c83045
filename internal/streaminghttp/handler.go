package streaminghttp

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"

	"github.com/jsonpeek/jsonpeek/internal/dispatch"
	"github.com/jsonpeek/jsonpeek/internal/document"
	"github.com/jsonpeek/jsonpeek/internal/jsonrpc"
	"github.com/jsonpeek/jsonpeek/internal/logctx"
	"github.com/jsonpeek/jsonpeek/internal/mcp"
)

var _ http.Handler = (*Handler)(nil)

var (
	jsonMediaType        = contenttype.NewMediaType("application/json")
	eventStreamMediaType = contenttype.NewMediaType("text/event-stream")
)

// DefaultKeepAliveInterval is how often an idle SSE session emits a
// keep-alive comment.
const DefaultKeepAliveInterval = 30 * time.Second

// Option configures the Handler.
type Option func(*newConfig)

type newConfig struct {
	logger    *slog.Logger
	keepAlive time.Duration
}

// WithLogger sets the slog logger used by the handler. If not provided,
// slog.Default() is used.
func WithLogger(log *slog.Logger) Option {
	return func(c *newConfig) { c.logger = log }
}

// WithKeepAliveInterval overrides the SSE keep-alive interval. Non-positive
// values are ignored.
func WithKeepAliveInterval(d time.Duration) Option {
	return func(c *newConfig) {
		if d > 0 {
			c.keepAlive = d
		}
	}
}

// Handler is the connection multiplexer: one streaming endpoint speaking
// JSON-RPC and SSE, and a static info document everywhere else.
type Handler struct {
	log       *slog.Logger
	store     *document.Store
	disp      *dispatch.Dispatcher
	endpoint  string
	info      mcp.ImplementationInfo
	keepAlive time.Duration
}

// New constructs a Handler serving the streaming endpoint at the given path.
func New(endpoint string, store *document.Store, disp *dispatch.Dispatcher, info mcp.ImplementationInfo, opts ...Option) (*Handler, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if disp == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if !strings.HasPrefix(endpoint, "/") {
		return nil, fmt.Errorf("endpoint must be an absolute path, got %q", endpoint)
	}

	cfg := &newConfig{logger: slog.Default(), keepAlive: DefaultKeepAliveInterval}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Handler{
		log:       slog.New(logctx.Handler{Handler: cfg.logger.Handler()}),
		store:     store,
		disp:      disp,
		endpoint:  endpoint,
		info:      info,
		keepAlive: cfg.keepAlive,
	}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	}))

	if r.URL.Path != h.endpoint {
		h.handleInfo(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleStream(w, r)
	case http.MethodPost:
		h.handlePost(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		h.log.WarnContext(r.Context(), "http.method.rejected")
	}
}

// handlePost resolves the protocol mode of a POST exchange: bodies passing
// the structural JSON-RPC predicate get dispatched and answered with exactly
// one envelope (or a bare 200 for notifications); everything else opens an
// SSE session.
func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.InfoContext(ctx, "http.post.start")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		h.log.WarnContext(ctx, "http.body.read.fail", slog.String("err", err.Error()))
		return
	}

	// Only bodies declared as JSON are candidates for JSON-RPC framing. The
	// media type screen is cheap and spares the parser for streaming clients
	// that POST with other content types.
	if ctype, ctErr := contenttype.GetMediaType(r); ctErr == nil && ctype.Matches(jsonMediaType) {
		if req, ok := jsonrpc.DetectRequest(body); ok {
			h.handleRPC(w, r, req, start)
			return
		}
		h.log.InfoContext(ctx, "jsonrpc.detect.miss")
	}

	h.handleStream(w, r)
}

func (h *Handler) handleRPC(w http.ResponseWriter, r *http.Request, req *jsonrpc.Request, start time.Time) {
	ctx := logctx.WithRPCMessage(r.Context(), &logctx.RPCMessage{
		Method: req.Method,
		ID:     req.ID.String(),
		Type:   req.Type(),
	})

	resp := h.disp.Dispatch(ctx, req)
	if resp == nil {
		// Notification: close the exchange at the transport level with no
		// JSON-RPC envelope.
		w.WriteHeader(http.StatusOK)
		h.log.InfoContext(ctx, "notification.inbound.ok", slog.Duration("dur", time.Since(start)))
		return
	}

	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.ErrorContext(ctx, "rpc.response.write.fail", slog.String("err", err.Error()))
		return
	}
	h.log.InfoContext(ctx, "rpc.inbound.ok", slog.Duration("dur", time.Since(start)))
}

// handleStream upgrades the exchange to an SSE session: handshake burst,
// one resource event per registered resource, then keep-alives until the
// peer disconnects.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	f, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		h.log.ErrorContext(r.Context(), "sse.flusher.missing")
		return
	}

	sess := newSession(uuid.NewString(), w, f, r.Context(), h.keepAlive)
	ctx := logctx.WithStreamData(r.Context(), &logctx.StreamData{SessionID: sess.id})

	w.Header().Set("Content-Type", eventStreamMediaType.String())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	sess.wf.Flush()

	h.log.InfoContext(ctx, "sse.stream.start")

	if err := h.handshake(sess); err != nil {
		sess.close()
		h.log.WarnContext(ctx, "sse.handshake.fail", slog.String("err", err.Error()))
		return
	}

	// Blocks until the peer disconnects; that is the session's only
	// cancellation signal.
	sess.run(ctx)

	h.log.InfoContext(ctx, "sse.stream.end", slog.Duration("dur", time.Since(start)))
}

type openPayload struct {
	SessionID string `json:"sessionId"`
}

type readyPayload struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	ServerInfo      mcp.ImplementationInfo `json:"serverInfo"`
}

func (h *Handler) handshake(sess *session) error {
	if err := sess.push("open", openPayload{SessionID: sess.id}); err != nil {
		return err
	}
	if err := sess.push("ready", readyPayload{ProtocolVersion: mcp.ProtocolVersion, ServerInfo: h.info}); err != nil {
		return err
	}
	for _, res := range h.store.List() {
		if err := sess.push("resource", res); err != nil {
			return err
		}
	}
	return nil
}

// handleInfo serves the static process/info document on every path other than
// the streaming endpoint.
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	type resourceSummary struct {
		URI        string `json:"uri"`
		Name       string `json:"name"`
		SourcePath string `json:"sourcePath,omitempty"`
	}
	resources := h.store.List()
	summaries := make([]resourceSummary, 0, len(resources))
	for _, res := range resources {
		summaries = append(summaries, resourceSummary{URI: res.URI, Name: res.Name, SourcePath: res.SourcePath})
	}

	w.Header().Set("Content-Type", jsonMediaType.String())
	if err := json.NewEncoder(w).Encode(map[string]any{
		"name":      h.info.Name,
		"version":   h.info.Version,
		"endpoint":  h.endpoint,
		"resources": summaries,
	}); err != nil {
		h.log.ErrorContext(r.Context(), "info.write.fail", slog.String("err", err.Error()))
	}
}

// writeJSONError emits a minimal JSON body for HTTP-layer rejections before a
// JSON-RPC message exchange is possible. We do NOT claim JSON-RPC framing
// here; this is transport-level. Shape: {"error":{"code":<httpStatus>,"message":"<reason>"}}
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": status, "message": msg}})
}
