// Package dispatch maps JSON-RPC method names onto the document store and the
// search engine. It is stateless and re-entrant: every handler reads from
// startup-frozen data only.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jsonpeek/jsonpeek/internal/document"
	"github.com/jsonpeek/jsonpeek/internal/jsonrpc"
	"github.com/jsonpeek/jsonpeek/internal/mcp"
	"github.com/jsonpeek/jsonpeek/internal/search"
)

// Dispatcher routes recognized JSON-RPC methods to their handlers.
type Dispatcher struct {
	store *document.Store
	doc   json.RawMessage
	info  mcp.ImplementationInfo
	log   *slog.Logger
	tools []mcp.Tool
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the slog logger used by the dispatcher. If not provided,
// slog.Default() is used.
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// New constructs a Dispatcher over the given resource registry and the
// document the search tool answers queries against.
func New(store *document.Store, doc json.RawMessage, info mcp.ImplementationInfo, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store: store,
		doc:   doc,
		info:  info,
		log:   slog.Default(),
		tools: []mcp.Tool{searchToolDescriptor()},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs one JSON-RPC request to completion and returns the response
// envelope, or nil for notifications. Protocol-level failures (unknown
// method, unknown uri, unknown tool) come back as JSON-RPC error responses;
// the exchange itself always succeeds.
func (d *Dispatcher) Dispatch(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	if req.IsNotification() {
		// Fire-and-forget: no recognized method has side effects, so there
		// is nothing to run and nothing to answer.
		d.log.DebugContext(ctx, "rpc.notification.drop")
		return nil
	}

	result, rpcErr := d.handle(ctx, req)
	if rpcErr != nil {
		d.log.InfoContext(ctx, "rpc.dispatch.err",
			slog.Int("code", int(rpcErr.Code)),
			slog.String("message", rpcErr.Message))
		return jsonrpc.NewErrorResponse(req.ID, rpcErr.Code, rpcErr.Message)
	}

	resp, err := jsonrpc.NewResultResponse(req.ID, result)
	if err != nil {
		d.log.ErrorContext(ctx, "rpc.result.encode.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error")
	}
	return resp
}

func (d *Dispatcher) handle(ctx context.Context, req *jsonrpc.Request) (any, *jsonrpc.Error) {
	switch mcp.Method(req.Method) {
	case mcp.InitializeMethod:
		return d.handleInitialize(), nil
	case mcp.ResourcesListMethod:
		return d.handleResourcesList(), nil
	case mcp.ResourcesReadMethod:
		return d.handleResourcesRead(req.Params)
	case mcp.ToolsListMethod:
		return mcp.ListToolsResult{Tools: d.tools}, nil
	case mcp.ToolsCallMethod:
		return d.handleToolsCall(ctx, req.Params)
	default:
		return nil, &jsonrpc.Error{Code: jsonrpc.ErrorCodeMethodNotFound, Message: "Method not found"}
	}
}

func (d *Dispatcher) handleInitialize() mcp.InitializeResult {
	return mcp.InitializeResult{
		ProtocolVersion: mcp.ProtocolVersion,
		Capabilities: mcp.ServerCapabilities{
			Resources: &mcp.ResourcesCapability{Subscribe: false, ListChanged: false},
			Tools:     &mcp.ToolsCapability{ListChanged: false},
		},
		ServerInfo: d.info,
	}
}

func (d *Dispatcher) handleResourcesList() mcp.ListResourcesResult {
	resources := d.store.List()
	out := make([]mcp.Resource, 0, len(resources))
	for _, res := range resources {
		out = append(out, mcp.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MimeType:    mcp.ResourceMimeType,
		})
	}
	return mcp.ListResourcesResult{Resources: out}
}

func (d *Dispatcher) handleResourcesRead(params json.RawMessage) (any, *jsonrpc.Error) {
	var p mcp.ReadResourceParams
	if len(params) > 0 {
		// A malformed params object leaves the uri empty and falls through
		// to the not-found error below.
		_ = json.Unmarshal(params, &p)
	}

	res, ok := d.store.Get(p.URI)
	if !ok {
		return nil, &jsonrpc.Error{
			Code:    jsonrpc.ErrorCodeInvalidParams,
			Message: fmt.Sprintf("Resource not found: %s", p.URI),
		}
	}
	return mcp.ReadResourceResult{Content: res.Content}, nil
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, params json.RawMessage) (any, *jsonrpc.Error) {
	var p mcp.CallToolParams
	if len(params) > 0 {
		_ = json.Unmarshal(params, &p)
	}
	if p.Name != searchToolName {
		return nil, &jsonrpc.Error{
			Code:    jsonrpc.ErrorCodeInvalidParams,
			Message: fmt.Sprintf("Tool not found: %s", p.Name),
		}
	}

	// A missing query decodes to "", which the search engine answers with
	// zero matches by policy.
	var args searchArgs
	if len(p.Arguments) > 0 {
		_ = json.Unmarshal(p.Arguments, &args)
	}

	matches := search.Search(d.doc, args.Query)
	d.log.InfoContext(ctx, "tool.search.ok",
		slog.String("query", args.Query),
		slog.Int("matches", len(matches)))

	if len(matches) == 0 {
		return mcp.TextResult(fmt.Sprintf("No results found for %q", args.Query)), nil
	}

	body, err := json.MarshalIndent(matches, "", "  ")
	if err != nil {
		d.log.ErrorContext(ctx, "tool.search.encode.fail", slog.String("err", err.Error()))
		return nil, &jsonrpc.Error{Code: jsonrpc.ErrorCodeInternalError, Message: "internal error"}
	}
	return mcp.TextResult(fmt.Sprintf("Found %d results for %q:\n\n%s", len(matches), args.Query, body)), nil
}
