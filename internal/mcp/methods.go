package mcp

// Method is a protocol method identifier used in JSON-RPC messages.
type Method string

// Method names recognized by this server.
const (
	InitializeMethod    Method = "initialize"
	ResourcesListMethod Method = "resources/list"
	ResourcesReadMethod Method = "resources/read"
	ToolsListMethod     Method = "tools/list"
	ToolsCallMethod     Method = "tools/call"
)

// ProtocolVersion is the protocol revision this server implements. It is the
// last revision that used the SSE-style HTTP transport.
const ProtocolVersion = "2024-11-05"

// ResourceMimeType is advertised for every resource; the server only ever
// holds parsed JSON documents.
const ResourceMimeType = "application/json"
