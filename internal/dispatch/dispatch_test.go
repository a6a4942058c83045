package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jsonpeek/jsonpeek/internal/document"
	"github.com/jsonpeek/jsonpeek/internal/jsonrpc"
	"github.com/jsonpeek/jsonpeek/internal/mcp"
)

const testURI = "jsondoc://test.json"

func newTestDispatcher(t *testing.T, doc string) *Dispatcher {
	t.Helper()
	content := json.RawMessage(doc)
	store, err := document.NewStore(document.Resource{
		URI:         testURI,
		Name:        "test.json",
		Description: "test document",
		Content:     content,
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return New(store, content, mcp.ImplementationInfo{Name: "test-server", Version: "0.0.1"})
}

func request(t *testing.T, method string, params string) *jsonrpc.Request {
	t.Helper()
	raw := `{"jsonrpc":"2.0","id":1,"method":"` + method + `"`
	if params != "" {
		raw += `,"params":` + params
	}
	raw += `}`
	req, ok := jsonrpc.DetectRequest([]byte(raw))
	if !ok {
		t.Fatalf("failed to build request for %s", method)
	}
	return req
}

func resultOf(t *testing.T, resp *jsonrpc.Response, into any) {
	t.Helper()
	if resp == nil {
		t.Fatal("expected a response, got nil")
	}
	if resp.Error != nil {
		t.Fatalf("expected a result, got error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	if err := json.Unmarshal(resp.Result, into); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
}

func TestInitialize(t *testing.T) {
	d := newTestDispatcher(t, `{"a": 1}`)

	var res mcp.InitializeResult
	resultOf(t, d.Dispatch(context.Background(), request(t, "initialize", "")), &res)

	if res.ProtocolVersion == "" {
		t.Error("protocolVersion must be present")
	}
	if res.ServerInfo.Name != "test-server" || res.ServerInfo.Version != "0.0.1" {
		t.Errorf("unexpected serverInfo: %+v", res.ServerInfo)
	}
	if res.Capabilities.Resources == nil || res.Capabilities.Resources.Subscribe || res.Capabilities.Resources.ListChanged {
		t.Errorf("unexpected resources capability: %+v", res.Capabilities.Resources)
	}
	if res.Capabilities.Tools == nil || res.Capabilities.Tools.ListChanged {
		t.Errorf("unexpected tools capability: %+v", res.Capabilities.Tools)
	}
}

func TestResourcesList(t *testing.T) {
	d := newTestDispatcher(t, `{"a": 1}`)

	var res mcp.ListResourcesResult
	resultOf(t, d.Dispatch(context.Background(), request(t, "resources/list", "")), &res)

	if len(res.Resources) != 1 {
		t.Fatalf("expected 1 resource, got %d", len(res.Resources))
	}
	if want, got := testURI, res.Resources[0].URI; want != got {
		t.Errorf("uri: want %q, got %q", want, got)
	}
	if want, got := "application/json", res.Resources[0].MimeType; want != got {
		t.Errorf("mimeType: want %q, got %q", want, got)
	}
}

func TestResourcesRead(t *testing.T) {
	doc := `{"a": {"b": [1, 2, 3]}}`
	d := newTestDispatcher(t, doc)

	t.Run("known uri returns content", func(t *testing.T) {
		var res mcp.ReadResourceResult
		resultOf(t, d.Dispatch(context.Background(), request(t, "resources/read", `{"uri":"`+testURI+`"}`)), &res)

		var got, want any
		if err := json.Unmarshal(res.Content, &got); err != nil {
			t.Fatalf("content is not valid JSON: %v", err)
		}
		if err := json.Unmarshal([]byte(doc), &want); err != nil {
			t.Fatal(err)
		}
		gotJSON, _ := json.Marshal(got)
		wantJSON, _ := json.Marshal(want)
		if !bytes.Equal(gotJSON, wantJSON) {
			t.Errorf("content mismatch: want %s, got %s", wantJSON, gotJSON)
		}
	})

	t.Run("unknown uri", func(t *testing.T) {
		resp := d.Dispatch(context.Background(), request(t, "resources/read", `{"uri":"jsondoc://nope"}`))
		if resp.Error == nil {
			t.Fatal("expected an error response")
		}
		if want, got := jsonrpc.ErrorCodeInvalidParams, resp.Error.Code; want != got {
			t.Errorf("code: want %d, got %d", want, got)
		}
		if !strings.Contains(resp.Error.Message, "jsondoc://nope") {
			t.Errorf("message should name the missing uri, got %q", resp.Error.Message)
		}
	})

	t.Run("missing uri param", func(t *testing.T) {
		resp := d.Dispatch(context.Background(), request(t, "resources/read", ""))
		if resp.Error == nil || resp.Error.Code != jsonrpc.ErrorCodeInvalidParams {
			t.Fatalf("expected -32602, got %+v", resp.Error)
		}
	})
}

func TestToolsList(t *testing.T) {
	d := newTestDispatcher(t, `{}`)

	var res mcp.ListToolsResult
	resultOf(t, d.Dispatch(context.Background(), request(t, "tools/list", "")), &res)

	if len(res.Tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(res.Tools))
	}
	tool := res.Tools[0]
	if want, got := "search_data", tool.Name; want != got {
		t.Errorf("name: want %q, got %q", want, got)
	}
	if want, got := "object", tool.InputSchema.Type; want != got {
		t.Errorf("schema type: want %q, got %q", want, got)
	}
	prop, ok := tool.InputSchema.Properties["query"]
	if !ok {
		t.Fatalf("schema is missing the query property: %+v", tool.InputSchema.Properties)
	}
	if want, got := "string", prop.Type; want != got {
		t.Errorf("query type: want %q, got %q", want, got)
	}
	found := false
	for _, r := range tool.InputSchema.Required {
		if r == "query" {
			found = true
		}
	}
	if !found {
		t.Errorf("query must be required, got %v", tool.InputSchema.Required)
	}
}

func callText(t *testing.T, d *Dispatcher, params string) string {
	t.Helper()
	var res mcp.CallToolResult
	resultOf(t, d.Dispatch(context.Background(), request(t, "tools/call", params)), &res)
	if len(res.Content) != 1 || res.Content[0].Type != "text" {
		t.Fatalf("expected a single text content block, got %+v", res.Content)
	}
	return res.Content[0].Text
}

func TestToolsCall(t *testing.T) {
	d := newTestDispatcher(t, `{"a": {"b": "hello world"}}`)

	t.Run("single match", func(t *testing.T) {
		text := callText(t, d, `{"name":"search_data","arguments":{"query":"hello"}}`)
		if !strings.HasPrefix(text, `Found 1 results for "hello":`) {
			t.Errorf("unexpected message prefix: %q", text)
		}
		if !strings.Contains(text, `"path": "a.b"`) {
			t.Errorf("result body should contain the match path, got %q", text)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		text := callText(t, d, `{"name":"search_data","arguments":{"query":"nonexistent_xyz"}}`)
		if !strings.HasPrefix(text, "No results found") {
			t.Errorf("unexpected message: %q", text)
		}
	})

	t.Run("absent query yields no matches", func(t *testing.T) {
		text := callText(t, d, `{"name":"search_data"}`)
		if !strings.HasPrefix(text, "No results found") {
			t.Errorf("unexpected message: %q", text)
		}
	})

	t.Run("unknown tool", func(t *testing.T) {
		resp := d.Dispatch(context.Background(), request(t, "tools/call", `{"name":"frobnicate"}`))
		if resp.Error == nil {
			t.Fatal("expected an error response")
		}
		if want, got := jsonrpc.ErrorCodeInvalidParams, resp.Error.Code; want != got {
			t.Errorf("code: want %d, got %d", want, got)
		}
		if want, got := "Tool not found: frobnicate", resp.Error.Message; want != got {
			t.Errorf("message: want %q, got %q", want, got)
		}
	})
}

func TestUnknownMethod(t *testing.T) {
	d := newTestDispatcher(t, `{}`)

	resp := d.Dispatch(context.Background(), request(t, "prompts/list", ""))
	if resp.Error == nil {
		t.Fatal("expected an error response")
	}
	if want, got := jsonrpc.ErrorCodeMethodNotFound, resp.Error.Code; want != got {
		t.Errorf("code: want %d, got %d", want, got)
	}
	if want, got := "Method not found", resp.Error.Message; want != got {
		t.Errorf("message: want %q, got %q", want, got)
	}
}

func TestNotificationProducesNoResponse(t *testing.T) {
	d := newTestDispatcher(t, `{}`)

	for _, method := range []string{"initialize", "tools/call", "no/such/method"} {
		raw := `{"jsonrpc":"2.0","method":"` + method + `"}`
		req, ok := jsonrpc.DetectRequest([]byte(raw))
		if !ok {
			t.Fatalf("failed to parse notification for %s", method)
		}
		if resp := d.Dispatch(context.Background(), req); resp != nil {
			t.Errorf("notification %s produced a response: %+v", method, resp)
		}
	}
}
