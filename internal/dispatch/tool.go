package dispatch

import (
	"github.com/invopop/jsonschema"

	"github.com/jsonpeek/jsonpeek/internal/mcp"
)

const searchToolName = "search_data"

// searchArgs is the typed argument struct for the search tool. Its JSON
// schema is reflected into the tool descriptor, so the wire contract and the
// decoding logic cannot drift apart.
type searchArgs struct {
	Query string `json:"query" jsonschema:"description=Text matched case-insensitively against object keys and values in the document"`
}

func searchToolDescriptor() mcp.Tool {
	return mcp.Tool{
		Name:        searchToolName,
		Description: "Search the loaded JSON document for a case-insensitive substring and return path-annotated matches.",
		InputSchema: reflectInputSchema[searchArgs](),
	}
}

// reflectInputSchema reflects a Go type A into a jsonschema.Schema and
// down-converts it to the simplified wire schema. Non-object shapes collapse
// to an empty object schema.
func reflectInputSchema[A any]() mcp.ToolInputSchema {
	r := &jsonschema.Reflector{
		DoNotReference: true, // inline defs
		ExpandedStruct: true, // put struct at root
	}
	s := r.Reflect(new(A))

	if s == nil || s.Type != "object" {
		return mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]mcp.SchemaProperty{},
		}
	}

	props := make(map[string]mcp.SchemaProperty)
	if s.Properties != nil {
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			props[el.Key] = toProperty(el.Value)
		}
	}
	var required []string
	if len(s.Required) > 0 {
		required = append(required, s.Required...)
	}

	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// toProperty recursively maps a jsonschema.Schema to the simplified wire
// SchemaProperty.
func toProperty(s *jsonschema.Schema) mcp.SchemaProperty {
	if s == nil {
		return mcp.SchemaProperty{}
	}
	p := mcp.SchemaProperty{
		Type:        s.Type,
		Description: s.Description,
	}
	if len(s.Enum) > 0 {
		p.Enum = s.Enum
	}
	if s.Type == "array" && s.Items != nil {
		item := toProperty(s.Items)
		p.Items = &item
	}
	if s.Type == "object" && s.Properties != nil {
		m := make(map[string]mcp.SchemaProperty, s.Properties.Len())
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			m[el.Key] = toProperty(el.Value)
		}
		p.Properties = m
	}
	return p
}
