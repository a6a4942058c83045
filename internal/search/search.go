// Package search answers free-text queries against an arbitrarily-shaped JSON
// document. Matching is case-insensitive substring containment over object
// keys, string leaves, and the textual form of number and boolean leaves.
package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ContextLimit bounds the length of a match's human-readable excerpt. Longer
// excerpts are cut at this many runes and terminated with an ellipsis marker.
const ContextLimit = 200

// Match is one hit in the document, located by a dotted/bracketed path.
// Paths are informational: object access appends ".<key>" (bare "<key>" at
// the root), array access appends "[<index>]".
type Match struct {
	Path    string `json:"path"`
	Type    string `json:"type"`
	Key     string `json:"key,omitempty"`
	Value   any    `json:"value"`
	Context string `json:"context"`
}

// Search walks doc depth-first and returns every match for query, in
// traversal order: object keys in declared order, each key tested before its
// value is descended into, array elements by index. An empty or blank query
// returns no matches by policy: every substring check against an empty needle
// would trivially hold, and the result would be a dump of the entire tree.
//
// No index is built; each call re-traverses the whole document.
func Search(doc json.RawMessage, query string) []Match {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}

	var matches []Match
	walk(gjson.ParseBytes(doc), "", needle, &matches)
	return matches
}

func walk(node gjson.Result, path, needle string, out *[]Match) {
	switch {
	case node.IsObject():
		node.ForEach(func(key, value gjson.Result) bool {
			childPath := joinKey(path, key.String())
			if strings.Contains(strings.ToLower(key.String()), needle) {
				*out = append(*out, Match{
					Path:    childPath,
					Type:    "key",
					Key:     key.String(),
					Value:   json.RawMessage(value.Raw),
					Context: truncate(keyContext(value)),
				})
			}
			walk(value, childPath, needle, out)
			return true
		})
	case node.IsArray():
		idx := 0
		node.ForEach(func(_, value gjson.Result) bool {
			walk(value, fmt.Sprintf("%s[%d]", path, idx), needle, out)
			idx++
			return true
		})
	default:
		matchScalar(node, path, needle, out)
	}
}

func matchScalar(node gjson.Result, path, needle string, out *[]Match) {
	switch node.Type {
	case gjson.String:
		if strings.Contains(strings.ToLower(node.Str), needle) {
			*out = append(*out, Match{
				Path:    path,
				Type:    "string",
				Value:   node.Str,
				Context: truncate(node.Str),
			})
		}
	case gjson.Number:
		if strings.Contains(strings.ToLower(node.Raw), needle) {
			*out = append(*out, Match{
				Path:    path,
				Type:    "number",
				Value:   json.RawMessage(node.Raw),
				Context: node.Raw,
			})
		}
	case gjson.True, gjson.False:
		if strings.Contains(node.Raw, needle) {
			*out = append(*out, Match{
				Path:    path,
				Type:    "boolean",
				Value:   json.RawMessage(node.Raw),
				Context: node.Raw,
			})
		}
	}
}

// keyContext renders the value associated with a matched key: the raw JSON
// form for objects and arrays, the bare string for string leaves, the literal
// for everything else.
func keyContext(value gjson.Result) string {
	if value.Type == gjson.String {
		return value.Str
	}
	return value.Raw
}

func joinKey(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= ContextLimit {
		return s
	}
	return string(runes[:ContextLimit]) + "..."
}
