package document

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// LoadFile reads and validates the source document. Comments and trailing
// commas are tolerated on the way in (documents are often maintained by hand),
// but the stored content is always strict JSON.
func LoadFile(path string) (json.RawMessage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}

	cleaned := jsonc.ToJSON(raw)
	if !json.Valid(cleaned) {
		return nil, fmt.Errorf("document %s is not valid JSON", path)
	}
	return cleaned, nil
}
