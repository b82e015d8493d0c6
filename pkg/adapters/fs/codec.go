package fs

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// dataExts are the record encodings the adapter understands, in lookup
// order. JSON is the write default.
var dataExts = []string{".json", ".yaml", ".yml"}

func isDataExt(ext string) bool {
	for _, e := range dataExts {
		if ext == e {
			return true
		}
	}
	return false
}

// encode serializes a record for the given extension. JSON output is
// indented so vault files stay hand-editable.
func encode(v any, ext string) ([]byte, error) {
	switch ext {
	case ".yaml", ".yml":
		return yaml.Marshal(v)
	case ".json":
		return json.MarshalIndent(v, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported record extension: %s", ext)
	}
}

// decode deserializes a record. Unknown fields are ignored and missing
// fields default, keeping records forward-compatible.
func decode(data []byte, ext string, v any) error {
	switch ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	case ".json":
		return json.Unmarshal(data, v)
	default:
		return fmt.Errorf("unsupported record extension: %s", ext)
	}
}
