// Package codec centralizes result-table and matrix payload encoding.
//
// Codec selection is a compatibility boundary: persisted containers
// record the codec name in their header, and artifacts written by one
// codec may not decode under another.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
//
// Persisted containers are self-describing: they store the codec name in
// their header and select the codec with ByName on load.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	default:
		return nil, false
	}
}
