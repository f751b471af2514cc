package codec

import "encoding/json"

// JSON is the standard-library JSON codec.
//
// Result tables and matrix snapshots are plain structs of slices and
// maps, all of which JSON handles portably. NaN sentinels are the one
// wrinkle: encoders reject them, so persisted row types represent
// missing statistics with pointer fields instead (nil = missing).
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used when none is configured explicitly.
var Default Codec = JSON{}
