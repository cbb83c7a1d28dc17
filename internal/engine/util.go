// internal/engine/util.go
package engine

// intField pulls an integer out of a decoded JSON payload. JSON numbers
// arrive as float64; accept int too for callers constructing payloads in Go.
func intField(payload map[string]interface{}, key string) (int, bool) {
	switch v := payload[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// boolField pulls a boolean out of a decoded JSON payload.
func boolField(payload map[string]interface{}, key string) (bool, bool) {
	v, ok := payload[key].(bool)
	return v, ok
}
