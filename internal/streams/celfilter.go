package streams

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// celFilter wraps a compiled CEL program shared by subscribe delivery and
// historical reads. When disabled, Eval always returns true.
//
// Variables in scope:
//   - seq (int): the event's sequence number
//   - ts_ms (int): creation time in Unix milliseconds
//   - size (int): payload size in bytes
//   - text (string): the raw payload
//   - json (dyn): the parsed payload, for field access like json.type
//   - kind (string): shortcut for the envelope's "type" field, "" if absent
//   - now_ms (int): current time in ms, for windowed filters
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("seq", cel.IntType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("text", cel.StringType),
		cel.Variable("json", cel.DynType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the expression against one event. Evaluation errors count
// as a non-match.
func (f celFilter) Eval(seq uint64, tsMs int64, payload []byte) bool {
	if !f.enabled {
		return true
	}
	var jsonObj any
	_ = json.Unmarshal(payload, &jsonObj)
	kind := ""
	if m, ok := jsonObj.(map[string]any); ok {
		if t, ok := m["type"].(string); ok {
			kind = t
		}
	}
	out, _, err := f.prog.Eval(map[string]any{
		"seq":    int64(seq),
		"ts_ms":  tsMs,
		"size":   int64(len(payload)),
		"text":   string(payload),
		"json":   jsonObj,
		"kind":   kind,
		"now_ms": time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
