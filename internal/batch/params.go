package batch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/graphgate/internal/host"
	"github.com/roach88/graphgate/internal/ports"
	"github.com/roach88/graphgate/internal/value"
)

// Per-parameter outcomes reported by ApplyParams. Any other outcome is an
// "error: ..." string.
const (
	ParamOK            = "ok"
	ParamSkipped       = "skipped"
	ParamSkippedSystem = "skipped_system"
)

// ErrNotSet is returned by SetParam when neither the input nor the
// annotation setter accepted the value.
var ErrNotSet = errors.New("no setter accepted the value")

// Authority returns the host type id of property id on n, looking at
// inputs first, then annotations. Empty when the property is unknown.
func Authority(n host.Node, id string) string {
	if p, ok := host.Find(n, id, host.Input); ok {
		return p.Type
	}
	if p, ok := host.Find(n, id, host.Annotation); ok {
		return p.Type
	}
	return ""
}

// Resolve types a raw wire value for property id on n: inferred from its
// shape (or envelope), then coerced against the live property type. inferred
// overrides shape inference when non-empty.
func Resolve(n host.Node, id string, raw any, inferred value.Type) (value.Value, error) {
	t, payload := value.Infer(raw)
	if inferred != "" {
		t = inferred
	}
	authority := Authority(n, id)

	// Blend modes arrive by name as often as by number.
	if name, ok := payload.(string); ok && strings.HasSuffix(strings.ToLower(authority), "::blendingmode") {
		if mode, found := ports.BlendMode(name); found {
			return value.Int(mode), nil
		}
	}
	return value.Box(value.Coerce(t, payload, authority), payload)
}

// SetParam writes v to property id on n, trying the input setter and then
// the annotation setter.
func SetParam(n host.Node, id string, v value.Value) error {
	var errs []error
	if _, ok := host.Find(n, id, host.Input); ok {
		err := n.SetInputValue(id, v)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if _, ok := host.Find(n, id, host.Annotation); ok {
		err := n.SetAnnotationValue(id, v)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return ErrNotSet
	}
	return fmt.Errorf("%w: %w", ErrNotSet, errors.Join(errs...))
}

// ApplyParams sets every parameter on n and reports the outcome per
// parameter. System properties are never written. A failure on one
// parameter does not stop the others.
func ApplyParams(n host.Node, params map[string]any) map[string]string {
	if len(params) == 0 {
		return nil
	}
	results := make(map[string]string, len(params))
	for id, raw := range params {
		if ports.IsSystem(id) {
			results[id] = ParamSkippedSystem
			continue
		}
		v, err := Resolve(n, id, raw, "")
		if err != nil {
			results[id] = "error: " + err.Error()
			continue
		}
		if err := SetParam(n, id, v); err != nil {
			results[id] = ParamSkipped
			continue
		}
		results[id] = ParamOK
	}
	return results
}

// Failed counts parameters whose outcome is not ParamOK.
func Failed(results map[string]string) int {
	n := 0
	for _, r := range results {
		if r != ParamOK {
			n++
		}
	}
	return n
}
