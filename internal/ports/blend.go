package ports

import "strings"

// blendModes maps blend mode names to the host's blendingmode enum.
var blendModes = map[string]int{
	"copy":         0,
	"normal":       0,
	"add":          1,
	"linear_dodge": 1,
	"subtract":     2,
	"multiply":     3,
	"max":          4,
	"lighten":      4,
	"min":          5,
	"darken":       5,
	"overlay":      9,
	"screen":       10,
	"soft_light":   11,
	"hard_light":   12,
	"divide":       13,
	"difference":   14,
}

// BlendMode resolves a blend mode name ("Soft Light", "soft-light") to its
// enum value.
func BlendMode(name string) (int, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	v, ok := blendModes[key]
	return v, ok
}

// BlendModes returns a copy of the name table.
func BlendModes() map[string]int {
	out := make(map[string]int, len(blendModes))
	for k, v := range blendModes {
		out[k] = v
	}
	return out
}
