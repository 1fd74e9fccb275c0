package simhost

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed scene.yaml
var defaultScene []byte

// Scene is the YAML description a simulated host is built from.
type Scene struct {
	Version string `yaml:"version"`

	// SystemInputs are added to every atomic node and every graph.
	SystemInputs []PropertySpec `yaml:"system_inputs"`

	// Annotations are added to every node.
	Annotations []PropertySpec `yaml:"annotations"`

	Definitions []DefinitionSpec `yaml:"definitions"`
	Packages    []PackageSpec    `yaml:"packages"`

	// Current names the graph focused in the editor at startup.
	Current string `yaml:"current"`
}

// PropertySpec declares one property.
type PropertySpec struct {
	ID          string `yaml:"id"`
	Type        string `yaml:"type"`
	Connectable bool   `yaml:"connectable"`
	Default     any    `yaml:"default"`
}

// DefinitionSpec declares one atomic node kind.
type DefinitionSpec struct {
	ID      string         `yaml:"id"`
	Inputs  []PropertySpec `yaml:"inputs"`
	Outputs []string       `yaml:"outputs"`
}

// PackageSpec declares one loaded package.
type PackageSpec struct {
	Path string `yaml:"path"`
	User bool   `yaml:"user"`

	// Reject names a traversal mode ("recursive" or "flat") whose
	// Children call fails, as some real containers do.
	Reject string `yaml:"reject"`

	Graphs []GraphSpec `yaml:"graphs"`
}

// GraphSpec declares a graph resource. For library packages, Inputs and
// Outputs become the properties of nodes instanced from it.
type GraphSpec struct {
	ID      string         `yaml:"id"`
	Inputs  []PropertySpec `yaml:"inputs"`
	Outputs []string       `yaml:"outputs"`
}

// ParseScene decodes a YAML scene.
func ParseScene(data []byte) (Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scene{}, fmt.Errorf("parse scene: %w", err)
	}
	if len(s.Definitions) == 0 {
		return Scene{}, fmt.Errorf("parse scene: no definitions")
	}
	seen := make(map[string]bool, len(s.Definitions))
	for _, d := range s.Definitions {
		if d.ID == "" {
			return Scene{}, fmt.Errorf("parse scene: definition without id")
		}
		if seen[d.ID] {
			return Scene{}, fmt.Errorf("parse scene: duplicate definition %q", d.ID)
		}
		seen[d.ID] = true
	}
	return s, nil
}

// DefaultScene returns the embedded scene.
func DefaultScene() Scene {
	s, err := ParseScene(defaultScene)
	if err != nil {
		panic(err)
	}
	return s
}

// LoadScene reads a scene file.
func LoadScene(path string) (Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scene{}, fmt.Errorf("read scene: %w", err)
	}
	return ParseScene(data)
}
