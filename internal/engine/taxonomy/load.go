package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/triage/internal/model"
)

// Load reads a taxonomy snapshot from a YAML or JSON file and validates it.
func Load(path string) (*model.TaxonomyNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: read %s: %w: %w", path, model.ErrConfiguration, err)
	}
	return Parse(data)
}

// Parse decodes a taxonomy document. JSON is accepted as a subset of YAML.
func Parse(data []byte) (*model.TaxonomyNode, error) {
	var root *model.TaxonomyNode
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("taxonomy: decode: %w: %w", model.ErrConfiguration, err)
	}
	if err := Validate(root); err != nil {
		return nil, err
	}
	return root, nil
}
