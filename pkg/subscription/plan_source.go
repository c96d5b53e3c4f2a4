package subscription

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

type inMemSource struct {
	def Definition
}

// NewInMemSource returns a PlansSource serving a copy of plans.
// It panics when no plans are given.
func NewInMemSource(plans []Plan, publicResources ...string) PlansSource {
	if len(plans) == 0 {
		panic("subscription: at least one plan is required")
	}
	def := Definition{PublicResources: slices.Clone(publicResources)}
	for _, p := range plans {
		def.Plans = append(def.Plans, p.clone())
	}
	return &inMemSource{def: def}
}

func (s *inMemSource) Load(context.Context) (Definition, error) {
	def := Definition{PublicResources: slices.Clone(s.def.PublicResources)}
	for _, p := range s.def.Plans {
		def.Plans = append(def.Plans, p.clone())
	}
	return def, nil
}

type yamlSource struct {
	path string
	data []byte
}

// NewYAMLFileSource reads the catalog from a YAML file at load time.
func NewYAMLFileSource(path string) PlansSource {
	return &yamlSource{path: path}
}

// NewYAMLSource parses the catalog from YAML bytes.
func NewYAMLSource(data []byte) PlansSource {
	return &yamlSource{data: slices.Clone(data)}
}

func (s *yamlSource) Load(context.Context) (Definition, error) {
	data := s.data
	if s.path != "" {
		var err error
		if data, err = os.ReadFile(s.path); err != nil {
			return Definition{}, fmt.Errorf("read plans file: %w", err)
		}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("decode plans: %w", err)
	}
	return def, nil
}
