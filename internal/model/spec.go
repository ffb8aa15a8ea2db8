package model

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// AttributeSpec declares one attribute of a document class: its type, how it
// is compared against the baseline, and (for group/list types) its children.
// Specs are immutable during an evaluation run.
type AttributeSpec struct {
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Type        AttributeType   `yaml:"type,omitempty" json:"type,omitempty"`
	Method      Method          `yaml:"method,omitempty" json:"method,omitempty"`
	Threshold   *float64        `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	// MatchField names the child attribute used to pair list items during
	// assignment. Empty means all simple children contribute equally.
	MatchField string          `yaml:"match_field,omitempty" json:"match_field,omitempty"`
	Children   []AttributeSpec `yaml:"children,omitempty" json:"children,omitempty"`

	// Discovered marks a synthetic spec created by the schema reconciler for
	// a key found in the data but absent from configuration. Never set in
	// configuration files.
	Discovered bool `yaml:"-" json:"-"`
}

// EffectiveThreshold returns the spec's threshold, falling back to the
// method default.
func (s AttributeSpec) EffectiveThreshold() float64 {
	if s.Threshold != nil {
		return *s.Threshold
	}
	return DefaultThreshold(s.Method)
}

// Child returns the child spec with the given name, or nil.
func (s AttributeSpec) Child(name string) *AttributeSpec {
	for i := range s.Children {
		if s.Children[i].Name == name {
			return &s.Children[i]
		}
	}
	return nil
}

// ClassSpec is the full attribute tree declared for one document class
// (section type).
type ClassSpec struct {
	Class      string          `yaml:"class" json:"class"`
	Attributes []AttributeSpec `yaml:"attributes" json:"attributes"`
}

// SpecRegistry is an indexed collection of class specs.
type SpecRegistry struct {
	Classes []ClassSpec
	byClass map[string]*ClassSpec
}

// NewSpecRegistry builds a registry with class lookup, normalizing method
// and type strings on every node.
func NewSpecRegistry(classes []ClassSpec) (*SpecRegistry, error) {
	r := &SpecRegistry{
		Classes: classes,
		byClass: make(map[string]*ClassSpec, len(classes)),
	}
	for i := range r.Classes {
		c := &r.Classes[i]
		if c.Class == "" {
			return nil, eris.New("model: class spec missing class name")
		}
		if err := normalizeSpecs(c.Attributes); err != nil {
			return nil, eris.Wrapf(err, "model: class %s", c.Class)
		}
		r.byClass[c.Class] = c
	}
	return r, nil
}

// ByClass returns the spec tree for a document class, or nil if undeclared.
func (r *SpecRegistry) ByClass(class string) *ClassSpec {
	if r == nil {
		return nil
	}
	return r.byClass[class]
}

func normalizeSpecs(specs []AttributeSpec) error {
	for i := range specs {
		s := &specs[i]
		if s.Name == "" {
			return eris.New("attribute spec missing name")
		}
		t, err := ParseAttributeType(string(s.Type))
		if err != nil {
			return eris.Wrapf(err, "attribute %s", s.Name)
		}
		s.Type = t

		rawMethod := string(s.Method)
		m, err := ParseMethod(rawMethod)
		if err != nil {
			return eris.Wrapf(err, "attribute %s", s.Name)
		}
		s.Method = m

		if s.Type == TypeList && rawMethod == "" {
			// Lists default to optimal assignment, not EXACT.
			s.Method = MethodHungarian
		}
		if s.Threshold != nil && (*s.Threshold < 0 || *s.Threshold > 1) {
			return eris.Errorf("attribute %s: threshold %v outside [0,1]", s.Name, *s.Threshold)
		}
		if err := normalizeSpecs(s.Children); err != nil {
			return eris.Wrapf(err, "attribute %s", s.Name)
		}
	}
	return nil
}

// specFile is the YAML layout of an attribute configuration document.
type specFile struct {
	Classes []ClassSpec `yaml:"classes"`
}

// LoadSpecFile reads a YAML attribute configuration document and returns an
// indexed registry.
func LoadSpecFile(path string) (*SpecRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "model: read spec file")
	}
	return ParseSpecYAML(data)
}

// ParseSpecYAML parses attribute configuration YAML.
func ParseSpecYAML(data []byte) (*SpecRegistry, error) {
	var f specFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "model: parse spec yaml")
	}
	if len(f.Classes) == 0 {
		return nil, eris.New("model: spec file declares no classes")
	}
	return NewSpecRegistry(f.Classes)
}
