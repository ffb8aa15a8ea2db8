package eval

import (
	"sort"

	"github.com/sells-group/extraction-eval/internal/model"
)

// reconcileChildren returns the declared specs followed by synthetic specs
// for keys present in the data but absent from configuration. Undeclared
// keys default to the LLM method and are tagged discovered. Synthetic specs
// for undeclared keys are ordered by name so evaluation output is
// deterministic.
func reconcileChildren(declared []model.AttributeSpec, expected, actual map[string]any, parentDiscovered bool) []model.AttributeSpec {
	known := make(map[string]bool, len(declared))
	specs := make([]model.AttributeSpec, 0, len(declared))
	for _, s := range declared {
		known[s.Name] = true
		if parentDiscovered {
			s.Discovered = true
		}
		specs = append(specs, s)
	}

	var extra []string
	seen := make(map[string]bool)
	for k := range expected {
		if !known[k] && !seen[k] {
			extra = append(extra, k)
			seen[k] = true
		}
	}
	for k := range actual {
		if !known[k] && !seen[k] {
			extra = append(extra, k)
			seen[k] = true
		}
	}
	sort.Strings(extra)

	for _, k := range extra {
		specs = append(specs, syntheticSpec(k, firstValue(actual[k], expected[k])))
	}
	return specs
}

// syntheticSpec builds the fallback spec for an undeclared key, inferring
// the attribute type from the value shape.
func syntheticSpec(name string, sample any) model.AttributeSpec {
	s := model.AttributeSpec{
		Name:       name,
		Type:       model.TypeSimple,
		Method:     model.MethodLLM,
		Discovered: true,
	}
	switch sample.(type) {
	case map[string]any, model.ExtractedRecord:
		s.Type = model.TypeGroup
	case []any:
		s.Type = model.TypeList
		s.Method = model.MethodHungarian
	}
	return s
}

func firstValue(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
