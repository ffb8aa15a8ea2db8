package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Method identifies the value-comparison strategy for an attribute.
type Method string

const (
	MethodExact        Method = "EXACT"
	MethodNumericExact Method = "NUMERIC_EXACT"
	MethodFuzzy        Method = "FUZZY"
	MethodSemantic     Method = "SEMANTIC"
	MethodLLM          Method = "LLM"
	// MethodHungarian is the list-assignment strategy. It applies only to
	// list-typed attributes; the per-item comparator is taken from the
	// list's MatchField child or the item spec children.
	MethodHungarian Method = "HUNGARIAN"
)

// ParseMethod converts a configuration string into a Method.
// Unknown values are an error so config typos fail at load time,
// not silently at evaluation time.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToUpper(strings.TrimSpace(s))) {
	case MethodExact:
		return MethodExact, nil
	case MethodNumericExact:
		return MethodNumericExact, nil
	case MethodFuzzy:
		return MethodFuzzy, nil
	case MethodSemantic:
		return MethodSemantic, nil
	case MethodLLM:
		return MethodLLM, nil
	case MethodHungarian:
		return MethodHungarian, nil
	case "":
		return MethodExact, nil
	default:
		return "", eris.Errorf("model: unknown evaluation method %q", s)
	}
}

// DefaultThreshold returns the method-specific match threshold used when an
// AttributeSpec does not carry its own. EXACT and NUMERIC_EXACT are binary,
// so their threshold is 1.0.
func DefaultThreshold(m Method) float64 {
	switch m {
	case MethodFuzzy, MethodSemantic, MethodLLM, MethodHungarian:
		return 0.8
	default:
		return 1.0
	}
}

// AttributeType distinguishes scalar, nested, and repeated attributes.
type AttributeType string

const (
	TypeSimple AttributeType = "simple"
	TypeGroup  AttributeType = "group"
	TypeList   AttributeType = "list"
)

// ParseAttributeType converts a configuration string into an AttributeType.
// An empty string defaults to simple.
func ParseAttributeType(s string) (AttributeType, error) {
	switch AttributeType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeSimple, "":
		return TypeSimple, nil
	case TypeGroup:
		return TypeGroup, nil
	case TypeList:
		return TypeList, nil
	default:
		return "", eris.Errorf("model: unknown attribute type %q", s)
	}
}
