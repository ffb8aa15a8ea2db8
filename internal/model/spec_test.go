package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invoiceSpecYAML = `
classes:
  - class: invoice
    attributes:
      - name: invoice_number
        method: EXACT
      - name: total_amount
        method: NUMERIC_EXACT
      - name: vendor
        type: group
        children:
          - name: name
            method: FUZZY
            threshold: 0.85
          - name: address
            method: SEMANTIC
      - name: line_items
        type: list
        match_field: id
        children:
          - name: id
            method: EXACT
          - name: amount
            method: NUMERIC_EXACT
`

func TestParseSpecYAML(t *testing.T) {
	reg, err := ParseSpecYAML([]byte(invoiceSpecYAML))
	require.NoError(t, err)

	spec := reg.ByClass("invoice")
	require.NotNil(t, spec)
	assert.Len(t, spec.Attributes, 4)

	vendor := spec.Attributes[2]
	assert.Equal(t, TypeGroup, vendor.Type)
	require.NotNil(t, vendor.Child("name"))
	assert.Equal(t, MethodFuzzy, vendor.Child("name").Method)
	assert.Equal(t, 0.85, vendor.Child("name").EffectiveThreshold())

	items := spec.Attributes[3]
	assert.Equal(t, TypeList, items.Type)
	// Lists without an explicit method default to optimal assignment.
	assert.Equal(t, MethodHungarian, items.Method)
	assert.Equal(t, "id", items.MatchField)
}

func TestParseSpecYAML_UnknownMethod(t *testing.T) {
	_, err := ParseSpecYAML([]byte(`
classes:
  - class: invoice
    attributes:
      - name: total
        method: GUESSWORK
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GUESSWORK")
}

func TestParseSpecYAML_ThresholdOutOfRange(t *testing.T) {
	_, err := ParseSpecYAML([]byte(`
classes:
  - class: invoice
    attributes:
      - name: total
        method: FUZZY
        threshold: 1.5
`))
	require.Error(t, err)
}

func TestParseMethod_Defaults(t *testing.T) {
	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodExact, m)

	m, err = ParseMethod("fuzzy")
	require.NoError(t, err)
	assert.Equal(t, MethodFuzzy, m)
}

func TestDefaultThreshold(t *testing.T) {
	assert.Equal(t, 1.0, DefaultThreshold(MethodExact))
	assert.Equal(t, 1.0, DefaultThreshold(MethodNumericExact))
	assert.Equal(t, 0.8, DefaultThreshold(MethodFuzzy))
	assert.Equal(t, 0.8, DefaultThreshold(MethodSemantic))
	assert.Equal(t, 0.8, DefaultThreshold(MethodLLM))
}

func TestByClass_Unknown(t *testing.T) {
	reg, err := ParseSpecYAML([]byte(invoiceSpecYAML))
	require.NoError(t, err)
	assert.Nil(t, reg.ByClass("receipt"))
}
