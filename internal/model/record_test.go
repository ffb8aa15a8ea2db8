package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDocument(t *testing.T) {
	doc, err := DecodeDocument(strings.NewReader(`{
		"document_id": "doc-1",
		"sections": [
			{
				"section_id": "s1",
				"class": "invoice",
				"actual": {"invoice_number": "INV-001"},
				"expected": {"invoice_number": "INV-001"}
			}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.DocumentID)
	assert.Len(t, doc.Sections, 1)
	assert.True(t, doc.HasBaseline())
}

func TestDecodeDocument_Malformed(t *testing.T) {
	_, err := DecodeDocument(strings.NewReader(`not json`))
	require.Error(t, err)
}

func TestDecodeDocument_MissingDocumentID(t *testing.T) {
	_, err := DecodeDocument(strings.NewReader(`{"sections": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document_id")
}

func TestValidate_DuplicateSectionID(t *testing.T) {
	doc := &DocumentRecord{
		DocumentID: "doc-1",
		Sections: []SectionRecord{
			{SectionID: "s1", Class: "invoice"},
			{SectionID: "s1", Class: "invoice"},
		},
	}
	require.Error(t, doc.Validate())
}

func TestHasBaseline_AllMissing(t *testing.T) {
	doc := &DocumentRecord{
		DocumentID: "doc-1",
		Sections: []SectionRecord{
			{SectionID: "s1", Class: "invoice", Actual: ExtractedRecord{"a": "b"}},
		},
	}
	assert.False(t, doc.HasBaseline())
}
