package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorAcceptsValidRecord(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	issues, err := v.ValidateDocument([]byte(`{
		"id": "r1",
		"fechaVisita": "2024-03-10",
		"nombreEspacio": "Parque Central",
		"tipoEspacio": "cdvparque",
		"pmAsistentes": 22,
		"percentCompliance": 91,
		"extraField": true
	}`), ".json")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidatorReportsIssues(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	issues, err := v.ValidateDocument([]byte(`[
		{"fechaVisita": "ayer", "nombreEspacio": "A"},
		{"fechaVisita": "2024-03-10", "nombreEspacio": "B", "percentCompliance": 140},
		"not an object"
	]`), ".json")
	require.NoError(t, err)
	require.NotEmpty(t, issues)

	indexes := map[int]bool{}
	for _, issue := range issues {
		indexes[issue.Index] = true
	}
	assert.True(t, indexes[0])
	assert.True(t, indexes[1])
	assert.True(t, indexes[2])
}

func TestValidatorRejectsUnparseableDocument(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	_, err = v.ValidateDocument([]byte(`{`), ".json")
	assert.Error(t, err)
}
