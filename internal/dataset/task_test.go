package dataset

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const taskJSON = `{
	"task_id": "fit_mass",
	"paper_id": "gw_cosmo",
	"kind": "numeric",
	"difficulty": 3,
	"description": "Fit the primary mass.",
	"instructions": ["Load the posterior samples.", "Report the median mass."],
	"expected_output": 1.5,
	"tolerance": {"absolute": 0.1},
	"parents": ["load_data"]
}`

func TestParseTask(t *testing.T) {
	task, err := ParseTask([]byte(taskJSON))
	require.NoError(t, err)

	assert.Equal(t, "fit_mass", task.TaskID)
	assert.Equal(t, "gw_cosmo", task.PaperID)
	assert.Equal(t, "numeric", task.Kind)
	assert.Equal(t, 3.0, task.Difficulty)
	assert.Equal(t, Instructions{"Load the posterior samples.", "Report the median mass."}, task.Instructions)
	assert.Equal(t, []string{"load_data"}, task.Parents)
	assert.True(t, task.ToleranceOK)
}

func TestParseTaskNormalizesBareInstruction(t *testing.T) {
	// A single instruction may arrive as a bare string; it is normalized
	// into a one-element sequence at the deserialization boundary.
	raw := `{
		"task_id": "t1", "paper_id": "p1", "kind": "numeric", "difficulty": 1,
		"description": "d", "instructions": "Report the value.",
		"expected_output": 2.0, "tolerance": {"absolute": 0.1}
	}`
	task, err := ParseTask([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, Instructions{"Report the value."}, task.Instructions)

	// The serializer always emits the sequence form.
	dict := task.ToDict()
	assert.Equal(t, []string{"Report the value."}, dict["instructions"])
}

func TestParseTaskMissingRequiredField(t *testing.T) {
	for _, field := range taskRequiredFields {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(taskJSON), &m))
		delete(m, field)
		data, err := json.Marshal(m)
		require.NoError(t, err)

		_, err = ParseTask(data)
		assert.Error(t, err, "field %s", field)
	}
}

func TestParseTaskKeepsMalformedTolerance(t *testing.T) {
	raw := `{
		"task_id": "t1", "paper_id": "p1", "kind": "numeric", "difficulty": 1,
		"description": "d", "instructions": ["i"],
		"expected_output": {"mass": 1.5},
		"tolerance": {"radius": {"absolute": 0.1}}
	}`
	task, err := ParseTask([]byte(raw))
	require.NoError(t, err, "a malformed tolerance must not abort construction")
	assert.False(t, task.ToleranceOK)
	assert.False(t, task.ValidateTolerance())
}

func TestToFlatDictEmbedsJSONStrings(t *testing.T) {
	task, err := ParseTask([]byte(taskJSON))
	require.NoError(t, err)

	flat, err := task.ToFlatDict()
	require.NoError(t, err)

	rawExpected, ok := flat["expected_output"].(string)
	require.True(t, ok, "expected_output must be a JSON-encoded string")
	var expected any
	require.NoError(t, json.Unmarshal([]byte(rawExpected), &expected))
	assert.Equal(t, task.ExpectedOutput, expected)

	rawTol, ok := flat["tolerance"].(string)
	require.True(t, ok, "tolerance must be a JSON-encoded string")
	var tol any
	require.NoError(t, json.Unmarshal([]byte(rawTol), &tol))
	assert.Equal(t, task.Tolerance, tol)
}
