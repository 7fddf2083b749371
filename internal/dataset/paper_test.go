package dataset

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const paperJSON = `{
	"paper_id": "gw_cosmo",
	"title": "Gravitational-wave cosmology",
	"abstract": "We constrain H0 from dark sirens.",
	"publication_date": "2023-05-17",
	"paper_link": "https://example.org/gw_cosmo",
	"code_available": true,
	"code_link": "https://example.org/gw_cosmo/code",
	"source": "expert",
	"dataset": [
		{"name": "GWTC-3", "access": "wget", "url": ["https://example.org/gwtc3.h5"], "size_mb": 120}
	],
	"execution_requirements": {"dependencies": ["numpy", "bilby"], "needs_gpu": false},
	"other_instructions": "Use the O3 population prior.",
	"blacklist_packages": ["gwcosmo"]
}`

func TestParsePaper(t *testing.T) {
	p, err := ParsePaper([]byte(paperJSON))
	require.NoError(t, err)

	assert.Equal(t, "gw_cosmo", p.PaperID)
	assert.Equal(t, "2023-05-17", p.PublicationDate.String())
	assert.True(t, p.CodeAvailable)
	require.Len(t, p.Datasets, 1)
	assert.Equal(t, "GWTC-3", p.Datasets[0].Name)
	assert.Equal(t, "wget", p.Datasets[0].Access)
	require.NotNil(t, p.Requirements)
	assert.Equal(t, []string{"numpy", "bilby"}, p.Requirements.Dependencies)
	assert.False(t, p.Requirements.NeedsGPU)
	assert.Equal(t, []string{"gwcosmo"}, p.BlacklistPackages)
}

func TestParsePaperDefaultsSource(t *testing.T) {
	raw := `{"paper_id": "p", "title": "t", "abstract": "a", "publication_date": "2024-01-02"}`
	p, err := ParsePaper([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "expert", p.Source)
}

func TestParsePaperMissingFieldFatal(t *testing.T) {
	for _, field := range []string{"paper_id", "title", "abstract", "publication_date"} {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(paperJSON), &m))
		delete(m, field)
		data, err := json.Marshal(m)
		require.NoError(t, err)

		_, err = ParsePaper(data)
		assert.Error(t, err, "field %s", field)
	}
}

func TestParsePaperBadDateFatal(t *testing.T) {
	raw := `{"paper_id": "p", "title": "t", "abstract": "a", "publication_date": "May 17, 2023"}`
	_, err := ParsePaper([]byte(raw))
	assert.Error(t, err)
}

func TestDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2023-05-17")
	require.NoError(t, err)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2023-05-17"`, string(data))

	var back Date
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, d.Equal(back.Time))
}

func TestPaperRoundTripThroughDict(t *testing.T) {
	p, err := ParsePaper([]byte(paperJSON))
	require.NoError(t, err)

	task, err := ParseTask([]byte(taskJSON))
	require.NoError(t, err)
	p.SetTasks([]*Task{task})
	p.AttachText("manuscript body")

	dict := p.ToDict(true, true)
	loader, err := FromDicts([]map[string]any{dict})
	require.NoError(t, err)

	back, ok := loader.Paper("gw_cosmo")
	require.True(t, ok)

	assert.Equal(t, p.PaperID, back.PaperID)
	assert.Equal(t, p.Title, back.Title)
	assert.Equal(t, p.Abstract, back.Abstract)
	assert.True(t, p.PublicationDate.Equal(back.PublicationDate.Time))
	assert.Equal(t, p.Datasets, back.Datasets)
	assert.Equal(t, p.Requirements, back.Requirements)
	assert.Equal(t, p.OtherInstructions, back.OtherInstructions)
	assert.Equal(t, p.BlacklistPackages, back.BlacklistPackages)
	assert.Equal(t, p.FullText, back.FullText)
	assert.Equal(t, p.TaskIDs(), back.TaskIDs())

	origTask, _ := p.Task("fit_mass")
	backTask, ok := back.Task("fit_mass")
	require.True(t, ok)
	assert.Equal(t, origTask.ToDict(), backTask.ToDict())
	assert.True(t, backTask.ToleranceOK)
}

func TestPaperTaskOrderIsInsertionOrder(t *testing.T) {
	p, err := ParsePaper([]byte(paperJSON))
	require.NoError(t, err)

	mk := func(id string, difficulty float64) *Task {
		return &Task{TaskID: id, PaperID: p.PaperID, Difficulty: difficulty}
	}
	tasks := []*Task{mk("c", 1), mk("a", 2), mk("b", 3)}
	p.SetTasks(tasks)

	assert.Equal(t, []string{"c", "a", "b"}, p.TaskIDs())
	assert.Equal(t, 3, p.TaskCount())
}
