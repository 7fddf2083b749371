package dataset

import (
	"encoding/json"
	"fmt"
)

// Instructions is the ordered sequence of natural-language steps for a task.
// Definition files may carry a single step as a bare string; that form is
// normalized into a one-element sequence at the deserialization boundary.
type Instructions []string

// UnmarshalJSON accepts either "step" or ["step one", "step two"].
func (ins *Instructions) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*ins = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*ins = Instructions{one}
		return nil
	}
	return fmt.Errorf("instructions must be a string or an array of strings")
}

// Task is the atomic reproducible unit: one independently scorable
// sub-result of a paper. Immutable after construction.
type Task struct {
	TaskID         string       `json:"task_id"`
	PaperID        string       `json:"paper_id"` // back-reference for lookup, not an ownership edge
	Kind           string       `json:"kind"`
	Difficulty     float64      `json:"difficulty"` // presentation/processing order only
	Description    string       `json:"description"`
	Instructions   Instructions `json:"instructions"`
	ExpectedOutput any          `json:"expected_output"`
	Tolerance      any          `json:"tolerance"`
	Parents        []string     `json:"parents,omitempty"`

	// ToleranceOK records whether Tolerance is structurally congruent with
	// ExpectedOutput. Tasks failing the check are kept (the loader warns),
	// so strict callers can filter on this flag instead of losing the rest
	// of the paper's tasks.
	ToleranceOK bool `json:"-"`
}

var taskRequiredFields = []string{
	"task_id", "paper_id", "kind", "description",
	"instructions", "expected_output", "tolerance",
}

// ParseTask builds a Task from the contents of one task definition file.
// Missing required fields are fatal; a tolerance that does not mirror the
// expected output is not — the task is returned with ToleranceOK=false so
// the loader can warn and continue.
func ParseTask(data []byte) (*Task, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse task: %w", err)
	}
	for _, field := range taskRequiredFields {
		if _, ok := raw[field]; !ok {
			return nil, fmt.Errorf("parse task: missing required field %q", field)
		}
	}

	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse task: %w", err)
	}
	if t.TaskID == "" {
		return nil, fmt.Errorf("parse task: empty task_id")
	}
	t.ToleranceOK = ValidateTolerance(t.ExpectedOutput, t.Tolerance)
	return &t, nil
}

// ValidateTolerance re-runs the shape check against the task's own fields.
func (t *Task) ValidateTolerance() bool {
	return ValidateTolerance(t.ExpectedOutput, t.Tolerance)
}

// ToDict renders the task as a plain JSON-ready map, the shape embedded in
// the paper-level JSONL export and accepted back by FromDicts. Instructions
// always render as a sequence regardless of the input form.
func (t *Task) ToDict() map[string]any {
	m := map[string]any{
		"task_id":         t.TaskID,
		"paper_id":        t.PaperID,
		"kind":            t.Kind,
		"difficulty":      t.Difficulty,
		"description":     t.Description,
		"instructions":    []string(t.Instructions),
		"expected_output": t.ExpectedOutput,
		"tolerance":       t.Tolerance,
	}
	if t.Parents != nil {
		m["parents"] = append([]string{}, t.Parents...)
	}
	return m
}

// ToFlatDict renders the task for the task-level JSONL export, where
// expected_output and tolerance are embedded as JSON-encoded strings for
// consumers that cannot nest heterogeneous JSON natively.
func (t *Task) ToFlatDict() (map[string]any, error) {
	expected, err := json.Marshal(t.ExpectedOutput)
	if err != nil {
		return nil, fmt.Errorf("encode expected_output for %s: %w", t.TaskID, err)
	}
	tol, err := json.Marshal(t.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("encode tolerance for %s: %w", t.TaskID, err)
	}
	m := map[string]any{
		"task_id":         t.TaskID,
		"paper_id":        t.PaperID,
		"kind":            t.Kind,
		"difficulty":      t.Difficulty,
		"description":     t.Description,
		"instructions":    []string(t.Instructions),
		"expected_output": string(expected),
		"tolerance":       string(tol),
	}
	if t.Parents != nil {
		m["parents"] = append([]string{}, t.Parents...)
	} else {
		m["parents"] = nil
	}
	return m, nil
}
