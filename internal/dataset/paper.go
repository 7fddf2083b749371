package dataset

import (
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day or timezone component.
// It marshals to and from the fixed "YYYY-MM-DD" form used by paper
// definition files.
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse publication date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Dataset describes one external data dependency of a paper: where the data
// lives and how an evaluation workspace obtains it. Owned by exactly one Paper.
type Dataset struct {
	Name         string   `json:"name"`
	Access       string   `json:"access"` // download/access method, e.g. "wget", "api", "local"
	URLs         []string `json:"url,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	SizeMB       float64  `json:"size_mb,omitempty"`
}

// ExecutionRequirements declares the runtime needs of a paper's tasks.
type ExecutionRequirements struct {
	Dependencies []string `json:"dependencies"`
	NeedsGPU     bool     `json:"needs_gpu"`
}

// Paper is the aggregate root: one research publication plus its datasets,
// execution requirements and reproduction tasks. A Paper owns its Tasks;
// they do not outlive it. After the loader hands a Paper to a caller it is
// never mutated again.
type Paper struct {
	PaperID           string                 `json:"paper_id"`
	Title             string                 `json:"title"`
	Abstract          string                 `json:"abstract"`
	PublicationDate   Date                   `json:"publication_date"`
	PaperLink         string                 `json:"paper_link,omitempty"`
	CodeAvailable     bool                   `json:"code_available"`
	CodeLink          string                 `json:"code_link,omitempty"`
	Source            string                 `json:"source"`
	Datasets          []Dataset              `json:"dataset,omitempty"`
	Requirements      *ExecutionRequirements `json:"execution_requirements,omitempty"`
	OtherInstructions string                 `json:"other_instructions,omitempty"`
	BlacklistPackages []string               `json:"blacklist_packages,omitempty"`

	// FullText is the manuscript body, attached after construction.
	// Masking (redacting the numeric answers tasks ask for) happens
	// upstream; the model only stores whichever variant was attached.
	FullText string `json:"-"`

	taskOrder []string
	tasks     map[string]*Task
}

// ParsePaper builds a Paper from the contents of one paper definition file.
// A missing required field or an unparseable publication date is fatal: a
// corpus must not contain a half-built entity.
func ParsePaper(data []byte) (*Paper, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse paper: %w", err)
	}
	for _, field := range []string{"paper_id", "title", "abstract", "publication_date"} {
		if _, ok := raw[field]; !ok {
			return nil, fmt.Errorf("parse paper: missing required field %q", field)
		}
	}

	var p Paper
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse paper: %w", err)
	}
	if p.PaperID == "" {
		return nil, fmt.Errorf("parse paper: empty paper_id")
	}
	if p.Source == "" {
		p.Source = "expert"
	}
	p.tasks = make(map[string]*Task)
	return &p, nil
}

// SetTasks installs the paper's tasks in the given order, replacing any
// previous set. The loader calls this exactly once per paper, after sorting
// by (difficulty, task_id).
func (p *Paper) SetTasks(tasks []*Task) {
	p.taskOrder = make([]string, 0, len(tasks))
	p.tasks = make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		if _, dup := p.tasks[t.TaskID]; !dup {
			p.taskOrder = append(p.taskOrder, t.TaskID)
		}
		p.tasks[t.TaskID] = t
	}
}

// AttachText stores the manuscript body on the paper.
func (p *Paper) AttachText(text string) {
	p.FullText = text
}

// TaskIDs returns the paper's task ids in presentation order
// (difficulty ascending, ties by task_id).
func (p *Paper) TaskIDs() []string {
	out := make([]string, len(p.taskOrder))
	copy(out, p.taskOrder)
	return out
}

// Task looks up one task by id.
func (p *Paper) Task(id string) (*Task, bool) {
	t, ok := p.tasks[id]
	return t, ok
}

// Tasks returns the paper's tasks in presentation order.
func (p *Paper) Tasks() []*Task {
	out := make([]*Task, 0, len(p.taskOrder))
	for _, id := range p.taskOrder {
		out = append(out, p.tasks[id])
	}
	return out
}

// TaskCount reports how many tasks the paper carries.
func (p *Paper) TaskCount() int {
	return len(p.taskOrder)
}

// ToDict renders the paper as a plain JSON-ready map, the shape written to
// the paper-level JSONL export and accepted back by FromDicts. The
// publication date is rendered in the fixed calendar-date form.
func (p *Paper) ToDict(includeText, includeTasks bool) map[string]any {
	datasets := make([]map[string]any, 0, len(p.Datasets))
	for _, ds := range p.Datasets {
		datasets = append(datasets, ds.toDict())
	}

	m := map[string]any{
		"paper_id":         p.PaperID,
		"title":            p.Title,
		"abstract":         p.Abstract,
		"publication_date": p.PublicationDate.String(),
		"paper_link":       p.PaperLink,
		"code_available":   p.CodeAvailable,
		"code_link":        p.CodeLink,
		"source":           p.Source,
		"dataset":          datasets,
	}
	if p.Requirements != nil {
		m["execution_requirements"] = map[string]any{
			"dependencies": append([]string{}, p.Requirements.Dependencies...),
			"needs_gpu":    p.Requirements.NeedsGPU,
		}
	} else {
		m["execution_requirements"] = nil
	}
	if p.OtherInstructions != "" {
		m["other_instructions"] = p.OtherInstructions
	}
	if len(p.BlacklistPackages) > 0 {
		m["blacklist_packages"] = append([]string{}, p.BlacklistPackages...)
	}
	if includeText {
		m["full_text"] = p.FullText
	}
	if includeTasks {
		tasks := make(map[string]any, len(p.taskOrder))
		for _, id := range p.taskOrder {
			tasks[id] = p.tasks[id].ToDict()
		}
		m["tasks"] = tasks
	}
	return m
}

func (ds Dataset) toDict() map[string]any {
	m := map[string]any{
		"name":   ds.Name,
		"access": ds.Access,
	}
	if len(ds.URLs) > 0 {
		m["url"] = append([]string{}, ds.URLs...)
	}
	if ds.Instructions != "" {
		m["instructions"] = ds.Instructions
	}
	if ds.SizeMB != 0 {
		m["size_mb"] = ds.SizeMB
	}
	return m
}
