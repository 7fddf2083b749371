package dataset

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"reprobench/internal/safeio"
)

// Config names the corpus roots. There are no bundled defaults: callers say
// where the corpus lives, explicitly, at construction.
type Config struct {
	PapersDir      string
	TasksDir       string
	ManuscriptsDir string

	// TextCache, when set, is shared across Load calls so repeat loads of
	// overlapping corpora in one process reread manuscripts from memory.
	// Load creates a private cache when nil.
	TextCache *TextCache
}

// Selectors restrict what Load pulls into memory.
type Selectors struct {
	// PaperIDs restricts loading to an explicit set; nil means all discovered.
	PaperIDs []string
	// TaskTypes restricts each paper's tasks to a set of kind values.
	TaskTypes []string
	// Filters is an attribute-equality query over Paper; every entry must
	// match for the paper to be included. Unknown attributes never match.
	Filters map[string]any
	// LoadText controls whether manuscript text is attached at all.
	LoadText bool
	// Masked selects the masked text variant (numeric answers redacted)
	// over the full one.
	Masked bool
}

// TextCache is an LRU over manuscript bodies, keyed by file path.
type TextCache struct {
	c *lru.Cache[string, string]
}

const defaultTextCacheSize = 256

// NewTextCache builds a manuscript cache holding up to size bodies.
func NewTextCache(size int) (*TextCache, error) {
	if size <= 0 {
		size = defaultTextCacheSize
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &TextCache{c: c}, nil
}

// Loader is an in-memory corpus: paper_id -> Paper, in deterministic order.
type Loader struct {
	papers map[string]*Paper
	order  []string
}

// Load discovers papers under cfg.PapersDir, applies the selectors, attaches
// tasks (sorted by difficulty, then task_id) and optionally manuscript text,
// and returns the corpus. Discovery order is lexicographic by paper_id so
// output is reproducible across runs.
//
// A task whose tolerance does not mirror its expected output is kept but
// logged: one malformed file must not block loading the rest of a paper.
func Load(ctx context.Context, cfg Config, sel Selectors) (*Loader, error) {
	papersFS, err := safeio.NewSafeFS(cfg.PapersDir)
	if err != nil {
		return nil, fmt.Errorf("open papers dir: %w", err)
	}

	var tasksFS *safeio.SafeFS
	if cfg.TasksDir != "" {
		tasksFS, err = safeio.NewSafeFS(cfg.TasksDir)
		if err != nil {
			log.Printf("WARNING: tasks dir unavailable, loading papers without tasks: %v", err)
			tasksFS = nil
		}
	}

	var texts *manuscriptReader
	if sel.LoadText {
		texts, err = newManuscriptReader(cfg.ManuscriptsDir, cfg.TextCache)
		if err != nil {
			log.Printf("WARNING: manuscripts dir unavailable, loading papers without text: %v", err)
			texts = nil
		}
	}

	wanted := toSet(sel.PaperIDs)

	files, err := papersFS.Glob(".", "*.json")
	if err != nil {
		return nil, fmt.Errorf("discover papers: %w", err)
	}
	// Order by paper id, not file name: the ".json" suffix participates in a
	// file-name sort and can reorder ids that extend one another.
	stems := make([]string, 0, len(files))
	for _, name := range files {
		stems = append(stems, strings.TrimSuffix(name, filepath.Ext(name)))
	}
	sort.Strings(stems)

	loader := &Loader{papers: make(map[string]*Paper)}
	for _, stem := range stems {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if wanted != nil && !wanted[stem] {
			continue
		}

		name := stem + ".json"
		data, err := papersFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read paper %s: %w", name, err)
		}
		paper, err := ParsePaper(data)
		if err != nil {
			return nil, fmt.Errorf("paper %s: %w", name, err)
		}

		if !paper.MatchesFilters(sel.Filters) {
			continue
		}

		tasks, err := loadTasks(tasksFS, stem, sel.TaskTypes)
		if err != nil {
			return nil, err
		}
		paper.SetTasks(tasks)

		if texts != nil {
			paper.AttachText(texts.read(stem, sel.Masked))
		}

		loader.insert(paper)
	}
	return loader, nil
}

func loadTasks(tasksFS *safeio.SafeFS, paperID string, taskTypes []string) ([]*Task, error) {
	if tasksFS == nil {
		return nil, nil
	}
	info, err := tasksFS.Stat(paperID)
	if err != nil || !info.IsDir() {
		// No task directory for this paper. A stray regular file under the
		// same name counts as absent too.
		return nil, nil
	}
	files, err := tasksFS.Glob(paperID, "*.json")
	if err != nil {
		return nil, fmt.Errorf("discover tasks for %s: %w", paperID, err)
	}

	kinds := toSet(taskTypes)

	var tasks []*Task
	for _, name := range files {
		data, err := tasksFS.ReadFile(filepath.Join(paperID, name))
		if err != nil {
			return nil, fmt.Errorf("read task %s/%s: %w", paperID, name, err)
		}
		task, err := ParseTask(data)
		if err != nil {
			return nil, fmt.Errorf("task %s/%s: %w", paperID, name, err)
		}
		if kinds != nil && !kinds[task.Kind] {
			continue
		}
		if !task.ToleranceOK {
			log.Printf("WARNING: invalid tolerance for %s/%s", paperID, task.TaskID)
		}
		tasks = append(tasks, task)
	}
	sortTasks(tasks)
	return tasks, nil
}

// sortTasks orders tasks by difficulty ascending, ties broken by task_id, so
// presentation order is deterministic. This is a convenience default, not a
// dependency order; the task graph owns dependency order.
func sortTasks(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Difficulty != tasks[j].Difficulty {
			return tasks[i].Difficulty < tasks[j].Difficulty
		}
		return tasks[i].TaskID < tasks[j].TaskID
	})
}

type manuscriptReader struct {
	fs    *safeio.SafeFS
	cache *TextCache
}

func newManuscriptReader(dir string, cache *TextCache) (*manuscriptReader, error) {
	fs, err := safeio.NewSafeFS(dir)
	if err != nil {
		return nil, err
	}
	if cache == nil {
		cache, err = NewTextCache(defaultTextCacheSize)
		if err != nil {
			return nil, err
		}
	}
	return &manuscriptReader{fs: fs, cache: cache}, nil
}

// read returns the requested text variant for a paper, or "" with a warning
// when the manuscript file is absent. A missing manuscript is not fatal:
// metadata-only corpora are common.
func (r *manuscriptReader) read(paperID string, masked bool) string {
	name := paperID + "_full.txt"
	if masked {
		name = paperID + "_masked.txt"
	}
	if text, ok := r.cache.c.Get(name); ok {
		return text
	}
	data, err := r.fs.ReadFile(name)
	if err != nil {
		log.Printf("WARNING: no manuscript text for %s (%s)", paperID, name)
		return ""
	}
	text := string(data)
	r.cache.c.Add(name, text)
	return text
}

func (l *Loader) insert(p *Paper) {
	if _, dup := l.papers[p.PaperID]; !dup {
		l.order = append(l.order, p.PaperID)
	}
	l.papers[p.PaperID] = p
}

// PaperIDs returns the corpus paper ids in load order (lexicographic for
// disk-loaded corpora, input order otherwise).
func (l *Loader) PaperIDs() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Paper looks up one paper by id.
func (l *Loader) Paper(id string) (*Paper, bool) {
	p, ok := l.papers[id]
	return p, ok
}

// Papers returns the corpus in load order.
func (l *Loader) Papers() []*Paper {
	out := make([]*Paper, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.papers[id])
	}
	return out
}

// Len reports the number of loaded papers.
func (l *Loader) Len() int {
	return len(l.order)
}

// FilterPapers re-filters the loaded corpus in memory and returns matching
// paper ids in load order. Same semantics as the load-time Filters selector.
func (l *Loader) FilterPapers(criteria map[string]any) []string {
	var out []string
	for _, id := range l.order {
		if l.papers[id].MatchesFilters(criteria) {
			out = append(out, id)
		}
	}
	return out
}

// toSet returns nil for an empty selector, which callers read as "no
// restriction".
func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}
