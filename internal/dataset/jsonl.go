package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
)

// Constructors for corpora that did not come from per-file storage: an
// in-memory sequence of paper dictionaries (re-hydrated from an external
// source) or a JSONL stream with one such dictionary per line. Both paths
// run the same validation as disk loading, so the resulting Loader state is
// indistinguishable for equal input.

// FromDicts builds a corpus from already-decoded paper dictionaries. Each
// dictionary may embed a "tasks" mapping and a "full_text" body.
func FromDicts(dicts []map[string]any) (*Loader, error) {
	loader := &Loader{papers: make(map[string]*Paper)}
	for i, dict := range dicts {
		paper, err := paperFromDict(dict)
		if err != nil {
			return nil, fmt.Errorf("paper dict %d: %w", i, err)
		}
		loader.insert(paper)
	}
	return loader, nil
}

// FromJSONL builds a corpus from a stream with one paper dictionary per line.
func FromJSONL(r io.Reader) (*Loader, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	var dicts []map[string]any
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var dict map[string]any
		if err := json.Unmarshal(raw, &dict); err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", line, err)
		}
		dicts = append(dicts, dict)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return FromDicts(dicts)
}

// paperFromDict funnels a dictionary through the same parser as a paper
// definition file, then attaches embedded tasks and text.
func paperFromDict(dict map[string]any) (*Paper, error) {
	meta := make(map[string]any, len(dict))
	for k, v := range dict {
		if k == "tasks" || k == "full_text" {
			continue
		}
		meta[k] = v
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	paper, err := ParsePaper(data)
	if err != nil {
		return nil, err
	}

	if rawTasks, ok := dict["tasks"]; ok && rawTasks != nil {
		taskDicts, ok := rawTasks.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("tasks must be an object keyed by task_id")
		}
		tasks := make([]*Task, 0, len(taskDicts))
		for id, td := range taskDicts {
			data, err := json.Marshal(td)
			if err != nil {
				return nil, err
			}
			task, err := ParseTask(data)
			if err != nil {
				return nil, fmt.Errorf("task %s: %w", id, err)
			}
			if !task.ToleranceOK {
				log.Printf("WARNING: invalid tolerance for %s/%s", paper.PaperID, task.TaskID)
			}
			tasks = append(tasks, task)
		}
		sortTasks(tasks)
		paper.SetTasks(tasks)
	}

	if text, ok := dict["full_text"].(string); ok {
		paper.AttachText(text)
	}
	return paper, nil
}

// ExportJSONL writes one line per paper: metadata plus, optionally, the
// manuscript text and a tasks object keyed by task_id.
func (l *Loader) ExportJSONL(w io.Writer, includeText, includeTasks bool) error {
	enc := json.NewEncoder(w)
	for _, id := range l.order {
		if err := enc.Encode(l.papers[id].ToDict(includeText, includeTasks)); err != nil {
			return fmt.Errorf("export paper %s: %w", id, err)
		}
	}
	return nil
}

// ExportTasksJSONL writes one line per task across the whole corpus, with
// expected_output and tolerance embedded as JSON-encoded strings.
func (l *Loader) ExportTasksJSONL(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, id := range l.order {
		for _, task := range l.papers[id].Tasks() {
			flat, err := task.ToFlatDict()
			if err != nil {
				return err
			}
			if err := enc.Encode(flat); err != nil {
				return fmt.Errorf("export task %s/%s: %w", id, task.TaskID, err)
			}
		}
	}
	return nil
}
