// Package taskgraph resolves the parents references between a paper's tasks
// into a dependency-respecting evaluation order.
package taskgraph

import (
	"fmt"
	"sort"

	"reprobench/internal/dataset"
)

// CycleError reports a dependency cycle through the named task.
type CycleError struct {
	TaskID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("taskgraph: dependency cycle through task %q", e.TaskID)
}

// DanglingReferenceError reports a parents entry naming an unknown task.
type DanglingReferenceError struct {
	TaskID string
	Parent string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("taskgraph: task %q references unknown parent %q", e.TaskID, e.Parent)
}

const (
	white = iota // unvisited
	gray         // in progress; meeting a gray node again is a back-edge
	black        // done
)

// Order returns the task ids in an order that places every task after all of
// its transitive parents. Ties among tasks with no remaining unresolved
// dependency break by ascending difficulty then task_id, so an edge-free
// graph reproduces the loader's presentation order. Re-running on an
// identical graph yields an identical order.
func Order(tasks []*dataset.Task) ([]string, error) {
	byID := make(map[string]*dataset.Task, len(tasks))
	for _, t := range tasks {
		byID[t.TaskID] = t
	}

	roster := make([]*dataset.Task, len(tasks))
	copy(roster, tasks)
	sort.SliceStable(roster, func(i, j int) bool {
		if roster[i].Difficulty != roster[j].Difficulty {
			return roster[i].Difficulty < roster[j].Difficulty
		}
		return roster[i].TaskID < roster[j].TaskID
	})

	color := make(map[string]int, len(tasks))
	order := make([]string, 0, len(tasks))

	var visit func(t *dataset.Task) error
	visit = func(t *dataset.Task) error {
		color[t.TaskID] = gray

		parents := make([]*dataset.Task, 0, len(t.Parents))
		for _, pid := range t.Parents {
			parent, ok := byID[pid]
			if !ok {
				return &DanglingReferenceError{TaskID: t.TaskID, Parent: pid}
			}
			parents = append(parents, parent)
		}
		sort.SliceStable(parents, func(i, j int) bool {
			if parents[i].Difficulty != parents[j].Difficulty {
				return parents[i].Difficulty < parents[j].Difficulty
			}
			return parents[i].TaskID < parents[j].TaskID
		})

		for _, parent := range parents {
			switch color[parent.TaskID] {
			case gray:
				return &CycleError{TaskID: parent.TaskID}
			case white:
				if err := visit(parent); err != nil {
					return err
				}
			}
		}

		color[t.TaskID] = black
		order = append(order, t.TaskID)
		return nil
	}

	for _, t := range roster {
		if color[t.TaskID] == white {
			if err := visit(t); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

// OrderPaper is Order over a paper's own tasks.
func OrderPaper(p *dataset.Paper) ([]string, error) {
	return Order(p.Tasks())
}
