// benchctl is the corpus tool: list and order tasks, export the corpus as
// JSONL, push/pull a release through an S3-compatible bucket, and score a
// submission file against the corpus.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"reprobench/internal/config"
	"reprobench/internal/dataset"
	"reprobench/internal/hub"
	"reprobench/internal/results"
	"reprobench/internal/score"
	"reprobench/internal/taskgraph"
)

func main() {
	cmd := flag.String("cmd", "list", "command: list, order, export, export-tasks, push, pull, score")
	papersDir := flag.String("papers", "", "papers directory (overrides env)")
	tasksDir := flag.String("tasks", "", "tasks directory (overrides env)")
	manuscriptsDir := flag.String("manuscripts", "", "manuscripts directory (overrides env)")
	selectorsPath := flag.String("selectors", "", "YAML selectors file")
	paperID := flag.String("paper", "", "paper id (for -cmd order)")
	out := flag.String("out", "", "output file (default: stdout)")
	prefix := flag.String("prefix", "", "object key prefix for push/pull")
	submission := flag.String("submission", "", "submission JSON file (for -cmd score)")
	runID := flag.String("run-id", "", "run id for the results archive (default: new)")
	noText := flag.Bool("no-text", false, "exclude manuscript text from loading/export")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *papersDir != "" {
		cfg.PapersDir = *papersDir
	}
	if *tasksDir != "" {
		cfg.TasksDir = *tasksDir
	}
	if *manuscriptsDir != "" {
		cfg.ManuscriptsDir = *manuscriptsDir
	}

	sel := config.DefaultSelectors()
	if *selectorsPath != "" {
		sel, err = config.LoadSelectors(*selectorsPath)
		if err != nil {
			log.Fatal(err)
		}
	}
	if *noText {
		sel.LoadText = false
	}

	ctx := context.Background()

	if *cmd == "pull" {
		runPull(ctx, cfg, *prefix, *out)
		return
	}

	loader, err := dataset.Load(ctx, cfg.DatasetConfig(), sel)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("loaded %d papers", loader.Len())

	switch *cmd {
	case "list":
		for _, p := range loader.Papers() {
			fmt.Printf("%s\t%d tasks\t%s\n", p.PaperID, p.TaskCount(), p.Title)
		}
	case "order":
		if *paperID == "" {
			log.Fatal("-paper is required for -cmd order")
		}
		paper, ok := loader.Paper(*paperID)
		if !ok {
			log.Fatalf("paper %s not found", *paperID)
		}
		order, err := taskgraph.OrderPaper(paper)
		if err != nil {
			log.Fatal(err)
		}
		for _, id := range order {
			fmt.Println(id)
		}
	case "export":
		w := openOut(*out)
		defer w.Close()
		if err := loader.ExportJSONL(w, !*noText, true); err != nil {
			log.Fatal(err)
		}
	case "export-tasks":
		w := openOut(*out)
		defer w.Close()
		if err := loader.ExportTasksJSONL(w); err != nil {
			log.Fatal(err)
		}
	case "push":
		client, err := hub.New(cfg.Hub)
		if err != nil {
			log.Fatal(err)
		}
		if err := client.PushCorpus(ctx, loader, *prefix, !*noText); err != nil {
			log.Fatal(err)
		}
		log.Printf("pushed %d papers to bucket %q", loader.Len(), cfg.Hub.Bucket)
	case "score":
		runScore(ctx, cfg, loader, *submission, *runID)
	default:
		log.Fatalf("unknown command %q", *cmd)
	}
}

func runPull(ctx context.Context, cfg *config.Config, prefix, out string) {
	client, err := hub.New(cfg.Hub)
	if err != nil {
		log.Fatal(err)
	}
	loader, err := client.PullCorpus(ctx, prefix)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("pulled %d papers from bucket %q", loader.Len(), cfg.Hub.Bucket)
	w := openOut(out)
	defer w.Close()
	if err := loader.ExportJSONL(w, true, true); err != nil {
		log.Fatal(err)
	}
}

// runScore reads a submission file of the form
// {"paper_id": {"task_id": <submitted value>}}, scores every covered task
// and archives the verdicts.
func runScore(ctx context.Context, cfg *config.Config, loader *dataset.Loader, path, runID string) {
	if path == "" {
		log.Fatal("-submission is required for -cmd score")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}
	var submission map[string]map[string]any
	if err := json.Unmarshal(data, &submission); err != nil {
		log.Fatalf("parse submission: %v", err)
	}

	if runID == "" {
		runID = results.NewRunID()
	}
	store := results.NewFromEnv(cfg.ResultsFile)
	defer store.Close()

	for _, pid := range loader.PaperIDs() {
		submitted, ok := submission[pid]
		if !ok {
			continue
		}
		paper, _ := loader.Paper(pid)
		paperPassed := true
		for _, task := range paper.Tasks() {
			verdict := score.ScoreTask(task, submitted[task.TaskID])
			if !verdict.Passed {
				paperPassed = false
			}
			rec := results.Record{
				RunID:   runID,
				PaperID: pid,
				TaskID:  task.TaskID,
				Passed:  verdict.Passed,
				Verdict: verdict,
			}
			if err := store.Append(ctx, rec); err != nil {
				log.Fatal(err)
			}
			fmt.Printf("%s/%s\t%s\n", pid, task.TaskID, passFail(verdict.Passed))
		}
		fmt.Printf("%s\t%s\n", pid, passFail(paperPassed))
	}
	log.Printf("run %s archived", runID)
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func openOut(path string) *os.File {
	if path == "" {
		return os.Stdout
	}
	f, err := os.Create(path)
	if err != nil {
		log.Fatal(err)
	}
	return f
}
