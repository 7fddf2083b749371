// Package config resolves the process configuration from the environment
// (with .env support) and from an optional YAML selectors file. There is no
// hidden default corpus: the directory settings are explicit and travel with
// the config value.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"reprobench/internal/dataset"
	"reprobench/internal/hub"
)

type Config struct {
	PapersDir      string
	TasksDir       string
	ManuscriptsDir string

	ResultsFile string
	ResultsDSN  string

	Hub hub.Config
}

// Load reads .env (when present) and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		PapersDir:      firstNonEmpty(os.Getenv("REPROBENCH_PAPERS_DIR"), "papers"),
		TasksDir:       firstNonEmpty(os.Getenv("REPROBENCH_TASKS_DIR"), "tasks"),
		ManuscriptsDir: firstNonEmpty(os.Getenv("REPROBENCH_MANUSCRIPTS_DIR"), "manuscripts"),
		ResultsFile:    firstNonEmpty(os.Getenv("RESULTS_FILE"), "results.jsonl"),
		ResultsDSN:     strings.TrimSpace(os.Getenv("RESULTS_PG_DSN")),
		Hub: hub.Config{
			Endpoint:  strings.TrimSpace(os.Getenv("HUB_S3_ENDPOINT")),
			Region:    firstNonEmpty(os.Getenv("HUB_S3_REGION"), "us-east-1"),
			AccessKey: firstNonEmpty(os.Getenv("HUB_S3_ACCESS_KEY"), os.Getenv("MINIO_ROOT_USER")),
			SecretKey: firstNonEmpty(os.Getenv("HUB_S3_SECRET_KEY"), os.Getenv("MINIO_ROOT_PASSWORD")),
			Bucket:    firstNonEmpty(os.Getenv("HUB_S3_BUCKET"), "reprobench-corpus"),
			UseSSL:    parseBool(os.Getenv("HUB_S3_USE_SSL"), false),
		},
	}
	return cfg, nil
}

// DatasetConfig renders the corpus roots as a loader config.
func (c *Config) DatasetConfig() dataset.Config {
	return dataset.Config{
		PapersDir:      c.PapersDir,
		TasksDir:       c.TasksDir,
		ManuscriptsDir: c.ManuscriptsDir,
	}
}

// selectorsFile is the YAML shape of a selectors file:
//
//	paper_ids: [gw_cosmo]
//	task_types: [numeric]
//	filters:
//	  source: expert
//	load_text: true
//	masked: true
type selectorsFile struct {
	PaperIDs  []string       `yaml:"paper_ids"`
	TaskTypes []string       `yaml:"task_types"`
	Filters   map[string]any `yaml:"filters"`
	LoadText  *bool          `yaml:"load_text"`
	Masked    *bool          `yaml:"masked"`
}

// DefaultSelectors loads everything, with masked text attached.
func DefaultSelectors() dataset.Selectors {
	return dataset.Selectors{LoadText: true, Masked: true}
}

// LoadSelectors parses a YAML selectors file. Omitted load_text/masked keys
// keep their defaults (both true).
func LoadSelectors(path string) (dataset.Selectors, error) {
	sel := DefaultSelectors()

	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("read selectors file: %w", err)
	}
	var f selectorsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return sel, fmt.Errorf("parse selectors file: %w", err)
	}

	sel.PaperIDs = f.PaperIDs
	sel.TaskTypes = f.TaskTypes
	sel.Filters = f.Filters
	if f.LoadText != nil {
		sel.LoadText = *f.LoadText
	}
	if f.Masked != nil {
		sel.Masked = *f.Masked
	}
	return sel, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func parseBool(raw string, fallback bool) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
