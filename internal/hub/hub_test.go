package hub

import "testing"

func TestNewValidatesConfig(t *testing.T) {
	valid := Config{
		Endpoint:  "minio:9000",
		AccessKey: "ak",
		SecretKey: "sk",
		Bucket:    "corpus",
	}
	if _, err := New(valid); err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing endpoint", func(c *Config) { c.Endpoint = "" }},
		{"missing access key", func(c *Config) { c.AccessKey = " " }},
		{"missing secret key", func(c *Config) { c.SecretKey = "" }},
		{"missing bucket", func(c *Config) { c.Bucket = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Fatal("expected a config error")
			}
		})
	}
}

func TestObjectKey(t *testing.T) {
	cases := []struct {
		prefix string
		want   string
	}{
		{"", "papers.jsonl"},
		{"v1", "v1/papers.jsonl"},
		{"/v1/", "v1/papers.jsonl"},
		{" releases/v2 ", "releases/v2/papers.jsonl"},
	}
	for _, tc := range cases {
		if got := objectKey(tc.prefix, "papers.jsonl"); got != tc.want {
			t.Fatalf("objectKey(%q) = %q, want %q", tc.prefix, got, tc.want)
		}
	}
}
