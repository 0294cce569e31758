package cli

import (
	"io"
	"testing"
	"time"
)

func TestParseKVOpts(t *testing.T) {
	opts, err := parseKVOpts([]string{"variant=minimal", "strict=true", "legacy=false"})
	if err != nil {
		t.Fatalf("parseKVOpts() error = %v", err)
	}
	if got := opts["variant"]; got != "minimal" {
		t.Errorf("variant = %v, want %q", got, "minimal")
	}
	if got := opts["strict"]; got != true {
		t.Errorf("strict = %v, want true", got)
	}
	if got := opts["legacy"]; got != false {
		t.Errorf("legacy = %v, want false", got)
	}
}

func TestParseKVOptsEmpty(t *testing.T) {
	opts, err := parseKVOpts(nil)
	if err != nil {
		t.Fatalf("parseKVOpts(nil) error = %v", err)
	}
	if opts != nil {
		t.Errorf("parseKVOpts(nil) = %v, want nil", opts)
	}
}

func TestParseKVOptsMalformed(t *testing.T) {
	for _, pair := range []string{"noequals", "=value"} {
		if _, err := parseKVOpts([]string{pair}); err == nil {
			t.Errorf("parseKVOpts(%q) expected error", pair)
		}
	}
}

func TestDefaultOutput(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"ansible", "playbook.yml"},
		{"terraform", "main.tf"},
		{"custom", "custom.out"},
	}
	for _, tt := range tests {
		if got := defaultOutput(tt.target); got != tt.want {
			t.Errorf("defaultOutput(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestLooksLikeGraph(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"graph.json", true},
		{"default.rb", false},
		{"site.pp", false},
		{"main.tf", false},
	}
	for _, tt := range tests {
		if got := looksLikeGraph(tt.path); got != tt.want {
			t.Errorf("looksLikeGraph(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{2 * 1024 * 1024, "2.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID() = %q, want %q", got, "01234567")
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID() = %q, want %q", got, "abc")
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "—"},
		{"seconds", now.Add(-30 * time.Second), "just now"},
		{"minutes", now.Add(-5 * time.Minute), "5m ago"},
		{"hours", now.Add(-3 * time.Hour), "3h ago"},
		{"days", now.Add(-48 * time.Hour), "2d ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatRelativeTime(tt.t); got != tt.want {
				t.Errorf("formatRelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()

	want := []string{"convert", "parse", "validate", "migrate", "graph", "inspect", "graphs", "plugins", "serve", "cache", "completion"}
	have := make(map[string]bool)
	for _, cmd := range root.Commands() {
		have[cmd.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}
