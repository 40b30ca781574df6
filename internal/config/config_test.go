package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/example/possemark/internal/annotation"
)

func TestParse(t *testing.T) {
	input := `
output = review.pdf
export_dir = /tmp/marked
export_scale = 3
settle_delay = 500ms

[tools]
stroke = #0000FF
fill = transparent
width = 4
highlight_opacity = 0.25

[notify]
export = true
copy = false

[source]
renderer = images
dpi = 150
`
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Output != "review.pdf" || cfg.ExportDir != "/tmp/marked" {
		t.Errorf("root = %q %q", cfg.Output, cfg.ExportDir)
	}
	if cfg.ExportScale != 3 || cfg.SettleDelay != 500*time.Millisecond {
		t.Errorf("scale %v delay %v", cfg.ExportScale, cfg.SettleDelay)
	}
	if cfg.Tools.Stroke != (annotation.Color{B: 255, A: 255}) || cfg.Tools.Width != 4 {
		t.Errorf("tools = %+v", cfg.Tools)
	}
	if cfg.Tools.HighlightOpacity != 0.25 || cfg.Tools.ImageWidth != 200 {
		t.Errorf("defaults not kept: %+v", cfg.Tools)
	}
	if !cfg.Notify.Export || cfg.Notify.Copy {
		t.Errorf("notify = %+v", cfg.Notify)
	}
	if cfg.Source.Renderer != "images" || cfg.Source.DPI != 150 || cfg.Source.CacheTTL != 10*time.Minute {
		t.Errorf("source = %+v", cfg.Source)
	}
}

func TestDefaultColors(t *testing.T) {
	cfg := New()
	if cfg.Tools.Stroke != (annotation.Color{R: 255, A: 255}) {
		t.Fatalf("stroke = %v", cfg.Tools.Stroke)
	}
	if cfg.Tools.Highlight != (annotation.Color{R: 255, G: 255, A: 255}) {
		t.Fatalf("highlight = %v", cfg.Tools.Highlight)
	}
	if cfg.Tools.Fill != annotation.Transparent {
		t.Fatalf("fill = %v", cfg.Tools.Fill)
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	for _, input := range []string{
		"[tools]\nwidth = 11",
		"[tools]\nhighlight_opacity = 2",
		"[tools]\nstroke = #12",
		"export_scale = -1",
		"settle_delay = soon",
		"[notify]\nexport = maybe",
		"[source]\nrenderer = gs",
	} {
		if _, err := Parse(strings.NewReader(input)); err == nil {
			t.Errorf("Parse(%q) succeeded", input)
		}
	}
}

func TestScaleHasMinimum(t *testing.T) {
	cfg := New()
	cfg.ExportScale = 1
	if cfg.Scale() != 2 {
		t.Fatalf("Scale = %v", cfg.Scale())
	}
}

func TestCircular(t *testing.T) {
	input := `output = out.pdf
export_dir = /home/user/marked
export_scale = 2.5
settle_delay = 1s

[tools]
stroke = #FF000080
fill = #00FF00
width = 7

[notify]
export = true
copy = true

[source]
renderer = pdftoppm
dpi = 72
cache_ttl = 1m
`
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Initial parse failed: %v", err)
	}
	cfg2, err := Parse(strings.NewReader(cfg.String()))
	if err != nil {
		t.Fatalf("Circular parse failed: %v", err)
	}
	if diff := cmp.Diff(cfg, cfg2); diff != "" {
		t.Errorf("round trip (-first +second):\n%s", diff)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"POSSEMARK_OUTPUT":       "env.pdf",
		"POSSEMARK_TOOLS_WIDTH":  "9",
		"POSSEMARK_NOTIFY_COPY":  "true",
		"POSSEMARK_SOURCE_DPI":   "200",
		"POSSEMARK_TOOLS_STROKE": "navy",
	}
	cfg := New()
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Output != "env.pdf" || cfg.Tools.Width != 9 || !cfg.Notify.Copy || cfg.Source.DPI != 200 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Tools.Stroke != (annotation.Color{B: 128, A: 255}) {
		t.Fatalf("stroke = %v", cfg.Tools.Stroke)
	}
	bad := func(k string) string {
		if k == "POSSEMARK_TOOLS_WIDTH" {
			return "99"
		}
		return ""
	}
	if err := New().ApplyEnv(bad); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoaderPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.rc")
	if err := os.WriteFile(path, []byte("output = file.pdf\n[tools]\nwidth = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader("test", path)
	l.Getenv = func(k string) string {
		if k == "POSSEMARK_OUTPUT" {
			return "env.pdf"
		}
		return ""
	}
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output != "env.pdf" || cfg.Tools.Width != 3 {
		t.Fatalf("cfg output=%q width=%d", cfg.Output, cfg.Tools.Width)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.rc")
	cfg := New()
	cfg.Notify.Export = true
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	l := NewLoader("test", path)
	l.Getenv = func(string) string { return "" }
	got, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Notify.Export {
		t.Fatal("saved value lost")
	}
}
