package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/example/possemark/internal/config"
	"github.com/example/possemark/internal/editstore"
)

// writePages creates a directory holding n blank page images.
func writePages(t *testing.T, n int) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "pages")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 100, 140))
		for j := range img.Pix {
			img.Pix[j] = 0xff
		}
		img.Set(i, i, color.Black)
		f, err := os.Create(filepath.Join(dir, "p"+string(rune('0'+i))+".png"))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	return dir
}

func testRoot(t *testing.T) (*root, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out")
	cfg := config.New()
	cfg.ExportDir = out
	return newRootWithConfig(cfg), out
}

func pdfPages(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	n, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	return n
}

func TestRootUsage(t *testing.T) {
	r, _ := testRoot(t)
	var uerr *UsageError
	if err := r.Run(nil); !errors.As(err, &uerr) {
		t.Fatalf("no command error = %v", err)
	}
	if !strings.Contains(uerr.Error(), "annotate") {
		t.Fatalf("help does not list commands:\n%s", uerr.Error())
	}
	r, _ = testRoot(t)
	if err := r.Run([]string{"frobnicate"}); !errors.As(err, &uerr) {
		t.Fatalf("unknown command error = %v", err)
	}
}

func TestSubcommandsRequireDocument(t *testing.T) {
	for _, name := range []string{"annotate", "export", "view", "interactive", "serve"} {
		r, _ := testRoot(t)
		err := r.Run([]string{name})
		var uerr *UsageError
		if !errors.As(err, &uerr) {
			t.Fatalf("%s error = %v", name, err)
		}
		if msg := uerr.Error(); !strings.Contains(msg, "a document is required") || !strings.Contains(msg, "possemark "+name) {
			t.Fatalf("%s usage:\n%s", name, msg)
		}
	}
}

func TestAnnotateThenExport(t *testing.T) {
	pages := writePages(t, 2)
	layers := filepath.Join(t.TempDir(), "layers")
	script := filepath.Join(t.TempDir(), "marks.txt")
	if err := os.WriteFile(script, []byte("rect 10 10 50 50\ntext 10 70 note\nnext\nhighlight 5 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, out := testRoot(t)
	if err := r.Run([]string{"annotate", "-file", pages, "-script", script, "-layers", layers, "-export", "all"}); err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if n := pdfPages(t, filepath.Join(out, "marked_submission.pdf")); n != 2 {
		t.Fatalf("annotate export pages = %d", n)
	}
	snaps, err := readLayers(layers)
	if err != nil || len(snaps) != 2 {
		t.Fatalf("layers = %v, %v", snaps, err)
	}

	r, out = testRoot(t)
	if err := r.Run([]string{"export", "-layers", layers, "-page", "2", "-o", "page2.pdf", pages}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if n := pdfPages(t, filepath.Join(out, "page2.pdf")); n != 1 {
		t.Fatalf("export pages = %d", n)
	}
}

func TestExportRejectsMissingPage(t *testing.T) {
	pages := writePages(t, 1)
	r, _ := testRoot(t)
	if err := r.Run([]string{"export", "-page", "4", pages}); err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("error = %v", err)
	}
}

func TestInteractiveImmediateMode(t *testing.T) {
	pages := writePages(t, 2)
	r, _ := testRoot(t)
	cmd, err := parseInteractiveCmd([]string{"-e", "rect", "-e", "next", "-e", "page", "-e", "exit", "-e", "next", pages}, r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var out bytes.Buffer
	cmd.stdout = &out
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Count(out.String(), "page 2/2"); got != 2 {
		t.Fatalf("output:\n%s", out.String())
	}
}

func TestInteractivePrompt(t *testing.T) {
	pages := writePages(t, 1)
	r, _ := testRoot(t)
	cmd, err := parseInteractiveCmd([]string{pages}, r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var out, errOut bytes.Buffer
	cmd.stdin = strings.NewReader("circle\nbogus\nlist\nquit\nrect\n")
	cmd.stdout = &out
	cmd.stderr = &errOut
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), " circle ") || strings.Contains(out.String(), " rect ") {
		t.Fatalf("output:\n%s", out.String())
	}
	if !strings.Contains(errOut.String(), "unknown command") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestConfigPrintAndSave(t *testing.T) {
	r, _ := testRoot(t)
	r.config.Tools.Width = 5
	cmd, err := parseConfigCmd([]string{"print"}, r)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	cmd.stdout = &out
	if err := cmd.Run(); err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.Contains(out.String(), "width = 5") {
		t.Fatalf("print output:\n%s", out.String())
	}

	path := filepath.Join(t.TempDir(), "saved.rc")
	cmd, err = parseConfigCmd([]string{"-path", path, "save"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("save: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := config.Parse(f)
	if err != nil || cfg.Tools.Width != 5 {
		t.Fatalf("saved config = %+v, %v", cfg, err)
	}
}

func TestLayersRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "layers")
	if snaps, err := readLayers(dir); err != nil || snaps != nil {
		t.Fatalf("missing dir = %v, %v", snaps, err)
	}
	pages := writePages(t, 3)
	r, _ := testRoot(t)
	cmd, err := parseInteractiveCmd([]string{"-layers", dir, "-e", "rect", "-e", "goto 3", "-e", "circle", pages}, r)
	if err != nil {
		t.Fatal(err)
	}
	cmd.stdout = &bytes.Buffer{}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	snaps, err := readLayers(dir)
	if err != nil || len(snaps) != 2 || snaps[0].Page != 1 || snaps[1].Page != 3 {
		t.Fatalf("layers = %+v, %v", snaps, err)
	}

	// clearing page 3 removes its file on the next save
	cmd, _ = parseInteractiveCmd([]string{"-layers", dir, "-e", "goto 3", "-e", "clear", pages}, r)
	cmd.stdout = &bytes.Buffer{}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(layerPath(dir, 3)); !os.IsNotExist(err) {
		t.Fatalf("page 3 layer still present: %v", err)
	}
	if _, err := os.Stat(layerPath(dir, 1)); err != nil {
		t.Fatalf("page 1 layer lost: %v", err)
	}
}

func TestWriteLayersRemovesUnpaddedNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"page-7.json", "page-1.json", "notes.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := writeLayers(dir, []editstore.Snapshot{{Page: 1, Data: []byte("{}")}}); err != nil {
		t.Fatalf("writeLayers: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if diff := cmp.Diff([]string{"notes.json", "page-001.json"}, names); diff != "" {
		t.Fatalf("files (-want +got):\n%s", diff)
	}
	snaps, err := readLayers(dir)
	if err != nil || len(snaps) != 1 || snaps[0].Page != 1 {
		t.Fatalf("layers = %+v, %v", snaps, err)
	}
}

func TestRelated(t *testing.T) {
	cases := []struct {
		watched, name string
		want          bool
	}{
		{"/docs/a.pdf", "/docs/a.pdf", true},
		{"/docs/a.pdf", "/docs/b.pdf", false},
		{"/docs/pages", "/docs/pages/p1.png", true},
		{"/docs/pages", "/docs/pages/.possemark-1.pdf", false},
		{"/docs/pages", "/docs/other.png", false},
	}
	for _, c := range cases {
		if got := related(c.watched, c.name); got != c.want {
			t.Errorf("related(%q, %q) = %v", c.watched, c.name, got)
		}
	}
}
