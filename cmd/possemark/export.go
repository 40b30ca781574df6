package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
)

// exportCmd flattens a document and its saved layers into a PDF.
type exportCmd struct {
	*root
	fs     *flag.FlagSet
	file   string
	layers string
	page   int
	output string
	stdout io.Writer
}

func (e *exportCmd) FlagSet() *flag.FlagSet {
	return e.fs
}

func (e *exportCmd) Program() string {
	return e.subcommand("export")
}

func parseExportCmd(args []string, r *root) (*exportCmd, error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	e := &exportCmd{root: r, fs: fs, stdout: os.Stdout}
	fs.Usage = usageFunc(e)
	fs.StringVar(&e.file, "file", "", "PDF file, page image or directory of page images")
	fs.StringVar(&e.layers, "layers", "", "directory holding the annotation layer of each page")
	fs.IntVar(&e.page, "page", 0, "export only this page (default all pages)")
	fs.StringVar(&e.output, "o", r.config.Output, "output file name")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if e.file == "" && fs.NArg() > 0 {
		e.file = fs.Arg(0)
	}
	if e.file == "" {
		return nil, &UsageError{of: e, msg: "a document is required"}
	}
	if e.page < 0 {
		return nil, &UsageError{of: e, msg: "page must be positive"}
	}
	return e, nil
}

func (e *exportCmd) Run() error {
	ctx := context.Background()
	e.config.Output = e.output
	s, err := e.openSession(ctx, e.file)
	if err != nil {
		return err
	}
	if err := s.importLayers(e.layers); err != nil {
		return err
	}
	cmd := "export all"
	if e.page > 0 {
		if e.page > s.nav.TotalPages() {
			return fmt.Errorf("page %d out of range (document has %d pages)", e.page, s.nav.TotalPages())
		}
		if _, err := s.toolbar.GoToPage(e.page); err != nil {
			return err
		}
		cmd = "export page"
	}
	if err := s.toolbar.Exec(ctx, e.stdout, cmd); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "saved to %s\n", s.files.LastPath())
	return nil
}
