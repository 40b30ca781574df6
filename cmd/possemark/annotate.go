package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
)

// annotateCmd applies a command script to a document.
type annotateCmd struct {
	*root
	fs     *flag.FlagSet
	file   string
	script string
	layers string
	export string
	stdin  io.Reader
	stdout io.Writer
}

func (a *annotateCmd) FlagSet() *flag.FlagSet {
	return a.fs
}

func (a *annotateCmd) Program() string {
	return a.subcommand("annotate")
}

func parseAnnotateCmd(args []string, r *root) (*annotateCmd, error) {
	fs := flag.NewFlagSet("annotate", flag.ContinueOnError)
	a := &annotateCmd{root: r, fs: fs, stdin: os.Stdin, stdout: os.Stdout}
	fs.Usage = usageFunc(a)
	fs.StringVar(&a.file, "file", "", "PDF file, page image or directory of page images")
	fs.StringVar(&a.script, "script", "-", "command script to run, - for stdin")
	fs.StringVar(&a.layers, "layers", "", "directory holding the annotation layer of each page")
	fs.StringVar(&a.export, "export", "", "export after the script: page or all")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if a.file == "" && fs.NArg() > 0 {
		a.file = fs.Arg(0)
	}
	if a.file == "" {
		return nil, &UsageError{of: a, msg: "a document is required"}
	}
	switch a.export {
	case "", "page", "all":
	default:
		return nil, &UsageError{of: a, msg: fmt.Sprintf("unknown export %q", a.export)}
	}
	return a, nil
}

func (a *annotateCmd) Run() error {
	ctx := context.Background()
	s, err := a.openSession(ctx, a.file)
	if err != nil {
		return err
	}
	if err := s.importLayers(a.layers); err != nil {
		return err
	}

	in := a.stdin
	if a.script != "-" {
		f, err := os.Open(a.script)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	if err := s.toolbar.Run(ctx, in, a.stdout); err != nil {
		return err
	}
	if a.export != "" {
		if err := s.toolbar.Exec(ctx, a.stdout, "export "+a.export); err != nil {
			return err
		}
	}
	if err := s.saveLayers(a.layers); err != nil {
		return fmt.Errorf("save layers: %w", err)
	}
	if p := s.files.LastPath(); p != "" {
		fmt.Fprintf(os.Stderr, "saved to %s\n", p)
	}
	return nil
}
