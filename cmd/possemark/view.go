package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/example/possemark/internal/export"
	"github.com/example/possemark/internal/viewer"
)

// viewCmd opens the interactive window.
type viewCmd struct {
	*root
	fs     *flag.FlagSet
	file   string
	layers string
	watch  bool
}

func (v *viewCmd) FlagSet() *flag.FlagSet {
	return v.fs
}

func (v *viewCmd) Program() string {
	return v.subcommand("view")
}

func parseViewCmd(args []string, r *root) (*viewCmd, error) {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	v := &viewCmd{root: r, fs: fs}
	fs.Usage = usageFunc(v)
	fs.StringVar(&v.file, "file", "", "PDF file, page image or directory of page images")
	fs.StringVar(&v.layers, "layers", "", "directory holding the annotation layer of each page")
	fs.BoolVar(&v.watch, "watch", true, "reload the document when it changes on disk")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if v.file == "" && fs.NArg() > 0 {
		v.file = fs.Arg(0)
	}
	if v.file == "" {
		return nil, &UsageError{of: v, msg: "a document is required"}
	}
	return v, nil
}

func (v *viewCmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, err := v.openSession(ctx, v.file)
	if err != nil {
		return err
	}
	if err := s.importLayers(v.layers); err != nil {
		return err
	}

	win := viewer.New(s.state, s.surface, s.toolbar, s.region)
	win.Title = fmt.Sprintf("%s - %s", v.program, filepath.Base(v.file))
	s.nav.OnPageChange(func(int) { win.Refresh() })
	s.toolbar.OnExport(func(res export.Result) {
		win.Flash(fmt.Sprintf("saved %d page(s) to %s", len(res.Pages), s.files.LastPath()))
	})

	if v.watch {
		go func() {
			err := watchFile(ctx, v.file, func() {
				if s.state.Exporting() {
					log.Printf("reload %s: skipped while exporting", v.file)
					return
				}
				if err := s.load(ctx); err != nil {
					win.Flash(err.Error())
					return
				}
				win.Reload()
				win.Flash("document changed, reloaded")
			})
			if err != nil {
				log.Printf("watch %s: %v", v.file, err)
			}
		}()
	}

	win.Run()
	s.toolbar.Wait()
	if err := s.saveLayers(v.layers); err != nil {
		return fmt.Errorf("save layers: %w", err)
	}
	return nil
}
