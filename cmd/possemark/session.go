package main

import (
	"context"
	"fmt"
	"time"

	"github.com/example/possemark/internal/appstate"
	"github.com/example/possemark/internal/capture"
	"github.com/example/possemark/internal/deliver"
	"github.com/example/possemark/internal/editstore"
	"github.com/example/possemark/internal/export"
	"github.com/example/possemark/internal/navigate"
	"github.com/example/possemark/internal/source"
	"github.com/example/possemark/internal/surface"
	"github.com/example/possemark/internal/toolbar"
)

// session is one document-viewing session: every component is built once
// here and handed to the others explicitly.
type session struct {
	path string
	opts source.Options
	ttl  time.Duration

	state    *appstate.State
	store    *editstore.Store
	surface  *surface.Surface
	nav      *navigate.Driver
	region   *capture.Region
	pipeline *export.Pipeline
	toolbar  *toolbar.Toolbar
	files    *deliver.FileSink
}

// openSession loads path and wires a session around it. Exports are written
// to the configured export directory and offered to every extra sink.
func (r *root) openSession(ctx context.Context, path string, extra ...deliver.Sink) (*session, error) {
	cfg := r.config
	kind, err := source.ParseKind(cfg.Source.Renderer)
	if err != nil {
		return nil, err
	}
	s := &session{
		path:  path,
		opts:  source.Options{Kind: kind, DPI: cfg.Source.DPI},
		ttl:   cfg.Source.CacheTTL,
		store: editstore.New(),
		files: &deliver.FileSink{Dir: cfg.ExportDir},
	}
	s.state = appstate.New(
		appstate.WithStroke(cfg.Tools.Stroke),
		appstate.WithFill(cfg.Tools.Fill),
		appstate.WithStrokeWidth(cfg.Tools.Width),
	)
	sopts := surface.DefaultOptions()
	sopts.HighlightColor = cfg.Tools.Highlight
	sopts.HighlightOpacity = cfg.Tools.HighlightOpacity
	sopts.HighlightWidth = cfg.Tools.HighlightWidth
	sopts.HighlightHeight = cfg.Tools.HighlightHeight
	sopts.ImageWidth = cfg.Tools.ImageWidth
	sopts.TextSize = cfg.Tools.TextSize
	s.surface = surface.New(s.state, sopts)
	s.nav = navigate.New(s.state, s.store, s.surface)
	s.region = capture.NewRegion(nil, s.surface, cfg.Scale())

	sinks := deliver.Multi{s.files}
	sinks = append(sinks, extra...)
	s.pipeline = export.New(s.state, s.nav, s.region, sinks, export.Options{
		Filename:    cfg.Output,
		PageWidthMM: cfg.PageWidthMM,
		SettleDelay: cfg.SettleDelay,
	})
	s.toolbar = toolbar.New(s.state, s.surface, s.nav, s.pipeline, s.region,
		toolbar.WithNotifier(r.notifier),
		toolbar.WithLocator(func(export.Result) string { return s.files.LastPath() }),
	)
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// load (re)opens the document. Edits of a previous load are discarded.
func (s *session) load(ctx context.Context) error {
	rr, err := source.Open(s.path, s.opts)
	if err != nil {
		return err
	}
	src := source.NewCached(rr, s.ttl)
	if err := s.nav.Open(ctx, src); err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	s.region.SetRenderer(src)
	return nil
}
