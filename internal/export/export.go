// Package export flattens annotated pages into a PDF. A single page or the
// whole document is captured page by page in ascending order, assembled and
// handed to a delivery sink.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"sync"
	"time"

	"github.com/example/possemark/internal/appstate"
	"github.com/example/possemark/internal/capture"
)

// ErrExportInProgress is returned when an export is requested while another
// one is running. The running export is not affected.
var ErrExportInProgress = errors.New("export already in progress")

const (
	// DefaultFilename is the name offered for every exported document.
	DefaultFilename = "marked_submission.pdf"
	// MinScale is the smallest upscale factor used for page captures.
	MinScale = 2
	// DefaultPageWidthMM is the width of every output page.
	DefaultPageWidthMM = 210.0
)

// Navigator is the part of the navigation driver the pipeline drives.
type Navigator interface {
	Page() int
	TotalPages() int
	GoToPage(n int) (bool, error)
	Save() error
}

// Assembler turns captured page rasters into one output document.
type Assembler interface {
	Append(img image.Image) error
	Finish(w io.Writer) error
}

// Sink receives the finished document.
type Sink interface {
	Offer(ctx context.Context, name string, pdf []byte) error
}

// Options tunes a Pipeline.
type Options struct {
	Filename    string
	PageWidthMM float64
	// SettleDelay is an extra wait after navigating to a page during a
	// whole-document export, before the page is captured.
	SettleDelay time.Duration
	// NewAssembler creates the assembler of each export. The default builds
	// a PDF with one image per page.
	NewAssembler func(pageWidthMM float64) Assembler
}

// Result describes a delivered export.
type Result struct {
	Name  string
	Pages []int
	Size  int
}

// Pipeline runs exports for one viewer session.
type Pipeline struct {
	state   *appstate.State
	nav     Navigator
	capture capture.Capturer
	sink    Sink
	opts    Options
	guard   guard
}

// New returns a pipeline capturing through c and delivering to sink.
func New(state *appstate.State, nav Navigator, c capture.Capturer, sink Sink, opts Options) *Pipeline {
	if opts.Filename == "" {
		opts.Filename = DefaultFilename
	}
	if opts.PageWidthMM <= 0 {
		opts.PageWidthMM = DefaultPageWidthMM
	}
	if opts.NewAssembler == nil {
		opts.NewAssembler = func(w float64) Assembler { return NewPDFAssembler(w) }
	}
	return &Pipeline{state: state, nav: nav, capture: c, sink: sink, opts: opts, guard: guard{state: state}}
}

// Exporting reports whether an export is running.
func (p *Pipeline) Exporting() bool { return p.state.Exporting() }

// Wait blocks until the running export, if any, finishes or ctx ends.
func (p *Pipeline) Wait(ctx context.Context) { p.guard.Wait(ctx) }

// ExportCurrentPage captures the page on screen and delivers it as a
// one-page document. A capture failure aborts without delivering anything.
func (p *Pipeline) ExportCurrentPage(ctx context.Context) (Result, error) {
	if !p.guard.TryLock() {
		log.Printf("export page: %v", ErrExportInProgress)
		return Result{}, ErrExportInProgress
	}
	defer p.guard.Unlock()

	job := newJob()
	page := p.nav.Page()
	img, err := p.capture.Capture(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("export page %d: %w", page, err)
	}
	job.add(page, img)
	return p.deliver(ctx, job)
}

// ExportAllPages visits every page in ascending order, waits for it to
// render, captures it and appends it to the output. The page on screen when
// the export started is restored afterwards.
func (p *Pipeline) ExportAllPages(ctx context.Context) (Result, error) {
	if !p.guard.TryLock() {
		log.Printf("export all: %v", ErrExportInProgress)
		return Result{}, ErrExportInProgress
	}
	defer p.guard.Unlock()

	start := p.nav.Page()
	defer func() {
		if _, err := p.nav.GoToPage(start); err != nil {
			log.Printf("export all: restore page %d: %v", start, err)
		}
	}()
	if err := p.nav.Save(); err != nil {
		return Result{}, fmt.Errorf("export all: %w", err)
	}

	job := newJob()
	total := p.nav.TotalPages()
	for page := 1; page <= total; page++ {
		if _, err := p.nav.GoToPage(page); err != nil {
			return Result{}, fmt.Errorf("export all: page %d: %w", page, err)
		}
		if err := p.settle(ctx); err != nil {
			return Result{}, fmt.Errorf("export all: page %d: %w", page, err)
		}
		img, err := p.capture.Capture(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("export all: page %d: %w", page, err)
		}
		job.add(page, img)
	}
	return p.deliver(ctx, job)
}

func (p *Pipeline) settle(ctx context.Context) error {
	if p.opts.SettleDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.opts.SettleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *Pipeline) deliver(ctx context.Context, job *job) (Result, error) {
	defer job.discard()
	data, err := job.assemble(p.opts.NewAssembler(p.opts.PageWidthMM))
	if err != nil {
		return Result{}, err
	}
	if err := p.sink.Offer(ctx, p.opts.Filename, data); err != nil {
		return Result{}, fmt.Errorf("deliver %s: %w", p.opts.Filename, err)
	}
	return Result{Name: p.opts.Filename, Pages: job.pages, Size: len(data)}, nil
}

// job is the ordered set of captured pages of one export. It exists only
// for the duration of the export.
type job struct {
	pages  []int
	images []image.Image
}

func newJob() *job { return &job{} }

func (j *job) add(page int, img image.Image) {
	j.pages = append(j.pages, page)
	j.images = append(j.images, img)
}

func (j *job) assemble(a Assembler) ([]byte, error) {
	if len(j.images) == 0 {
		return nil, fmt.Errorf("assemble: no pages captured")
	}
	for i, img := range j.images {
		if err := a.Append(img); err != nil {
			return nil, fmt.Errorf("assemble page %d: %w", j.pages[i], err)
		}
	}
	var buf bytes.Buffer
	if err := a.Finish(&buf); err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	return buf.Bytes(), nil
}

func (j *job) discard() { j.images = nil }

// guard admits one export at a time through the session's export flag.
type guard struct {
	state *appstate.State
	wg    sync.WaitGroup
}

// TryLock marks an export as running and returns false if one already is.
func (g *guard) TryLock() bool {
	if !g.state.BeginExport() {
		return false
	}
	g.wg.Add(1)
	return true
}

// Unlock must be called after a successful TryLock.
func (g *guard) Unlock() {
	g.state.EndExport()
	g.wg.Done()
}

// Wait blocks until the running export completes or ctx is cancelled.
func (g *guard) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
