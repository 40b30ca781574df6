// Package deliver offers finished exports to the user: written into a
// directory or published for download over HTTP.
package deliver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Sink receives a finished document.
type Sink interface {
	Offer(ctx context.Context, name string, pdf []byte) error
}

// FileSink writes each document into Dir, replacing an older file of the
// same name.
type FileSink struct {
	Dir string

	mu   sync.Mutex
	last string
}

// Offer writes pdf to Dir/name through a temporary file so readers never
// see a partial document.
func (f *FileSink) Offer(ctx context.Context, name string, pdf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := f.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	dst := filepath.Join(dir, filepath.Base(name))
	tmp, err := os.CreateTemp(dir, ".possemark-*.pdf")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(pdf); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", dst, err)
	}
	f.mu.Lock()
	f.last = dst
	f.mu.Unlock()
	return nil
}

// LastPath returns the path of the most recently written document.
func (f *FileSink) LastPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Multi offers a document to every sink in order and joins their errors.
type Multi []Sink

func (m Multi) Offer(ctx context.Context, name string, pdf []byte) error {
	var errs []error
	for _, s := range m {
		if err := s.Offer(ctx, name, pdf); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Func adapts a function to a Sink.
type Func func(ctx context.Context, name string, pdf []byte) error

func (fn Func) Offer(ctx context.Context, name string, pdf []byte) error { return fn(ctx, name, pdf) }
