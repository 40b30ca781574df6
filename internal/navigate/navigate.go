// Package navigate moves the viewer between pages, saving the outgoing
// page's annotation layer to the edit store and restoring the incoming one.
package navigate

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/example/possemark/internal/appstate"
	"github.com/example/possemark/internal/editstore"
	"github.com/example/possemark/internal/surface"
)

// PageCounter reports the number of pages of a document source.
type PageCounter interface {
	PageCount(ctx context.Context) (int, error)
}

// Driver is the pagination state machine over pages 1..TotalPages.
type Driver struct {
	state   *appstate.State
	store   *editstore.Store
	surface *surface.Surface

	mu        sync.Mutex
	listeners []func(page int)
}

// New returns a driver wiring the session, store and live surface together.
func New(state *appstate.State, store *editstore.Store, s *surface.Surface) *Driver {
	return &Driver{state: state, store: store, surface: s}
}

// OnPageChange registers fn to run after the visible page changes.
func (d *Driver) OnPageChange(fn func(page int)) {
	d.mu.Lock()
	d.listeners = append(d.listeners, fn)
	d.mu.Unlock()
}

// Open resets the session for a newly loaded document: page 1, an empty
// edit store and an empty surface.
func (d *Driver) Open(ctx context.Context, src PageCounter) error {
	n, err := src.PageCount(ctx)
	if err != nil {
		return fmt.Errorf("page count: %w", err)
	}
	d.Reset(n)
	return nil
}

// Reset starts a fresh session for a document of total pages.
func (d *Driver) Reset(total int) {
	d.mu.Lock()
	d.state.Reset(total)
	d.store.Reset()
	var err error
	if total > 0 {
		err = d.surface.Load(editstore.Snapshot{Page: 1})
	} else {
		d.surface.Detach()
	}
	fns := d.listeners
	d.mu.Unlock()
	if err != nil {
		log.Printf("reset surface: %v", err)
	}
	for _, fn := range fns {
		fn(d.state.Page())
	}
}

// Page returns the current page.
func (d *Driver) Page() int { return d.state.Page() }

// TotalPages returns the document page count.
func (d *Driver) TotalPages() int { return d.state.TotalPages() }

// CanPrev reports whether a previous page exists.
func (d *Driver) CanPrev() bool { return d.state.Page() > 1 }

// CanNext reports whether a following page exists.
func (d *Driver) CanNext() bool { return d.state.Page() < d.state.TotalPages() }

// Next moves one page forward.
func (d *Driver) Next() (bool, error) { return d.GoTo(1) }

// Prev moves one page back.
func (d *Driver) Prev() (bool, error) { return d.GoTo(-1) }

// GoTo saves the current page, moves by delta and restores the target page.
// A target outside [1, TotalPages] is a no-op and reports false.
func (d *Driver) GoTo(delta int) (bool, error) {
	d.mu.Lock()
	target := d.state.Page() + delta
	d.mu.Unlock()
	return d.GoToPage(target)
}

// GoToPage is GoTo with an absolute target page.
func (d *Driver) GoToPage(target int) (bool, error) {
	d.mu.Lock()
	if err := d.saveLocked(); err != nil {
		d.mu.Unlock()
		return false, err
	}
	if target < 1 || target > d.state.TotalPages() || target == d.state.Page() {
		d.mu.Unlock()
		return false, nil
	}
	d.state.SetPage(target)
	snap, _ := d.store.Get(target)
	if err := d.surface.Load(snap); err != nil {
		// the page stays reachable with an empty layer rather than wedging navigation
		log.Printf("restore page %d: %v", target, err)
		if err := d.surface.Load(editstore.Snapshot{Page: target}); err != nil {
			d.mu.Unlock()
			return true, err
		}
	}
	fns := d.listeners
	d.mu.Unlock()
	for _, fn := range fns {
		fn(target)
	}
	return true, nil
}

// Save stores the live surface under the current page.
func (d *Driver) Save() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saveLocked()
}

func (d *Driver) saveLocked() error {
	if !d.surface.Attached() {
		return nil
	}
	snap, err := d.surface.Dump()
	if err != nil {
		return fmt.Errorf("save page %d: %w", d.state.Page(), err)
	}
	if snap.Page < 1 {
		return nil
	}
	d.store.Put(snap)
	return nil
}

// Snapshot returns the stored layer of page, saving the current page first so
// the result is up to date.
func (d *Driver) Snapshot(page int) (editstore.Snapshot, error) {
	if err := d.Save(); err != nil {
		return editstore.Snapshot{}, err
	}
	snap, _ := d.store.Get(page)
	return snap, nil
}

// Import puts previously saved layers into the edit store. Pages outside the
// document are skipped. The layer of the current page is shown immediately.
func (d *Driver) Import(snaps ...editstore.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := d.state.TotalPages()
	for _, snap := range snaps {
		if snap.Page < 1 || snap.Page > total {
			log.Printf("import: skipping layer for page %d of %d", snap.Page, total)
			continue
		}
		if _, err := snap.Annotations(); err != nil {
			return fmt.Errorf("import page %d: %w", snap.Page, err)
		}
		d.store.Put(snap)
		if snap.Page == d.state.Page() {
			if err := d.surface.Load(snap); err != nil {
				return fmt.Errorf("import page %d: %w", snap.Page, err)
			}
		}
	}
	return nil
}

// Layers returns every non-empty stored layer in page order, including the
// live surface.
func (d *Driver) Layers() ([]editstore.Snapshot, error) {
	if err := d.Save(); err != nil {
		return nil, err
	}
	var out []editstore.Snapshot
	for _, p := range d.store.Pages() {
		if snap, ok := d.store.Get(p); ok && !snap.Empty() {
			out = append(out, snap)
		}
	}
	return out, nil
}
