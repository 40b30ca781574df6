package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/example/possemark/internal/editstore"
)

var layerName = regexp.MustCompile(`^page-(\d+)\.json$`)

func layerPath(dir string, page int) string {
	return filepath.Join(dir, fmt.Sprintf("page-%03d.json", page))
}

// layerFiles maps the layer file names in dir to their page numbers. A
// missing directory holds no layers.
func layerFiles(dir string) (map[string]int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	files := make(map[string]int)
	for _, e := range entries {
		m := layerName.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		page, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		files[e.Name()] = page
	}
	return files, nil
}

// readLayers loads the annotation layers saved in dir.
func readLayers(dir string) ([]editstore.Snapshot, error) {
	files, err := layerFiles(dir)
	if err != nil {
		return nil, err
	}
	var snaps []editstore.Snapshot
	for name, page := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, editstore.Snapshot{Page: page, Data: data})
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Page < snaps[j].Page })
	return snaps, nil
}

// writeLayers saves one file per snapshot and removes every other layer
// file, including ones saved under a different spelling of a kept page.
func writeLayers(dir string, snaps []editstore.Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	old, err := layerFiles(dir)
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(snaps))
	for _, snap := range snaps {
		path := layerPath(dir, snap.Page)
		keep[filepath.Base(path)] = true
		if err := os.WriteFile(path, snap.Data, 0o644); err != nil {
			return fmt.Errorf("save layer %d: %w", snap.Page, err)
		}
	}
	for name := range old {
		if keep[name] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// importLayers loads dir into the session when dir is set.
func (s *session) importLayers(dir string) error {
	if dir == "" {
		return nil
	}
	snaps, err := readLayers(dir)
	if err != nil {
		return err
	}
	return s.nav.Import(snaps...)
}

// saveLayers writes the session's layers to dir when dir is set.
func (s *session) saveLayers(dir string) error {
	if dir == "" {
		return nil
	}
	snaps, err := s.nav.Layers()
	if err != nil {
		return err
	}
	return writeLayers(dir, snaps)
}
