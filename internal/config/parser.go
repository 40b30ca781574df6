package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/example/possemark/internal/annotation"
)

// Parse reads configuration from an io.Reader.
func Parse(r io.Reader) (*Config, error) {
	cfg := New()
	scanner := bufio.NewScanner(r)

	var currentSection string
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentSection = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")))
			continue
		}

		// Parse Key = Value or Key: Value
		var parts []string
		if strings.Contains(line, "=") {
			parts = strings.SplitN(line, "=", 2)
		} else if strings.Contains(line, ":") {
			parts = strings.SplitN(line, ":", 2)
		} else {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") && len(value) >= 2 {
			value = value[1 : len(value)-1]
		}
		if err := cfg.Set(currentSection, key, value); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}

	return cfg, scanner.Err()
}

// Set assigns one key. Unknown keys and sections are ignored so newer files
// still load.
func (c *Config) Set(section, key, value string) error {
	var err error
	switch strings.ToLower(section) {
	case "":
		err = setRootField(c, key, value)
	case "tools":
		err = setToolsField(&c.Tools, key, value)
	case "notify":
		err = setNotifyField(&c.Notify, key, value)
	case "source":
		err = setSourceField(&c.Source, key, value)
	default:
		return nil
	}
	if err != nil {
		if section == "" {
			return fmt.Errorf("error in root section: %w", err)
		}
		return fmt.Errorf("error in section [%s]: %w", section, err)
	}
	return nil
}

func setRootField(cfg *Config, key, value string) error {
	var err error
	switch strings.ToLower(key) {
	case "output":
		cfg.Output = value
	case "export_dir":
		cfg.ExportDir = value
	case "export_scale":
		cfg.ExportScale, err = parsePositive(key, value)
	case "page_width_mm":
		cfg.PageWidthMM, err = parsePositive(key, value)
	case "settle_delay":
		cfg.SettleDelay, err = parseDuration(key, value)
	}
	return err
}

func setToolsField(t *Tools, key, value string) error {
	var err error
	switch strings.ToLower(key) {
	case "stroke":
		t.Stroke, err = parseColor(key, value)
	case "fill":
		t.Fill, err = parseColor(key, value)
	case "highlight":
		t.Highlight, err = parseColor(key, value)
	case "width":
		var w int
		w, err = strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer for key %s: %w", key, err)
		}
		if w < 0 || w > annotation.MaxStrokeWidth {
			return fmt.Errorf("width %d outside [0,%d]", w, annotation.MaxStrokeWidth)
		}
		t.Width = w
	case "highlight_opacity":
		var f float64
		f, err = strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number for key %s: %w", key, err)
		}
		if f < 0 || f > 1 {
			return fmt.Errorf("highlight_opacity %g outside [0,1]", f)
		}
		t.HighlightOpacity = f
	case "highlight_width":
		t.HighlightWidth, err = parsePositive(key, value)
	case "highlight_height":
		t.HighlightHeight, err = parsePositive(key, value)
	case "image_width":
		t.ImageWidth, err = parsePositive(key, value)
	case "text_size":
		t.TextSize, err = parsePositive(key, value)
	}
	return err
}

func setNotifyField(n *Notify, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean for key %s: %w", key, err)
	}
	switch strings.ToLower(key) {
	case "export":
		n.Export = b
	case "copy":
		n.Copy = b
	}
	return nil
}

func setSourceField(s *Source, key, value string) error {
	var err error
	switch strings.ToLower(key) {
	case "renderer":
		switch value {
		case "", "pdftoppm", "images":
			s.Renderer = value
		default:
			return fmt.Errorf("unknown renderer %q", value)
		}
	case "dpi":
		var d int
		d, err = strconv.Atoi(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid dpi %q", value)
		}
		s.DPI = d
	case "cache_ttl":
		s.CacheTTL, err = parseDuration(key, value)
	}
	return err
}

func parseColor(key, value string) (annotation.Color, error) {
	c, err := annotation.ParseColor(value)
	if err != nil {
		return annotation.Color{}, fmt.Errorf("invalid color for key %s: %w", key, err)
	}
	return c, nil
}

func parsePositive(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number for key %s: %w", key, err)
	}
	if f <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return f, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for key %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
