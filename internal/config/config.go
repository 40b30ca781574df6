// Package config reads and writes the possemark RC file. The format is
// "key = value" lines grouped under [section] headers; keys before the first
// header belong to the root section.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/possemark/internal/annotation"
)

// Tools holds the default tool styling.
type Tools struct {
	Stroke           annotation.Color
	Fill             annotation.Color
	Width            int
	Highlight        annotation.Color
	HighlightOpacity float64
	HighlightWidth   float64
	HighlightHeight  float64
	ImageWidth       float64
	TextSize         float64
}

// Notify holds notification settings.
type Notify struct {
	Export bool
	Copy   bool
}

// Source configures how documents are rasterised.
type Source struct {
	Renderer string
	DPI      int
	CacheTTL time.Duration
}

// Config holds the application configuration.
type Config struct {
	Output      string
	ExportDir   string
	ExportScale float64
	PageWidthMM float64
	SettleDelay time.Duration

	Tools  Tools
	Notify Notify
	Source Source
}

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		Output:      "marked_submission.pdf",
		ExportScale: 2,
		PageWidthMM: 210,
		Tools: Tools{
			Stroke:           annotation.MustColor("red"),
			Fill:             annotation.Transparent,
			Width:            2,
			Highlight:        annotation.MustColor("yellow"),
			HighlightOpacity: 0.4,
			HighlightWidth:   120,
			HighlightHeight:  24,
			ImageWidth:       200,
			TextSize:         16,
		},
		Source: Source{
			DPI:      96,
			CacheTTL: 10 * time.Minute,
		},
	}
}

// Scale returns the export upscale factor, never below 2.
func (c *Config) Scale() float64 {
	if c.ExportScale < 2 {
		return 2
	}
	return c.ExportScale
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "output = %s\n", c.Output)
	if c.ExportDir != "" {
		fmt.Fprintf(&sb, "export_dir = %s\n", c.ExportDir)
	}
	fmt.Fprintf(&sb, "export_scale = %s\n", formatFloat(c.ExportScale))
	fmt.Fprintf(&sb, "page_width_mm = %s\n", formatFloat(c.PageWidthMM))
	fmt.Fprintf(&sb, "settle_delay = %s\n", c.SettleDelay)
	sb.WriteString("\n")

	sb.WriteString("[tools]\n")
	fmt.Fprintf(&sb, "stroke = %s\n", c.Tools.Stroke)
	fmt.Fprintf(&sb, "fill = %s\n", c.Tools.Fill)
	fmt.Fprintf(&sb, "width = %d\n", c.Tools.Width)
	fmt.Fprintf(&sb, "highlight = %s\n", c.Tools.Highlight)
	fmt.Fprintf(&sb, "highlight_opacity = %s\n", formatFloat(c.Tools.HighlightOpacity))
	fmt.Fprintf(&sb, "highlight_width = %s\n", formatFloat(c.Tools.HighlightWidth))
	fmt.Fprintf(&sb, "highlight_height = %s\n", formatFloat(c.Tools.HighlightHeight))
	fmt.Fprintf(&sb, "image_width = %s\n", formatFloat(c.Tools.ImageWidth))
	fmt.Fprintf(&sb, "text_size = %s\n", formatFloat(c.Tools.TextSize))
	sb.WriteString("\n")

	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "export = %v\n", c.Notify.Export)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)
	sb.WriteString("\n")

	sb.WriteString("[source]\n")
	if c.Source.Renderer != "" {
		fmt.Fprintf(&sb, "renderer = %s\n", c.Source.Renderer)
	}
	fmt.Fprintf(&sb, "dpi = %d\n", c.Source.DPI)
	fmt.Fprintf(&sb, "cache_ttl = %s\n", c.Source.CacheTTL)

	return sb.String()
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
