package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/example/possemark/internal/config"
	"github.com/example/possemark/internal/notify"
)

var (
	version            = "dev"
	commit             = ""
	date               = ""
	configPathOverride = ""
)

type runnable interface{ Run() error }

type root struct {
	fs           *flag.FlagSet
	program      string
	notifier     *notify.Notifier
	config       *config.Config
	exportAlerts bool
	copyAlerts   bool
	exportDir    string
	scale        float64
}

func (r *root) Program() string {
	return r.program
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

func (r *root) subcommand(name string) string {
	return strings.TrimSpace(strings.Join([]string{r.program, name}, " "))
}

func newRoot() *root {
	loader := config.NewLoader(version, configPathOverride)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		cfg = config.New()
	}
	return newRootWithConfig(cfg)
}

func newRootWithConfig(cfg *config.Config) *root {
	r := &root{
		fs:       flag.NewFlagSet("possemark", flag.ContinueOnError),
		program:  "possemark",
		notifier: notify.New(notify.LoadPreferences()),
		config:   cfg,
	}
	// Precedence: CLI > Env > Config > Default. Env and config are already
	// merged by the loader, so they become the flag defaults.
	r.fs.BoolVar(&r.exportAlerts, "notify-export", cfg.Notify.Export, "show a desktop notification after an export is saved")
	r.fs.BoolVar(&r.copyAlerts, "notify-copy", cfg.Notify.Copy, "show a desktop notification after copying a page to the clipboard")
	r.fs.StringVar(&r.exportDir, "dir", cfg.ExportDir, "directory exported documents are written to")
	r.fs.Float64Var(&r.scale, "scale", cfg.Scale(), "capture upscale factor for exports (minimum 2)")
	r.fs.Usage = usageFunc(r)
	return r
}

func (r *root) Run(args []string) error {
	if err := r.fs.Parse(args); err != nil {
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}
	if r.notifier != nil {
		r.notifier.Enable(notify.EventExport, r.exportAlerts)
		r.notifier.Enable(notify.EventCopy, r.copyAlerts)
	}
	r.config.ExportDir = r.exportDir
	r.config.ExportScale = r.scale

	cmdName := r.fs.Arg(0)
	subArgs := r.fs.Args()[1:]

	var (
		cmd runnable
		err error
	)
	switch cmdName {
	case "annotate":
		cmd, err = parseAnnotateCmd(subArgs, r)
	case "export":
		cmd, err = parseExportCmd(subArgs, r)
	case "view":
		cmd, err = parseViewCmd(subArgs, r)
	case "interactive":
		cmd, err = parseInteractiveCmd(subArgs, r)
	case "serve":
		cmd, err = parseServeCmd(subArgs, r)
	case "config":
		cmd, err = parseConfigCmd(subArgs, r)
	case "version":
		cmd = &versionCmd{r: r}
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	return cmd.Run()
}

func main() {
	r := newRoot()
	if err := r.Run(os.Args[1:]); err != nil {
		var uerr *UsageError
		switch {
		case errors.As(err, &uerr):
			fmt.Fprintln(os.Stderr, uerr.Error())
			os.Exit(2)
		case errors.Is(err, flag.ErrHelp):
		default:
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
