package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/example/possemark/internal/config"
)

type configCmd struct {
	*root
	fs     *flag.FlagSet
	path   string
	stdout io.Writer
}

func (c *configCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *configCmd) Program() string {
	return c.subcommand("config")
}

func parseConfigCmd(args []string, r *root) (*configCmd, error) {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	c := &configCmd{root: r, fs: fs, stdout: os.Stdout}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.path, "path", "", "file written by save (default: the loaded config or ~/.config/possemark/config.rc)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *configCmd) Run() error {
	args := c.fs.Args()
	if len(args) < 1 {
		return &UsageError{of: c}
	}

	switch args[0] {
	case "print":
		fmt.Fprint(c.stdout, c.root.config.String())
		return nil
	case "save":
		return c.runSave()
	default:
		return fmt.Errorf("unknown config command: %s", args[0])
	}
}

func (c *configCmd) runSave() error {
	path := c.path
	if path == "" {
		path = config.NewLoader(version, configPathOverride).GetConfigPath()
	}
	if path == "" {
		path = config.DefaultPath()
	}
	if path == "" {
		return fmt.Errorf("no config path: home directory unknown")
	}
	if err := config.Save(c.root.config, path); err != nil {
		return fmt.Errorf("failed to save config to %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "Configuration saved to %s\n", path)
	return nil
}
