package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

type commandList []string

func (c *commandList) String() string {
	return strings.Join(*c, ";")
}

func (c *commandList) Set(value string) error {
	*c = append(*c, value)
	return nil
}

// interactiveCmd runs toolbar commands typed at a prompt.
type interactiveCmd struct {
	*root
	fs     *flag.FlagSet
	file   string
	layers string
	execs  commandList
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (i *interactiveCmd) FlagSet() *flag.FlagSet {
	return i.fs
}

func (i *interactiveCmd) Program() string {
	return i.subcommand("interactive")
}

func parseInteractiveCmd(args []string, r *root) (*interactiveCmd, error) {
	fs := flag.NewFlagSet("interactive", flag.ContinueOnError)
	i := &interactiveCmd{root: r, fs: fs, stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	fs.Usage = usageFunc(i)
	fs.StringVar(&i.file, "file", "", "PDF file, page image or directory of page images")
	fs.StringVar(&i.layers, "layers", "", "directory holding the annotation layer of each page")
	fs.Var(&i.execs, "e", "execute command in immediate mode (may be specified multiple times)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if i.file == "" && fs.NArg() > 0 {
		i.file = fs.Arg(0)
	}
	if i.file == "" {
		return nil, &UsageError{of: i, msg: "a document is required"}
	}
	return i, nil
}

func (i *interactiveCmd) Run() error {
	ctx := context.Background()
	s, err := i.openSession(ctx, i.file)
	if err != nil {
		return err
	}
	if err := s.importLayers(i.layers); err != nil {
		return err
	}
	defer func() {
		if err := s.saveLayers(i.layers); err != nil {
			fmt.Fprintf(i.stderr, "save layers: %v\n", err)
		}
	}()

	if len(i.execs) > 0 {
		for _, line := range i.execs {
			if done, err := i.executeLine(ctx, s, line); err != nil || done {
				return err
			}
		}
		return nil
	}

	fmt.Fprintf(i.stdout, "%s: %d pages. Enter commands (type 'help' for a list, 'exit' to quit)\n", i.file, s.nav.TotalPages())
	scanner := bufio.NewScanner(i.stdin)
	for {
		fmt.Fprint(i.stdout, "> ")
		if !scanner.Scan() {
			break
		}
		done, err := i.executeLine(ctx, s, scanner.Text())
		if err != nil {
			fmt.Fprintln(i.stderr, err)
		}
		if done {
			break
		}
	}
	return scanner.Err()
}

func (i *interactiveCmd) executeLine(ctx context.Context, s *session, line string) (bool, error) {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false, nil
	case "exit", "quit":
		return true, nil
	}
	return false, s.toolbar.Exec(ctx, i.stdout, line)
}
