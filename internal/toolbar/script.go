package toolbar

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/example/possemark/internal/annotation"
	"github.com/example/possemark/internal/appstate"
)

// ErrUnknownCommand is returned by Exec for an unrecognised command word.
var ErrUnknownCommand = errors.New("unknown command")

// Commands lists the script commands with a short usage line each.
var Commands = []struct{ Name, Usage string }{
	{"rect", "rect [x y w h]"},
	{"circle", "circle [x y r]"},
	{"text", "text [x y] words..."},
	{"highlight", "highlight [x y]"},
	{"draw", "draw x,y x,y ..."},
	{"image", "image path"},
	{"select", "select all|none|x y|id..."},
	{"move", "move dx dy"},
	{"resize", "resize sx [sy]"},
	{"raise", "raise"},
	{"delete", "delete"},
	{"clear", "clear"},
	{"list", "list"},
	{"next", "next"},
	{"prev", "prev"},
	{"goto", "goto page"},
	{"page", "page"},
	{"color", "color name|#RRGGBB[AA]|next|prev"},
	{"fill", "fill name|#RRGGBB[AA]|transparent"},
	{"width", "width 0-10"},
	{"tool", "tool none|select|freehand|highlight"},
	{"hide", "hide"},
	{"show", "show"},
	{"paste", "paste"},
	{"copy", "copy"},
	{"export", "export page|all"},
}

// Run executes a script read from r, one command per line. Blank lines and
// lines starting with # are skipped. The first failing line stops the run.
func (t *Toolbar) Run(ctx context.Context, r io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.Exec(ctx, out, line); err != nil {
			return fmt.Errorf("line %d: %s: %w", lineNo, line, err)
		}
	}
	return scanner.Err()
}

// Exec runs a single command line, writing any report to out.
func (t *Toolbar) Exec(ctx context.Context, out io.Writer, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "rect":
		if len(args) == 0 {
			return printID(out)(t.AddShape(annotation.KindRectangle))
		}
		v, err := floats(args, 4)
		if err != nil {
			return err
		}
		return printID(out)(t.Add(annotation.NewRectangle(v[0], v[1], v[2], v[3], t.state.Settings().Style())))
	case "circle":
		if len(args) == 0 {
			return printID(out)(t.AddShape(annotation.KindCircle))
		}
		v, err := floats(args, 3)
		if err != nil {
			return err
		}
		return printID(out)(t.Add(annotation.NewCircle(v[0], v[1], v[2], t.state.Settings().Style())))
	case "text":
		return t.execText(out, args)
	case "highlight":
		if len(args) == 0 {
			return printID(out)(t.AddShape(annotation.KindHighlight))
		}
		v, err := floats(args, 2)
		if err != nil {
			return err
		}
		end, err := t.begin()
		if err != nil {
			return err
		}
		defer end()
		t.SetTool(appstate.ToolHighlight)
		return printID(out)(t.surface.PlaceHighlightAt(annotation.Point{X: v[0], Y: v[1]}))
	case "draw":
		return t.execDraw(out, args)
	case "image":
		if len(args) != 1 {
			return fmt.Errorf("usage: image path")
		}
		end, err := t.begin()
		if err != nil {
			return err
		}
		defer end()
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		return printID(out)(t.surface.InsertImage(f))
	case "select":
		return t.execSelect(out, args)
	case "move":
		end, err := t.begin()
		if err != nil {
			return err
		}
		defer end()
		v, err := floats(args, 2)
		if err != nil {
			return err
		}
		t.surface.MoveSelected(v[0], v[1])
		return nil
	case "resize":
		end, err := t.begin()
		if err != nil {
			return err
		}
		defer end()
		if len(args) == 1 {
			args = append(args, args[0])
		}
		v, err := floats(args, 2)
		if err != nil {
			return err
		}
		t.surface.ResizeSelected(v[0], v[1])
		return nil
	case "raise":
		end, err := t.begin()
		if err != nil {
			return err
		}
		defer end()
		t.surface.Raise()
		return nil
	case "delete":
		n, err := t.DeleteSelected()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %d\n", n)
		return nil
	case "clear":
		end, err := t.begin()
		if err != nil {
			return err
		}
		defer end()
		t.surface.ClearPage()
		return nil
	case "list":
		for _, a := range t.surface.Annotations() {
			b := a.Bounds()
			fmt.Fprintf(out, "%s %s %g,%g %gx%g\n", a.ID(), a.Kind(), b.X, b.Y, b.W, b.H)
		}
		return nil
	case "next":
		_, err := t.Next()
		return t.reportPage(out, err)
	case "prev":
		_, err := t.Prev()
		return t.reportPage(out, err)
	case "goto":
		if len(args) != 1 {
			return fmt.Errorf("usage: goto page")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid page %q", args[0])
		}
		_, err = t.GoToPage(n)
		return t.reportPage(out, err)
	case "page":
		return t.reportPage(out, nil)
	case "color", "stroke":
		if len(args) == 1 && (args[0] == "next" || args[0] == "prev") {
			step := 1
			if args[0] == "prev" {
				step = -1
			}
			fmt.Fprintf(out, "color %s\n", t.CycleStroke(step).Name)
			return nil
		}
		c, err := colorArg(args)
		if err != nil {
			return err
		}
		t.SetStroke(c)
		return nil
	case "fill":
		c, err := colorArg(args)
		if err != nil {
			return err
		}
		t.SetFill(c)
		return nil
	case "width":
		if len(args) != 1 {
			return fmt.Errorf("usage: width 0-10")
		}
		w, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid width %q", args[0])
		}
		t.SetWidth(w)
		return nil
	case "tool":
		name := ""
		if len(args) > 0 {
			name = strings.ToLower(args[0])
		}
		tool, err := appstate.ParseTool(name)
		if err != nil {
			return err
		}
		t.SetTool(tool)
		return nil
	case "hide":
		t.state.SetHidden(true)
		return nil
	case "show":
		t.state.SetHidden(false)
		return nil
	case "paste":
		return printID(out)(t.PasteImage())
	case "copy":
		return t.CopyPage(ctx)
	case "export":
		return t.execExport(ctx, out, args)
	case "help":
		for _, c := range Commands {
			fmt.Fprintln(out, c.Usage)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

func (t *Toolbar) execText(out io.Writer, args []string) error {
	if len(args) == 0 {
		return printID(out)(t.AddShape(annotation.KindText))
	}
	end, err := t.begin()
	if err != nil {
		return err
	}
	defer end()
	p := t.surface.Options().Origin
	if len(args) >= 3 {
		if v, err := floats(args[:2], 2); err == nil {
			p = annotation.Point{X: v[0], Y: v[1]}
			args = args[2:]
		}
	}
	return printID(out)(t.surface.AddText(p, strings.Join(args, " ")))
}

// execDraw records a freehand stroke. The previous tool is restored
// afterwards so a script can draw without leaving the pen active.
func (t *Toolbar) execDraw(out io.Writer, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: draw x,y x,y ...")
	}
	end, err := t.begin()
	if err != nil {
		return err
	}
	defer end()
	points := make([]annotation.Point, 0, len(args))
	for _, a := range args {
		xs, ys, ok := strings.Cut(a, ",")
		if !ok {
			return fmt.Errorf("invalid point %q", a)
		}
		v, err := floats([]string{xs, ys}, 2)
		if err != nil {
			return err
		}
		points = append(points, annotation.Point{X: v[0], Y: v[1]})
	}
	prev := t.state.Tool()
	t.SetTool(appstate.ToolFreehand)
	defer t.SetTool(prev)
	return printID(out)(t.surface.AddFreehandStroke(points))
}

func (t *Toolbar) execSelect(out io.Writer, args []string) error {
	switch {
	case len(args) == 1 && args[0] == "all":
		t.surface.SelectAll()
	case len(args) == 1 && args[0] == "none":
		t.surface.ClearSelection()
	case len(args) == 2:
		if v, err := floats(args, 2); err == nil {
			if id, ok := t.surface.SelectAt(annotation.Point{X: v[0], Y: v[1]}, false); ok {
				fmt.Fprintln(out, id)
			} else {
				fmt.Fprintln(out, "nothing selected")
			}
			return nil
		}
		t.surface.Select(args...)
	case len(args) > 0:
		t.surface.Select(args...)
	default:
		return fmt.Errorf("usage: select all|none|x y|id...")
	}
	fmt.Fprintf(out, "selected %d\n", len(t.surface.Selected()))
	return nil
}

func (t *Toolbar) execExport(ctx context.Context, out io.Writer, args []string) error {
	what := "page"
	if len(args) > 0 {
		what = strings.ToLower(args[0])
	}
	var err error
	switch what {
	case "page":
		res, e := t.ExportPage(ctx)
		if e == nil {
			fmt.Fprintf(out, "exported %s (%d page, %d bytes)\n", res.Name, len(res.Pages), res.Size)
		}
		err = e
	case "all":
		res, e := t.ExportAll(ctx)
		if e == nil {
			fmt.Fprintf(out, "exported %s (%d pages, %d bytes)\n", res.Name, len(res.Pages), res.Size)
		}
		err = e
	default:
		return fmt.Errorf("usage: export page|all")
	}
	return err
}

// printID reports the identifier of an inserted annotation.
func printID(out io.Writer) func(string, error) error {
	return func(id string, err error) error {
		if err != nil {
			return err
		}
		fmt.Fprintln(out, id)
		return nil
	}
}

func (t *Toolbar) reportPage(out io.Writer, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "page %d/%d\n", t.nav.Page(), t.nav.TotalPages())
	return nil
}

func floats(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(args))
	}
	v := make([]float64, n)
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", a)
		}
		v[i] = f
	}
	return v, nil
}

func colorArg(args []string) (annotation.Color, error) {
	if len(args) != 1 {
		return annotation.Color{}, fmt.Errorf("expected one colour")
	}
	return annotation.ParseColor(args[0])
}
