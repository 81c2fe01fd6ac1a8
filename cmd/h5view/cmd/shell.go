package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	pathpkg "path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/h5view/hdf5"
	"github.com/robert-malhotra/h5view/session"
	"github.com/robert-malhotra/h5view/tree"
)

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell <file>",
		Short: "Browse a file interactively",
		Long: `Open a file in a session and browse it from a console. Tables
selected with 'rows' are cached for the life of the shell.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			m, release, err := a.newManager(reg)
			if err != nil {
				return err
			}
			defer release()

			s, err := m.Open(tree.FileSource(args[0]))
			if err != nil {
				return err
			}
			defer m.Close(s.ID())

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "/> ",
				HistoryFile:     historyFile(),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdout:          cmd.OutOrStdout(),
				Stderr:          cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("failed to start console: %w", err)
			}
			defer rl.Close()

			sh := newShell(s, reg, rl.Stdout())
			fmt.Fprintf(sh.out, "%s: %d objects (type 'help' for commands)\n", filepath.Base(args[0]), s.Tree().Len())
			return sh.run(cmd.Context(), rl)
		},
	}
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "h5view_history")
}

// shell is the command interpreter behind the console.
type shell struct {
	sess *session.Session
	reg  prometheus.Gatherer
	out  io.Writer
	cwd  string
}

func newShell(s *session.Session, reg prometheus.Gatherer, out io.Writer) *shell {
	return &shell{sess: s, reg: reg, out: out, cwd: "/"}
}

func (sh *shell) run(ctx context.Context, rl *readline.Instance) error {
	for {
		rl.SetPrompt(sh.cwd + "> ")
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if sh.exec(ctx, line) {
			return nil
		}
	}
}

// exec runs one command line and reports whether the shell should exit.
func (sh *shell) exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := parts[0], parts[1:]

	var err error
	switch cmd {
	case "ls":
		err = sh.ls(args)
	case "cd":
		err = sh.cd(args)
	case "pwd":
		fmt.Fprintln(sh.out, sh.cwd)
	case "attrs":
		err = printAttrs(sh.out, sh.sess.Tree(), sh.resolve(arg(args, 0)))
	case "rows":
		err = sh.rows(ctx, args)
	case "tree":
		err = tree.Format(sh.out, sh.sess.Tree())
	case "cache":
		err = sh.cacheStatus()
	case "help", "?":
		sh.help()
	case "exit", "quit":
		return true
	default:
		fmt.Fprintf(sh.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(sh.out, "Error: %v\n", err)
	}
	return false
}

func (sh *shell) help() {
	fmt.Fprintln(sh.out, `Commands:
  ls [path]          list the members of a group
  cd <path>          change the current group
  pwd                print the current group
  attrs [path]       list attributes; path may be /object@name
  rows [path] [max]  print a dataset or group as a table
  tree               print the whole object tree
  cache              show cached tables and cache counters
  exit               leave the shell`)
}

// resolve turns p into an absolute object path relative to the current
// group. Attribute suffixes are kept.
func (sh *shell) resolve(p string) string {
	switch {
	case p == "":
		return sh.cwd
	case strings.HasPrefix(p, "/"):
		return p
	case strings.HasPrefix(p, "@"):
		return hdf5.JoinAttrPath(sh.cwd, p[1:])
	}
	if obj, name, ok := strings.Cut(p, "@"); ok {
		return hdf5.JoinAttrPath(hdf5.CleanPath(pathpkg.Join(sh.cwd, obj)), name)
	}
	return hdf5.CleanPath(pathpkg.Join(sh.cwd, p))
}

func (sh *shell) lookup(p string) (*tree.Node, error) {
	n, ok := sh.sess.Tree().Lookup(p)
	if !ok {
		return nil, fmt.Errorf("%w: %s", tree.ErrNotFound, p)
	}
	return n, nil
}

func (sh *shell) ls(args []string) error {
	n, err := sh.lookup(sh.resolve(arg(args, 0)))
	if err != nil {
		return err
	}
	if n.Type != tree.Group {
		return fmt.Errorf("%s is not a group", n.Path)
	}
	for _, c := range sh.sess.Tree().Children(n) {
		switch c.Type {
		case tree.Group:
			fmt.Fprintf(sh.out, "%s/\n", c.Name)
		case tree.Dataset:
			fmt.Fprintf(sh.out, "%s  %s %v\n", c.Name, c.Dataset.Type, c.Dataset.Dimensions)
		default:
			fmt.Fprintf(sh.out, "%s  (other)\n", c.Name)
		}
	}
	return nil
}

func (sh *shell) cd(args []string) error {
	target := "/"
	if len(args) > 0 {
		target = sh.resolve(args[0])
	}
	n, err := sh.lookup(target)
	if err != nil {
		return err
	}
	if n.Type != tree.Group {
		return fmt.Errorf("%s is not a group", n.Path)
	}
	sh.cwd = n.Path
	return nil
}

func (sh *shell) rows(ctx context.Context, args []string) error {
	limit := 20
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad row limit %q", args[1])
		}
		limit = n
	}
	t, err := sh.sess.Select(ctx, sh.resolve(arg(args, 0)))
	if err != nil {
		return err
	}
	return printTable(sh.out, t, limit)
}

func (sh *shell) cacheStatus() error {
	c := sh.sess.Cache()
	fmt.Fprintf(sh.out, "entries: %d/%d\n", c.Count(), c.Limit())
	for _, k := range c.Keys() {
		fmt.Fprintf(sh.out, "  %s\n", k)
	}

	counters, err := gatherValues(sh.reg)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(sh.out, "%s %g\n", name, counters[name])
	}
	return nil
}

// gatherValues sums every counter and gauge in g by metric name.
func gatherValues(g prometheus.Gatherer) (map[string]float64, error) {
	out := make(map[string]float64)
	if g == nil {
		return out, nil
	}
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[mf.GetName()] += m.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
