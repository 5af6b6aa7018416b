package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ergochat/readline"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const replHelp = `Enter an s-expression to simplify it, or a command:
  :prove <expr> = <goal>  run until expr and goal are equal
  :rules                  list the loaded rewrites
  :load <file.cue>        load a rule file
  :builtin                use the built-in math rules
  :iter <n>               set the iteration limit (0 disables)
  :backoff on|off         toggle the backoff scheduler
  :help                   show this help
  :quit                   leave`

// Session is the state of a REPL: the loaded rules and the run options.
// Every expression is simplified in a fresh graph.
type Session struct {
	ctx   context.Context
	out   io.Writer
	rules *RuleSource
	opts  SimplifyOptions
}

// NewSession creates a session writing to out.
func NewSession(ctx context.Context, out io.Writer, rules *RuleSource, opts SimplifyOptions) *Session {
	return &Session{ctx: ctx, out: out, rules: rules, opts: opts}
}

// Rules returns the loaded rules.
func (s *Session) Rules() *RuleSource {
	return s.rules
}

// Options returns the current run options.
func (s *Session) Options() SimplifyOptions {
	return s.opts
}

// Exec runs one input line. It returns io.EOF when the session should
// end; other errors leave the session usable.
func (s *Session) Exec(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, ";") {
		return nil
	}
	if !strings.HasPrefix(line, ":") {
		return s.simplify(line)
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "quit", "q", "exit":
		return io.EOF
	case "help", "h":
		fmt.Fprintln(s.out, replHelp)
	case "rules":
		fmt.Fprintf(s.out, "%s (%s, %s)\n", s.rules.Name, s.rules.Language, s.rules.Hash)
		for _, name := range s.rules.Names() {
			fmt.Fprintf(s.out, "  %s\n", name)
		}
	case "load":
		if arg == "" {
			return errors.New(":load needs a rule file")
		}
		src, err := LoadRules(arg)
		if err != nil {
			return err
		}
		s.rules = src
		fmt.Fprintf(s.out, "loaded %d rewrite(s) from %s\n", len(src.Names()), src.Name)
	case "builtin":
		src, err := BuiltinRules()
		if err != nil {
			return err
		}
		s.rules = src
		fmt.Fprintf(s.out, "using %d built-in rewrite(s)\n", len(src.Names()))
	case "iter":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return fmt.Errorf(":iter needs a non-negative integer, got %q", arg)
		}
		s.opts.Limits.Iterations = n
		fmt.Fprintf(s.out, "iteration limit %d\n", n)
	case "backoff":
		switch arg {
		case "on":
			s.opts.Backoff = true
		case "off":
			s.opts.Backoff = false
		default:
			return fmt.Errorf(":backoff needs on or off, got %q", arg)
		}
		fmt.Fprintf(s.out, "backoff %s\n", arg)
	case "prove":
		expr, goal, ok := strings.Cut(arg, " = ")
		if !ok {
			return errors.New(":prove needs <expr> = <goal>")
		}
		return s.prove(strings.TrimSpace(expr), strings.TrimSpace(goal))
	default:
		return fmt.Errorf("unknown command :%s (try :help)", cmd)
	}
	return nil
}

func (s *Session) simplify(expr string) error {
	out, err := Simplify(s.ctx, s.rules, expr, s.opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s\n  ; cost %d, %s after %d iteration(s), %d classes\n",
		out.Best, out.Cost, out.Stop, out.Iterations, out.Classes)
	return nil
}

func (s *Session) prove(expr, goal string) error {
	opts := s.opts
	opts.Goals = []string{goal}
	out, err := Simplify(s.ctx, s.rules, expr, opts)
	if err != nil {
		return err
	}
	verdict := "not proven"
	if out.Proven != nil && *out.Proven {
		verdict = "proven"
	}
	fmt.Fprintf(s.out, "%s\n  ; %s after %d iteration(s)\n", verdict, out.Stop, out.Iterations)
	return nil
}

// ReplOptions holds flags for the repl command.
type ReplOptions struct {
	*RootOptions
	Rules       string
	HistoryFile string
	IterLimit   int
}

// NewReplCommand creates the repl command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Simplify expressions interactively",
		Long: `Start an interactive session.

Each line is an s-expression to simplify or a command; type :help for the
list. When standard input is not a terminal, lines are read as a script
without prompts.

Examples:
  eqsat repl
  eqsat repl --rules rules.cue
  echo "(+ x 0)" | eqsat repl`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Rules, "rules", "", "CUE rule file (default: built-in math rules)")
	cmd.Flags().StringVar(&opts.HistoryFile, "history-file", ".eqsat_history", "readline history file")
	cmd.Flags().IntVar(&opts.IterLimit, "iter-limit", DefaultSimplifyOptions().Limits.Iterations, "maximum iterations (0 disables)")

	return cmd
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem(":prove"),
	readline.PcItem(":rules"),
	readline.PcItem(":load"),
	readline.PcItem(":builtin"),
	readline.PcItem(":iter"),
	readline.PcItem(":backoff",
		readline.PcItem("on"),
		readline.PcItem("off"),
	),
	readline.PcItem(":help"),
	readline.PcItem(":quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func runREPL(cmd *cobra.Command, opts *ReplOptions) error {
	src, err := LoadRules(opts.Rules)
	if err != nil {
		return reportLoadError(&OutputFormatter{Format: "text", Writer: cmd.ErrOrStderr()}, err)
	}
	sopts := DefaultSimplifyOptions()
	sopts.Limits.Iterations = opts.IterLimit
	sopts.Logger = slog.Default()
	session := NewSession(cmd.Context(), cmd.OutOrStdout(), src, sopts)

	if f, ok := cmd.InOrStdin().(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return interactive(session, opts, cmd.ErrOrStderr())
	}
	return script(session, cmd.InOrStdin(), cmd.ErrOrStderr())
}

func interactive(s *Session, opts *ReplOptions, errOut io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "eqsat> ",
		HistoryFile:     opts.HistoryFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "open terminal", err)
	}
	defer rl.Close()

	fmt.Fprintf(s.out, "eqsat: %d rewrite(s) from %s, :help for commands\n", len(s.rules.Names()), s.rules.Name)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "read line", err)
		}
		if err := s.Exec(line); errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
	}
}

// script runs every line of in. Errors are reported and the script goes
// on; the command fails if any line failed.
func script(s *Session, in io.Reader, errOut io.Writer) error {
	failed := 0
	sc := bufio.NewScanner(in)
	for n := 1; sc.Scan(); n++ {
		err := s.Exec(sc.Text())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			failed++
			fmt.Fprintf(errOut, "line %d: %v\n", n, err)
		}
	}
	if err := sc.Err(); err != nil {
		return WrapExitError(ExitCommandError, "read script", err)
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d line(s) failed", failed))
	}
	return nil
}
