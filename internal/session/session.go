// Package session is the ambient, out-of-core interactive command shell:
// a small REPL that re-parses each typed line as a CLI invocation and
// drives a *driver.Driver through it. Nothing here is part of the
// language's execution semantics — this is purely the human-facing
// surface over driver.Driver's initialize/forward/run/restart/terminate/
// dump/breakpoint API.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"startasm/internal/config"
	"startasm/internal/driver"
	"startasm/internal/engine"
)

// Session wraps a Driver with the interactive shell and its persisted
// state file.
type Session struct {
	driver     *driver.Driver
	configPath string
	state      config.State
	out        io.Writer
	in         io.Reader
	app        *cli.App
}

// New builds a Session over an already-constructed Driver. configPath is
// where the shell's state (initialized/last_operation/finished_last/
// current_file) is persisted between commands.
func New(d *driver.Driver, configPath string, out io.Writer, in io.Reader) *Session {
	s := &Session{
		driver:     d,
		configPath: configPath,
		state:      config.Load(configPath),
		out:        out,
		in:         in,
	}
	s.app = s.buildApp()
	return s
}

// Run drives the REPL until an "end" command or EOF on the input stream.
// It only prints the "Enter command:" prompt when the input stream is an
// interactive terminal.
func (s *Session) Run() error {
	interactive := isTerminal(s.in)
	scanner := bufio.NewScanner(s.in)

	for {
		if interactive {
			fmt.Fprint(s.out, "Enter command: ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		args := append([]string{"startasm"}, fields...)
		if err := s.app.Run(args); err != nil {
			if errors.Is(err, errEndSession) {
				return nil
			}
			fmt.Fprintf(s.out, "%v\n", err)
		}
		if err := config.Save(s.configPath, s.state); err != nil {
			fmt.Fprintf(s.out, "Warning: failed to save session state: %v\n", err)
		}
	}
}

// isTerminal reports whether in is an interactive terminal. Only os.Stdin
// can be: any other io.Reader (a test buffer, a piped script) is treated
// as non-interactive so the prompt text never pollutes scripted output.
func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

var errEndSession = errors.New("end session")

func silentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "silentc", Usage: "Suppress compiler errors."},
		&cli.BoolFlag{Name: "silenti", Usage: "Suppress usage errors."},
		&cli.BoolFlag{Name: "silentr", Usage: "Suppress runtime errors."},
		&cli.BoolFlag{Name: "truesilent", Usage: "Suppress all output, including errors."},
	}
}

func (s *Session) buildApp() *cli.App {
	return &cli.App{
		Name:            "startasm",
		Usage:           "StartASM interactive interpreter and step debugger",
		HideHelpCommand: true,
		CommandNotFound: func(c *cli.Context, command string) {
			fmt.Fprintf(s.out, "Error: unrecognized operation %q.\n", command)
		},
		Commands: []*cli.Command{
			s.initializeCommand(),
			s.forwardCommand(),
			s.runCommand(),
			s.restartCommand(),
			s.terminateCommand(),
			s.dumpCommand(),
			s.breakpointCommand(),
			s.endCommand(),
		},
	}
}

func (s *Session) initializeCommand() *cli.Command {
	flags := append(silentFlags(), &cli.StringFlag{Name: "file", Usage: "Path to the .sasm program file."})
	return &cli.Command{
		Name:  "initialize",
		Usage: "Compile and load a StartASM program.",
		Flags: flags,
		Action: func(c *cli.Context) error {
			if truesilent(c) {
				return nil
			}
			if s.driver.Initialized() {
				if !c.Bool("silenti") {
					fmt.Fprintf(s.out, "Error: Cannot initialize %q as %q is already initialized. Run 'terminate' first.\n",
						c.String("file"), s.driver.CurrentFile())
				}
				return nil
			}
			file := c.String("file")
			if file == "" {
				if !c.Bool("silenti") {
					fmt.Fprintln(s.out, "Error: The 'initialize' operation requires a .sasm program file path (use --file).")
				}
				return nil
			}

			err := s.driver.Initialize(context.Background(), file)
			if err != nil {
				if !c.Bool("silentc") {
					fmt.Fprintf(s.out, "Compiler error: %v\n", err)
				}
				s.state = config.State{}
				return nil
			}

			s.state.Initialized = true
			s.state.LastOperation = strPtr("initialize")
			s.state.FinishedLast = false
			s.state.CurrentFile = strPtr(file)
			fmt.Fprintf(s.out, "Initialized program %q.\n", file)
			return nil
		},
	}
}

func (s *Session) forwardCommand() *cli.Command {
	flags := append(silentFlags(), &cli.IntFlag{Name: "steps", Value: 1, Usage: "Number of instructions to execute."})
	return &cli.Command{
		Name:  "forward",
		Usage: "Execute N instructions (default 1).",
		Flags: flags,
		Action: func(c *cli.Context) error {
			if truesilent(c) {
				return nil
			}
			if !s.requireInitialized(c) {
				return nil
			}
			if s.driver.AtEOF() {
				if !c.Bool("silenti") {
					fmt.Fprintf(s.out, "Error: %q is already at the end of execution. Run 'restart' to execute again.\n", s.driver.CurrentFile())
				}
				return nil
			}

			fmt.Fprintf(s.out, "Executing 'forward' on program %q.\n", s.driver.CurrentFile())
			s.state.LastOperation = strPtr("forward")
			err := s.driver.Forward(c.Int("steps"))
			s.reportExecutionError(c, err)
			if s.driver.AtEOF() {
				s.state.FinishedLast = true
			}
			return nil
		},
	}
}

func (s *Session) runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute until completion or the next breakpoint.",
		Flags: silentFlags(),
		Action: func(c *cli.Context) error {
			if truesilent(c) {
				return nil
			}
			if !s.requireInitialized(c) {
				return nil
			}
			if s.driver.AtEOF() {
				if !c.Bool("silenti") {
					fmt.Fprintf(s.out, "Error: %q is already at the end of execution. Run 'restart' to execute again.\n", s.driver.CurrentFile())
				}
				return nil
			}

			fmt.Fprintf(s.out, "Executing 'run' on program %q.\n", s.driver.CurrentFile())
			s.state.LastOperation = strPtr("run")
			err := s.driver.Run()
			s.reportExecutionError(c, err)
			if s.driver.AtEOF() {
				s.state.FinishedLast = true
			}
			return nil
		},
	}
}

// reportExecutionError prints a RuntimeError's cause unless --silentr is
// set. InputErrors are always shown: they describe a correctable mistake
// (bad input), not a fault, and pc did not halt for them.
func (s *Session) reportExecutionError(c *cli.Context, err error) {
	if err == nil {
		return
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		if !c.Bool("silentr") {
			fmt.Fprintf(s.out, "Runtime error: %v\n", err)
		}
		return
	}
	fmt.Fprintf(s.out, "Input error: %v\n", err)
}

func (s *Session) restartCommand() *cli.Command {
	return &cli.Command{
		Name:  "restart",
		Usage: "Reset the runtime for the current program without recompiling.",
		Flags: silentFlags(),
		Action: func(c *cli.Context) error {
			if truesilent(c) {
				return nil
			}
			if !s.requireInitialized(c) {
				return nil
			}
			if err := s.driver.Restart(); err != nil {
				fmt.Fprintf(s.out, "%v\n", err)
				return nil
			}
			s.state.LastOperation = strPtr("restart")
			s.state.FinishedLast = false
			fmt.Fprintf(s.out, "Restarted program %q.\n", s.driver.CurrentFile())
			return nil
		},
	}
}

func (s *Session) terminateCommand() *cli.Command {
	return &cli.Command{
		Name:  "terminate",
		Usage: "Discard the current program and its runtime.",
		Flags: silentFlags(),
		Action: func(c *cli.Context) error {
			if truesilent(c) {
				return nil
			}
			if !s.requireInitialized(c) {
				return nil
			}
			fmt.Fprintf(s.out, "Terminated program %q\n", s.driver.CurrentFile())
			s.driver.Terminate()
			s.state = config.State{LastOperation: strPtr("terminate")}
			fmt.Fprintln(s.out, "Ready to initialize a new .sasm program.")
			return nil
		},
	}
}

func (s *Session) dumpCommand() *cli.Command {
	flags := append(silentFlags(),
		&cli.BoolFlag{Name: "r", Usage: "Dump registers."},
		&cli.BoolFlag{Name: "m", Usage: "Dump memory."},
		&cli.BoolFlag{Name: "s", Usage: "Dump stack."},
		&cli.BoolFlag{Name: "f", Usage: "Dump flags."},
		&cli.BoolFlag{Name: "p", Usage: "Dump program state."},
		&cli.BoolFlag{Name: "verbose", Usage: "Expand each dump section into prose."},
	)
	return &cli.Command{
		Name:  "dump",
		Usage: "Print selected sections of machine state.",
		Flags: flags,
		Action: func(c *cli.Context) error {
			if truesilent(c) {
				return nil
			}
			if !s.requireInitialized(c) {
				return nil
			}
			opts := driver.DumpOptions{
				Registers: c.Bool("r"),
				Memory:    c.Bool("m"),
				Stack:     c.Bool("s"),
				Flags:     c.Bool("f"),
				Program:   c.Bool("p"),
				Verbose:   c.Bool("verbose"),
			}
			if !opts.Registers && !opts.Memory && !opts.Stack && !opts.Flags && !opts.Program {
				if !c.Bool("silenti") {
					fmt.Fprintln(s.out, "Error: No attributes chosen to dump. Run '--help' for available flags.")
				}
				return nil
			}

			fmt.Fprintf(s.out, "Dumping system state for program %q:\n", s.driver.CurrentFile())
			lines, err := s.driver.Dump(opts)
			if err != nil {
				fmt.Fprintf(s.out, "%v\n", err)
				return nil
			}
			for _, line := range lines {
				fmt.Fprintln(s.out, line)
			}
			s.state.LastOperation = strPtr("dump")
			return nil
		},
	}
}

func (s *Session) breakpointCommand() *cli.Command {
	flags := append(silentFlags(),
		&cli.StringFlag{Name: "set", Usage: "Set a breakpoint at the given instruction address (pc)."},
		&cli.BoolFlag{Name: "remove", Usage: "Clear the active breakpoint."},
		&cli.BoolFlag{Name: "list", Usage: "Print the active breakpoint, if any."},
	)
	return &cli.Command{
		Name:  "breakpoint",
		Usage: "Manage the single active breakpoint.",
		Flags: flags,
		Action: func(c *cli.Context) error {
			if truesilent(c) {
				return nil
			}
			if !s.requireInitialized(c) {
				return nil
			}
			switch {
			case c.String("set") != "":
				pc, err := strconv.Atoi(c.String("set"))
				if err != nil {
					if !c.Bool("silenti") {
						fmt.Fprintf(s.out, "Error: breakpoint address %q is not a valid instruction address.\n", c.String("set"))
					}
					return nil
				}
				s.driver.SetBreakpoint(pc)
				fmt.Fprintf(s.out, "Breakpoint set at pc %d.\n", pc)
			case c.Bool("remove"):
				s.driver.RemoveBreakpoint()
				fmt.Fprintln(s.out, "Breakpoint removed.")
			case c.Bool("list"):
				if pc, ok := s.driver.Breakpoint(); ok {
					fmt.Fprintf(s.out, "Breakpoint at pc %d.\n", pc)
				} else {
					fmt.Fprintln(s.out, "No breakpoint set.")
				}
			default:
				if !c.Bool("silenti") {
					fmt.Fprintln(s.out, "Error: specify one of --set, --remove, --list.")
				}
			}
			return nil
		},
	}
}

func (s *Session) endCommand() *cli.Command {
	return &cli.Command{
		Name:  "end",
		Usage: "Exit the interpreter, implicitly terminating any loaded program.",
		Action: func(c *cli.Context) error {
			if s.driver.Initialized() {
				fmt.Fprintln(s.out, "Warning: Program is still initialized. Running 'terminate' before exiting.")
				fmt.Fprintf(s.out, "Terminated program %q\n", s.driver.CurrentFile())
				s.driver.Terminate()
				s.state = config.State{LastOperation: strPtr("terminate")}
				_ = config.Save(s.configPath, s.state)
			}
			fmt.Fprintln(s.out, "Exiting the interpreter.")
			return errEndSession
		},
	}
}

func (s *Session) requireInitialized(c *cli.Context) bool {
	if s.driver.Initialized() {
		return true
	}
	if !c.Bool("silenti") {
		fmt.Fprintf(s.out, "Error: Cannot run '%s' without initializing a .sasm program first.\n", c.Command.Name)
	}
	return false
}

func truesilent(c *cli.Context) bool { return c.Bool("truesilent") }

func strPtr(s string) *string { return &s }
