package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dartos/init-system/initsys"
	"github.com/dartos/init-system/initsys/exec"
	"github.com/dartos/init-system/initsys/journal"
	"github.com/dartos/init-system/initsys/shutdown"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// usageExitCode is returned for a malformed invocation.
const usageExitCode = 255

// usageError is returned for a malformed invocation, before anything is
// acquired.
type usageError struct{ error }

// env is what the command runs against. Tests swap out the process table and
// the shutdown source.
type env struct {
	stdout io.Writer
	stderr io.Writer
	sys    exec.System
	source func(shutdown.Options) (shutdown.Source, error)
}

func main() {
	// Re-executed children stop here.
	if exec.Init(journal.Prefix) {
		return
	}

	os.Exit(execute(context.Background(), os.Args[1:], env{
		stdout: os.Stdout,
		stderr: os.Stderr,
		sys:    exec.New(),
		source: shutdown.New,
	}))
}

// execute runs the command with args and returns the exit code.
func execute(ctx context.Context, args []string, e env) int {
	cmd := newCommand(e)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var usage usageError
	if errors.As(err, &usage) {
		fmt.Fprintf(e.stderr, "%sInvalid usage: %v. Usage: %s\n", journal.Prefix, usage.error, cmd.UseLine())
		return usageExitCode
	}

	return initsys.ExitCode(err)
}

func newCommand(e env) *cobra.Command {
	opts := defaultOptions()
	var configFile string

	cmd := &cobra.Command{
		Use:   "init-system [flags] <gpio-chip> <gpio-line> <pre-exec-application> <application-0> [<application-1> ...]",
		Short: "Launch and supervise applications until the shutdown line fires",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 4 {
				return usageError{fmt.Errorf("expected at least 4 arguments, got %d", len(args))}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, e, args, configFile, opts)
		},
	}

	cmd.SetOut(e.stdout)
	cmd.SetErr(e.stderr)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	// Application paths are never parsed as flags.
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to a YAML config file")
	opts.bindFlags(cmd.Flags())

	return cmd
}

func run(cmd *cobra.Command, e env, args []string, configFile string, flags Options) error {
	human := journal.NewHumanWriter(e.stdout, e.stderr)

	line, err := parseLine(args[1])
	if err != nil {
		fmt.Fprintf(e.stderr, "%sInvalid GPIO line '%s'.\n", journal.Prefix, args[1])
		return err
	}

	opts := flags
	if configFile != "" {
		file, err := loadOptions(configFile, defaultOptions())
		if err != nil {
			fmt.Fprintf(e.stderr, "%s%v.\n", journal.Prefix, err)
			return err
		}
		opts = mergeOptions(file, flags, cmd.Flags())
	}

	srcOpts, err := opts.sourceOptions()
	if err != nil {
		fmt.Fprintf(e.stderr, "%s%v.\n", journal.Prefix, err)
		return err
	}

	src, err := e.source(srcOpts)
	if err != nil {
		fmt.Fprintf(e.stderr, "%s%v.\n", journal.Prefix, err)
		return err
	}

	var j initsys.Journaler = human

	if opts.Journal != "" {
		fj, err := journal.NewFileLockJournaler(opts.Journal)
		if err != nil {
			fmt.Fprintf(e.stderr, "%sFailed to open journal: %v.\n", journal.Prefix, err)
			return err
		}
		defer fj.Close()

		j = journal.MultiWriter(fj, human)

		prev, err := fj.PreviousState()
		if err != nil {
			j.Write(&initsys.EventWarning{
				Component: "journal",
				Error:     err.Error(),
			})
		}
		initsys.ReportPreviousState(j, prev)
	}

	sup := initsys.NewSupervisor(initsys.Config{
		Consumer:    opts.Consumer,
		Chip:        args[0],
		Line:        line,
		PreExec:     args[2],
		Apps:        args[3:],
		GraceDelay:  opts.GraceDelay,
		StopTimeout: opts.StopTimeout,
	}, src, e.sys, j)

	return sup.Run(cmd.Context())
}
