// Package run runs the top-level task of a program
package run

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ridge/parallel"
	"github.com/ridge/solstream/tlog"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	logConfig tlog.Config
	fs        = pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
)

func init() {
	logConfig.Format = tlog.FormatText
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Var(&logConfig.Format, "log-format", "Log format (json|text)")
	fs.Var(&logConfig.Color, "log-color", "Colored logs (yes|no|auto)")
	fs.BoolVarP(&logConfig.Verbose, "verbose", "v", false, "Enable debug messages")
	// the regular command line parser reports usage and errors
	fs.Usage = func() {}
	pflag.CommandLine.AddFlagSet(fs)
}

// Tool runs task with a context carrying the logger configured by the
// command line. An interrupting signal closes the context.
//
// Tool does not return. The process exits with code 0 if task returns nil,
// with the code of a WithExitCode error, or with 1 otherwise. Deferred
// functions of the caller do not run.
//
//	func main() {
//	    pflag.Parse()
//	    run.Tool(func(ctx context.Context) error {
//	        return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
//	            spawn("session", parallel.Fail, session.Run)
//	            spawn("metrics", parallel.Fail, server.Run)
//	            return nil
//	        })
//	    })
//	}
func Tool(task func(ctx context.Context) error) {
	var err error
	defer func() {
		var wec WithExitCode
		switch {
		case errors.As(err, &wec):
			os.Exit(wec.ExitCode())
		case err != nil:
			os.Exit(1)
		}
	}()

	ctx := rootContext()
	err = parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("main", parallel.Exit, task)
		spawn("signals", parallel.Exit, handleSignals)
		return nil
	})
	if err != nil {
		tlog.Get(ctx).Error("Error", zap.Error(err))
	}
}

// Server is Tool for long-running tasks: an error caused by the signal
// closing the context counts as success
func Server(task func(ctx context.Context) error) {
	Tool(func(ctx context.Context) error {
		err := task(ctx)
		if errors.Is(err, ctx.Err()) {
			return nil
		}
		return err
	})
}

// WithExitCode may be implemented by errors reaching Tool to choose the exit
// code
type WithExitCode interface {
	ExitCode() int
}

func rootContext() context.Context {
	if err := fs.Parse(os.Args[1:]); err != nil && !errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return tlog.WithLogger(context.Background(), tlog.New(logConfig))
}
