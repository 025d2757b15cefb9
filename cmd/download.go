package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/songdl/internal/formatter"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/desertthunder/songdl/internal/sources"
	"github.com/desertthunder/songdl/internal/tasks"
	"github.com/desertthunder/songdl/internal/ui"
	"github.com/urfave/cli/v3"
)

// Download returns the action for a download subcommand. With auto set the kind is detected from the argument.
func (r *Runner) Download(kind sources.Kind, auto bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if err := r.prepare(cmd); err != nil {
			return err
		}
		defer r.close()

		arg := strings.TrimSpace(cmd.StringArg("source"))
		if arg == "" && (kind == sources.KindCSV || auto) {
			arg = shared.EnvSourceFile(r.getenv)
		}
		if arg == "" {
			return fmt.Errorf("%w: source file or URL", shared.ErrMissingArgument)
		}
		if auto {
			kind = sources.Detect(arg)
			r.logger.Debug("detected source", "kind", kind.String(), "arg", arg)
		}

		reportPath := strings.TrimSpace(cmd.String("report"))
		var reportFormat formatter.Format
		if reportPath != "" {
			if err := formatter.ValidateReportPath(reportPath, r.config.Output.Dir); err != nil {
				return err
			}
			if f := cmd.String("report-format"); f != "" {
				parsed, err := formatter.ParseFormat(f)
				if err != nil {
					return err
				}
				reportFormat = parsed
			}
		}

		tui := cmd.Bool("tui") && isTerminal(r.output)
		if cmd.Bool("tui") && !tui {
			r.logger.Info("stdout is not a terminal, using plain output")
		}
		if tui {
			if err := r.useFileLogger(); err != nil {
				return err
			}
		}

		src, err := r.newSource(ctx, kind, arg)
		if err != nil {
			return err
		}
		engine, err := r.newEngine(ctx)
		if err != nil {
			return err
		}

		run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.RunResult, error) {
			return engine.RunSource(ctx, src, progress)
		}

		var result *tasks.RunResult
		if tui {
			result, err = r.runTUI(ctx, src.Describe(), run)
		} else {
			result, err = r.runPlain(ctx, run)
		}

		if result == nil {
			return err
		}
		if result.Total == 0 {
			r.writePlain("nothing to do: %s yielded no tracks\n", src.Describe())
			return nil
		}

		if reportPath != "" {
			if werr := formatter.WriteReport(reportPath, reportFormat, result, r.config.Output.Dir); werr != nil {
				r.logger.Error("could not write report", "path", reportPath, "error", werr)
			} else {
				r.writePlain("Report written to %s\n", reportPath)
			}
		}

		if err != nil {
			return fmt.Errorf("run stopped after %d of %d tracks: %w", result.Processed(), result.Total, err)
		}
		return nil
	}
}

// runPlain drains progress into the plain printer while the engine runs.
func (r *Runner) runPlain(ctx context.Context, run ui.RunFunc) (*tasks.RunResult, error) {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	printer := ui.NewPrinter(r.output, r.debug)
	go func() {
		printer.Consume(progress)
		close(done)
	}()

	result, err := run(ctx, progress)
	close(progress)
	<-done

	return result, err
}
