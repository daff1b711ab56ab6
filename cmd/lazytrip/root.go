package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Joseda-hg/lazytrip/internal/csvcodec"
	"github.com/Joseda-hg/lazytrip/internal/export"
	"github.com/Joseda-hg/lazytrip/internal/generator"
	"github.com/Joseda-hg/lazytrip/internal/model"
	"github.com/Joseda-hg/lazytrip/internal/summary"
	"github.com/Joseda-hg/lazytrip/internal/tui"
	"github.com/Joseda-hg/lazytrip/internal/validate"
	"github.com/Joseda-hg/lazytrip/internal/watch"
	"github.com/Joseda-hg/lazytrip/internal/web"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// isInteractive decides whether the bare command opens the terminal UI.
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "lazytrip",
		Short: "Plan a travel itinerary in the terminal",
		Long: `lazytrip keeps an ordered list of itinerary entries (date, time, city,
activity, duration, notes) in a CSV file. Run it in a terminal for the
interactive table, or use the subcommands from scripts.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if !isInteractive() {
				_, err := io.WriteString(cmd.OutOrStdout(), summary.Format(a.items.All()))
				return err
			}
			return tui.Run(a.items, tui.Options{
				Snapshots: a.snapshots,
				Generator: a.generator,
				Logger:    a.log,
				CSVPath:   a.cfg.CSVPath,
			})
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file path (.json, .yaml or .yml)")
	flags.StringVar(&opts.csvPath, "csv", "", "itinerary CSV path")
	flags.StringVar(&opts.dbPath, "db", "", "sqlite snapshot db path")
	flags.BoolVar(&opts.debug, "debug", false, "log at debug level")

	root.AddCommand(
		newWebCmd(opts),
		newGenerateCmd(opts),
		newSummaryCmd(opts),
		newExportCmd(opts),
		newCheckCmd(),
		newWatchCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newWebCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the itinerary over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if port == 0 {
				port = a.cfg.WebPort
			}
			handler := web.NewServer(a.items, web.Options{
				Snapshots:   a.snapshots,
				Generator:   a.generator,
				Logger:      a.log,
				CORSOrigins: a.cfg.CORSOrigins,
			}).Handler()

			srv := &http.Server{
				Addr:         fmt.Sprintf(":%d", port),
				Handler:      handler,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("web_started", zap.String("addr", srv.Addr))
				fmt.Fprintf(cmd.OutOrStdout(), "Web server running at http://localhost%s\n", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			a.log.Info("web_stopped")
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (defaults to the configured web_port)")
	return cmd
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var (
		city  string
		days  int
		start string
		mode  string
		out   string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a template itinerary for a city and save it as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			city = strings.TrimSpace(city)
			if city == "" {
				return fmt.Errorf("%w: --city is required", model.ErrInvalidArgument)
			}
			if err := generator.CheckDays(days); err != nil {
				return err
			}
			parsedMode, err := generator.ParseMode(mode)
			if err != nil {
				return err
			}
			startDate := generator.DefaultStart(time.Now())
			if start != "" {
				startDate, err = time.Parse(time.DateOnly, start)
				if err != nil {
					return fmt.Errorf("%w: --start must be YYYY-MM-DD", model.ErrInvalidArgument)
				}
			}

			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.generator.Generate(city, days, startDate)
			if err != nil {
				return err
			}
			added := generator.Apply(a.items, records, parsedMode)

			if out == "" {
				out = a.cfg.CSVPath
			}
			if err := csvcodec.WriteFile(out, a.items.All()); err != nil {
				return err
			}
			a.log.Info("itinerary_generated",
				zap.String("city", city),
				zap.Int("days", days),
				zap.Stringer("mode", parsedMode),
				zap.Int("added", added),
				zap.String("path", out),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d entries for %s (%s); %d entries written to %s\n",
				added, city, parsedMode, a.items.Count(), out)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&city, "city", "", "city to plan for")
	flags.IntVar(&days, "days", 3, fmt.Sprintf("number of days (1-%d)", generator.MaxDays))
	flags.StringVar(&start, "start", "", "first day, YYYY-MM-DD (default tomorrow)")
	flags.StringVar(&mode, "mode", "append", "append, replace or cancel")
	flags.StringVar(&out, "out", "", "CSV file to write (defaults to the configured csv_path)")
	_ = cmd.MarkFlagRequired("city")
	return cmd
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the itinerary as a plain-text summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if out == "" {
				_, err := io.WriteString(cmd.OutOrStdout(), summary.Format(a.items.All()))
				return err
			}
			if err := summary.WriteFile(out, a.items.All()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Summary written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write to this file instead of stdout")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the itinerary as CSV, XLSX or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			switch format {
			case "csv", "json":
			case "xlsx":
				if out == "" {
					return fmt.Errorf("%w: --out is required for xlsx", model.ErrInvalidArgument)
				}
			default:
				return fmt.Errorf("%w: unknown format %q (csv, xlsx or json)", model.ErrInvalidArgument, format)
			}

			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			records := a.items.All()
			if err := writeExport(cmd.OutOrStdout(), format, out, records); err != nil {
				return err
			}
			a.log.Info("exported", zap.String("format", format), zap.String("path", out), zap.Int("records", len(records)))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv, xlsx or json")
	cmd.Flags().StringVar(&out, "out", "", "output file (stdout when empty; required for xlsx)")
	return cmd
}

func writeExport(stdout io.Writer, format, out string, records []model.Record) error {
	switch format {
	case "xlsx":
		return export.SaveXLSX(out, records)
	case "csv":
		if out != "" {
			return csvcodec.WriteFile(out, records)
		}
		_, err := io.WriteString(stdout, csvcodec.Encode(records))
		return err
	default:
		if out == "" {
			return export.WriteJSON(stdout, records)
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("%w: create %s: %v", model.ErrIOFailure, out, err)
		}
		if err := export.WriteJSON(f, records); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("%w: close %s: %v", model.ErrIOFailure, out, err)
		}
		return nil
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check DATE TIME",
		Short: "Check whether a date and time look like YYYY-MM-DD and HH:MM",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if validate.LooksValid(args[0], args[1]) {
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}
			return fmt.Errorf("date/time format looks unusual: %q %q", args[0], args[1])
		},
	}
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the summary again whenever the CSV file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			w, err := watch.New(a.cfg.CSVPath)
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s\n", a.cfg.CSVPath)
			return watchLoop(ctx, w, out, a.log)
		},
	}
}

func watchLoop(ctx context.Context, w *watch.Watcher, out io.Writer, log *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			log.Warn("watch_error", zap.Error(err))
		case event, ok := <-w.Events():
			if !ok {
				return nil
			}
			records, err := csvcodec.ReadFile(event.Path)
			if err != nil {
				log.Warn("csv_reload_failed", zap.String("path", event.Path), zap.Error(err))
				fmt.Fprintf(out, "%s changed but could not be read: %v\n", event.Path, err)
				continue
			}
			log.Info("csv_changed", zap.String("path", event.Path), zap.String("op", event.Operation), zap.Int("records", len(records)))
			fmt.Fprint(out, summary.Format(records))
		}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lazytrip %s (%s)\n", Version, runtime.Version())
		},
	}
}
