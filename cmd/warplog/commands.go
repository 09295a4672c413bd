package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/rickgao/warplog/internal/database"
	"github.com/rickgao/warplog/internal/interchange"
	"github.com/rickgao/warplog/internal/metrics"
	"github.com/rickgao/warplog/internal/model"
	"github.com/rickgao/warplog/internal/scheduler"
	"github.com/rickgao/warplog/internal/syncer"
	"github.com/rickgao/warplog/internal/version"
)

func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}

func runMigrate(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("migrate").Parse(args); err != nil {
		return err
	}
	if a.pool == nil {
		a.logger.Warn("memory driver has no schema to migrate")
		return nil
	}
	return database.Migrate(ctx, a.pool, a.logger)
}

func runSync(ctx context.Context, a *app, args []string) error {
	flags := newFlagSet("sync")
	uids := flags.StringSliceP("uid", "u", nil, "accounts to refresh (default: all configured)")
	modeName := flags.StringP("mode", "m", "incremental", "incremental or full")
	if err := flags.Parse(args); err != nil {
		return err
	}

	mode, err := syncer.ParseMode(*modeName)
	if err != nil {
		return err
	}
	if len(*uids) == 0 {
		*uids = a.accountUIDs()
	}
	if len(*uids) == 0 {
		return errors.New("no accounts configured")
	}

	c := a.coordinator()
	var errs []error
	for _, uid := range *uids {
		if _, ok := a.cfg.Account(uid); !ok {
			errs = append(errs, fmt.Errorf("account %s is not configured", uid))
			continue
		}
		res, err := c.Refresh(ctx, uid, mode)
		if err != nil {
			errs = append(errs, fmt.Errorf("sync %s: %w", uid, err))
			continue
		}
		fmt.Printf("%s: fetched %d, inserted %d", uid, res.Fetched, res.Inserted)
		if res.BatchID > 0 {
			fmt.Printf(" (batch %d)", res.BatchID)
		}
		fmt.Println()
	}
	return errors.Join(errs...)
}

func runImport(ctx context.Context, a *app, args []string) error {
	flags := newFlagSet("import")
	uid := flags.StringP("uid", "u", "", "account to import into (required)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *uid == "" || flags.NArg() == 0 {
		return errors.New("usage: warplog import --uid UID FILE...")
	}

	imp := a.importer()
	var errs []error
	for _, path := range flags.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res, err := imp.Import(ctx, *uid, data)
		if err != nil {
			errs = append(errs, fmt.Errorf("import %s: %w", path, err))
			continue
		}
		fmt.Printf("%s: %s, %d records, %d new\n", path, res.Format, res.Total, res.Inserted)
	}
	return errors.Join(errs...)
}

func runExport(ctx context.Context, a *app, args []string) error {
	flags := newFlagSet("export")
	uid := flags.StringP("uid", "u", "", "account to export (required)")
	formatName := flags.StringP("format", "f", "uigf", "srgf or uigf")
	out := flags.StringP("output", "o", "", "output file (default: stdout)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *uid == "" {
		return errors.New("--uid is required")
	}

	format, err := interchange.ParseFormat(*formatName)
	if err != nil {
		return err
	}

	if *out == "" {
		return interchange.NewExporter(a.repo, nil).Export(ctx, os.Stdout, *uid, format)
	}
	return exportFile(ctx, interchange.NewExporter(a.repo, nil), *out, *uid, format)
}

// exportFile writes the export to path, reporting write and close failures.
func exportFile(ctx context.Context, e *interchange.Exporter, path, uid string, format interchange.Format) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := e.Export(ctx, f, uid, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func runBatches(ctx context.Context, a *app, args []string) error {
	flags := newFlagSet("batches")
	uid := flags.StringP("uid", "u", "", "account (required)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *uid == "" {
		return errors.New("--uid is required")
	}

	batches, err := a.repo.Batches(ctx, *uid)
	if err != nil {
		return err
	}
	writeBatches(os.Stdout, batches)
	return nil
}

func writeBatches(w io.Writer, batches []model.GachaRecordBatch) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BATCH\tCOUNT\tTZ\tLANG\tSOURCE\tTIME")
	for _, b := range batches {
		fmt.Fprintf(tw, "%d\t%d\t%+d\t%s\t%s\t%s\n",
			b.BatchID,
			b.Count,
			b.RegionTimeZone,
			b.Lang,
			b.Source,
			time.Unix(b.Timestamp, 0).UTC().Format(time.RFC3339),
		)
	}
	tw.Flush()
}

func runServe(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("serve").Parse(args); err != nil {
		return err
	}

	var srv *http.Server
	if a.cfg.Metrics.Enabled {
		srv = &http.Server{
			Addr:    fmt.Sprintf(":%d", a.cfg.Metrics.Port),
			Handler: newServeMux(a),
		}
		go func() {
			a.logger.Info("starting metrics server", "port", a.cfg.Metrics.Port)
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				a.logger.Error("metrics server error", "error", err)
			}
		}()
	}

	var sched *scheduler.Scheduler
	if a.cfg.Schedule.Enabled {
		sched = scheduler.New(scheduler.Config{
			Spec:        a.cfg.Schedule.Spec,
			Concurrency: 1,
			Timeout:     a.cfg.Schedule.Timeout,
			RunOnStart:  a.cfg.Schedule.RunOnStart,
		}, a.coordinator(), a.accountUIDs(), a.logger)
		if err := sched.Start(ctx); err != nil {
			return err
		}
	}

	a.logger.Info("warplog running",
		"version", version.Version,
		"accounts", len(a.cfg.Accounts),
		"schedule", a.cfg.Schedule.Enabled,
		"metrics", a.cfg.Metrics.Enabled,
	)

	// Wait for shutdown
	<-ctx.Done()

	a.logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			a.logger.Warn("scheduler stop", "error", err)
		}
	}
	if srv != nil {
		srv.Shutdown(shutdownCtx)
	}

	a.logger.Info("warplog stopped")
	return nil
}

func newServeMux(a *app) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, metrics.Handler(a.registry))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if a.pool != nil {
			if err := a.pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["postgres"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["postgres"] = "connected"
			}
		}
		if a.redis != nil {
			if err := a.redis.Ping(ctx).Err(); err != nil {
				health.Status = "unhealthy"
				health.Components["redis"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["redis"] = "connected"
			}
		}
		health.Components["accounts"] = len(a.cfg.Accounts)

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
