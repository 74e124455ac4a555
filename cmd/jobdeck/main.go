package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/jobdeck/jobdeck/internal/adapters/api"
	"github.com/jobdeck/jobdeck/internal/adapters/prefs"
	"github.com/jobdeck/jobdeck/internal/adapters/ws"
	"github.com/jobdeck/jobdeck/internal/config"
	"github.com/jobdeck/jobdeck/internal/core/domain"
	"github.com/jobdeck/jobdeck/internal/core/logger"
	jsync "github.com/jobdeck/jobdeck/internal/core/sync"
	"github.com/jobdeck/jobdeck/internal/server"
	"github.com/jobdeck/jobdeck/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "jobdeck",
		Usage: "near-real-time execution telemetry for automation jobs",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the dashboard service (ingestion API, read API, live channel)",
				Action: serveAction,
			},
			{
				Name:  "watch",
				Usage: "follow the job table live and print it on every change",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "range",
						Usage: "snapshot window: 24h, 7d, 30d or all",
					},
				},
				Action: watchAction,
			},
			{
				Name:      "logs",
				Usage:     "print a job's log history in export format",
				ArgsUsage: "<job-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "output",
						Usage: "write to a file instead of stdout",
					},
				},
				Action: logsAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Error("jobdeck failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(logger.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	return cfg, nil
}

func serveAction(ctx context.Context, _ *cli.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := storage.Open(cfg.Server.DSN)
	if err != nil {
		return err
	}
	hub := server.NewHub()
	go hub.Run(ctx)
	return server.New(store, hub, cfg.Server.CORSOrigins).Run(cfg.Server.Addr)
}

func watchAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := api.New(cfg.Client.BaseURL)
	source := ws.New(cfg.Client.WSURL, ws.WithReconnectDelay(cfg.Client.ReconnectDelay))
	session := jsync.NewSession(client, source, prefs.NewStore(cfg.Client.PrefsPath))

	done := make(chan struct{})
	go func() {
		session.Run(ctx)
		close(done)
	}()

	if rng := cmd.String("range"); rng != "" {
		session.SetRange(rng)
	}

	for {
		select {
		case <-ctx.Done():
			<-done
			return nil
		case <-session.Changes():
			render(session.Snapshot())
		}
	}
}

// render prints the derived view; all logic lives in the engine, this is a
// bare projection to stdout.
func render(snap jsync.Snapshot) {
	fmt.Print("\033[H\033[2J")
	m := snap.Metrics
	fmt.Printf("jobs: %d  running: %d  success: %d  failed: %d  pending: %d  rate: %d%%\n",
		m.Total, m.Running, m.Success, m.Failed, m.Pending, m.SuccessRate)
	if snap.ListError != "" {
		fmt.Printf("! job list unavailable: %s\n", snap.ListError)
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPROGRESS\tSCOPE\tBY\tSTARTED")
	for _, j := range snap.View.Jobs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d%%\t%s\t%s\t%s\n",
			j.ID, j.Name, domain.Canonical(j.Status), domain.EffectiveProgress(j),
			j.Scope, j.TriggeredBy, j.StartTime)
	}
	w.Flush()
	fmt.Printf("page %d/%d (%d jobs)\n", snap.View.Page+1, snap.View.PageCount, snap.View.Total)

	if snap.Selected != nil {
		fmt.Printf("\n-- job %d --\n", snap.Selected.ID)
		if snap.LogError != "" {
			fmt.Printf("! logs unavailable: %s\n", snap.LogError)
		}
		for _, e := range snap.Logs {
			fmt.Println(jsync.FormatLogLine(e))
		}
	}
}

func logsAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	arg := cmd.Args().First()
	if arg == "" {
		return fmt.Errorf("usage: jobdeck logs <job-id>")
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid job id %q", arg)
	}

	entries, err := api.New(cfg.Client.BaseURL).JobLogs(ctx, id, 0, 0)
	if err != nil {
		return err
	}
	stream := jsync.NewLogStream()
	gen := stream.Select(id)
	stream.ApplyFetch(gen, entries, nil)
	text := stream.PlainText()

	if out := cmd.String("output"); out != "" {
		return os.WriteFile(out, []byte(text), 0o644)
	}
	fmt.Print(text)
	return nil
}
