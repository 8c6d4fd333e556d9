package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gantt/internal/server"
	"github.com/matzehuels/gantt/pkg/config"
	"github.com/matzehuels/gantt/pkg/events"
	natsevents "github.com/matzehuels/gantt/pkg/events/nats"
	"github.com/matzehuels/gantt/pkg/observability"
	"github.com/matzehuels/gantt/pkg/observability/prom"
	"github.com/matzehuels/gantt/pkg/pipeline"
	"github.com/matzehuels/gantt/pkg/scale"
	"github.com/matzehuels/gantt/pkg/view"
)

// serveFlags override the [server] and [events] config sections.
type serveFlags struct {
	listen  string
	zoom    string
	refresh string
	natsURL string
	noDrag  bool
}

// serveCommand creates the serve command for the interactive HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the timeline over HTTP with drag-and-drop rescheduling",
		Long: `Serve opens a gantt view on the configured host and exposes it over HTTP.

Clients fetch scenes from /api/scene and reschedule items through the
gesture endpoints under /api/items/{id}/gesture. Committed changes are
written back to the host and, when events.nats_url is set, published to
NATS. Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&flags.listen, "listen", "l", "", "listen address (default from config)")
	cmd.Flags().StringVarP(&flags.zoom, "zoom", "z", "", "initial zoom level: day, week, month")
	cmd.Flags().StringVar(&flags.refresh, "refresh", "", `cron schedule for reloading items ("" keeps the config value)`)
	cmd.Flags().StringVar(&flags.natsURL, "nats-url", "", "publish commit events to this NATS server")
	cmd.Flags().BoolVar(&flags.noDrag, "no-drag", false, "disable drag and drop")

	return cmd
}

func (f serveFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if f.listen != "" {
		cfg.Server.Listen = f.listen
	}
	if f.zoom != "" {
		g, err := scale.ParseGranularity(f.zoom)
		if err != nil {
			return err
		}
		cfg.View.ZoomLevel = g
	}
	if cmd.Flags().Changed("refresh") {
		cfg.Server.Refresh = f.refresh
	}
	if f.natsURL != "" {
		cfg.Events.NATSURL = f.natsURL
	}
	if f.noDrag {
		cfg.View.EnableDragAndDrop = false
	}
	return cfg.Validate()
}

// runServe opens the view session and serves it until ctx is cancelled.
func (c *CLI) runServe(ctx context.Context, cfg *config.Config) error {
	logger := loggerFromContext(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom.New(reg).Install()
	defer observability.Reset()

	pub, closePub, err := newPublisher(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer closePub()

	sess, err := c.openSession(ctx, cfg, view.WithPublisher(pub))
	if err != nil {
		return err
	}
	defer sess.Close()

	srv := server.New(sess,
		server.WithLogger(logger),
		server.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		server.WithRenderOptions(renderOptions(cfg)),
	)
	if cfg.Server.Refresh != "" {
		if err := srv.StartRefresh(ctx, cfg.Server.Refresh); err != nil {
			return err
		}
	}

	printSuccess("Serving %d items", len(sess.Items()))
	printKeyValue("Address", StyleLink.Render("http://"+cfg.Server.Listen))
	printKeyValue("Host", cfg.Host.Driver)
	printKeyValue("Zoom", string(cfg.View.ZoomLevel))
	if !cfg.View.EnableDragAndDrop {
		printWarning("Drag and drop is disabled")
	}
	if cfg.Server.Refresh != "" {
		printKeyValue("Refresh", cfg.Server.Refresh)
	}
	printNewline()

	return srv.ListenAndServe(ctx, cfg.Server.Listen)
}

// openSession opens the configured host and loads it into a gantt view.
// Closing the session closes the host.
func (c *CLI) openSession(ctx context.Context, cfg *config.Config, opts ...view.Option) (*view.Session, error) {
	logger := loggerFromContext(ctx)
	adapter, err := c.openHost(ctx, cfg)
	if err != nil {
		return nil, err
	}

	views := view.NewRegistry()
	if err := view.RegisterDefaults(views); err != nil {
		closeHost(logger, adapter)
		return nil, err
	}
	opts = append([]view.Option{
		view.WithLogger(logger),
		view.WithDriver(cfg.Host.Driver),
		view.WithOrder(pipeline.Orders[cfg.Render.Order]),
	}, opts...)
	sess, err := views.Open(view.TypeGantt, cfg.View, adapter, opts...)
	if err != nil {
		closeHost(logger, adapter)
		return nil, err
	}

	spinner := newSpinnerWithContext(ctx, "Opening view...")
	restore := trackPhases(spinner, cfg.Host.Driver)
	spinner.Start()
	err = sess.Open(ctx)
	spinner.Stop()
	restore()
	if err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

// newPublisher returns the commit event sink for cfg: NATS when a URL is
// configured, a logging publisher always.
func newPublisher(cfg config.EventsConfig, logger *log.Logger) (events.Publisher, func(), error) {
	logPub := logPublisher{logger: logger}
	if cfg.NATSURL == "" {
		return logPub, func() {}, nil
	}
	np, err := natsevents.Connect(natsevents.Config{URL: cfg.NATSURL, Subject: cfg.Subject})
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	logger.Info("publishing commit events", "url", cfg.NATSURL, "subject", np.Subject(events.Committed))
	closeFn := func() {
		if err := np.Close(); err != nil {
			logger.Warn("close nats", "err", err)
		}
	}
	return events.Multi{logPub, np}, closeFn, nil
}

// logPublisher reports commit outcomes in the CLI log.
type logPublisher struct {
	logger *log.Logger
}

func (p logPublisher) Publish(_ context.Context, e events.Event) error {
	if e.Type == events.Rejected {
		p.logger.Warn("commit rejected", "item", e.ItemID, "reason", e.Reason)
		return nil
	}
	p.logger.Info("commit", "item", e.ItemID, "start", e.Start.Format("2006-01-02"), "end", e.End.Format("2006-01-02"))
	return nil
}
