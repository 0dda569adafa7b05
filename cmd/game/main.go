package main

import (
	"context"
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/Triage-Sense/internal/analytics"
	"github.com/Garsondee/Triage-Sense/internal/api"
	"github.com/Garsondee/Triage-Sense/internal/config"
	"github.com/Garsondee/Triage-Sense/internal/export"
	"github.com/Garsondee/Triage-Sense/internal/game"
	"github.com/Garsondee/Triage-Sense/internal/ui"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "triage.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	client, err := api.New(cfg.Server.BaseURL, api.WithTimeout(cfg.Server.Timeout))
	if err != nil {
		log.Fatal(err)
	}
	sink, err := buildSink(context.Background(), cfg.Export)
	if err != nil {
		log.Fatal(err)
	}

	status := ui.NewStatus(nil)
	gamePanel := ui.NewGamePanel(status)
	chartView := ui.NewAnalyticsPanel(status)
	logger := log.New(log.Writer(), "[export] ", log.LstdFlags)

	games := game.New(client,
		game.WithView(gamePanel),
		game.WithRevealDelay(cfg.Game.RevealDelay),
		game.WithExporter(export.New(client, sink,
			export.WithReporter(status), export.WithLogger(logger))))
	charts := analytics.New(client, chartView,
		analytics.WithExporter(export.New(client, sink,
			export.WithFormats(analytics.Formats...),
			export.WithReporter(status), export.WithLogger(logger))))

	app := ui.NewApp(games, charts, gamePanel, chartView, status)
	defer app.Close()
	app.Start()

	ebiten.SetWindowTitle("Triage Sense")
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(app); err != nil {
		log.Fatal(err)
	}
}

// buildSink writes downloads into the export dir and, when a bucket is
// configured, also uploads them to S3.
func buildSink(ctx context.Context, cfg config.ExportConfig) (export.Sink, error) {
	dir := export.DirSink{Dir: cfg.Dir}
	if !cfg.S3.Enabled() {
		return dir, nil
	}
	s3sink, err := export.NewS3Sink(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.Prefix)
	if err != nil {
		return nil, err
	}
	return export.MultiSink{dir, s3sink}, nil
}
