package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"slotflow/config"
	"slotflow/internal/dashboard"
	"slotflow/logger"
	"slotflow/models"
	"slotflow/processor"
	"slotflow/reader"
	"slotflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	var cfg *config.Config

	app := &cli.App{
		Name:  "slotflow",
		Usage: "allocate slot budgets by risk band and export the recommendation workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: config.DefaultPath, Usage: "path to configuration file"},
		},
		Before: func(c *cli.Context) error {
			var err error
			cfg, err = config.LoadConfigOrDefault(c.String("config"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("failed to load configuration: %v", err), 1)
			}
			if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
				return cli.Exit(fmt.Sprintf("failed to configure logger: %v", err), 1)
			}
			if cfg.Metrics.CloudWatch.Enabled {
				logger.InitCloudWatch(c.Context, cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
			}
			log.WithFields(logger.Fields{
				"service": cfg.Slotflow.Name,
				"version": cfg.Slotflow.Version,
				"env":     config.AppEnvironment(),
			}).Debug("configuration loaded")
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "report",
				Usage: "run the allocation pipeline over two input tables",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "activity", Required: true, Usage: "investment history (.xlsx or .csv)"},
					&cli.StringFlag{Name: "risk", Required: true, Usage: "per-slot risk table (.xlsx or .csv)"},
					&cli.StringFlag{Name: "out", Usage: "output workbook path (default: export.filename)"},
					&cli.StringSliceFlag{Name: "budget", Usage: "budget override as TYPE=AMOUNT, repeatable"},
					&cli.StringFlag{Name: "parquet", Usage: "also write the slot table as parquet to this path"},
					&cli.BoolFlag{Name: "upload", Usage: "upload the artifacts to S3"},
					&cli.BoolFlag{Name: "notify", Usage: "publish a report event to Kafka"},
				},
				Action: func(c *cli.Context) error {
					return runReport(c, cfg, log)
				},
			},
			{
				Name:  "serve",
				Usage: "serve the report API over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen address (default: server.address)"},
				},
				Action: func(c *cli.Context) error {
					return runServer(c, cfg, log)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Error("slotflow failed")
		os.Exit(1)
	}
}

func runReport(c *cli.Context, cfg *config.Config, log *logger.Log) error {
	ctx := c.Context
	entry := log.WithComponent("main")

	budgets, err := parseBudgets(c.StringSlice("budget"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	activity, err := reader.LoadTable(c.String("activity"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	risk, err := reader.LoadTable(c.String("risk"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	report, err := processor.NewPipeline(cfg).Run(activity, risk, budgets)
	if err != nil {
		return cli.Exit(fmt.Sprintf("report failed: %v", err), 1)
	}

	printAggregate(os.Stdout, report.Aggregate)
	printRecommendations(os.Stdout, report.Slots)

	out := c.String("out")
	if out == "" {
		out = cfg.Export.Filename
	}
	data, err := writer.NewXLSXExporter(cfg.Export).Export(report)
	if err != nil {
		return cli.Exit(fmt.Sprintf("export failed: %v", err), 1)
	}
	if err := writeFile(out, data); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	entry.WithFields(logger.Fields{"path": out, "bytes": len(data), "run_id": report.RunID}).Info("workbook written")

	var parquetData []byte
	parquetPath := c.String("parquet")
	if parquetPath == "" && cfg.Export.Parquet.Enabled {
		parquetPath = writer.ParquetFilename(out)
	}
	if parquetPath != "" {
		parquetData, err = writer.EncodeParquet(report, cfg.Export.Parquet.Compression)
		if err != nil {
			return cli.Exit(fmt.Sprintf("parquet export failed: %v", err), 1)
		}
		if err := writeFile(parquetPath, parquetData); err != nil {
			return cli.Exit(err.Error(), 1)
		}
		entry.WithFields(logger.Fields{"path": parquetPath, "bytes": len(parquetData)}).Info("parquet written")
	}

	location := ""
	if c.Bool("upload") || cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return cli.Exit("storage.s3.bucket is required for --upload", 1)
		}
		uploader, err := writer.NewS3Uploader(ctx, cfg)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		location, err = uploader.Upload(ctx, report, filepath.Base(out), writer.ContentType, data)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		if parquetData != nil {
			if _, err := uploader.Upload(ctx, report, filepath.Base(parquetPath), "application/octet-stream", parquetData); err != nil {
				return cli.Exit(err.Error(), 1)
			}
		}
	}

	if c.Bool("notify") || cfg.Notify.Kafka.Enabled {
		notifier, err := writer.NewNotifier(cfg.Notify.Kafka)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer notifier.Close()
		if err := notifier.Notify(ctx, writer.NewReportEvent(report, filepath.Base(out), location)); err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}

	logger.LogRunReport(ctx, log, logger.Fields{
		"run_id":         report.RunID,
		"slots":          len(report.Slots),
		"aggregate_rows": len(report.Aggregate),
	})
	return nil
}

func runServer(c *cli.Context, cfg *config.Config, log *logger.Log) error {
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Address = addr
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := dashboard.NewServer(cfg, log)
	log.WithComponent("main").WithFields(logger.Fields{
		"service": cfg.Slotflow.Name,
		"version": cfg.Slotflow.Version,
		"address": srv.Address(),
	}).Info("starting slotflow server")

	start := time.Now()
	if err := srv.Run(ctx); err != nil {
		return cli.Exit(fmt.Sprintf("server failed: %v", err), 1)
	}
	log.WithComponent("main").WithFields(logger.Fields{"uptime": time.Since(start).String()}).Info("slotflow server stopped")
	return nil
}

// parseBudgets reads TYPE=AMOUNT pairs.
func parseBudgets(values []string) (map[string]float64, error) {
	if len(values) == 0 {
		return nil, nil
	}
	budgets := make(map[string]float64, len(values))
	for _, v := range values {
		typ, amount, ok := strings.Cut(v, "=")
		typ = strings.TrimSpace(typ)
		if !ok || typ == "" {
			return nil, fmt.Errorf("invalid budget %q, want TYPE=AMOUNT", v)
		}
		n := models.ParseFloat(amount)
		if !n.Valid {
			return nil, fmt.Errorf("invalid budget amount for %q: %q", typ, amount)
		}
		budgets[typ] = n.Value
	}
	return budgets, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
