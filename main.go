package main

import (
	"log"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"go.uber.org/zap"

	"github.com/gofiber/fiber/v2"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tpf-render/config"
	"tpf-render/metrics"
	"tpf-render/routes"
	"tpf-render/storage"
)

var logger *zap.Logger

func main() {
	logger, _ = zap.NewProduction()
	defer func(logger *zap.Logger) {
		err := logger.Sync()
		if err != nil {
			log.Fatal(err)
		}
	}(logger)

	config, err := config.Load()
	if err != nil {
		logger.Fatal(err.Error())
	}

	if config.Metrics == nil {
		metrics := true
		config.Metrics = &metrics
	}

	s3, err := storage.NewS3Store(&config)
	if err != nil {
		logger.Fatal(err.Error())
	}
	if s3.Enabled {
		logger.Info("s3 sources enabled", zap.String("endpoint", config.S3Endpoint), zap.String("bucket", config.S3Bucket), zap.String("prefix", s3.Prefix))
	}

	fiberConfig := fiber.Config{
		DisableStartupMessage: true,
		Prefork:               config.Prefork,
	}
	if config.MaxUploadMB > 0 {
		fiberConfig.BodyLimit = (config.MaxUploadMB + 1) * 1024 * 1024
	}
	app := fiber.New(fiberConfig)

	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": "tpf-render"}
	counters := metrics.InitializeMetrics(registry, constLabels)
	performance := metrics.InitializePerformanceMetrics(registry, constLabels)

	if *config.Metrics {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	}

	app.Use(healthcheck.New())
	app.Use(compress.New())

	loader := storage.NewLoader(logger, &config, s3, performance)
	routes.RegisterFrameRoutes(logger, &config, app, counters, performance, loader, s3)

	address := config.Address
	if address == "" {
		address = ":3000"
	}

	logger.Info("server starting", zap.String("address", address))

	log.Fatal(app.Listen(address))
}
