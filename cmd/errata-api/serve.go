package main

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/errata-io/errata/backend/internal/apperror"
	"github.com/errata-io/errata/backend/internal/config"
	"github.com/errata-io/errata/backend/internal/locale"
	"github.com/errata-io/errata/backend/internal/logger"
	"github.com/errata-io/errata/backend/internal/middleware"
	"github.com/errata-io/errata/backend/internal/monitor"
	"github.com/errata-io/errata/backend/internal/response"
	"github.com/errata-io/errata/backend/internal/security"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the HTTP API server and listen for requests.`,
	RunE:  runServe,
}

var (
	port string
)

func init() {
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides config)")
}

// logSink delivers monitor alerts to the structured log. Deployments
// with a pager swap in their own AlertSink here.
type logSink struct {
	log logger.Logger
}

func (s *logSink) Notify(sev apperror.Severity, err *apperror.Error, snap monitor.Snapshot) {
	s.log.Error("alert raised",
		logger.String("severity", sev.String()),
		logger.String("error_code", string(err.Code)),
		logger.String("request_id", err.RequestID),
		logger.String("health", string(snap.Status)),
		logger.Float64("error_rate", snap.ErrorRate),
	)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Local overrides from .env, ignored when absent
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if port != "" {
		cfg.Server.Port = port
	}

	log := logger.NewSlogLogger(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
	logger.SetDefault(log)

	log.Info("starting errata API server",
		logger.String("env", cfg.Server.Env),
		logger.String("locale", cfg.Pipeline.Locale),
	)

	filter := security.NewFilter(security.Policy{
		IsProduction:      cfg.IsProduction(),
		EnableDataMasking: cfg.Pipeline.EnableDataMasking,
	})

	catalog, err := locale.NewCatalog(cfg.Pipeline.Locale)
	if err != nil {
		return fmt.Errorf("failed to build locale catalog: %w", err)
	}

	reporter := logger.NewReporter(log, filter, cfg.IsProduction())

	registry := prom.NewRegistry()
	mon := monitor.New(monitor.Config{
		WindowSize:         cfg.Monitor.WindowSize,
		RateWindow:         time.Duration(cfg.Monitor.RateWindowSeconds) * time.Second,
		WarnRate:           cfg.Monitor.WarnRate,
		CriticalRate:       cfg.Monitor.CriticalRate,
		CriticalErrorLimit: cfg.Monitor.CriticalErrorLimit,
	},
		monitor.WithAlertSink(&logSink{log: log}),
		monitor.WithRecorder(monitor.NewRecorder(registry)),
	)

	formatter := response.NewFormatter(response.Policy{
		IsProduction:          cfg.IsProduction(),
		IncludeStackTrace:     cfg.Pipeline.IncludeStackTrace,
		HideInternalDetails:   cfg.Pipeline.HideInternalDetails,
		SanitizeSensitiveData: cfg.Pipeline.EnableDataMasking,
		Localize:              cfg.Pipeline.Localize,
	}, filter, catalog)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID(log))
	router.Use(middleware.Recovery(reporter, mon, formatter))
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestLogger())

	router.GET("/health", func(c *gin.Context) {
		snap := mon.HealthCheck()
		status := 200
		if snap.Status == monitor.StatusUnhealthy {
			status = 503
		}
		c.JSON(status, snap)
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	log.Info("server listening", logger.String("port", cfg.Server.Port))
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
