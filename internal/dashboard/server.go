package dashboard

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"slotflow/config"
	"slotflow/logger"
	"slotflow/models"
	"slotflow/processor"
	"slotflow/reader"
	"slotflow/writer"
)

// Server exposes the report pipeline over HTTP.
type Server struct {
	cfg        config.ServerConfig
	filename   string
	log        *logger.Log
	logStore   *logStore
	pipeline   *processor.Pipeline
	exporter   *writer.XLSXExporter
	limiter    *rate.Limiter
	httpServer *http.Server
}

// NewServer builds a server for cfg and attaches its log capture hook to log.
func NewServer(cfg *config.Config, log *logger.Log) *Server {
	srvCfg := cfg.Server
	srvCfg.Address = normalizeAddress(srvCfg.Address)
	if srvCfg.LogHistory <= 0 {
		srvCfg.LogHistory = 200
	}
	if srvCfg.MaxUploadBytes <= 0 {
		srvCfg.MaxUploadBytes = 32 << 20
	}

	store := newLogStore(srvCfg.LogHistory)
	log.AddHook(store)

	limit := rate.Inf
	if srvCfg.RateLimit.RequestsPerSecond > 0 {
		limit = rate.Limit(srvCfg.RateLimit.RequestsPerSecond)
	}
	burst := srvCfg.RateLimit.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Server{
		cfg:      srvCfg,
		filename: cfg.Export.Filename,
		log:      log,
		logStore: store,
		pipeline: processor.NewPipeline(cfg),
		exporter: writer.NewXLSXExporter(cfg.Export),
		limiter:  rate.NewLimiter(limit, burst),
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server
// exits with an error.
func (s *Server) Run(ctx context.Context) error {
	defer s.cleanup()

	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.WithComponent("server").WithFields(logger.Fields{"address": s.cfg.Address}).Info("report server listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) cleanup() {
	if s.logStore != nil {
		s.logStore.close()
	}
}

// Address reports the network address the server listens on.
func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Address
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.rateLimit())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/api/report", s.handleReport)
	router.POST("/api/report/json", s.handleReportJSON)

	router.GET("/api/logs", func(c *gin.Context) {
		logsSnapshot := s.logStore.snapshot()
		payload := make([]gin.H, 0, len(logsSnapshot))
		for _, l := range logsSnapshot {
			payload = append(payload, gin.H{
				"timestamp": l.Timestamp.Format(time.RFC3339Nano),
				"level":     l.Level,
				"component": l.Component,
				"message":   l.Message,
				"fields":    l.Fields,
			})
		}
		c.JSON(http.StatusOK, gin.H{"logs": payload})
	})

	router.GET("/api/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"metrics": s.logStore.metricSnapshot()})
	})

	router.GET("/api/resources", func(c *gin.Context) {
		c.JSON(http.StatusOK, sampleResources(c.Request.Context()))
	})

	return router, nil
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleReport(c *gin.Context) {
	report, ok := s.runReport(c)
	if !ok {
		return
	}

	data, err := s.exporter.Export(report)
	if err != nil {
		s.log.WithComponent("server").WithError(err).Error("export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.filename))
	c.Data(http.StatusOK, writer.ContentType, data)
}

func (s *Server) handleReportJSON(c *gin.Context) {
	report, ok := s.runReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":       report.RunID,
		"generated_at": report.GeneratedAt,
		"budgets":      report.Budgets,
		"slots":        writer.Recommendations(report.Slots),
		"aggregate":    writer.AggregateViews(report.Aggregate),
	})
}

// runReport reads the multipart inputs and runs the pipeline. On failure it
// writes the error response and returns false.
func (s *Server) runReport(c *gin.Context) (*models.Report, bool) {
	log := s.log.WithComponent("server").WithFields(logger.Fields{"path": c.FullPath()})
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	activity, err := formTable(c, "activity")
	if err != nil {
		s.badRequest(c, log, err)
		return nil, false
	}
	risk, err := formTable(c, "risk")
	if err != nil {
		s.badRequest(c, log, err)
		return nil, false
	}
	budgets, err := formBudgets(c)
	if err != nil {
		s.badRequest(c, log, err)
		return nil, false
	}

	report, err := s.pipeline.Run(activity, risk, budgets)
	if err != nil {
		s.badRequest(c, log, err)
		return nil, false
	}
	log.WithFields(logger.Fields{"run_id": report.RunID, "slots": len(report.Slots)}).Info("report generated")
	return report, true
}

func (s *Server) badRequest(c *gin.Context, log *logger.Entry, err error) {
	log.WithError(err).Warn("report request rejected")
	msg := err.Error()
	if errors.Is(err, processor.ErrInputsNotReady) {
		msg = processor.ErrInputsNotReady.Error()
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// formTable reads an uploaded table. A missing file means the inputs are not
// ready.
func formTable(c *gin.Context, field string) (*reader.Table, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, fmt.Errorf("%s: %w", field, processor.ErrInputsNotReady)
		}
		return nil, fmt.Errorf("read %s upload: %w", field, err)
	}
	return openUpload(fh)
}

func openUpload(fh *multipart.FileHeader) (*reader.Table, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return reader.ReadTable(f, fh.Filename)
}

// formBudgets parses budget[<slot type>] form values.
func formBudgets(c *gin.Context) (map[string]float64, error) {
	raw := c.PostFormMap("budget")
	if len(raw) == 0 {
		return nil, nil
	}
	budgets := make(map[string]float64, len(raw))
	for typ, v := range raw {
		n := models.ParseFloat(v)
		if !n.Valid {
			return nil, fmt.Errorf("budget for %q is not a number: %q", typ, v)
		}
		budgets[strings.TrimSpace(typ)] = n.Value
	}
	return budgets, nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, "8080")
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}

	return addr
}
