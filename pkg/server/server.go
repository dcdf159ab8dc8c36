package server

import (
	"bytes"
	"context"
	sterrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/oarkflow/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Foldover/wscript"
)

type Config struct {
	Version string
	// CacheSize bounds the number of parsed programs kept between requests.
	CacheSize   int
	BodyLimit   int
	EvalTimeout time.Duration
	// RequestLog enables fiber's access log middleware.
	RequestLog bool
	Logger     *log.Logger
	Registry   *prometheus.Registry
}

type Server struct {
	app     *fiber.App
	cache   *wscript.ProgramCache
	metrics *metrics
	logger  *log.Logger
	config  Config
}

type EvalRequest struct {
	Source      string         `json:"source"`
	Data        map[string]any `json:"data,omitempty"`
	StackBudget int            `json:"stackBudget,omitempty"`
}

type EvalResponse struct {
	Result        string  `json:"result"`
	Value         any     `json:"value"`
	Type          string  `json:"type"`
	Output        string  `json:"output"`
	RunID         string  `json:"runId"`
	Steps         int     `json:"steps"`
	Bounces       int     `json:"bounces"`
	ExecutionTime float64 `json:"executionTime"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
	Output string `json:"output,omitempty"`
}

type ValidationResponse struct {
	Valid       bool            `json:"valid"`
	Expressions int             `json:"expressions"`
	Errors      []ErrorResponse `json:"errors"`
}

type metrics struct {
	registry    *prometheus.Registry
	evaluations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	bounces     prometheus.Counter
}

func newMetrics(reg *prometheus.Registry) *metrics {
	m := &metrics{
		registry: reg,
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wscript_evaluations_total",
			Help: "Evaluations served, partitioned by outcome code.",
		}, []string{"code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wscript_evaluation_duration_seconds",
			Help:    "Wall time of evaluations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"code"}),
		bounces: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wscript_trampoline_bounces_total",
			Help: "Stack unwinds performed by the trampoline.",
		}),
	}
	reg.MustRegister(m.evaluations, m.duration, m.bounces)
	return m
}

func (m *metrics) observe(code string, stats wscript.Stats, elapsed time.Duration) {
	m.evaluations.WithLabelValues(code).Inc()
	m.duration.WithLabelValues(code).Observe(elapsed.Seconds())
	m.bounces.Add(float64(stats.Bounces))
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 1 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = &log.DefaultLogger
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	cache, err := wscript.NewProgramCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if sterrors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
		},
	})
	server := &Server{
		app:     app,
		cache:   cache,
		metrics: newMetrics(cfg.Registry),
		logger:  cfg.Logger,
		config:  cfg,
	}
	server.setupRoutes()
	return server, nil
}

func (s *Server) setupRoutes() {
	s.app.Use(cors.New())
	if s.config.RequestLog {
		s.app.Use(logger.New())
	}

	s.app.Get("/api/health", s.healthHandler)
	s.app.Post("/api/eval", s.evalHandler)
	s.app.Post("/api/validate", s.validateHandler)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info().Str("addr", addr).Str("version", s.config.Version).Msg("starting server")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	defer s.cache.Close()
	return s.app.Shutdown()
}

func (s *Server) healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   s.config.Version,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) evalHandler(c *fiber.Ctx) error {
	var req EvalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Source) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "source cannot be empty"})
	}

	if req.StackBudget < 0 || req.StackBudget > wscript.MaxStackBudget {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: fmt.Sprintf("stackBudget must be between 0 and %d", wscript.MaxStackBudget),
		})
	}

	ctx := c.UserContext()
	if req.StackBudget > 0 {
		budget := req.StackBudget
		ctx = wscript.WithRuntimeConfigOverride(ctx, wscript.RuntimeConfigOverride{StackBudget: &budget})
	}
	if s.config.EvalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.EvalTimeout)
		defer cancel()
	}

	var out bytes.Buffer
	env := wscript.NewGlobalEnvironment(&out)
	for name, v := range req.Data {
		env.Define(name, wscript.ToValue(v))
	}
	ip := wscript.NewInterpreter(wscript.WithGlobals(env), wscript.WithCache(s.cache), wscript.WithLogger(s.logger))

	start := time.Now()
	val, stats, err := ip.Eval(ctx, req.Source)
	elapsed := time.Since(start)
	if err != nil {
		code := string(wscript.CodeOf(err))
		s.metrics.observe(code, stats, elapsed)
		s.logger.Error().Err(err).Str("code", code).Str("run_id", stats.RunID).Msg("evaluation failed")
		resp := errorResponse(err)
		resp.Output = out.String()
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	}
	s.metrics.observe("OK", stats, elapsed)
	return c.JSON(EvalResponse{
		Result:        val.Inspect(),
		Value:         wscript.FromValue(val),
		Type:          val.Type().String(),
		Output:        out.String(),
		RunID:         stats.RunID,
		Steps:         stats.Steps,
		Bounces:       stats.Bounces,
		ExecutionTime: elapsed.Seconds(),
	})
}

func (s *Server) validateHandler(c *fiber.Ctx) error {
	var req EvalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	program, err := s.cache.Parse(req.Source)
	if err != nil {
		return c.JSON(ValidationResponse{Valid: false, Errors: []ErrorResponse{errorResponse(err)}})
	}
	return c.JSON(ValidationResponse{Valid: true, Expressions: len(program.Body), Errors: []ErrorResponse{}})
}

func errorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error(), Code: string(wscript.CodeOf(err))}
	var e *wscript.Error
	if sterrors.As(err, &e) {
		resp.Line, resp.Column = e.Pos.Line, e.Pos.Column
	}
	return resp
}
