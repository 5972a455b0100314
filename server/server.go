// Package server exposes recipe and step image generation over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/santiagomed/chef/llm"
	"github.com/santiagomed/chef/logger"
)

const (
	msgInvalidIngredients = "Invalid input. Please provide a comma-separated string of ingredients."
	msgInvalidRecipeJSON  = "Invalid JSON format received from AI"
	msgRecipeFailed       = "An error occurred while generating the recipe"
	msgNoTitle            = "No step title provided"
	msgNoImageKey         = "OpenAI API key not found on server"
	msgImageFailed        = "OpenAI API returned an error"
)

type Options struct {
	// Recipes is required.
	Recipes llm.LlmClient
	// Images may be nil when no image key is configured; image requests then fail.
	Images llm.ImageGenerator
	Cache  ImageCache
	// ImageTimeout bounds one shared image generation. Defaults to 60s.
	ImageTimeout time.Duration
	Logger       logger.Logger
}

type Server struct {
	recipes  llm.LlmClient
	images   llm.ImageGenerator
	cache    ImageCache
	inflight singleflight.Group
	timeout  time.Duration
	logger   logger.Logger
	started  time.Time
	router   *gin.Engine
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.NewNullLogger()
	}
	if opts.Cache == nil {
		opts.Cache = NewMemoryCache(50 * time.Minute)
	}
	if opts.ImageTimeout <= 0 {
		opts.ImageTimeout = 60 * time.Second
	}

	s := &Server{
		recipes: opts.Recipes,
		images:  opts.Images,
		cache:   opts.Cache,
		timeout: opts.ImageTimeout,
		logger:  opts.Logger,
		started: time.Now(),
	}
	s.router = s.setupRoutes()
	return s
}

func zerologOf(l logger.Logger) zerolog.Logger {
	if z, ok := l.(*logger.ZerologAdapter); ok {
		return z.Zerolog()
	}
	return zerolog.Nop()
}

func (s *Server) setupRoutes() *gin.Engine {
	RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(zerologOf(s.logger)))
	r.Use(RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/", s.handleHome)
	r.POST("/generate", s.handleGenerate)
	r.POST("/generate-image", s.handleGenerateImage)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
