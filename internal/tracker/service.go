// Package tracker assembles a running activity monitor from configuration:
// frame source, classifier, sinks and metrics.
package tracker

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/actionsum/sac/internal/config"
	"github.com/actionsum/sac/internal/database"
	"github.com/actionsum/sac/internal/metrics"
	"github.com/actionsum/sac/internal/sink"
	"github.com/actionsum/sac/pkg/activity"
	"github.com/actionsum/sac/pkg/capture"
	"github.com/actionsum/sac/pkg/classify"
	"github.com/actionsum/sac/pkg/detector"
	"github.com/actionsum/sac/pkg/window"
)

// Pipeline is the capture and classify half of a monitor.
type Pipeline struct {
	Capturer   activity.Capturer
	Classifier activity.Classifier
	Source     string
	close      func() error
}

func (p *Pipeline) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// NewPipeline opens the frame source and classifier selected by cfg.
func NewPipeline(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	p := &Pipeline{}

	var display window.Display
	if cfg.Capture.Source == "folder" {
		folder, err := capture.NewFolder(cfg.Capture.Folder, cfg.Capture.Loop)
		if err != nil {
			return nil, err
		}
		p.Capturer = folder
		p.Source = "folder"
	} else {
		d, err := detector.New(cfg.Classifier.IdleThreshold)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open display")
		}
		display = d
		p.close = d.Close
		p.Capturer = capture.NewScreen(d, d.GetDisplayServer())
		p.Source = d.GetDisplayServer()
	}

	switch cfg.Classifier.Kind {
	case "genai":
		promptContext, err := classify.LoadPromptContext(cfg.Classifier.ContextFiles...)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		cls, err := classify.NewGenAI(ctx, cfg.Classifier.APIKey, cfg.Classifier.Model, promptContext)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.Classifier = cls
	default:
		if display == nil {
			return nil, fmt.Errorf("classifier %q needs a live display", cfg.Classifier.Kind)
		}
		p.Classifier = classify.NewWindow(display, cfg.Classifier.Rules...)
	}

	return p, nil
}

// Service owns a monitor and the sinks attached to it.
type Service struct {
	config    *config.Config
	logger    *zap.Logger
	pipeline  *Pipeline
	monitor   *activity.Monitor
	db        *database.DB
	repo      *database.Repository
	publisher *sink.RedisPublisher
}

// NewService opens the pipeline and sinks described by cfg.
func NewService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	p, err := NewPipeline(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s, err := NewServiceWithPipeline(cfg, logger, p)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return s, nil
}

// NewServiceWithPipeline wires sinks and metrics around an existing pipeline.
func NewServiceWithPipeline(cfg *config.Config, logger *zap.Logger, p *Pipeline) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{config: cfg, logger: logger, pipeline: p}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, errors.Wrap(err, "failed to register metrics")
	}

	opts := []activity.Option{
		activity.WithLogger(logger.Named("monitor")),
		activity.WithObserver(metrics.ObserveCycle),
	}

	if cfg.Database.Enabled {
		db, err := database.Connect(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		if err := db.Initialize(); err != nil {
			_ = db.Close()
			return nil, err
		}
		s.db = db
		s.repo = database.NewRepository(db)
		recorder := sink.NewRecorder(s.repo, cfg.Monitor.Interval, p.Source, logger.Named("recorder"))
		opts = append(opts, activity.WithObserver(recorder.Observe))
	}

	s.monitor = activity.NewMonitor(activity.Config{
		Interval:      cfg.Monitor.Interval,
		BatchSize:     cfg.Monitor.BatchSize,
		FrameInterval: cfg.Monitor.FrameInterval,
		FailFast:      cfg.Monitor.FailFast,
	}, p.Capturer, p.Classifier, opts...)

	if _, err := s.monitor.Register(sink.Log(logger.Named("activity"))); err != nil {
		_ = s.Close()
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		host, _ := os.Hostname()
		s.publisher = sink.NewRedisPublisher(sink.RedisOptions{
			Address:  cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
			Host:     host,
		})
		if _, err := s.monitor.RegisterWithError(s.publisher.Publish); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	return s, nil
}

func (s *Service) Monitor() *activity.Monitor {
	return s.monitor
}

// Repository is nil when the database is disabled.
func (s *Service) Repository() *database.Repository {
	return s.repo
}

// Start runs the monitor until Stop or ctx cancellation.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("starting tracker",
		zap.Duration("interval", s.config.Monitor.Interval),
		zap.String("source", s.pipeline.Source),
		zap.String("classifier", s.config.Classifier.Kind))

	metrics.SetRunning(true)
	defer metrics.SetRunning(false)

	return s.monitor.Start(ctx)
}

func (s *Service) Stop() {
	s.monitor.Stop()
}

// RunOnce performs a single cycle with all sinks attached.
func (s *Service) RunOnce(ctx context.Context) error {
	return s.monitor.RunOnce(ctx)
}

// Close stops the monitor and releases the display, database and Redis client.
func (s *Service) Close() error {
	s.monitor.Stop()

	var errs []error
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	errs = append(errs, s.pipeline.Close())

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
