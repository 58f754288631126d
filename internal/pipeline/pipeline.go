// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline implements the bounded-parallelism component-fetch
// pool used by the Archiver: up to MaxVideos videos in flight at
// once, each fetching up to MaxComponents components (metadata,
// thumbnail, captions, comments) concurrently.
//
// The concurrency bound itself is a pair of plain semaphores — the
// correct tool for the job, since Watermill's gochannel pub-sub
// broadcasts each published message to every subscriber of a topic
// rather than load-balancing it across a worker pool, so it cannot by
// itself implement a bounded N:M job queue. Watermill is used instead
// for what it is good at here: a fire-and-forget, in-process event
// stream of component-fetch lifecycle events, consumed (once Start has
// run) by a logging handler that the pool supervises via suture. The
// events are not persisted, and the status surface does not read them.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/tomtom215/ytarchive/internal/logging"
	"github.com/tomtom215/ytarchive/internal/metrics"
	"github.com/tomtom215/ytarchive/internal/retry"
)

const eventsTopic = "component.events"

// Config bounds the pool's concurrency. Zero values fall back to the
// defaults (8 videos in flight, 4 components each).
type Config struct {
	// MaxVideos is the number of videos processed concurrently.
	MaxVideos int
	// MaxComponents is the number of components fetched concurrently
	// within a single video.
	MaxComponents int
}

func (c Config) withDefaults() Config {
	if c.MaxVideos <= 0 {
		c.MaxVideos = 8
	}
	if c.MaxComponents <= 0 {
		c.MaxComponents = 4
	}
	return c
}

// ComponentJob is a single named unit of per-video work (a metadata,
// thumbnail, caption, or comment fetch).
type ComponentJob struct {
	Name string
	Fn   func(ctx context.Context) error
}

// ComponentResult reports the outcome of one ComponentJob.
type ComponentResult struct {
	Name     string
	Err      error
	Duration time.Duration
}

// componentEvent is the payload published to eventsTopic after every
// component fetch completes.
type componentEvent struct {
	VideoID   string    `json:"video_id"`
	Component string    `json:"component"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Millis    int64     `json:"millis"`
	At        time.Time `json:"at"`
}

// Pool runs per-video component fetches under the configured
// concurrency bound and publishes a lifecycle event for each completed fetch.
type Pool struct {
	cfg          Config
	videoSem     chan struct{}
	componentSem chan struct{}

	bus        *gochannel.GoChannel
	router     *message.Router
	supervisor *suture.Supervisor

	startOnce sync.Once
	started   chan struct{}
}

// New constructs a Pool. Call Start before RunVideo so the event
// logger is running; RunVideo works without Start too, it just won't
// have its events logged.
func New(cfg Config) *Pool {
	cfg = cfg.withDefaults()

	logger := watermill.NewStdLogger(false, false)
	bus := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		// message.NewRouter only errors on an invalid RouterConfig; the
		// zero value is always valid, so this is unreachable in practice.
		panic(err)
	}
	router.AddNoPublisherHandler(
		"component-event-logger",
		eventsTopic,
		bus,
		logComponentEvent,
	)

	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}
	sup := suture.New("pipeline", suture.Spec{EventHook: handler.MustHook()})
	sup.Add(routerService{router})

	return &Pool{
		cfg:          cfg,
		videoSem:     make(chan struct{}, cfg.MaxVideos),
		componentSem: make(chan struct{}, cfg.MaxComponents),
		bus:          bus,
		router:       router,
		supervisor:   sup,
		started:      make(chan struct{}),
	}
}

// routerService adapts a Watermill *message.Router to suture.Service.
type routerService struct {
	router *message.Router
}

func (r routerService) Serve(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Start runs the pool's supervisor (and with it, the event logger) in
// the background until ctx is cancelled. Safe to call once; repeat
// calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		go p.supervisor.Serve(ctx)
		go func() {
			select {
			case <-p.router.Running():
			case <-ctx.Done():
			}
			close(p.started)
		}()
	})
}

// RunVideo runs every job for a single video concurrently, bounded by
// MaxComponents, itself bounded by MaxVideos across concurrent
// RunVideo callers. It blocks until every job has returned or ctx is
// cancelled, then returns one ComponentResult per job.
func (p *Pool) RunVideo(ctx context.Context, videoID string, jobs []ComponentJob) []ComponentResult {
	select {
	case p.videoSem <- struct{}{}:
	case <-ctx.Done():
		results := make([]ComponentResult, len(jobs))
		for i, j := range jobs {
			results[i] = ComponentResult{Name: j.Name, Err: ctx.Err()}
		}
		return results
	}
	defer func() { <-p.videoSem }()

	results := make([]ComponentResult, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job ComponentJob) {
			defer wg.Done()
			results[i] = p.runComponent(ctx, videoID, job)
		}(i, job)
	}
	wg.Wait()
	return results
}

func (p *Pool) runComponent(ctx context.Context, videoID string, job ComponentJob) ComponentResult {
	select {
	case p.componentSem <- struct{}{}:
	case <-ctx.Done():
		return ComponentResult{Name: job.Name, Err: ctx.Err()}
	}
	defer func() { <-p.componentSem }()

	ctx = logging.ContextWithVideoID(ctx, videoID)
	start := time.Now()
	err := job.Fn(ctx)
	d := time.Since(start)

	errKind := ""
	if err != nil {
		errKind = "unclassified"
		if kind, ok := retry.KindOf(err); ok {
			errKind = string(kind)
		}
	}
	metrics.ObserveComponentFetch(job.Name, d, errKind)
	p.publishEvent(videoID, job.Name, d, err)

	return ComponentResult{Name: job.Name, Err: err, Duration: d}
}

func (p *Pool) publishEvent(videoID, component string, d time.Duration, err error) {
	ev := componentEvent{
		VideoID:   videoID,
		Component: component,
		Success:   err == nil,
		Millis:    d.Milliseconds(),
		At:        time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	payload, marshalErr := json.Marshal(ev)
	if marshalErr != nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	// Best effort: a full event buffer or a stopped router should never
	// fail the archival operation itself.
	_ = p.bus.Publish(eventsTopic, msg)
}

func logComponentEvent(msg *message.Message) error {
	var ev componentEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil
	}
	lvl := slog.LevelInfo
	if !ev.Success {
		lvl = slog.LevelWarn
	}
	slog.Default().Log(context.Background(), lvl, "component fetch",
		"video_id", ev.VideoID,
		"component", ev.Component,
		"success", ev.Success,
		"error", ev.Error,
		"millis", ev.Millis,
	)
	return nil
}
