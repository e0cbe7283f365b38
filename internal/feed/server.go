package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"github.com/san-kum/orbitsim/internal/sim"
)

const DefaultTick = time.Second / 30

type Options struct {
	// Dt is the engine step; each tick runs Substeps of them.
	Dt       float64
	Substeps int
	Tick     time.Duration
	// Duration stops the run once simulated time reaches it; zero runs until
	// the context ends.
	Duration float64
	Logger   Logger
}

// Server owns one engine. Run steps it on the calling goroutine and the
// engine's stats callback publishes a frame per energy sample.
type Server struct {
	engine *sim.Engine
	hub    *Hub
	opts   Options
	latest atomic.Pointer[Frame]
}

func NewServer(e *sim.Engine, opts Options) (*Server, error) {
	if !(opts.Dt > 0) {
		return nil, dynamo.Invalid("dt", "must be positive, got %g", opts.Dt)
	}
	if opts.Substeps < 1 {
		opts.Substeps = 1
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Logger == nil {
		opts.Logger = NoOpLogger{}
	}

	s := &Server{engine: e, hub: NewHub(opts.Logger), opts: opts}
	s.record(e.Stats())
	e.SetStatsCallback(func(stats dynamo.EnergyStats) {
		f := s.record(stats)
		s.hub.Publish(*f)
	})
	return s, nil
}

func (s *Server) record(stats dynamo.EnergyStats) *Frame {
	f := NewFrame(s.engine.Time(), s.engine.Steps(), stats, s.engine.Bodies())
	s.latest.Store(&f)
	return &f
}

// Latest returns the most recent frame. Safe from any goroutine.
func (s *Server) Latest() Frame { return *s.latest.Load() }
func (s *Server) Hub() *Hub     { return s.hub }

// Tick advances the engine by Substeps steps.
func (s *Server) Tick() error {
	for range s.opts.Substeps {
		if err := s.engine.Step(s.opts.Dt); err != nil {
			return err
		}
	}
	if !s.engine.Bodies().IsValid() {
		return &dynamo.SimulationError{Step: s.engine.Steps(), Time: s.engine.Time(), Wrapped: dynamo.ErrInvalidState}
	}
	return nil
}

func (s *Server) finished() bool {
	return s.opts.Duration > 0 && s.engine.Time() >= s.opts.Duration
}

// Run ticks on a wall-clock timer until ctx ends, the engine diverges, or
// Duration is reached.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()

	s.opts.Logger.Infof("feed running: bodies=%d dt=%g substeps=%d", s.engine.Len(), s.opts.Dt, s.opts.Substeps)
	for !s.finished() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := s.Tick(); err != nil {
			s.opts.Logger.Errorf("engine stopped: %v", err)
			return err
		}
	}
	s.opts.Logger.Infof("feed finished: t=%g steps=%d", s.engine.Time(), s.engine.Steps())
	return nil
}

// Handler serves the WebSocket feed at /ws and the latest frame at /frame.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.hub)
	mux.HandleFunc("/frame", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.Latest()); err != nil {
			s.opts.Logger.Warnf("encode frame: %v", err)
		}
	})
	return mux
}

// ListenAndServe serves Handler on addr while Run drives the engine. It
// returns when either side stops.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		s.opts.Logger.Infof("feed listening: addr=%s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("listen %s: %w", addr, err)
			cancel()
			return
		}
		errc <- nil
	}()

	runErr := s.Run(ctx)
	shutdown, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	srv.Shutdown(shutdown)
	s.hub.Close()

	if err := <-errc; err != nil {
		return err
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
