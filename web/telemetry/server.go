// Package telemetry serves fire-control snapshots over HTTP and websockets. It is read-only: nothing
// it receives reaches the coordinator.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"

	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/services/firecontrol"
)

// MinStreamInterval bounds how fast a client may ask to be pushed snapshots.
const MinStreamInterval = 10 * time.Millisecond

// A SnapshotSource provides the latest snapshot.
type SnapshotSource interface {
	Snapshot() firecontrol.Snapshot
}

// Options configures a Server.
type Options struct {
	Address        string
	StreamInterval time.Duration
}

// A Server publishes snapshots. GET /snapshot returns the latest one as JSON and /stream upgrades
// to a websocket that pushes one every stream interval.
type Server struct {
	source   SnapshotSource
	opts     Options
	logger   logging.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	streams  atomic.Int64
}

// New returns a server reading from source.
func New(source SnapshotSource, opts Options, logger logging.Logger) *Server {
	if opts.StreamInterval < MinStreamInterval {
		opts.StreamInterval = MinStreamInterval
	}
	s := &Server{
		source: source,
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("/stream", s.handleStream)
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Streams returns the number of open websocket streams.
func (s *Server) Streams() int {
	return int(s.streams.Load())
}

// Run listens on the configured address and serves until the context is done.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return errors.Wrapf(err, "listening on %q", s.opts.Address)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until the context is done.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Handler:           s.mux,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	goutils.PanicCapturingGo(func() {
		<-ctx.Done()
		if err := httpServer.Shutdown(context.Background()); err != nil {
			s.logger.Errorw("error shutting down", "error", err)
		}
	})
	s.logger.Infow("serving telemetry", "url", fmt.Sprintf("http://%s", listener.Addr().String()))
	if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := json.Marshal(s.source.Snapshot())
	if err != nil {
		s.logger.Warnw("cannot encode snapshot", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		s.logger.Debugw("error writing snapshot", "error", err)
	}
}

// streamInterval is the configured interval unless the request asks for another, e.g.
// /stream?interval=250ms.
func (s *Server) streamInterval(r *http.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("interval")
	if raw == "" {
		return s.opts.StreamInterval, nil
	}
	interval, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrap(err, "bad interval")
	}
	if interval < MinStreamInterval {
		return 0, errors.Errorf("interval must be at least %v", MinStreamInterval)
	}
	return interval, nil
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	interval, err := s.streamInterval(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debugw("websocket upgrade failed", "error", err)
		return
	}
	s.streams.Inc()
	defer s.streams.Dec()
	defer func() {
		if err := conn.Close(); err != nil {
			s.logger.Debugw("error closing stream", "error", err)
		}
	}()
	s.logger.Debugw("stream opened", "remote", conn.RemoteAddr().String(), "interval", interval)

	// the only thing read from a client is its close
	closed := make(chan struct{})
	goutils.PanicCapturingGo(func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := conn.WriteJSON(s.source.Snapshot()); err != nil {
			s.logger.Debugw("stream closed", "remote", conn.RemoteAddr().String(), "error", err)
			return
		}
		select {
		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			return
		case <-closed:
			return
		case <-ticker.C:
		}
	}
}
