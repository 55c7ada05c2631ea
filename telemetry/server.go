package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"ridesim/simlog"
)

// Server exposes the Reader's snapshots over two small listeners: a fiber
// app for the one-shot JSON poll (mirroring the teacher's /api/route), and
// a plain net/http + gorilla/websocket listener for the push stream
// (mirroring the teacher's SSE /api/stream, grounded in niceyeti-tabular's
// gorilla/websocket usage). fasthttp (fiber's transport) and gorilla's
// net/http-based upgrader don't share a listener, so they run side by
// side on adjacent ports rather than one.
type Server struct {
	reader *Reader
	log    *simlog.Logger

	app      *fiber.App
	wsServer *http.Server
	upgrader websocket.Upgrader

	redis *redis.Client
}

// NewServer builds the telemetry surface. redisAddr may be empty to skip
// the optional pub/sub fan-out entirely.
func NewServer(reader *Reader, log *simlog.Logger, redisAddr string) *Server {
	s := &Server{
		reader:   reader,
		log:      log,
		app:      fiber.New(fiber.Config{DisableStartupMessage: true}),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	if redisAddr != "" {
		s.redis = redis.NewClient(&redis.Options{Addr: redisAddr})
	}

	s.app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })
	s.app.Get("/snapshot", func(c *fiber.Ctx) error { return c.JSON(s.reader.Latest()) })

	mux := http.NewServeMux()
	mux.HandleFunc("/stream", s.handleStream)
	s.wsServer = &http.Server{Handler: mux}
	return s
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	connID := uuid.NewString()
	defer conn.Close()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		if err := conn.WriteJSON(s.reader.Latest()); err != nil {
			s.log.Infof("telemetry: connection %s closed: %v", connID, err)
			return
		}
	}
}

// Publish is installed with Reader.SetPublish as the reader's fan-out
// function: best-effort redis publish of each snapshot. A down/unreachable
// redis holds the reader tick for at most the 200ms publish timeout and
// is only logged, never returned as an error.
func (s *Server) Publish(snap Snapshot) {
	if s.redis == nil {
		return
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := s.redis.Publish(ctx, "ridesim:snapshots", body).Err(); err != nil {
		s.log.Infof("telemetry: redis publish skipped: %v", err)
	}
}

// Serve runs both listeners until ctx is cancelled, deriving the
// websocket listener's port as restAddr's port + 1.
func (s *Server) Serve(ctx context.Context, restAddr string) error {
	wsAddr, err := adjacentPort(restAddr)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	s.wsServer.Addr = wsAddr

	errCh := make(chan error, 2)
	go func() { errCh <- s.app.Listen(restAddr) }()
	go func() { errCh <- s.wsServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		_ = s.app.ShutdownWithTimeout(time.Second)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.wsServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func adjacentPort(addr string) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return net.JoinHostPort(host, strconv.Itoa(port+1)), nil
}
