package bypass

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lkacz/PersonalFreedom-sub000/internal/domain"
)

const (
	// DefaultPort is where browsers land after the hosts-file redirect.
	DefaultPort = 80
	// FallbackPort is tried once when the default port is taken.
	FallbackPort = 8080

	shutdownTimeout = 2 * time.Second
)

// Server is the background loopback listener that receives redirected
// requests for blocked hosts and records them. It communicates with the
// foreground only through the internally synchronized Stats.
type Server struct {
	stats  *Stats
	logger *zap.Logger

	mu      sync.Mutex
	srv     *http.Server
	running bool
	port    int
}

// NewServer creates a bypass-attempt server recording into stats.
func NewServer(stats *Stats, logger *zap.Logger) *Server {
	return &Server{stats: stats, logger: logger}
}

// Start binds a loopback HTTP listener. If the preferred port is taken it
// retries once on the fallback port; any other bind error is returned and
// enforcement continues without bypass logging. Returns the bound port.
func (s *Server) Start(preferredPort int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.port, nil
	}

	ln, port, err := s.listen(preferredPort)
	if err != nil {
		return 0, domain.NewResourceError("Could not start bypass listener.", err)
	}

	srv := &http.Server{Handler: s}
	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Warn("bypass listener stopped unexpectedly", zap.Error(serveErr))
		}
	}()

	s.srv = srv
	s.running = true
	s.port = port
	s.logger.Info("bypass listener started", zap.Int("port", port))
	return port, nil
}

func (s *Server) listen(preferredPort int) (net.Listener, int, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", preferredPort)
	ln, err := net.Listen("tcp", addr)
	if err == nil {
		return ln, preferredPort, nil
	}
	if !isAddrInUse(err) || preferredPort == FallbackPort {
		return nil, 0, err
	}

	s.logger.Warn("preferred port in use, retrying on fallback",
		zap.Int("preferred", preferredPort),
		zap.Int("fallback", FallbackPort))
	ln, err = net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", FallbackPort))
	if err != nil {
		return nil, 0, err
	}
	return ln, FallbackPort, nil
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

// Stop stops accepting connections, records the session summary, and
// flushes stats to disk. Stopping an idle server is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("bypass listener shutdown incomplete", zap.Error(err))
	}

	s.stats.EndSession(time.Now())
	s.srv = nil
	s.running = false
	s.port = 0
	s.logger.Info("bypass listener stopped")
	return nil
}

// Running reports whether the listener is accepting connections.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Port returns the bound port, or 0 when stopped.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// ServeHTTP handles every inbound request identically regardless of
// method: the only semantically meaningful input is the Host header.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	host := normalizeHost(r.Host)

	s.stats.Record(domain.BypassAttempt{
		Timestamp: time.Now(),
		Host:      host,
		Path:      r.URL.Path,
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, blockedPageTemplate, host)
}

// normalizeHost strips any port suffix and lower-cases the Host header,
// falling back to "unknown" when the header is empty.
func normalizeHost(hostHeader string) string {
	host := strings.TrimSpace(hostHeader)
	if host == "" {
		return "unknown"
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}

const blockedPageTemplate = `<!DOCTYPE html>
<html>
<head><title>Site Blocked</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 4em;">
<h1>&#128683; %s is blocked</h1>
<p>This site is blocked during your focus session.</p>
<p>Get back to work!</p>
</body>
</html>
`
