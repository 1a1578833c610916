package httpd

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// PortReleaser is another local service that may hold the server's port.
// When binding fails because the port is taken, Start asks it to let go of
// the port once and retries.
type PortReleaser interface {
	ReleasePort(port int) error
}

// Config configures a Server.
type Config struct {
	Host        string // interface to bind; empty binds all
	Port        int    // 0 picks an ephemeral port
	RootDir     string // handed to handlers, default "."
	TempDir     string // where uploads are spilled, default os.TempDir()
	KeepUploads bool   // leave upload files behind when the session ends
	Logger      *zerolog.Logger
	Alternate   PortReleaser
}

func (c Config) withDefaults() Config {
	if c.RootDir == "" {
		c.RootDir = "."
	}
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	return c
}

// Server accepts connections and runs one session per connection.
type Server struct {
	cfg      Config
	handler  Handler
	log      zerolog.Logger
	ln       net.Listener
	done     chan struct{}
	stopOnce sync.Once
}

// Start binds the configured address and begins accepting connections in
// the background.
func Start(cfg Config, h Handler) (*Server, error) {
	if h == nil {
		return nil, errors.New("httpd: nil handler")
	}
	cfg = cfg.withDefaults()
	log := cfg.Logger.With().Str("component", "httpd").Logger()

	ln, err := listen(cfg, &log)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		handler: h,
		log:     log,
		ln:      ln,
		done:    make(chan struct{}),
	}
	go s.acceptLoop()

	log.Info().Str("addr", ln.Addr().String()).Str("root", cfg.RootDir).Msg("server started")
	return s, nil
}

// listen binds cfg's address, retrying once through cfg.Alternate when the
// port is already in use.
func listen(cfg Config, log *zerolog.Logger) (net.Listener, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err == nil {
		return ln, nil
	}

	if errors.Is(err, syscall.EADDRINUSE) && cfg.Alternate != nil {
		log.Info().Int("port", cfg.Port).Msg("port in use, asking alternate service to release it")
		if rerr := cfg.Alternate.ReleasePort(cfg.Port); rerr != nil {
			log.Warn().Err(rerr).Int("port", cfg.Port).Msg("alternate service release failed")
		}
		if ln, err = net.Listen("tcp", addr); err == nil {
			return ln, nil
		}
	}

	if errors.Is(err, syscall.EADDRINUSE) {
		return nil, fmt.Errorf("%w: %w", ErrAddrInUse, err)
	}
	return nil, fmt.Errorf("httpd: listen on %s: %w", addr, err)
}

// acceptLoop hands each connection to a new session until the listener is
// closed.
func (s *Server) acceptLoop() {
	defer close(s.done)

	var delay time.Duration
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			delay = nextAcceptDelay(delay)
			s.log.Warn().Err(err).Dur("retry_in", delay).Msg("accept failed")
			time.Sleep(delay)
			continue
		}
		delay = 0
		go s.newSession(conn).serve()
	}
}

// nextAcceptDelay doubles the backoff after a failed Accept, from
// minAcceptDelay up to maxAcceptDelay.
func nextAcceptDelay(delay time.Duration) time.Duration {
	if delay == 0 {
		return minAcceptDelay
	}
	if delay *= 2; delay > maxAcceptDelay {
		return maxAcceptDelay
	}
	return delay
}

// Stop closes the listener and waits for the accept loop to exit. Sessions
// already running are left to finish on their own. Calling Stop again
// returns ErrServerClosed.
func (s *Server) Stop() error {
	err := ErrServerClosed
	s.stopOnce.Do(func() {
		err = s.ln.Close()
		<-s.done
		if err != nil {
			err = fmt.Errorf("httpd: closing listener: %w", err)
		}
		s.log.Info().Msg("server stopped")
	})
	return err
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// RootDir returns the configured root directory.
func (s *Server) RootDir() string {
	return s.cfg.RootDir
}
