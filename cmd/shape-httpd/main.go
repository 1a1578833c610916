// Command shape-httpd serves a directory over HTTP/1.0, or echoes requests
// back as JSON with -echo.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/shapestone/shape-httpd/pkg/httpd"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func main() {
	host := flag.String("addr", getenv("SHAPE_HTTPD_HOST", ""), "interface to listen on (default all)")
	port := flag.Int("port", getenvInt("SHAPE_HTTPD_PORT", 8080), "TCP port, 0 for any")
	root := flag.String("root", getenv("SHAPE_HTTPD_ROOT", "."), "directory to serve")
	tmp := flag.String("tmp", getenv("SHAPE_HTTPD_TMPDIR", ""), "directory for uploaded files (default system temp)")
	keep := flag.Bool("keep-uploads", false, "keep uploaded files after the request")
	echo := flag.Bool("echo", false, "answer every request with a JSON dump of it instead of serving files")
	level := flag.String("log-level", getenv("SHAPE_HTTPD_LOG_LEVEL", "info"), "log level (trace, debug, info, warn, error)")
	jsonLogs := flag.Bool("log-json", false, "log JSON lines instead of console output")
	flag.Parse()

	logger := newLogger(*level, *jsonLogs)

	handler := httpd.FileServer(*root, &logger)
	if *echo {
		handler = httpd.EchoHandler()
	}

	srv, err := httpd.Start(httpd.Config{
		Host:        *host,
		Port:        *port,
		RootDir:     *root,
		TempDir:     *tmp,
		KeepUploads: *keep,
		Logger:      &logger,
	}, handler)
	if err != nil {
		logger.Fatal().Err(err).Msg("start failed")
	}
	fmt.Fprintf(os.Stderr, "shape-httpd serving %s on http://%s/\n", srv.RootDir(), srv.Addr())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	if err := srv.Stop(); err != nil {
		logger.Error().Err(err).Msg("stop failed")
		os.Exit(1)
	}
}

func newLogger(level string, jsonLogs bool) zerolog.Logger {
	var logger zerolog.Logger
	if jsonLogs {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		logger.Warn().Str("level", level).Msg("unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}
