// Command somad runs the sensor bridge daemon: UDP receivers for the
// face, body, and audio streams, the control tick, and the diagnostic
// dashboard.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soma-labs/go-soma/internal/config"
	"github.com/soma-labs/go-soma/internal/log"
	"github.com/soma-labs/go-soma/pkg/engine"
	"github.com/soma-labs/go-soma/pkg/hub"
	"github.com/soma-labs/go-soma/pkg/web"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	facePort := flag.Int("face-port", 0, "Override face stream port")
	bodyPort := flag.Int("body-port", 0, "Override body stream port")
	audioPort := flag.Int("audio-port", -1, "Override RTP audio port (0 disables)")
	webPort := flag.Int("web-port", -1, "Override dashboard port (0 disables)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "somad: %v\n", err)
		os.Exit(1)
	}
	if *facePort > 0 {
		cfg.FacePort = *facePort
	}
	if *bodyPort > 0 {
		cfg.BodyPort = *bodyPort
	}
	if *audioPort >= 0 {
		cfg.AudioPort = *audioPort
	}
	if *webPort >= 0 {
		cfg.WebPort = *webPort
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "somad: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)
	logger := log.L()

	var controlHub *hub.Hub
	if cfg.WebPort > 0 {
		controlHub = hub.New("control", logger)
	}

	eng := engine.New(cfg, controlHub, logger)
	if err := eng.Start(); err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer eng.Stop()

	var server *web.Server
	if cfg.WebPort > 0 {
		server = web.NewServer(cfg.WebPort, eng, controlHub, logger)
		server.StartAsync()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	if server != nil {
		if err := server.Shutdown(); err != nil {
			logger.Warn("dashboard shutdown", "err", err)
		}
	}
}
