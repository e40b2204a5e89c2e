package main

import (
	"bytes"
	"context"
	_ "embed"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/iotacb/gitport/pkg/logging"
	"github.com/iotacb/gitport/pkg/mockgithub"
	"github.com/iotacb/gitport/pkg/telemetry"
)

//go:embed seed.yaml
var defaultSeed []byte

func main() {
	log := logging.New(os.Stdout, "", "")

	if os.Getenv("OTEL_SERVICE_NAME") == "" {
		os.Setenv("OTEL_SERVICE_NAME", "mock-github") //nolint:errcheck
	}
	otelEnabled := telemetry.Enabled()
	tel, err := telemetry.New(context.Background(), otelEnabled, "dev")
	if err != nil {
		log.Error("telemetry init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "error", err)
		}
	}()

	s := mockgithub.NewStore()
	if path := os.Getenv("MOCK_GITHUB_SEED"); path != "" {
		err = s.LoadSeedFile(path)
	} else {
		err = s.LoadSeed(bytes.NewReader(defaultSeed))
	}
	if err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1) //nolint:gocritic // nothing to flush yet
	}
	log.Info("seeded repos", "repos", s.Repos())

	// Empty token disables the Authorization check.
	token := os.Getenv("MOCK_GITHUB_TOKEN")

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if otelEnabled {
		r.Use(otelgin.Middleware(telemetry.ServiceName()))
	}
	mockgithub.Register(r, s, log, token)

	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}
	log.Info("mock-github starting", "port", port, "auth", token != "")
	if err := r.Run(":" + port); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}
