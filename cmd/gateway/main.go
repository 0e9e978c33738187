// Command gateway starts the relaygate HTTP server: it loads configuration,
// builds the credential pool and dispatcher, and serves the client-facing
// messages API.
package main

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/relaygate/gateway/internal/config"
	"github.com/relaygate/gateway/internal/credpool"
	"github.com/relaygate/gateway/internal/dispatch"
	"github.com/relaygate/gateway/internal/httpapi"
	"github.com/relaygate/gateway/internal/httpclient"
	"github.com/relaygate/gateway/internal/telemetry"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	log.Logger = logger

	cfg, err := config.Load(configPath())
	if err != nil {
		logger.Fatal().Err(err).Msg("load configuration")
	}

	entries := credentialsFromEnv()
	if len(entries) == 0 {
		logger.Fatal().Msg("no upstream credentials configured (set RELAYGATE_BEARER_TOKENS)")
	}
	pool := credpool.New(selectionMode(cfg.LoadBalancingMode), entries)

	client := httpclient.New(httpclient.Config{BaseURL: cfg.UpstreamBaseURL})
	tracer := telemetry.GetTracer(&telemetry.Settings{IsEnabled: os.Getenv("RELAYGATE_OTEL_ENABLED") == "true"})
	dispatcher := &dispatch.Dispatcher{
		Client:  client,
		Pool:    pool,
		Service: "relaygate",
		Logger:  logger,
		Tracer:  tracer,
	}

	gateway := httpapi.NewGateway(cfg.Compression, cfg.Compression.MaxRequestBodyBytes, pool, dispatcher, logger)
	router := httpapi.NewRouter(gateway)

	addr := cfg.Host + ":" + strconv.Itoa(cfg.Port)
	logger.Info().Str("addr", addr).Int("credentials", len(entries)).Msg("relaygate listening")

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming responses can run far longer than a fixed write timeout
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func configPath() string {
	if p := os.Getenv("RELAYGATE_CONFIG_PATH"); p != "" {
		return p
	}
	return "relaygate.config.json"
}

func selectionMode(mode string) credpool.SelectionMode {
	if credpool.SelectionMode(mode) == credpool.ModeBalanced {
		return credpool.ModeBalanced
	}
	return credpool.ModePriority
}

// credentialsFromEnv builds the credential pool's entries from
// RELAYGATE_BEARER_TOKENS, a comma-separated list of bearer tokens.
// Credential persistence and OAuth-style refresh live outside the core.
func credentialsFromEnv() []credpool.CredentialEntry {
	raw := os.Getenv("RELAYGATE_BEARER_TOKENS")
	if raw == "" {
		return nil
	}
	tokens := strings.Split(raw, ",")
	entries := make([]credpool.CredentialEntry, 0, len(tokens))
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		entries = append(entries, credpool.CredentialEntry{
			Priority:    uint32(i + 1),
			AuthMethod:  credpool.AuthBearer,
			BearerToken: tok,
		})
	}
	return entries
}
