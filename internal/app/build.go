package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sadopc/apitester/internal/config"
	"github.com/sadopc/apitester/internal/core/history"
	"github.com/sadopc/apitester/internal/core/storage"
	httpclient "github.com/sadopc/apitester/internal/protocol/http"
)

// Runtime is a built App together with the resources it owns.
type Runtime struct {
	*App
	kv storage.KV
}

// Close releases the storage backend.
func (r *Runtime) Close() error {
	return r.kv.Close()
}

// Build opens storage, restores history and configures the HTTP client
// from cfg.
func Build(cfg config.Config, log zerolog.Logger) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("invalid tls configuration: %w", err)
	}

	kv, err := storage.Open(cfg.Storage, cfg.DataDir)
	if err != nil {
		// History must never block startup; fall back to a throwaway store.
		log.Debug().Err(err).Str("storage", cfg.Storage).Msg("storage unavailable, history will not persist")
		kv = storage.NewMemory()
	}

	client := httpclient.New()
	client.SetTimeout(cfg.DefaultTimeout)
	client.SetProxy(cfg.Proxy, cfg.NoProxy)
	client.SetTLSConfig(tlsCfg)
	client.SetAdvisoryHeaders(cfg.AdvisoryCORS)

	h := history.Open(kv, log)
	return &Runtime{App: New(client, h, log), kv: kv}, nil
}
