package cli

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/quill/internal/config"
	"github.com/aretw0/quill/pkg/adapters/llm"
	"github.com/aretw0/quill/pkg/adapters/resilient"
	"github.com/aretw0/quill/pkg/adapters/search"
	"github.com/aretw0/quill/pkg/adapters/stub"
	"github.com/aretw0/quill/pkg/ports"
)

// ErrMissingAPIKey is returned when online collaborators lack credentials.
var ErrMissingAPIKey = errors.New("missing API key: set QUILL_LLM_API_KEY and QUILL_SEARCH_API_KEY, or use --offline")

// NewCollaborators builds the language model and search clients. Offline
// mode uses deterministic stubs and needs no credentials. Online clients
// are wrapped in a retrying, rate-limited policy each.
func NewCollaborators(cfg config.Config, offline bool, logger *slog.Logger) (ports.Completer, ports.Searcher, error) {
	if offline {
		logger.Info("Using offline collaborators")
		return stub.Completer{}, stub.Searcher{}, nil
	}
	if cfg.LLM.APIKey == "" || cfg.Search.APIKey == "" {
		return nil, nil, ErrMissingAPIKey
	}

	completer := llm.New(cfg.LLM.APIKey,
		llm.WithBaseURL(cfg.LLM.BaseURL),
		llm.WithModel(cfg.LLM.Model),
		llm.WithTemperature(cfg.LLM.Temperature),
		llm.WithHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}),
		llm.WithLogger(logger),
	)
	searcher := search.New(cfg.Search.APIKey,
		search.WithBaseURL(cfg.Search.BaseURL),
		search.WithLogger(logger),
	)

	return resilient.NewCompleter(completer, newPolicy(cfg.Collaborators, logger)),
		resilient.NewSearcher(searcher, newPolicy(cfg.Collaborators, logger)),
		nil
}

func newPolicy(cfg config.CollaboratorsConfig, logger *slog.Logger) *resilient.Policy {
	return resilient.NewPolicy(
		resilient.WithTimeout(cfg.Timeout),
		resilient.WithRetries(cfg.MaxRetries),
		resilient.WithRateLimit(cfg.RatePerSecond, cfg.Burst),
		resilient.WithLogger(logger),
	)
}
