package transcribe

import (
	"fmt"
	"net/http"
	"time"

	"github.com/remberq/simple-voice-transcribe/internal/config"
	"github.com/remberq/simple-voice-transcribe/internal/credential"
	"github.com/remberq/simple-voice-transcribe/pkg/logger"
)

// Resolver builds providers from configuration and stored credentials.
type Resolver struct {
	creds      credential.Store
	mockDelay  time.Duration
	httpClient *http.Client
	log        *logger.Logger
}

// NewResolver returns a resolver. httpClient may be nil.
func NewResolver(creds credential.Store, mockDelay time.Duration, httpClient *http.Client, log *logger.Logger) *Resolver {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Resolver{
		creds:      creds,
		mockDelay:  mockDelay,
		httpClient: httpClient,
		log:        log.Named("resolver"),
	}
}

// Resolve builds the provider for p. A missing credential is not an error
// here; the provider reports ErrMissingCredential when used.
func (r *Resolver) Resolve(p config.Provider) (Provider, error) {
	key := ""
	if p.Kind != config.KindMock {
		k, err := r.creds.Get(p.ID)
		if err != nil {
			r.log.Warn("credential lookup failed", logger.String("provider", p.ID), logger.Error(err))
		}
		key = k
	}

	switch p.Kind {
	case config.KindMock:
		return NewMock(r.mockDelay), nil
	case config.KindOpenAI:
		return NewOpenAI(OpenAIConfig{
			Name:     p.DisplayName(),
			APIKey:   key,
			Endpoint: p.Endpoint,
			Model:    p.Model,
			Prompt:   p.Prompt,
			Language: p.Language,
			Timeout:  p.Timeout(),
		}), nil
	case config.KindGemini:
		return NewGemini(GeminiConfig{
			Name:         p.DisplayName(),
			APIKey:       key,
			Endpoint:     p.Endpoint,
			Model:        p.Model,
			Prompt:       p.Prompt,
			Language:     p.Language,
			SpeakerCount: p.SpeakerCount,
			Timeout:      p.Timeout(),
			HTTPClient:   r.httpClient,
		}), nil
	case config.KindOpenRouter, config.KindCustom:
		return NewChat(ChatConfig{
			Name:         p.DisplayName(),
			APIKey:       key,
			Endpoint:     p.Endpoint,
			Model:        p.Model,
			Prompt:       p.Prompt,
			Language:     p.Language,
			SpeakerCount: p.SpeakerCount,
			TextPath:     p.TextPath,
			Extra:        p.Extra,
			OpenRouter:   p.Kind == config.KindOpenRouter,
			Timeout:      p.Timeout(),
			HTTPClient:   r.httpClient,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", p.Kind)
	}
}

// Active resolves the active provider of cfg, falling back to the mock
// provider when none is configured or it cannot be built.
func (r *Resolver) Active(cfg *config.Config) Provider {
	p, ok := cfg.Active()
	if !ok {
		r.log.Error("no active provider configured; using mock", logger.String("active_provider", cfg.ActiveProvider))
		return NewMock(r.mockDelay)
	}
	prov, err := r.Resolve(p)
	if err != nil {
		r.log.Error("failed to build provider; using mock", logger.String("provider", p.ID), logger.Error(err))
		return NewMock(r.mockDelay)
	}
	return prov
}

// ConfigSource resolves the provider named by the current configuration on
// every call, so edits to the active provider apply to the next job.
type ConfigSource struct {
	Config   *config.Config
	Resolver *Resolver
}

// ActiveName is the display name recorded on new jobs. It names the mock
// whenever Active would fall back to it.
func (s ConfigSource) ActiveName() string {
	p, ok := s.Config.Active()
	if !ok {
		return NewMock(0).Name()
	}
	switch p.Kind {
	case config.KindOpenAI, config.KindGemini, config.KindOpenRouter, config.KindCustom:
		return p.DisplayName()
	default:
		return NewMock(0).Name()
	}
}

func (s ConfigSource) Active() Provider {
	return s.Resolver.Active(s.Config)
}
