package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"github.com/remberq/simple-voice-transcribe/internal/config"
)

// Model is a model id offered by a provider.
type Model struct {
	ID   string
	Free bool
}

// ListModels returns the speech-capable models of a provider, sorted by id.
func ListModels(ctx context.Context, client *http.Client, p config.Provider, key string) ([]Model, error) {
	if client == nil {
		client = http.DefaultClient
	}
	var (
		models []Model
		err    error
	)
	switch p.Kind {
	case config.KindMock:
		return []Model{{ID: "mock", Free: true}}, nil
	case config.KindOpenAI:
		models, err = listOpenAIModels(ctx, p, key)
	case config.KindOpenRouter:
		endpoint := p.Endpoint
		if endpoint == "" {
			endpoint = defaultOpenRouterEndpoint
		}
		models, err = listChatModels(ctx, client, p, chatBaseURL(endpoint), key, true)
	case config.KindCustom:
		if p.Endpoint == "" {
			return nil, nil
		}
		models, err = listChatModels(ctx, client, p, chatBaseURL(p.Endpoint), key, false)
	case config.KindGemini:
		models, err = listGeminiModels(ctx, client, p, key)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", p.Kind)
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

func listOpenAIModels(ctx context.Context, p config.Provider, key string) ([]Model, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	endpoint := p.Endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}
	client := openai.NewClient(
		option.WithAPIKey(key),
		option.WithBaseURL(endpoint),
		option.WithRequestTimeout(p.Timeout()),
		option.WithMaxRetries(0),
	)
	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, classifyOpenAIError(ctx, err)
	}
	var models []Model
	for _, m := range page.Data {
		if strings.Contains(m.ID, "whisper") || strings.Contains(m.ID, "transcribe") {
			models = append(models, Model{ID: m.ID})
		}
	}
	return models, nil
}

func listChatModels(ctx context.Context, client *http.Client, p config.Provider, base, key string, openRouter bool) ([]Model, error) {
	headers := map[string]string{"Authorization": "Bearer " + key}
	status, body, err := get(ctx, client, p.Timeout(), base+"/models", headers)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &RemoteError{StatusCode: status, Detail: fmt.Sprintf("list models: HTTP %d", status)}
	}
	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil, ErrUnparsableResponse
	}

	var models []Model
	data.ForEach(func(_, m gjson.Result) bool {
		id := m.Get("id").String()
		if id == "" {
			return true
		}
		if openRouter {
			lower := strings.ToLower(id)
			if !strings.Contains(lower, "audio") && !strings.Contains(lower, "whisper") {
				return true
			}
		}
		prompt := m.Get("pricing.prompt")
		free := prompt.Exists() && prompt.Float() == 0 && prompt.String() != ""
		models = append(models, Model{ID: id, Free: free})
		return true
	})
	return models, nil
}

func listGeminiModels(ctx context.Context, client *http.Client, p config.Provider, key string) ([]Model, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	endpoint := strings.TrimRight(p.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultGeminiEndpoint
	}
	status, body, err := get(ctx, client, p.Timeout(), endpoint+"?key="+url.QueryEscape(key), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &RemoteError{StatusCode: status, Detail: fmt.Sprintf("list models: HTTP %d", status)}
	}
	list := gjson.GetBytes(body, "models")
	if !list.IsArray() {
		return nil, ErrUnparsableResponse
	}

	var models []Model
	list.ForEach(func(_, m gjson.Result) bool {
		generates := false
		m.Get("supportedGenerationMethods").ForEach(func(_, method gjson.Result) bool {
			if method.String() == "generateContent" {
				generates = true
				return false
			}
			return true
		})
		if generates {
			models = append(models, Model{ID: strings.TrimPrefix(m.Get("name").String(), "models/")})
		}
		return true
	})
	return models, nil
}
