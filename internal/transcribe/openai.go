package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	defaultOpenAIEndpoint = "https://api.openai.com/v1"
	defaultOpenAIModel    = "whisper-1"
)

// OpenAI uploads the artifact to the audio/transcriptions endpoint.
type OpenAI struct {
	name     string
	key      string
	endpoint string
	model    string
	prompt   string
	language string
	timeout  time.Duration
}

// OpenAIConfig configures an OpenAI provider. Empty fields use defaults.
type OpenAIConfig struct {
	Name     string
	APIKey   string
	Endpoint string
	Model    string
	Prompt   string
	Language string
	Timeout  time.Duration
}

// NewOpenAI builds an OpenAI provider.
func NewOpenAI(c OpenAIConfig) *OpenAI {
	o := &OpenAI{
		name:     c.Name,
		key:      c.APIKey,
		endpoint: c.Endpoint,
		model:    c.Model,
		prompt:   c.Prompt,
		language: c.Language,
		timeout:  c.Timeout,
	}
	if o.name == "" {
		o.name = "OpenAI"
	}
	if o.endpoint == "" {
		o.endpoint = defaultOpenAIEndpoint
	}
	if o.model == "" {
		o.model = defaultOpenAIModel
	}
	if o.timeout <= 0 {
		o.timeout = 30 * time.Second
	}
	return o
}

func (o *OpenAI) Name() string { return o.name }

func (o *OpenAI) client() openai.Client {
	return openai.NewClient(
		option.WithAPIKey(o.key),
		option.WithBaseURL(o.endpoint),
		option.WithRequestTimeout(o.timeout),
		option.WithMaxRetries(0),
	)
}

func (o *OpenAI) Transcribe(ctx context.Context, artifactPath string, onProgress ProgressFunc) (string, error) {
	if err := checkKey(o.key); err != nil {
		return "", err
	}
	data, err := readArtifact(artifactPath)
	if err != nil {
		return "", err
	}

	file := newProgressReader(bytes.NewReader(data), int64(len(data)), onProgress)
	file.name = filepath.Base(artifactPath)
	file.contentType = MIMEType(artifactPath)

	params := openai.AudioTranscriptionNewParams{
		File:           file,
		Model:          openai.AudioModel(o.model),
		ResponseFormat: openai.AudioResponseFormatJSON,
	}
	if o.language != "" {
		params.Language = openai.String(o.language)
	}
	if o.prompt != "" {
		params.Prompt = openai.String(o.prompt)
	}

	client := o.client()
	resp, err := client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(ctx, err)
	}
	report(onProgress, 1)
	return finishText(resp.Text)
}

func classifyOpenAIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	switch apiErr.StatusCode {
	case 401:
		return &RemoteError{StatusCode: 401, Detail: "Unauthorized. Check your OpenAI API key."}
	case 429:
		return &RemoteError{StatusCode: 429, Detail: "Rate limit exceeded or insufficient quota."}
	}
	detail := apiErr.Message
	if detail == "" {
		detail = fmt.Sprintf("HTTP %d", apiErr.StatusCode)
	}
	return &RemoteError{StatusCode: apiErr.StatusCode, Detail: detail}
}
