package gemini

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"jimakugen/internal/config"
	"jimakugen/pkg/log"
)

// Transcriber is the narrow boundary the pipeline talks to. The real
// implementation calls Gemini; tests substitute fakes.
type Transcriber interface {
	TranscribeChunk(ctx context.Context, audioPath string, prompt Prompt) (string, error)
}

// Client transcribes audio clips with the Gemini API. Calls are strictly
// sequential by design; the limiter additionally spaces them out so a
// long run stays inside the shared per-minute quota.
type Client struct {
	client       *genai.Client
	model        string
	limiter      *rate.Limiter
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewClient builds a Gemini-backed Transcriber from cfg. The API key is
// required.
func NewClient(ctx context.Context, cfg config.TranscribeConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}

	return &Client{
		client:       client,
		model:        cfg.Model,
		limiter:      rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		pollInterval: time.Duration(cfg.UploadPollIntervalS) * time.Second,
		pollTimeout:  time.Duration(cfg.UploadPollTimeoutS) * time.Second,
	}, nil
}

// TranscribeChunk uploads the clip, waits for upstream processing to
// finish and asks the model for a timestamped transcription. The raw
// response text is returned verbatim; rate-limit failures come back as
// *RateLimitError.
func (c *Client) TranscribeChunk(ctx context.Context, audioPath string, prompt Prompt) (string, error) {
	file, err := c.uploadAndWait(ctx, audioPath)
	if err != nil {
		return "", err
	}
	defer c.deleteQuietly(file.Name)

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(file.URI, file.MIMEType),
			genai.NewPartFromText(prompt.Render()),
		}, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	})
	if err != nil {
		return "", classifyError(fmt.Errorf("generate content: %w", err))
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from transcription service")
	}
	return text, nil
}

// GenerateText asks the model for a plain text completion with no
// attached media. Used for series context generation.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", classifyError(fmt.Errorf("generate content: %w", err))
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// uploadAndWait pushes the clip to the file service and polls until it
// leaves the processing state. The poll loop is bounded: a clip stuck in
// processing past the timeout fails instead of hanging the run.
func (c *Client) uploadAndWait(ctx context.Context, audioPath string) (*genai.File, error) {
	file, err := c.client.Files.UploadFromPath(ctx, audioPath, &genai.UploadFileConfig{
		MIMEType: "audio/mp4",
	})
	if err != nil {
		return nil, classifyError(fmt.Errorf("upload audio clip: %w", err))
	}
	if file.Name == "" {
		return nil, fmt.Errorf("upload returned a file without a name")
	}

	deadline := time.Now().Add(c.pollTimeout)
	for file.State == genai.FileStateProcessing {
		if time.Now().After(deadline) {
			c.deleteQuietly(file.Name)
			return nil, fmt.Errorf("uploaded clip still processing after %s", c.pollTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		file, err = c.client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, classifyError(fmt.Errorf("poll uploaded clip: %w", err))
		}
	}

	if file.State == genai.FileStateFailed {
		return nil, fmt.Errorf("upstream processing failed for uploaded clip %s", file.Name)
	}
	return file, nil
}

// deleteQuietly removes an uploaded file; quota on the file service is
// finite and the clip is useless after generation.
func (c *Client) deleteQuietly(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := c.client.Files.Delete(ctx, name, nil); err != nil {
		log.Debug("Failed to delete uploaded clip %s: %v", name, err)
	}
}
