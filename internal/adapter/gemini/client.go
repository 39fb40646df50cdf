// Package gemini turns OCR transcripts into structured interruption
// schedules via the Gemini API, with retry and model fallback for
// transient overload.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Generator is the single model call the extractor retries over.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Client is the real Gemini API backend.
type Client struct {
	client *genai.Client
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client}, nil
}

// Generate sends the prompt to one model and returns its text response.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// isOverloaded reports whether the error is a transient capacity
// problem worth retrying: overload, rate limiting, or a 5xx from the
// API.
func isOverloaded(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 503:
			return true
		}
		switch apiErr.Status {
		case "UNAVAILABLE", "RESOURCE_EXHAUSTED":
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "overloaded")
}
