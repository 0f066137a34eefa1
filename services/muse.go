package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fabrino-server/metrics"
	"fabrino-server/models"

	log "github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const musePrompt = `You are 'The Artifact Muse', an expert in generative design and personalized 3D printing. Based on this user's story: "%s", suggest 3 creative, emotional 3D-printable gift concepts. Focus on items that use data (sound waves, maps, dates, coordinates) to drive their physical form. Keep descriptions brief, evocative, and focused on the 3D-printed nature of the object.`

var suggestionSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
			"sentiment":   {Type: genai.TypeString},
		},
		Required: []string{"title", "description", "sentiment"},
	},
}

// Muse asks Gemini for gift concepts. A nil client means suggestions are off.
type Muse struct {
	client *genai.Client
	model  string
}

// NewMuse builds the Gemini client. baseURL may be empty to use the public endpoint.
func NewMuse(baseURL, apiKey, model string) *Muse {
	m := &Muse{model: model}
	if apiKey == "" {
		log.Warn("Artifact Muse: API key is missing, suggestions disabled")
		return m
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		HTTPOptions: genai.HTTPOptions{BaseURL: strings.TrimRight(baseURL, "/") + "/"},
	})
	if err != nil {
		log.WithError(err).Error("Artifact Muse: failed to create Gemini client, suggestions disabled")
		return m
	}
	m.client = client
	return m
}

func (m *Muse) Enabled() bool {
	return m.client != nil
}

// Suggest returns concepts for story. Any failure yields an empty list.
func (m *Muse) Suggest(ctx context.Context, story string) []models.Suggestion {
	if !m.Enabled() || strings.TrimSpace(story) == "" {
		metrics.RecordMuse("skipped")
		return []models.Suggestion{}
	}

	suggestions, err := m.generate(ctx, story)
	if err != nil {
		log.WithError(err).Error("Artifact Muse request failed")
		metrics.RecordMuse("error")
		return []models.Suggestion{}
	}
	metrics.RecordMuse("ok")
	return suggestions
}

func (m *Muse) generate(ctx context.Context, story string) ([]models.Suggestion, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model,
		genai.Text(fmt.Sprintf(musePrompt, story)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   suggestionSchema,
		})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return []models.Suggestion{}, nil
	}

	var suggestions []models.Suggestion
	if err := json.Unmarshal([]byte(text), &suggestions); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	if suggestions == nil {
		suggestions = []models.Suggestion{}
	}
	return suggestions, nil
}
