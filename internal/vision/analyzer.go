// Package vision extracts medication details from prescription images via
// a multimodal model.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/medgraph/medgraph/internal/llm"
)

// extractionPrompt asks the vision model for structured medication data.
// Unreadable fields are marked UNCERTAIN rather than guessed.
const extractionPrompt = `You are an expert pharmacist assistant. Analyze this medical image (prescription or medication box).

Task: Extract the following details strictly in JSON format.
1. Medication name ("name")
2. Dosage ("dosage") - e.g. 1000mg, 500mg
3. Instructions ("instructions") - e.g. 1 tablet morning and evening

Output Format (JSON ONLY):
{
  "medications": [
    {
      "name": "Paracetamol",
      "dosage": "1000mg",
      "instructions": "1 tablet in case of fever"
    }
  ]
}
If the text is completely unreadable, use "UNCERTAIN" in the field.`

// Chunk is one streamed piece of extracted text.
type Chunk struct {
	Content string
	// Err is non-nil if streaming failed; it is always the final chunk.
	Err error
}

// Analyzer streams extracted text from prescription images.
// The pipeline consumes each stream to completion before using the result;
// a call is restartable but not resumable mid-stream.
type Analyzer struct {
	client  *openai.Client
	baseURL string
	model   string
}

// NewAnalyzer creates an analyzer against an OpenAI-compatible multimodal
// endpoint. baseURL may be empty to use the official API endpoint.
func NewAnalyzer(baseURL, apiKey, model string) *Analyzer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Analyzer{
		client:  openai.NewClientWithConfig(cfg),
		baseURL: cfg.BaseURL,
		model:   model,
	}
}

// ExtractText sends the image to the vision model and streams the
// extracted text chunk-wise. The returned channel is closed when the
// stream finishes; a failure mid-stream is delivered as a final chunk
// with Err set.
func (a *Analyzer) ExtractText(ctx context.Context, image []byte) (<-chan Chunk, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("vision: image is empty")
	}

	dataURL := encodeDataURL(image)

	stream, err := a.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: extractionPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: dataURL,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, &llm.BackendError{Endpoint: a.baseURL, Err: err}
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				select {
				case out <- Chunk{Err: err}:
				case <-ctx.Done():
				}
				return
			}

			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}

			select {
			case out <- Chunk{Content: delta}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Collect consumes a chunk stream to completion and returns the
// concatenated text. Returns the first stream error encountered.
func Collect(ch <-chan Chunk) (string, error) {
	var b strings.Builder
	for chunk := range ch {
		if chunk.Err != nil {
			return b.String(), chunk.Err
		}
		b.WriteString(chunk.Content)
	}
	return b.String(), nil
}

// encodeDataURL wraps image bytes in a base64 data URL with a sniffed
// content type.
func encodeDataURL(image []byte) string {
	contentType := http.DetectContentType(image)
	encoded := base64.StdEncoding.EncodeToString(image)
	return fmt.Sprintf("data:%s;base64,%s", contentType, encoded)
}

// DefaultExtractionTimeout bounds a whole extraction for callers that want
// a deadline on the stream.
const DefaultExtractionTimeout = 2 * time.Minute
