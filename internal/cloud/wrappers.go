// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud

import (
	"context"
	"fmt"
	"iter"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/model"
)

const modelMeterName = "github.com/imeesam/explain-the-world/models"

// ContentStreamGenerator is the streaming half of the genai Models API.
// *genai.Models satisfies it.
type ContentStreamGenerator interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// QuotaAwareGenerativeAIModel wraps a Gemini model with a request rate limit
// and token usage counters.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             ContentStreamGenerator
	RateLimit               *rate.Limiter // Token bucket refilled once per second.

	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	requestCounter     metric.Int64Counter
}

// NewQuotaAwareModel allows a burst of requestsPerSecond requests and then
// one request per second.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, modelHandle ContentStreamGenerator, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	meter := otel.Meter(modelMeterName)
	inputTokens, _ := meter.Int64Counter("genai.tokens.input")
	outputTokens, _ := meter.Int64Counter("genai.tokens.output")
	requests, _ := meter.Int64Counter("genai.requests")
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             modelHandle,
		RateLimit:               rate.NewLimiter(rate.Every(time.Second), requestsPerSecond),
		inputTokenCounter:       inputTokens,
		outputTokenCounter:      outputTokens,
		requestCounter:          requests,
	}
}

// NewGenerateContentConfig turns a configured model into genai settings.
func NewGenerateContentConfig(values GeminiLLMModel) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](values.Temperature),
		TopP:             genai.Ptr[float32](values.TopP),
		MaxOutputTokens:  values.MaxTokens,
		SafetySettings:   DefaultSafetySettings,
		ResponseMIMEType: values.OutputFormat,
	}
	if values.TopK > 0 {
		config.TopK = genai.Ptr[float32](values.TopK)
	}
	if values.SystemInstructions != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}}
	}
	return config
}

// GenerateContentStream sends the video and the prompt in one request and
// yields the text of every response chunk. Waiting for the rate limiter
// happens on the first pull, as does the request itself.
func (q *QuotaAwareGenerativeAIModel) GenerateContentStream(ctx context.Context, asset *model.RemoteAsset, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := q.RateLimit.Wait(ctx); err != nil {
			yield("", fmt.Errorf("waiting for model quota: %w", err))
			return
		}
		attrs := metric.WithAttributes(attribute.String("model", q.ModelName))
		q.requestCounter.Add(ctx, 1, attrs)

		var usage *genai.GenerateContentResponseUsageMetadata
		defer func() {
			if usage != nil {
				q.inputTokenCounter.Add(ctx, int64(usage.PromptTokenCount), attrs)
				q.outputTokenCounter.Add(ctx, int64(usage.CandidatesTokenCount), attrs)
			}
		}()

		contents := NewVideoPromptContent(asset.URI, asset.MIMEType, prompt)
		for resp, err := range q.ModelHandle.GenerateContentStream(ctx, q.ModelName, contents, q.GenerativeContentConfig) {
			if err != nil {
				yield("", err)
				return
			}
			if resp != nil && resp.UsageMetadata != nil {
				usage = resp.UsageMetadata
			}
			if !yield(ResponseText(resp), nil) {
				return
			}
		}
	}
}
