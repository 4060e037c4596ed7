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

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/model"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/prompt"
)

// AnalysisRequest is one "explain this video" request.
type AnalysisRequest struct {
	Mode     prompt.AnalysisMode
	Question string
	Video    io.Reader
	Filename string
}

// Emitter receives the events of a running analysis. An error stops the
// analysis; it usually means the client went away.
type Emitter func(event model.Event) error

// AnalysisService runs the whole pipeline for a request: compose the prompt,
// ingest the video, stream the explanation.
type AnalysisService struct {
	Ingestion       *IngestionService
	Inference       *InferenceService
	DefaultQuestion string // Used when the request has no question.
}

var transitions = map[model.PipelineState][]model.PipelineState{
	model.PipelineStateIdle:       {model.PipelineStateUploading},
	model.PipelineStateUploading:  {model.PipelineStateProcessing, model.PipelineStateReady, model.PipelineStateFailed},
	model.PipelineStateProcessing: {model.PipelineStateReady, model.PipelineStateFailed},
	model.PipelineStateReady:      {model.PipelineStateStreaming, model.PipelineStateFailed},
	model.PipelineStateStreaming:  {model.PipelineStateDone, model.PipelineStateFailed},
}

// pipeline is the state machine of a single request.
type pipeline struct {
	requestID string
	state     model.PipelineState
	emit      Emitter
	emitErr   error
}

// transition moves to next and emits a state event for non terminal states.
// Repeated notifications of the current state are ignored.
func (p *pipeline) transition(next model.PipelineState) error {
	if p.state == next {
		return nil
	}
	allowed := false
	for _, candidate := range transitions[p.state] {
		if candidate == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("invalid pipeline transition %s -> %s", p.state, next)
	}
	p.state = next
	if next == model.PipelineStateDone || next == model.PipelineStateFailed {
		return nil
	}
	return p.send(model.NewStateEvent(p.requestID, next))
}

func (p *pipeline) send(event model.Event) error {
	if p.emitErr != nil {
		return p.emitErr
	}
	if p.emit == nil {
		return nil
	}
	if err := p.emit(event); err != nil {
		p.emitErr = err
		return err
	}
	return nil
}

// Run executes the request. The returned result holds whatever text was
// produced, also when err is not nil. Fragments already emitted are never
// retracted.
func (s *AnalysisService) Run(ctx context.Context, req AnalysisRequest, emit Emitter) (result *model.AnalysisResult, err error) {
	p := &pipeline{requestID: model.NewRequestID(), state: model.PipelineStateIdle, emit: emit}
	logger := slog.With("request_id", p.requestID, "mode", string(req.Mode))

	question := strings.TrimSpace(req.Question)
	if question == "" {
		question = s.DefaultQuestion
	}
	if !req.Mode.IsKnown() {
		logger.Warn("unknown analysis mode, using general analysis")
	}
	result = &model.AnalysisResult{
		RequestID: p.requestID,
		Mode:      string(req.Mode),
		Prompt:    prompt.Compose(req.Mode, question),
		State:     model.PipelineStateIdle,
	}

	fail := func(cause error) (*model.AnalysisResult, error) {
		if p.emitErr != nil && !errors.Is(cause, p.emitErr) {
			cause = errors.Join(cause, p.emitErr)
		}
		failedIn := p.state
		_ = p.transition(model.PipelineStateFailed)
		result.State = model.PipelineStateFailed
		logger.Error("analysis failed", "state", failedIn, "error_kind", model.KindOf(cause), "error", cause)
		_ = p.send(model.NewErrorEvent(p.requestID, cause))
		return result, cause
	}

	if err := p.transition(model.PipelineStateUploading); err != nil {
		return fail(err)
	}
	asset, err := s.Ingestion.Ingest(ctx, req.Video, IngestOptions{
		DisplayName: displayName(req.Filename, p.requestID),
		Observer: func(state model.PipelineState) {
			if err := p.transition(state); err != nil && p.emitErr == nil {
				logger.Warn("unexpected ingestion state", "error", err)
			}
		},
	})
	if err != nil {
		return fail(err)
	}
	if p.emitErr != nil {
		return fail(p.emitErr)
	}
	result.Asset = asset
	defer func() {
		if releaseErr := s.Ingestion.Release(ctx, asset); releaseErr != nil {
			logger.Warn("failed to release remote asset", "asset", asset.ID, "error", releaseErr)
		}
	}()
	if err := p.transition(model.PipelineStateReady); err != nil {
		return fail(err)
	}

	fragments, err := s.Inference.Invoke(ctx, asset, result.Prompt)
	if err != nil {
		return fail(err)
	}
	if err := p.transition(model.PipelineStateStreaming); err != nil {
		return fail(err)
	}

	var text strings.Builder
	for fragment, err := range fragments {
		if err != nil {
			result.Text = text.String()
			return fail(err)
		}
		if fragment == "" {
			continue
		}
		text.WriteString(fragment)
		result.Fragments++
		if err := p.send(model.NewFragmentEvent(p.requestID, fragment)); err != nil {
			result.Text = text.String()
			return fail(fmt.Errorf("emit fragment: %w", err))
		}
	}
	result.Text = text.String()

	if err := p.transition(model.PipelineStateDone); err != nil {
		return fail(err)
	}
	result.State = model.PipelineStateDone
	logger.Info("analysis finished", "asset", asset.ID, "fragments", result.Fragments, "characters", len(result.Text))
	if err := p.send(model.NewDoneEvent(p.requestID)); err != nil {
		return result, fmt.Errorf("emit done: %w", err)
	}
	return result, nil
}

func displayName(filename string, requestID string) string {
	if filename == "" {
		return "explain-" + requestID
	}
	return requestID + "-" + filename
}
