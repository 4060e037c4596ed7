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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// command that waits for an uploaded file to finish remote processing.
//
// Logic Flow:
//  1. Takes the *model.RemoteAsset produced by MediaUpload.
//  2. While the asset is not in a terminal state it sleeps one poll interval
//     and fetches the state again. One sleep per poll.
//  3. FAILED stops immediately with a RemoteProcessingFailure; there is no
//     retry of the upload.
//  4. READY is placed in the output parameter.
//
// A zero timeout polls until the remote side reaches a terminal state. A
// positive timeout bounds the whole wait and surfaces as a Timeout error.
package commands

import (
	goctx "context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/cor"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/model"
)

// MediaAwaitReady polls the file service until the asset is READY or FAILED.
type MediaAwaitReady struct {
	cor.BaseCommand
	client       FileService
	pollInterval time.Duration
	timeout      time.Duration
	sleep        Sleeper
	pollCounter  metric.Int64Counter
}

// NewMediaAwaitReady is the constructor for the MediaAwaitReady command. A
// nil sleeper defaults to SleepContext.
func NewMediaAwaitReady(name string, client FileService, pollInterval time.Duration, timeout time.Duration, sleep Sleeper) *MediaAwaitReady {
	if sleep == nil {
		sleep = SleepContext
	}
	out := &MediaAwaitReady{
		BaseCommand:  *cor.NewBaseCommand(name),
		client:       client,
		pollInterval: pollInterval,
		timeout:      timeout,
		sleep:        sleep,
	}
	out.pollCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.poll", out.GetName()))
	return out
}

func (v *MediaAwaitReady) Execute(context cor.Context) {
	asset, ok := context.Get(v.GetInputParam()).(*model.RemoteAsset)
	if !ok || asset == nil {
		v.fail(context, model.KindPollFailure, "", fmt.Errorf("no uploaded file to wait for"))
		return
	}

	ctx := context.GetContext()
	if v.timeout > 0 {
		var cancel goctx.CancelFunc
		ctx, cancel = goctx.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	if !asset.State.IsTerminal() {
		notifyState(context, model.PipelineStateProcessing)
	}
	polls := 0
	for !asset.State.IsTerminal() {
		if err := v.sleep(ctx, v.pollInterval); err != nil {
			v.fail(context, model.ContextErrorKind(err), asset.ID, fmt.Errorf("stopped waiting after %d polls: %w", polls, err))
			return
		}
		polls++
		v.pollCounter.Add(ctx, 1)

		next, err := v.client.Get(ctx, asset.ID)
		if err != nil {
			kind := model.KindPollFailure
			if ctxErr := ctx.Err(); ctxErr != nil {
				kind = model.ContextErrorKind(ctxErr)
			}
			v.fail(context, kind, asset.ID, fmt.Errorf("failed to get file status during processing: %w", err))
			return
		}
		if next == nil {
			v.fail(context, model.KindPollFailure, asset.ID, fmt.Errorf("file service returned no status for %s", asset.ID))
			return
		}
		asset = next
		context.Add(GetVideoUploadFileParameterName(), asset)
	}

	_, span := v.GetTracer().Start(ctx, "await-ready-result")
	span.SetAttributes(attribute.Int("polls", polls), attribute.String("state", string(asset.State)))
	span.End()

	if asset.State == model.AssetStateFailed {
		v.fail(context, model.KindRemoteProcessingFailure, asset.ID, fmt.Errorf("file service reported FAILED after %d polls", polls))
		return
	}

	v.GetSuccessCounter().Add(ctx, 1)
	notifyState(context, model.PipelineStateReady)
	context.Add(v.GetOutputParam(), asset)
}

func (v *MediaAwaitReady) fail(context cor.Context, kind model.ErrorKind, assetID string, err error) {
	v.GetErrorCounter().Add(context.GetContext(), 1)
	context.AddError(v.GetName(), &model.IngestionError{Kind: kind, Op: v.GetName(), AssetID: assetID, Err: err})
}
