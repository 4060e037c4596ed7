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
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/model"
)

const invokeOp = "invoke"

// ErrStreamConsumed is returned when a fragment sequence is ranged twice.
var ErrStreamConsumed = errors.New("stream already consumed")

// ContentStreamer issues one streaming generation request for a video asset
// and a prompt. The returned sequence is lazy: nothing is sent before the
// first pull.
type ContentStreamer interface {
	GenerateContentStream(ctx context.Context, asset *model.RemoteAsset, prompt string) iter.Seq2[string, error]
}

// InferenceService invokes the model against a READY asset and exposes the
// response as a pull based sequence of text fragments.
type InferenceService struct {
	Model ContentStreamer
}

// Invoke validates the asset and returns the fragment sequence.
//
// Fragments are yielded in emission order, empty ones included. A failure
// before the first non-empty fragment is a RequestFailure, a failure after
// visible text is a StreamInterrupted; in both cases the error is the last element. The
// sequence can be ranged once; a second range yields a RequestFailure.
// Breaking out of the range stops the underlying request.
func (s *InferenceService) Invoke(ctx context.Context, asset *model.RemoteAsset, prompt string) (iter.Seq2[string, error], error) {
	if !asset.IsReady() {
		state := model.AssetState("<nil>")
		if asset != nil {
			state = asset.State
		}
		return nil, model.NewInferenceError(model.KindAssetNotReady, invokeOp, fmt.Errorf("asset state is %s", state))
	}

	var consumed atomic.Bool
	return func(yield func(string, error) bool) {
		if consumed.Swap(true) {
			yield("", model.NewInferenceError(model.KindRequestFailure, invokeOp, ErrStreamConsumed))
			return
		}

		fragments := 0
		for fragment, err := range s.Model.GenerateContentStream(ctx, asset, prompt) {
			if err != nil {
				kind := model.KindRequestFailure
				if fragments > 0 {
					kind = model.KindStreamInterrupted
				}
				slog.Warn("generation stream failed", "asset", asset.ID, "fragments", fragments, "error", err)
				yield("", &model.InferenceError{Kind: kind, Op: invokeOp, Fragments: fragments, Err: err})
				return
			}
			if fragment != "" {
				fragments++
			}
			if !yield(fragment, nil) {
				return
			}
		}
	}, nil
}
