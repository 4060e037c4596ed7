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
// Responsibility (COR) pattern's Command interface. This file holds what the
// ingestion commands share: the context keys, the remote file service they
// talk to, the poll sleeper and the state observer hook.
package commands

import (
	"context"
	"time"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/cor"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/model"
)

// FileService is the remote file API: upload a local media file, fetch the
// processing state of an uploaded file, delete it.
type FileService interface {
	Upload(ctx context.Context, path string, mimeType string, displayName string) (*model.RemoteAsset, error)
	Get(ctx context.Context, id string) (*model.RemoteAsset, error)
	Delete(ctx context.Context, id string) error
}

// Sleeper blocks for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// StateObserver receives pipeline state transitions.
type StateObserver func(state model.PipelineState)

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GetVideoUploadFileParameterName returns the key holding the latest
// *model.RemoteAsset known for the request, whatever its state.
func GetVideoUploadFileParameterName() string {
	return "__VIDEO_UPLOAD_FILE__"
}

// GetDisplayNameParameterName returns the key holding the remote display name.
func GetDisplayNameParameterName() string {
	return "__DISPLAY_NAME__"
}

// GetStateObserverParameterName returns the key holding the StateObserver.
func GetStateObserverParameterName() string {
	return "__STATE_OBSERVER__"
}

// notifyState forwards state to the observer stored in the context, if any.
func notifyState(context cor.Context, state model.PipelineState) {
	if observer, ok := context.Get(GetStateObserverParameterName()).(StateObserver); ok && observer != nil {
		observer(state)
	}
}
