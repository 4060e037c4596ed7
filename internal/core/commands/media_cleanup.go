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
// command that deletes an uploaded file from the remote file service.
//
// Remote files expire on their own, so this only runs when the deployment
// asks for explicit cleanup, and always on a context detached from the
// request so a canceled request can still release its asset.
package commands

import (
	goctx "context"
	"fmt"
	"time"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/cor"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/model"
)

// MediaCleanup deletes the asset stored under GetVideoUploadFileParameterName.
type MediaCleanup struct {
	cor.BaseCommand
	client  FileService
	timeout time.Duration
}

// NewMediaCleanup is the constructor for the MediaCleanup command.
func NewMediaCleanup(name string, client FileService, timeout time.Duration) *MediaCleanup {
	return &MediaCleanup{BaseCommand: *cor.NewBaseCommand(name), client: client, timeout: timeout}
}

// IsExecutable requires an uploaded asset in the context.
func (v *MediaCleanup) IsExecutable(context cor.Context) bool {
	if context == nil || context.GetContext() == nil {
		return false
	}
	asset, ok := context.Get(GetVideoUploadFileParameterName()).(*model.RemoteAsset)
	return ok && asset != nil && asset.ID != ""
}

func (v *MediaCleanup) Execute(context cor.Context) {
	asset := context.Get(GetVideoUploadFileParameterName()).(*model.RemoteAsset)

	ctx := goctx.WithoutCancel(context.GetContext())
	if v.timeout > 0 {
		var cancel goctx.CancelFunc
		ctx, cancel = goctx.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	if err := v.client.Delete(ctx, asset.ID); err != nil {
		v.GetErrorCounter().Add(ctx, 1)
		context.AddError(v.GetName(), fmt.Errorf("failed to delete file %s from file service: %w", asset.ID, err))
		return
	}
	v.GetSuccessCounter().Add(ctx, 1)
	context.Remove(GetVideoUploadFileParameterName())
}
