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
// command responsible for uploading the local temporary video to the remote
// file service.
//
// The upload returns as soon as the service accepted the bytes; the file is
// usually still PENDING or PROCESSING at that point. Waiting for it is the
// job of MediaAwaitReady, the next command in the chain.
package commands

import (
	"fmt"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/cor"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/model"
)

// MediaUpload uploads a *model.TransientFile and outputs the *model.RemoteAsset.
type MediaUpload struct {
	cor.BaseCommand
	client FileService
}

// NewMediaUpload is the constructor for the MediaUpload command.
func NewMediaUpload(name string, client FileService) *MediaUpload {
	return &MediaUpload{BaseCommand: *cor.NewBaseCommand(name), client: client}
}

func (v *MediaUpload) Execute(context cor.Context) {
	transient, ok := context.Get(v.GetInputParam()).(*model.TransientFile)
	if !ok || transient == nil {
		v.fail(context, fmt.Errorf("no local video to upload"))
		return
	}
	displayName, _ := context.Get(GetDisplayNameParameterName()).(string)

	asset, err := v.client.Upload(context.GetContext(), transient.Path, transient.MIMEType, displayName)
	if err != nil {
		v.fail(context, fmt.Errorf("failed to upload file to file service: %w", err))
		return
	}
	if asset == nil || asset.ID == "" {
		v.fail(context, fmt.Errorf("file service returned no file handle"))
		return
	}
	if asset.MIMEType == "" {
		asset.MIMEType = transient.MIMEType
	}

	v.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetVideoUploadFileParameterName(), asset)
	context.Add(v.GetOutputParam(), asset)
}

func (v *MediaUpload) fail(context cor.Context, err error) {
	v.GetErrorCounter().Add(context.GetContext(), 1)
	context.AddError(v.GetName(), model.NewIngestionError(model.KindUploadFailure, v.GetName(), err))
}
