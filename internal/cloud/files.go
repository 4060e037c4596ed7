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

	"google.golang.org/genai"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/model"
)

// GenAIFiles is the subset of the genai Files API used by the service.
// *genai.Files satisfies it.
type GenAIFiles interface {
	UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
}

// GeminiFileService adapts the Gemini Files API to the ingestion commands.
type GeminiFileService struct {
	Files GenAIFiles
}

// NewGeminiFileService wraps the Files API of a genai client.
func NewGeminiFileService(files GenAIFiles) *GeminiFileService {
	return &GeminiFileService{Files: files}
}

// Upload sends a local video to the Files API.
//
// Inputs:
//   - ctx: Bounds the upload request.
//   - path: The transient file written by the ingestion chain.
//   - mimeType: The sniffed container type, for example video/mp4.
//   - displayName: A human readable label shown in the Files API listing.
//
// Returns:
//   - The uploaded asset in its initial state, usually PROCESSING.
//   - An error from the transport or an empty file handle.
func (s *GeminiFileService) Upload(ctx context.Context, path string, mimeType string, displayName string) (*model.RemoteAsset, error) {
	file, err := s.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
	if err != nil {
		return nil, err
	}
	return ToRemoteAsset(file)
}

// Get fetches the current state of an uploaded file. It is idempotent and is
// what the ingestion chain polls.
func (s *GeminiFileService) Get(ctx context.Context, id string) (*model.RemoteAsset, error) {
	file, err := s.Files.Get(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	return ToRemoteAsset(file)
}

// Delete removes an uploaded file. Files that are never deleted expire on the
// remote side.
func (s *GeminiFileService) Delete(ctx context.Context, id string) error {
	_, err := s.Files.Delete(ctx, id, nil)
	return err
}

// ToAssetState maps a genai file state. ACTIVE is the remote name of READY.
func ToAssetState(state genai.FileState) model.AssetState {
	switch state {
	case genai.FileStateActive:
		return model.AssetStateReady
	case genai.FileStateFailed:
		return model.AssetStateFailed
	case genai.FileStateProcessing:
		return model.AssetStateProcessing
	default:
		return model.AssetStatePending
	}
}

// ToRemoteAsset converts a genai file handle. A handle without a name cannot
// be polled and is reported as an error.
func ToRemoteAsset(file *genai.File) (*model.RemoteAsset, error) {
	if file == nil || file.Name == "" {
		return nil, fmt.Errorf("file service returned an empty file handle")
	}
	asset := &model.RemoteAsset{
		ID:          file.Name,
		URI:         file.URI,
		MIMEType:    file.MIMEType,
		DisplayName: file.DisplayName,
		State:       ToAssetState(file.State),
	}
	if file.SizeBytes != nil {
		asset.SizeBytes = *file.SizeBytes
	}
	return asset, nil
}
