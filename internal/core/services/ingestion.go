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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/commands"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/cor"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/model"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/workflow"
)

const (
	ingestOp              = "ingest"
	defaultCleanupTimeout = 30 * time.Second
)

// IngestOptions carries the per request parameters of an ingestion.
type IngestOptions struct {
	DisplayName string                 // Name attached to the remote file.
	Observer    commands.StateObserver // Receives UPLOADING, PROCESSING and READY.
}

// IngestionService turns a video stream into a READY remote asset: it writes
// the stream to a temporary file, uploads it and polls the file service until
// processing finished. Every call is a brand new upload.
type IngestionService struct {
	Files              commands.FileService
	PollInterval       time.Duration // Wait before each status poll, 1s when zero.
	Timeout            time.Duration // Upper bound of the processing wait, unbounded when zero.
	TempDir            string
	TempFilePrefix     string
	DeleteRemoteAssets bool             // Delete remote files once a request no longer needs them.
	Sleep              commands.Sleeper // Defaults to commands.SleepContext.
}

func (s *IngestionService) newWorkflow() *workflow.VideoIngestionWorkflow {
	return workflow.NewVideoIngestionWorkflow(s.Files, workflow.IngestionSettings{
		PollInterval:   s.PollInterval,
		Timeout:        s.Timeout,
		TempDir:        s.TempDir,
		TempFilePrefix: s.TempFilePrefix,
		Sleep:          s.Sleep,
	})
}

// Ingest returns the READY asset or an *model.IngestionError. The local
// temporary file is removed before Ingest returns, whatever the outcome.
func (s *IngestionService) Ingest(ctx context.Context, video io.Reader, opts IngestOptions) (*model.RemoteAsset, error) {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	defer func() {
		if err := chCtx.Close(); err != nil {
			slog.Warn("failed to remove temporary video", "error", err)
		}
	}()

	chCtx.Add(cor.CtxIn, video)
	chCtx.Add(commands.GetDisplayNameParameterName(), opts.DisplayName)
	if opts.Observer != nil {
		chCtx.Add(commands.GetStateObserverParameterName(), opts.Observer)
		opts.Observer(model.PipelineStateUploading)
	}

	s.newWorkflow().Execute(chCtx)

	if chCtx.HasErrors() {
		err := s.classify(ctx, chCtx.Err())
		if model.IsKind(err, model.KindTimeout) || model.IsKind(err, model.KindCanceled) ||
			model.IsKind(err, model.KindRemoteProcessingFailure) {
			s.cleanup(chCtx)
		}
		return nil, err
	}

	asset, ok := chCtx.Get(cor.CtxIn).(*model.RemoteAsset)
	if !ok || !asset.IsReady() {
		return nil, model.NewIngestionError(model.KindUnknown, ingestOp, fmt.Errorf("ingestion finished without a ready asset"))
	}
	slog.Debug("video ingested", "asset", asset.ID, "uri", asset.URI, "mime_type", asset.MIMEType)
	return asset, nil
}

// Release deletes a remote asset when DeleteRemoteAssets is enabled.
func (s *IngestionService) Release(ctx context.Context, asset *model.RemoteAsset) error {
	if !s.DeleteRemoteAssets || asset == nil || asset.ID == "" {
		return nil
	}
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	chCtx.Add(commands.GetVideoUploadFileParameterName(), asset)
	s.cleanup(chCtx)
	return chCtx.Err()
}

func (s *IngestionService) cleanup(chCtx cor.Context) {
	if !s.DeleteRemoteAssets {
		return
	}
	cmd := commands.NewMediaCleanup("media-cleanup", s.Files, defaultCleanupTimeout)
	if !cmd.IsExecutable(chCtx) {
		return
	}
	cmd.Execute(chCtx)
	if errs := chCtx.GetErrors(); errs[cmd.GetName()] != nil {
		slog.Warn("failed to delete remote asset", "error", errs[cmd.GetName()])
	}
}

// classify makes sure every failure leaving Ingest carries a kind. Errors
// recorded by the chain itself, such as a context that ended between two
// commands, are untyped.
func (s *IngestionService) classify(ctx context.Context, err error) error {
	if model.KindOf(err) != model.KindUnknown {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.NewIngestionError(model.ContextErrorKind(ctxErr), ingestOp, err)
	}
	return model.NewIngestionError(model.KindUnknown, ingestOp, err)
}
