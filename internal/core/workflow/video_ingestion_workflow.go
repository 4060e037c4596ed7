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

// Package workflow assembles commands into the chains the services run.
package workflow

import (
	"time"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/commands"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/cor"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = time.Second

// IngestionSettings configure a VideoIngestionWorkflow.
type IngestionSettings struct {
	PollInterval   time.Duration    // Wait before each status poll.
	Timeout        time.Duration    // Bound of the processing wait, 0 for none.
	TempDir        string           // Directory of the local copy, "" for the OS default.
	TempFilePrefix string           // Prefix of the local copy.
	Sleep          commands.Sleeper // nil for commands.SleepContext.
}

// VideoIngestionWorkflow takes an io.Reader in the input parameter and leaves
// a READY *model.RemoteAsset in the input parameter of the context:
//
//	video-to-temp-file -> media-upload -> media-await-ready
type VideoIngestionWorkflow struct {
	cor.BaseCommand
	files    commands.FileService
	settings IngestionSettings
	chain    cor.Chain // The underlying chain of commands to be executed.
}

func (m *VideoIngestionWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

func (m *VideoIngestionWorkflow) initializeChain() {
	out := cor.NewBaseChain(m.GetName())
	out.AddCommand(commands.NewVideoToTempFile("video-to-temp-file", m.settings.TempDir, m.settings.TempFilePrefix))
	out.AddCommand(commands.NewMediaUpload("media-upload", m.files))
	out.AddCommand(commands.NewMediaAwaitReady("media-await-ready", m.files, m.settings.PollInterval, m.settings.Timeout, m.settings.Sleep))
	m.chain = out
}

func NewVideoIngestionWorkflow(files commands.FileService, settings IngestionSettings) *VideoIngestionWorkflow {
	if settings.PollInterval <= 0 {
		settings.PollInterval = DefaultPollInterval
	}
	out := &VideoIngestionWorkflow{
		BaseCommand: *cor.NewBaseCommand("video-ingestion-workflow"),
		files:       files,
		settings:    settings,
	}
	out.initializeChain()
	return out
}
