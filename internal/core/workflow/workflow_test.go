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

package workflow_test

import (
	"context"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/zeebo/assert"
	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/cor"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/model"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/workflow"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/telemetry"
	test "github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/testutil"
)

const tName = "github.com/imeesam/explain-the-world/tests/workflow"

var logger = otelslog.NewLogger(tName)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithCancel(context.Background())

	config := test.GetConfig()
	if _, err := telemetry.SetupLogging(config.Application.LogLevel, ""); err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	shutdown, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		log.Fatalf("failed to setup telemetry: %v", err)
	}

	code := m.Run()
	_ = shutdown(ctx)
	cancel()
	os.Exit(code)
}

func TestVideoIngestionWorkflow(t *testing.T) {
	files := &test.FakeFileService{States: []model.AssetState{model.AssetStateProcessing, model.AssetStateReady}}
	sleeper := &test.RecordingSleeper{}
	ingestion := workflow.NewVideoIngestionWorkflow(files, workflow.IngestionSettings{
		TempDir:        t.TempDir(),
		TempFilePrefix: "explain-wf-",
		Sleep:          sleeper.Sleep,
	})

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(cor.CtxIn, strings.NewReader("some video"))
	defer func() { test.HandleErr(chCtx.Close(), t) }()

	assert.Equal(t, ingestion.IsExecutable(chCtx), true)
	ingestion.Execute(chCtx)
	test.HandleErr(chCtx.Err(), t)

	asset, ok := chCtx.Get(cor.CtxIn).(*model.RemoteAsset)
	assert.Equal(t, ok, true)
	assert.Equal(t, asset.IsReady(), true)
	logger.Info("asset ready", "asset", asset.ID, "uri", asset.URI)
	assert.DeepEqual(t, sleeper.Sleeps, []time.Duration{workflow.DefaultPollInterval, workflow.DefaultPollInterval})
}

func TestVideoIngestionWorkflowStopsAtFirstFailure(t *testing.T) {
	files := &test.FakeFileService{}
	ingestion := workflow.NewVideoIngestionWorkflow(files, workflow.IngestionSettings{TempDir: t.TempDir()})

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(cor.CtxIn, strings.NewReader(""))
	defer func() { _ = chCtx.Close() }()

	ingestion.Execute(chCtx)
	assert.Equal(t, model.IsKind(chCtx.Err(), model.KindLocalWriteFailure), true)
	assert.Equal(t, files.Uploads, 0)
}
