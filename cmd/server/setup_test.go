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

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/cloud"
	test "github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/testutil"
)

func TestGetConfigRequiresAPIKey(t *testing.T) {
	t.Setenv(cloud.EnvConfigFilePrefix, test.ConfigDir())
	t.Setenv(cloud.EnvConfigRuntime, "test")
	t.Setenv(cloud.EnvGoogleAPIKey, "")

	_, err := GetConfig()
	assert.ErrorIs(t, err, cloud.ErrMissingAPIKey)
}

func TestGetConfigAndInitState(t *testing.T) {
	t.Setenv(cloud.EnvConfigFilePrefix, test.ConfigDir())
	t.Setenv(cloud.EnvConfigRuntime, "test")
	t.Setenv(cloud.EnvGoogleAPIKey, "test-key")
	t.Setenv(cloud.EnvGeminiModel, "gemini-override")

	config, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "test-key", config.Credentials.APIKey)

	app, err := InitState(context.Background(), config)
	require.NoError(t, err)
	defer app.Close()
	assert.Equal(t, "gemini-override", app.modelName)
	assert.Equal(t, config.Ingestion.PollInterval(), app.analysis.Ingestion.PollInterval)
	assert.NotEmpty(t, app.analysis.DefaultQuestion)
}

func TestSetupOSKeepsExplicitValues(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "configs")
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "prod")

	require.NoError(t, SetupOS())
	assert.Equal(t, dir, os.Getenv(cloud.EnvConfigFilePrefix))
	assert.Equal(t, "prod", os.Getenv(cloud.EnvConfigRuntime))
}
