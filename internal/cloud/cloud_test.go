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

package cloud_test

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/cloud"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/model"
	test "github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/testutil"
)

func TestLoadTestConfig(t *testing.T) {
	config := test.GetConfig()

	assert.Equal(t, "explain-the-world", config.Application.Name)
	assert.Equal(t, "debug", config.Application.LogLevel)
	assert.Equal(t, int64(1048576), config.Application.MaxUploadBytes)
	assert.Equal(t, 10*time.Millisecond, config.Ingestion.PollInterval())
	assert.Equal(t, 5*time.Second, config.Ingestion.Timeout())
	assert.Equal(t, "explain-test-", config.Ingestion.TempFilePrefix)

	active, err := config.ActiveModel()
	require.NoError(t, err)
	assert.NotEmpty(t, active.Model)
	assert.Contains(t, config.AgentModels, "explain-pro")
}

func TestLoadConfigOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte(`
[application]
name = "base"
log_level = "info"

[ingestion]
poll_interval_in_millis = 2000
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.prod.toml"), []byte(`
[application]
log_level = "warn"
`), 0o600))
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "prod")

	config := cloud.NewConfig()
	require.NoError(t, cloud.LoadConfig(config))
	assert.Equal(t, "base", config.Application.Name)
	assert.Equal(t, "warn", config.Application.LogLevel)
	assert.Equal(t, 2*time.Second, config.Ingestion.PollInterval())
	assert.Equal(t, time.Duration(0), config.Ingestion.Timeout())
	assert.Equal(t, ":8080", config.Application.ListenAddress)
}

func TestLoadConfigRejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte("[application\nname="), 0o600))
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "test")

	assert.Error(t, cloud.LoadConfig(cloud.NewConfig()))
}

func TestLoadEnvironment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GOOGLE_API_KEY=from-dotenv\nGEMINI_MODEL=gemini-custom\n"), 0o600))
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvGoogleAPIKey, "")
	t.Setenv(cloud.EnvGeminiModel, "")
	require.NoError(t, os.Unsetenv(cloud.EnvGoogleAPIKey))
	require.NoError(t, os.Unsetenv(cloud.EnvGeminiModel))

	config := cloud.NewConfig()
	config.Prompt.AgentModel = "explain-flash"
	config.AgentModels["explain-flash"] = cloud.GeminiLLMModel{Model: "gemini-2.5-flash", RateLimit: 1}

	require.NoError(t, cloud.LoadEnvironment(config))
	assert.Equal(t, "from-dotenv", config.Credentials.APIKey)
	assert.Equal(t, "gemini-custom", config.AgentModels["explain-flash"].Model)
	assert.NoError(t, config.Validate())
}

func TestValidate(t *testing.T) {
	config := cloud.NewConfig()
	assert.ErrorIs(t, config.Validate(), cloud.ErrMissingAPIKey)

	config.Credentials.APIKey = "key"
	config.Prompt.AgentModel = "missing"
	assert.Error(t, config.Validate())

	config.AgentModels["missing"] = cloud.GeminiLLMModel{Model: "gemini-2.5-flash"}
	assert.NoError(t, config.Validate())
}

type fakeFiles struct {
	uploadConfig *genai.UploadFileConfig
	file         *genai.File
	err          error
	deleted      string
}

func (f *fakeFiles) UploadFromPath(_ context.Context, _ string, config *genai.UploadFileConfig) (*genai.File, error) {
	f.uploadConfig = config
	return f.file, f.err
}

func (f *fakeFiles) Get(_ context.Context, _ string, _ *genai.GetFileConfig) (*genai.File, error) {
	return f.file, f.err
}

func (f *fakeFiles) Delete(_ context.Context, name string, _ *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error) {
	f.deleted = name
	return &genai.DeleteFileResponse{}, f.err
}

func TestGeminiFileService(t *testing.T) {
	size := int64(2048)
	files := &fakeFiles{file: &genai.File{
		Name:      "files/abc",
		URI:       "https://generativelanguage.googleapis.com/v1beta/files/abc",
		MIMEType:  "video/mp4",
		State:     genai.FileStateProcessing,
		SizeBytes: &size,
	}}
	service := cloud.NewGeminiFileService(files)

	asset, err := service.Upload(context.Background(), "/tmp/clip.mp4", "video/mp4", "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", files.uploadConfig.MIMEType)
	assert.Equal(t, "clip.mp4", files.uploadConfig.DisplayName)
	assert.Equal(t, "files/abc", asset.ID)
	assert.Equal(t, model.AssetStateProcessing, asset.State)
	assert.Equal(t, size, asset.SizeBytes)

	files.file.State = genai.FileStateActive
	asset, err = service.Get(context.Background(), "files/abc")
	require.NoError(t, err)
	assert.True(t, asset.IsReady())

	require.NoError(t, service.Delete(context.Background(), "files/abc"))
	assert.Equal(t, "files/abc", files.deleted)

	files.err = errors.New("unavailable")
	_, err = service.Get(context.Background(), "files/abc")
	assert.Error(t, err)
}

func TestToAssetState(t *testing.T) {
	assert.Equal(t, model.AssetStatePending, cloud.ToAssetState(genai.FileStateUnspecified))
	assert.Equal(t, model.AssetStateProcessing, cloud.ToAssetState(genai.FileStateProcessing))
	assert.Equal(t, model.AssetStateReady, cloud.ToAssetState(genai.FileStateActive))
	assert.Equal(t, model.AssetStateFailed, cloud.ToAssetState(genai.FileStateFailed))

	_, err := cloud.ToRemoteAsset(nil)
	assert.Error(t, err)
}

type fakeGenerator struct {
	modelName string
	contents  []*genai.Content
	chunks    []*genai.GenerateContentResponse
	err       error
}

func (f *fakeGenerator) GenerateContentStream(_ context.Context, modelName string, contents []*genai.Content, _ *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.modelName = modelName
	f.contents = contents
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, chunk := range f.chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

func textChunk(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}}},
	}}
}

func TestQuotaAwareModelStream(t *testing.T) {
	generator := &fakeGenerator{chunks: []*genai.GenerateContentResponse{textChunk("Hello"), {}, textChunk(" world")}}
	m := cloud.NewQuotaAwareModel(cloud.NewGenerateContentConfig(cloud.GeminiLLMModel{Temperature: 0.4}), "gemini-2.5-flash", generator, 5)
	asset := &model.RemoteAsset{ID: "files/abc", URI: "https://example.com/files/abc", MIMEType: "video/mp4", State: model.AssetStateReady}

	var fragments []string
	for fragment, err := range m.GenerateContentStream(context.Background(), asset, "explain") {
		require.NoError(t, err)
		fragments = append(fragments, fragment)
	}
	assert.Equal(t, []string{"Hello", "", " world"}, fragments)
	assert.Equal(t, "gemini-2.5-flash", generator.modelName)

	require.Len(t, generator.contents, 1)
	parts := generator.contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, asset.URI, parts[0].FileData.FileURI)
	assert.Equal(t, "video/mp4", parts[0].FileData.MIMEType)
	assert.Equal(t, "explain", parts[1].Text)
}

func TestQuotaAwareModelStreamError(t *testing.T) {
	generator := &fakeGenerator{chunks: []*genai.GenerateContentResponse{textChunk("partial")}, err: errors.New("stream reset")}
	m := cloud.NewQuotaAwareModel(&genai.GenerateContentConfig{}, "gemini-2.5-flash", generator, 0)

	var fragments []string
	var streamErr error
	for fragment, err := range m.GenerateContentStream(context.Background(), &model.RemoteAsset{State: model.AssetStateReady}, "p") {
		if err != nil {
			streamErr = err
			break
		}
		fragments = append(fragments, fragment)
	}
	assert.Equal(t, []string{"partial"}, fragments)
	assert.EqualError(t, streamErr, "stream reset")
}

func TestQuotaAwareModelCanceledWhileWaiting(t *testing.T) {
	generator := &fakeGenerator{chunks: []*genai.GenerateContentResponse{textChunk("x")}}
	m := cloud.NewQuotaAwareModel(&genai.GenerateContentConfig{}, "gemini-2.5-flash", generator, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, err := range m.GenerateContentStream(ctx, &model.RemoteAsset{State: model.AssetStateReady}, "p") {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Empty(t, generator.modelName)
}

func TestNewGenerateContentConfig(t *testing.T) {
	config := cloud.NewGenerateContentConfig(cloud.GeminiLLMModel{
		Temperature:        0.2,
		TopP:               0.9,
		MaxTokens:          1024,
		SystemInstructions: "be careful",
	})
	assert.Equal(t, float32(0.2), *config.Temperature)
	assert.Nil(t, config.TopK)
	assert.Equal(t, int32(1024), config.MaxOutputTokens)
	assert.Equal(t, "be careful", config.SystemInstruction.Parts[0].Text)
	assert.Len(t, config.SafetySettings, 4)
}

func TestResponseText(t *testing.T) {
	assert.Equal(t, "", cloud.ResponseText(nil))
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []*genai.Part{{Text: "a"}, {Text: "b"}}}},
		{Content: nil},
	}}
	assert.Equal(t, "ab", cloud.ResponseText(resp))
}

func TestNewCloudServiceClients(t *testing.T) {
	config := cloud.NewConfig()
	config.Credentials.APIKey = "test-key"
	config.AgentModels["explain-flash"] = cloud.GeminiLLMModel{Model: "gemini-2.5-flash", RateLimit: 2}

	clients, err := cloud.NewCloudServiceClients(context.Background(), config)
	require.NoError(t, err)
	defer clients.Close()

	m, err := clients.AgentModel("explain-flash")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", m.ModelName)
	assert.NotNil(t, clients.Files)

	_, err = clients.AgentModel("unknown")
	assert.Error(t, err)
}
