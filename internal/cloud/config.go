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

// Package cloud holds the configuration of the service and the adapters to
// the hosted Gemini API: the file service used for video uploads and the
// quota aware streaming model.
package cloud

import (
	"fmt"
	"time"

	"google.golang.org/genai"
)

// DefaultSafetySettings disables the default blocking thresholds. Footage of
// accidents and incidents is the normal input of the service.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// Application holds general application settings.
type Application struct {
	Name            string `toml:"name"`              // The name of the application.
	GoogleProjectId string `toml:"google_project_id"` // Enables Cloud Trace and Cloud Monitoring export when set.
	GoogleLocation  string `toml:"location"`          // The Google Cloud location.
	ListenAddress   string `toml:"listen_address"`    // HTTP listen address, e.g. ":8080".
	LogLevel        string `toml:"log_level"`         // debug, info, warn or error.
	LogFile         string `toml:"log_file"`          // Optional file receiving a copy of the logs.
	MaxUploadBytes  int64  `toml:"max_upload_bytes"`  // Upper bound of an uploaded video.
}

// Ingestion controls the upload and the processing wait.
type Ingestion struct {
	PollIntervalInMillis int    `toml:"poll_interval_in_millis"` // Wait before each status poll.
	TimeoutInSeconds     int    `toml:"timeout_in_seconds"`      // 0 waits until the remote side decides.
	TempDir              string `toml:"temp_dir"`                // Empty for the OS temp directory.
	TempFilePrefix       string `toml:"temp_file_prefix"`        // Prefix of the local temporary files.
	DeleteRemoteAssets   bool   `toml:"delete_remote_assets"`    // Delete uploaded files after each request.
}

// PollInterval returns the configured interval, one second when unset.
func (i Ingestion) PollInterval() time.Duration {
	if i.PollIntervalInMillis <= 0 {
		return time.Second
	}
	return time.Duration(i.PollIntervalInMillis) * time.Millisecond
}

// Timeout returns the processing wait bound, zero for unbounded.
func (i Ingestion) Timeout() time.Duration {
	if i.TimeoutInSeconds <= 0 {
		return 0
	}
	return time.Duration(i.TimeoutInSeconds) * time.Second
}

// GeminiLLMModel describes one generative model and its generation settings.
type GeminiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the Gemini model.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`       // The desired output format for the LLM.
	RateLimit          int     `toml:"rate_limit"`          // The rate limit for the LLM in requests per second.
}

// PromptSettings selects the model used for analyses.
type PromptSettings struct {
	AgentModel      string `toml:"agent_model"`      // Key into Config.AgentModels.
	DefaultQuestion string `toml:"default_question"` // Used when the user asks nothing.
}

// Credentials are read from the environment only, never from TOML.
type Credentials struct {
	APIKey string `toml:"-"`
}

// Config is the root configuration. It is built once at startup and handed
// to the constructors that need it.
type Config struct {
	Application Application               `toml:"application"`
	Ingestion   Ingestion                 `toml:"ingestion"`
	AgentModels map[string]GeminiLLMModel `toml:"agent_models"` // Keyed by a logical name (e.g., "explain-flash").
	Prompt      PromptSettings            `toml:"prompt"`
	Credentials Credentials               `toml:"-"`
}

// NewConfig returns a Config with the built in defaults.
func NewConfig() *Config {
	return &Config{
		Application: Application{
			Name:           "explain-the-world",
			ListenAddress:  ":8080",
			LogLevel:       "info",
			MaxUploadBytes: 200 << 20,
		},
		Ingestion: Ingestion{
			PollIntervalInMillis: 1000,
			TempFilePrefix:       "explain-upload-",
		},
		AgentModels: make(map[string]GeminiLLMModel),
	}
}

// ActiveModel returns the model selected by the prompt settings.
func (c *Config) ActiveModel() (GeminiLLMModel, error) {
	m, ok := c.AgentModels[c.Prompt.AgentModel]
	if !ok {
		return GeminiLLMModel{}, fmt.Errorf("agent model %q is not configured", c.Prompt.AgentModel)
	}
	return m, nil
}
