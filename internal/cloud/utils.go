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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"google.golang.org/genai"
)

const (
	ConfigFileBaseName  = ".env"              // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"             // The file extension for configuration files.
	ConfigSeparator     = "."                 // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "GCP_RUNTIME"       // The environment variable for specifying the runtime context (e.g., "local", "test", "prod").
	EnvGoogleAPIKey     = "GOOGLE_API_KEY"    // The API key of the Gemini API.
	EnvGeminiModel      = "GEMINI_MODEL"      // Overrides the model name of the active agent model.
	DotEnvFileName      = ".env"              // Optional KEY=VALUE file holding the credentials.
)

// ErrMissingAPIKey is returned by Validate when no API key was found.
var ErrMissingAPIKey = fmt.Errorf("%s is not set", EnvGoogleAPIKey)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig decodes the base configuration file and then the runtime
// specific override into baseConfig. Values of the override win.
//
// The directory is read from GCP_CONFIG_PREFIX and the runtime from
// GCP_RUNTIME, "test" when unset: configs/.env.toml then configs/.env.test.toml.
func LoadConfig(baseConfig interface{}) error {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension

	if fileExists(baseConfigFileName) {
		if _, err := toml.DecodeFile(baseConfigFileName, baseConfig); err != nil {
			return fmt.Errorf("failed to decode base configuration file %s: %w", baseConfigFileName, err)
		}
	}
	if fileExists(envConfigFileName) {
		if _, err := toml.DecodeFile(envConfigFileName, baseConfig); err != nil {
			return fmt.Errorf("failed to decode environment configuration file %s: %w", envConfigFileName, err)
		}
	}
	slog.Debug("configuration loaded", "base", baseConfigFileName, "runtime", envConfigFileName)
	return nil
}

// LoadEnvironment reads the credentials and the model override. A .env file
// in the working directory or next to the configuration files is loaded
// first; variables already present in the process environment win.
func LoadEnvironment(config *Config) error {
	candidates := []string{DotEnvFileName}
	if prefix := os.Getenv(EnvConfigFilePrefix); prefix != "" {
		candidates = append(candidates, filepath.Join(prefix, DotEnvFileName))
	}
	for _, candidate := range candidates {
		if !fileExists(candidate) {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("failed to load %s: %w", candidate, err)
		}
	}

	config.Credentials.APIKey = strings.TrimSpace(os.Getenv(EnvGoogleAPIKey))
	if modelName := strings.TrimSpace(os.Getenv(EnvGeminiModel)); modelName != "" {
		if config.AgentModels == nil {
			config.AgentModels = make(map[string]GeminiLLMModel)
		}
		active := config.AgentModels[config.Prompt.AgentModel]
		active.Model = modelName
		config.AgentModels[config.Prompt.AgentModel] = active
	}
	return nil
}

// Validate checks what the service cannot start without.
func (c *Config) Validate() error {
	if c.Credentials.APIKey == "" {
		return ErrMissingAPIKey
	}
	m, err := c.ActiveModel()
	if err != nil {
		return err
	}
	if m.Model == "" {
		return fmt.Errorf("agent model %q has no model name", c.Prompt.AgentModel)
	}
	return nil
}

// NewVideoPromptContent builds the joint request content: the uploaded video
// as file data followed by the prompt text.
func NewVideoPromptContent(fileURI string, mimeType string, prompt string) []*genai.Content {
	return []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{FileData: NewFileData(fileURI, mimeType)},
				{Text: prompt},
			},
		},
	}
}

func NewFileData(in string, mimeType string) *genai.FileData {
	return &genai.FileData{FileURI: in, MIMEType: mimeType}
}

// ResponseText concatenates the text parts of every candidate of a response
// chunk. A chunk without text yields "".
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var value strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil {
				value.WriteString(part.Text)
			}
		}
	}
	return value.String()
}
