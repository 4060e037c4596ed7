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
	"fmt"
	"os"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/cloud"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/prompt"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/services"
)

// StateManager holds what main builds once and hands to the router.
type StateManager struct {
	config    *cloud.Config
	cloud     *cloud.ServiceClients
	analysis  *services.AnalysisService
	modelName string
}

func (s *StateManager) Close() {
	if s.cloud != nil {
		s.cloud.Close()
	}
}

// SetupOS defaults the configuration directory and runtime for local runs.
func SetupOS() (err error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig loads the TOML configuration and the credentials. A missing API
// key is an error: the service cannot do anything without it.
func GetConfig() (*cloud.Config, error) {
	if err := SetupOS(); err != nil {
		return nil, fmt.Errorf("failed to setup os: %w", err)
	}
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return nil, err
	}
	if err := cloud.LoadEnvironment(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// InitState creates the clients and the analysis pipeline.
func InitState(ctx context.Context, config *cloud.Config) (*StateManager, error) {
	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return nil, err
	}
	agentModel, err := cloudClients.AgentModel(config.Prompt.AgentModel)
	if err != nil {
		return nil, err
	}

	defaultQuestion := config.Prompt.DefaultQuestion
	if defaultQuestion == "" {
		defaultQuestion = prompt.DefaultQuestion
	}

	analysis := &services.AnalysisService{
		Ingestion: &services.IngestionService{
			Files:              cloudClients.Files,
			PollInterval:       config.Ingestion.PollInterval(),
			Timeout:            config.Ingestion.Timeout(),
			TempDir:            config.Ingestion.TempDir,
			TempFilePrefix:     config.Ingestion.TempFilePrefix,
			DeleteRemoteAssets: config.Ingestion.DeleteRemoteAssets,
		},
		Inference:       &services.InferenceService{Model: agentModel},
		DefaultQuestion: defaultQuestion,
	}

	return &StateManager{
		config:    config,
		cloud:     cloudClients,
		analysis:  analysis,
		modelName: agentModel.ModelName,
	}, nil
}
