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
	"log/slog"

	"google.golang.org/genai"
)

// ServiceClients holds the clients shared by every request.
type ServiceClients struct {
	GenAIClient *genai.Client                           // Client of the Gemini API.
	Files       *GeminiFileService                      // Video uploads.
	AgentModels map[string]*QuotaAwareGenerativeAIModel // Keyed by the logical name from the config.
}

// Close releases the clients. The genai client holds no resources.
func (c *ServiceClients) Close() {
	c.AgentModels = nil
}

// AgentModel returns the model registered under name.
func (c *ServiceClients) AgentModel(name string) (*QuotaAwareGenerativeAIModel, error) {
	m, ok := c.AgentModels[name]
	if !ok {
		return nil, fmt.Errorf("agent model %q is not configured", name)
	}
	return m, nil
}

// NewCloudServiceClients creates the Gemini API client and one quota aware
// model per configured agent model.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.Credentials.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating genai client: %w", err)
	}

	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for amKey, values := range config.AgentModels {
		slog.Debug("registering agent model", "key", amKey, "model", values.Model, "rate_limit", values.RateLimit)
		agentModels[amKey] = NewQuotaAwareModel(NewGenerateContentConfig(values), values.Model, gc.Models, values.RateLimit)
	}

	cloud = &ServiceClients{
		GenAIClient: gc,
		Files:       NewGeminiFileService(gc.Files),
		AgentModels: agentModels,
	}
	return cloud, nil
}
