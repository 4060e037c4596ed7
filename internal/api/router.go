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

// Package api exposes the analysis pipeline over HTTP: a JSON list of the
// analysis modes, a multipart upload answered with Server-Sent Events, and a
// WebSocket variant of the same exchange.
package api

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/model"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/services"
)

const defaultMaxUploadBytes = 200 << 20

// Analyzer runs one analysis and reports its events through emit.
// *services.AnalysisService satisfies it.
type Analyzer interface {
	Run(ctx context.Context, req services.AnalysisRequest, emit services.Emitter) (*model.AnalysisResult, error)
}

// Options configure the router.
type Options struct {
	ServiceName    string // Reported by the tracing middleware.
	MaxUploadBytes int64  // Upper bound of an uploaded video.
}

// NewRouter builds the gin engine with every route of the service.
//
// Inputs:
//   - analyzer: Usually a *services.AnalysisService.
//   - opts: Zero values fall back to a 200 MiB upload cap and the default
//     service name.
//
// Returns the engine with recovery, tracing and CORS middleware installed,
// the /healthz probe, and the /api/v1 routes.
func NewRouter(analyzer Analyzer, opts Options) *gin.Engine {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "explain-the-world"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(opts.ServiceName))
	r.Use(cors.Default())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		ModesRouter(apiV1)
		AnalysisRouter(apiV1, analyzer, opts.MaxUploadBytes)
	}
	return r
}
