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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/prompt"
)

// ModeInfo describes an analysis mode for the client dropdown.
type ModeInfo struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Focus string `json:"focus,omitempty"`
}

// ModesRouter registers GET /modes, which lists every analysis mode in the
// order the client should display them. The first entry is the default.
func ModesRouter(r *gin.RouterGroup) {
	modes := r.Group("/modes")
	{
		modes.GET("", func(c *gin.Context) {
			out := make([]ModeInfo, 0, len(prompt.Modes()))
			for _, mode := range prompt.Modes() {
				out = append(out, ModeInfo{Name: string(mode), Slug: mode.Slug(), Focus: prompt.FocusClause(mode)})
			}
			c.JSON(http.StatusOK, out)
		})
	}
}
