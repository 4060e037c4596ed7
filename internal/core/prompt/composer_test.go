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

package prompt_test

import (
	"strings"
	"testing"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/prompt"
	"github.com/stretchr/testify/assert"
)

func TestComposeContainsEveryHeadingOnce(t *testing.T) {
	for _, mode := range prompt.Modes() {
		t.Run(mode.Slug(), func(t *testing.T) {
			out := prompt.Compose(mode, "What went wrong?")
			for _, heading := range prompt.SectionHeadings {
				assert.Equal(t, 1, strings.Count(out, heading), "heading %q", heading)
			}
			assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "User Question: What went wrong?"))
		})
	}
}

func TestComposeUnknownModeFallsBackToBase(t *testing.T) {
	out := prompt.Compose(prompt.AnalysisMode("Underwater Welding"), "Why?")
	general := prompt.Compose(prompt.ModeGeneral, "Why?")

	assert.Equal(t, general, out)
	for _, heading := range prompt.SectionHeadings {
		assert.Contains(t, out, heading)
	}
	assert.NotContains(t, out, "Focus on")
}

func TestComposeAddsFocusClause(t *testing.T) {
	out := prompt.Compose(prompt.ModeIndustrial, "")
	assert.Contains(t, out, "conveyor jams")
	assert.Contains(t, out, "User Question: "+prompt.DefaultQuestion)

	focus := strings.Index(out, "Focus on")
	question := strings.Index(out, "User Question:")
	confidence := strings.Index(out, "Confidence Level")
	assert.Less(t, confidence, focus)
	assert.Less(t, focus, question)
}

func TestComposeIsDeterministic(t *testing.T) {
	assert.Equal(t,
		prompt.Compose(prompt.ModeSports, "Who scores next?"),
		prompt.Compose(prompt.ModeSports, "Who scores next?"))
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		mode prompt.AnalysisMode
		ok   bool
	}{
		{"Industrial Safety", prompt.ModeIndustrial, true},
		{"security-surveillance", prompt.ModeSecurity, true},
		{"  sports analytics ", prompt.ModeSports, true},
		{"general-causal-analysis", prompt.ModeGeneral, true},
		{"Cooking", prompt.AnalysisMode("Cooking"), false},
	}
	for _, tt := range tests {
		mode, ok := prompt.ParseMode(tt.in)
		assert.Equal(t, tt.mode, mode, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
	assert.True(t, prompt.ModeSecurity.IsKnown())
	assert.False(t, prompt.AnalysisMode("Cooking").IsKnown())
}
