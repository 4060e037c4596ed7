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

// Package prompt builds the instruction text sent to the reasoning model.
// The base block is a fixed template embedded at compile time; the analysis
// mode selected by the user only contributes a short focus clause.
package prompt

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

// AnalysisMode is the user-selected focus that customizes the prompt.
type AnalysisMode string

const (
	ModeGeneral    AnalysisMode = "General Causal Analysis"
	ModeIndustrial AnalysisMode = "Industrial Safety"
	ModeSecurity   AnalysisMode = "Security Surveillance"
	ModeSports     AnalysisMode = "Sports Analytics"
)

// DefaultQuestion is used when the caller does not ask anything specific.
const DefaultQuestion = "Explain what happened and why."

// SectionHeadings are the five markdown headings every response must use.
var SectionHeadings = []string{
	"Situation Summary",
	"Causal Chain",
	"Risk Assessment",
	"Recommended Action",
	"Confidence Level",
}

var focusClauses = map[AnalysisMode]string{
	ModeIndustrial: "Focus on machinery behavior, conveyor jams, mechanical failures, and worker safety hazards.",
	ModeSecurity:   "Focus on suspicious motion, unauthorized access, abnormal behavior, or security threats.",
	ModeSports:     "Focus on player positioning, tactical breakdowns, momentum shifts, and likely next plays.",
}

//go:embed templates/base.tmpl
var baseTemplateText string

var baseTemplate = template.Must(template.New("base").Parse(baseTemplateText))

type templateData struct {
	Focus    string
	Question string
}

// Modes returns the selectable modes in display order.
func Modes() []AnalysisMode {
	return []AnalysisMode{ModeGeneral, ModeIndustrial, ModeSecurity, ModeSports}
}

// Slug returns the kebab-case form of the mode, e.g. "industrial-safety".
func (m AnalysisMode) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(m)), " ", "-")
}

// IsKnown reports whether m is one of the enumerated modes.
func (m AnalysisMode) IsKnown() bool {
	for _, known := range Modes() {
		if m == known {
			return true
		}
	}
	return false
}

// ParseMode resolves a display name or slug, ignoring case. Unrecognized
// input is returned unchanged with ok set to false; Compose accepts it and
// falls back to the base template.
func ParseMode(in string) (mode AnalysisMode, ok bool) {
	trimmed := strings.TrimSpace(in)
	for _, known := range Modes() {
		if strings.EqualFold(trimmed, string(known)) || strings.EqualFold(trimmed, known.Slug()) {
			return known, true
		}
	}
	return AnalysisMode(trimmed), false
}

// FocusClause returns the mode specific clause, empty for the general mode
// and for unknown modes.
func FocusClause(mode AnalysisMode) string {
	return focusClauses[mode]
}

// Compose builds the full prompt: base instructions, the focus clause of the
// mode and the labelled user question. An empty question is replaced with
// DefaultQuestion.
func Compose(mode AnalysisMode, userQuestion string) string {
	question := strings.TrimSpace(userQuestion)
	if question == "" {
		question = DefaultQuestion
	}
	var buffer bytes.Buffer
	// The template is parsed at init and only reads two strings.
	_ = baseTemplate.Execute(&buffer, templateData{Focus: FocusClause(mode), Question: question})
	return buffer.String()
}
