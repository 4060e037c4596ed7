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

// Package model defines the core data structures for the application.
// This file, `transient.go`, holds the structures that live only for the
// duration of a single analysis request: the handle to the uploaded video as
// the remote file service sees it, the per-request pipeline state machine and
// the events pushed to the presentation layer while a request runs. None of
// these are persisted.
package model

import (
	"time"

	"github.com/google/uuid"
)

// AssetState is the processing state of an uploaded video on the remote service.
type AssetState string

const (
	AssetStatePending    AssetState = "PENDING"
	AssetStateProcessing AssetState = "PROCESSING"
	AssetStateReady      AssetState = "READY"
	AssetStateFailed     AssetState = "FAILED"
)

// IsTerminal reports whether no further automatic transition will occur.
func (s AssetState) IsTerminal() bool {
	return s == AssetStateReady || s == AssetStateFailed
}

// RemoteAsset is the local reference to a video uploaded to the remote file
// service. The remote service owns the asset; the application only holds the
// identifier and the last observed state.
type RemoteAsset struct {
	ID          string     `json:"id"`           // Remote resource name, e.g. "files/abc123".
	URI         string     `json:"uri"`          // URI handed to the model as file data.
	MIMEType    string     `json:"mime_type"`    // MIME type declared on upload (e.g., "video/mp4").
	DisplayName string     `json:"display_name"` // Human readable name attached on upload.
	State       AssetState `json:"state"`        // Last observed processing state.
	SizeBytes   int64      `json:"size_bytes"`   // Size reported by the remote service.
}

// IsReady reports whether the asset can be handed to the model.
func (a *RemoteAsset) IsReady() bool {
	return a != nil && a.State == AssetStateReady
}

// TransientFile is the local copy of the uploaded video. It is owned by one
// request and removed once the upload finished or failed.
type TransientFile struct {
	Path     string // Unique path under the OS temp directory.
	MIMEType string // Sniffed from the first bytes, "video/mp4" when unknown.
	Size     int64  // Bytes written.
}

// PipelineState is the state of one analysis request. A new request always
// starts a fresh machine in PipelineStateIdle.
type PipelineState string

const (
	PipelineStateIdle       PipelineState = "IDLE"
	PipelineStateUploading  PipelineState = "UPLOADING"
	PipelineStateProcessing PipelineState = "PROCESSING"
	PipelineStateReady      PipelineState = "READY"
	PipelineStateStreaming  PipelineState = "STREAMING"
	PipelineStateDone       PipelineState = "DONE"
	PipelineStateFailed     PipelineState = "FAILED"
)

// EventType identifies the kind of notification emitted while a request runs.
type EventType string

const (
	EventState    EventType = "state"
	EventFragment EventType = "fragment"
	EventError    EventType = "error"
	EventDone     EventType = "done"
)

// Event is a single notification for the presentation layer. Only the fields
// relevant to the event type are populated.
type Event struct {
	Type      EventType     `json:"type"`
	RequestID string        `json:"request_id"`
	State     PipelineState `json:"state,omitempty"`
	Fragment  string        `json:"fragment,omitempty"`
	ErrorKind ErrorKind     `json:"error_kind,omitempty"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewStateEvent creates a state transition event.
func NewStateEvent(requestID string, state PipelineState) Event {
	return Event{Type: EventState, RequestID: requestID, State: state, Timestamp: time.Now()}
}

// NewFragmentEvent creates an event carrying one piece of generated text.
func NewFragmentEvent(requestID string, fragment string) Event {
	return Event{Type: EventFragment, RequestID: requestID, Fragment: fragment, Timestamp: time.Now()}
}

// NewErrorEvent creates a terminal error event. The error kind is preserved
// so the caller can tell an upload problem from a model problem.
func NewErrorEvent(requestID string, err error) Event {
	return Event{
		Type:      EventError,
		RequestID: requestID,
		State:     PipelineStateFailed,
		ErrorKind: KindOf(err),
		Message:   err.Error(),
		Timestamp: time.Now(),
	}
}

// NewDoneEvent creates the final event of a successful request.
func NewDoneEvent(requestID string) Event {
	return Event{Type: EventDone, RequestID: requestID, State: PipelineStateDone, Timestamp: time.Now()}
}

// AnalysisResult summarizes a finished (or failed) request.
type AnalysisResult struct {
	RequestID string        `json:"request_id"`
	Mode      string        `json:"mode"`
	Prompt    string        `json:"-"`
	Asset     *RemoteAsset  `json:"asset,omitempty"`
	Text      string        `json:"text"`
	State     PipelineState `json:"state"`
	Fragments int           `json:"fragments"`
}

// NewRequestID returns a fresh identifier used to scope the temp file, the
// remote display name and the log lines of one request.
func NewRequestID() string {
	return uuid.NewString()
}
