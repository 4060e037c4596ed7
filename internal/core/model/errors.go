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
// This file holds the error taxonomy of the analysis pipeline. Ingestion and
// inference failures are reported as typed errors carrying a Kind so that the
// single error boundary at the top of the pipeline can still tell the user
// which step failed.
package model

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind string

const (
	KindLocalWriteFailure       ErrorKind = "local_write_failure"
	KindUploadFailure           ErrorKind = "upload_failure"
	KindPollFailure             ErrorKind = "poll_failure"
	KindRemoteProcessingFailure ErrorKind = "remote_processing_failure"
	KindTimeout                 ErrorKind = "timeout"
	KindCanceled                ErrorKind = "canceled"
	KindAssetNotReady           ErrorKind = "asset_not_ready"
	KindRequestFailure          ErrorKind = "request_failure"
	KindStreamInterrupted       ErrorKind = "stream_interrupted"
	KindUnknown                 ErrorKind = "unknown"
)

// IngestionError is returned when a video could not be turned into a READY
// remote asset.
type IngestionError struct {
	Kind    ErrorKind
	Op      string
	AssetID string
	Err     error
}

func (e *IngestionError) Error() string {
	msg := fmt.Sprintf("ingestion [%s:%s]", e.Kind, e.Op)
	if e.AssetID != "" {
		msg += " asset " + e.AssetID
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// NewIngestionError wraps err with an ingestion kind.
func NewIngestionError(kind ErrorKind, op string, err error) *IngestionError {
	return &IngestionError{Kind: kind, Op: op, Err: err}
}

// InferenceError is returned when the streaming generation call could not
// start or was interrupted.
type InferenceError struct {
	Kind      ErrorKind
	Op        string
	Fragments int // fragments delivered before the failure
	Err       error
}

func (e *InferenceError) Error() string {
	msg := fmt.Sprintf("inference [%s:%s]", e.Kind, e.Op)
	if e.Kind == KindStreamInterrupted {
		msg += fmt.Sprintf(" after %d fragments", e.Fragments)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// NewInferenceError wraps err with an inference kind.
func NewInferenceError(kind ErrorKind, op string, err error) *InferenceError {
	return &InferenceError{Kind: kind, Op: op, Err: err}
}

// ContextErrorKind maps a context error to Timeout or Canceled.
func ContextErrorKind(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindCanceled
}

// KindOf returns the kind of the first typed pipeline error in the chain.
func KindOf(err error) ErrorKind {
	var ingestion *IngestionError
	if errors.As(err, &ingestion) {
		return ingestion.Kind
	}
	var inference *InferenceError
	if errors.As(err, &inference) {
		return inference.Kind
	}
	return KindUnknown
}

// IsKind checks whether err carries the provided kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
