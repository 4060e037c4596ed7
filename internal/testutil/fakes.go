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

package test

import (
	"context"
	"fmt"
	"iter"
	"os"
	"sync"
	"time"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/model"
)

// FakeFileService is a scripted file service. Every Get returns the next
// entry of States; once exhausted the last entry repeats.
type FakeFileService struct {
	mu sync.Mutex

	UploadState model.AssetState // State of the freshly uploaded asset, PENDING when empty.
	States      []model.AssetState
	UploadErr   error
	GetErr      error
	DeleteErr   error

	Uploads      int
	Gets         int
	Deletes      []string
	UploadedPath string
	UploadedMIME string
	FileExisted  bool // Whether the local file was present when Upload ran.
	UploadedData []byte
}

func (f *FakeFileService) Upload(_ context.Context, path string, mimeType string, displayName string) (*model.RemoteAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Uploads++
	f.UploadedPath = path
	f.UploadedMIME = mimeType
	data, err := os.ReadFile(path)
	f.FileExisted = err == nil
	f.UploadedData = data
	if f.UploadErr != nil {
		return nil, f.UploadErr
	}
	state := f.UploadState
	if state == "" {
		state = model.AssetStatePending
	}
	id := fmt.Sprintf("files/fake-%d", f.Uploads)
	return &model.RemoteAsset{
		ID:          id,
		URI:         "https://generativelanguage.googleapis.com/v1beta/" + id,
		MIMEType:    mimeType,
		DisplayName: displayName,
		State:       state,
		SizeBytes:   int64(len(data)),
	}, nil
}

func (f *FakeFileService) Get(_ context.Context, id string) (*model.RemoteAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Gets++
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	state := model.AssetStateReady
	if len(f.States) > 0 {
		idx := f.Gets - 1
		if idx >= len(f.States) {
			idx = len(f.States) - 1
		}
		state = f.States[idx]
	}
	return &model.RemoteAsset{
		ID:       id,
		URI:      "https://generativelanguage.googleapis.com/v1beta/" + id,
		MIMEType: f.UploadedMIME,
		State:    state,
	}, nil
}

func (f *FakeFileService) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deletes = append(f.Deletes, id)
	return f.DeleteErr
}

// GetCount returns the number of Get calls so far.
func (f *FakeFileService) GetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Gets
}

// RecordingSleeper records every requested sleep without blocking.
type RecordingSleeper struct {
	mu     sync.Mutex
	Sleeps []time.Duration
	// Err, when set, is returned from the sleep with index FailAt.
	Err    error
	FailAt int
}

func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Err != nil && len(s.Sleeps) == s.FailAt {
		return s.Err
	}
	s.Sleeps = append(s.Sleeps, d)
	return nil
}

// Count returns the number of completed sleeps.
func (s *RecordingSleeper) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Sleeps)
}

// FakeStreamer yields Fragments in order. When Err is set it is yielded
// after the first FailAfter fragments and the stream ends.
type FakeStreamer struct {
	mu        sync.Mutex
	Fragments []string
	Err       error
	FailAfter int

	Calls   int
	Prompts []string
	Assets  []*model.RemoteAsset
	Pulled  int // Fragments the consumer actually pulled.
}

func (f *FakeStreamer) GenerateContentStream(_ context.Context, asset *model.RemoteAsset, prompt string) iter.Seq2[string, error] {
	f.mu.Lock()
	f.Calls++
	f.Prompts = append(f.Prompts, prompt)
	f.Assets = append(f.Assets, asset)
	f.mu.Unlock()

	return func(yield func(string, error) bool) {
		for i, fragment := range f.Fragments {
			if f.Err != nil && i == f.FailAfter {
				yield("", f.Err)
				return
			}
			f.mu.Lock()
			f.Pulled++
			f.mu.Unlock()
			if !yield(fragment, nil) {
				return
			}
		}
		if f.Err != nil && f.FailAfter >= len(f.Fragments) {
			yield("", f.Err)
		}
	}
}

// PulledCount returns how many fragments were handed to the consumer.
func (f *FakeStreamer) PulledCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Pulled
}
