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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// command that materializes the incoming video stream as a local temporary
// file so it can be handed to the file service.
//
// Logic Flow:
//  1. Reads the first bytes of the stream and sniffs the container with
//     h2non/filetype to pick the file suffix and MIME type.
//  2. Creates a uniquely named temp file and registers it with the context
//     before writing, so Close removes it even after a partial write.
//  3. Streams the remaining bytes into the file with io.Copy.
//  4. Places a *model.TransientFile in the output parameter.
package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/h2non/filetype"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/cor"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/model"
)

const (
	sniffLength     = 262
	defaultSuffix   = ".mp4"
	defaultMIMEType = "video/mp4"
)

// ErrEmptyVideo is recorded when the video stream has no bytes.
var ErrEmptyVideo = errors.New("video stream is empty")

// VideoToTempFile writes an io.Reader found in the input parameter to a
// temporary file.
type VideoToTempFile struct {
	cor.BaseCommand
	tempDir        string // Directory for the file, "" for the OS default.
	tempFilePrefix string // Prefix of the file name, e.g. "explain-upload-".
}

// NewVideoToTempFile is the constructor for the VideoToTempFile command.
func NewVideoToTempFile(name string, tempDir string, tempFilePrefix string) *VideoToTempFile {
	return &VideoToTempFile{
		BaseCommand:    *cor.NewBaseCommand(name),
		tempDir:        tempDir,
		tempFilePrefix: tempFilePrefix,
	}
}

// DetectMediaType returns the file suffix and MIME type for the leading bytes
// of a video. Anything that is not recognized as video is treated as mp4.
func DetectMediaType(head []byte) (suffix string, mimeType string) {
	if filetype.IsVideo(head) {
		if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
			return "." + kind.Extension, kind.MIME.Value
		}
	}
	return defaultSuffix, defaultMIMEType
}

func (c *VideoToTempFile) Execute(context cor.Context) {
	reader, ok := context.Get(c.GetInputParam()).(io.Reader)
	if !ok {
		c.fail(context, fmt.Errorf("input is not a video stream"))
		return
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(reader, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		c.fail(context, fmt.Errorf("failed to read video stream: %w", err))
		return
	}
	if n == 0 {
		c.fail(context, ErrEmptyVideo)
		return
	}
	head = head[:n]
	suffix, mimeType := DetectMediaType(head)

	tempFile, err := os.CreateTemp(c.tempDir, c.tempFilePrefix+"*"+suffix)
	if err != nil {
		c.fail(context, fmt.Errorf("could not create temp file: %w", err))
		return
	}
	context.AddTempFile(tempFile.Name())

	written, err := io.Copy(tempFile, io.MultiReader(bytes.NewReader(head), reader))
	if err != nil {
		_ = tempFile.Close()
		c.fail(context, fmt.Errorf("failed to write video to %s after %d bytes: %w", tempFile.Name(), written, err))
		return
	}
	if err := tempFile.Close(); err != nil {
		c.fail(context, fmt.Errorf("failed to flush %s: %w", tempFile.Name(), err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), &model.TransientFile{Path: tempFile.Name(), MIMEType: mimeType, Size: written})
}

func (c *VideoToTempFile) fail(context cor.Context, err error) {
	c.GetErrorCounter().Add(context.GetContext(), 1)
	context.AddError(c.GetName(), model.NewIngestionError(model.KindLocalWriteFailure, c.GetName(), err))
}
