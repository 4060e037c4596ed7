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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/model"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/prompt"
	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/services"
)

var supportedExtensions = map[string]bool{".mp4": true, ".mov": true}

// ErrUnsupportedVideo is returned for uploads that are not mp4 or mov files.
var ErrUnsupportedVideo = errors.New("only .mp4 and .mov videos are supported")

// resolveMode accepts display names and slugs. Empty means general analysis;
// an unknown value is passed through and handled as general analysis.
func resolveMode(raw string) prompt.AnalysisMode {
	if strings.TrimSpace(raw) == "" {
		return prompt.ModeGeneral
	}
	mode, ok := prompt.ParseMode(raw)
	if !ok {
		slog.Warn("unknown analysis mode requested", "mode", raw)
	}
	return mode
}

func validateFilename(filename string) error {
	if filename == "" {
		return nil
	}
	if !supportedExtensions[strings.ToLower(filepath.Ext(filename))] {
		return fmt.Errorf("%w: %s", ErrUnsupportedVideo, filename)
	}
	return nil
}

// AnalysisStartRequest is the first WebSocket message of an analysis.
type AnalysisStartRequest struct {
	Mode     string `json:"mode"`
	Question string `json:"question"`
	Filename string `json:"filename"`
}

// AnalysisRouter registers the analysis endpoints.
//
// POST /analyses takes a multipart form with a "video" file and optional
// "mode" and "question" fields and answers with a Server-Sent Events stream
// of model.Event values. Validation failures are answered before the stream
// starts:
//   - 400: no video file in the form.
//   - 413: the body exceeds maxUploadBytes.
//   - 415: the file is not a .mp4 or .mov video.
//
// GET /analyses/ws upgrades to a WebSocket and runs the same analysis, see
// serveWebSocket for the message order.
//
// Inputs:
//   - r: The versioned route group.
//   - analyzer: Runs the pipeline for each accepted request.
//   - maxUploadBytes: Upper bound of the request body and of the video frame.
func AnalysisRouter(r *gin.RouterGroup, analyzer Analyzer, maxUploadBytes int64) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  32 << 10,
		WriteBufferSize: 32 << 10,
		CheckOrigin:     func(*http.Request) bool { return true },
	}

	analyses := r.Group("/analyses")
	{
		analyses.POST("", func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
			header, err := c.FormFile("video")
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("video exceeds %d bytes", maxUploadBytes)})
					return
				}
				c.JSON(http.StatusBadRequest, gin.H{"error": "missing video file"})
				return
			}
			if err := validateFilename(header.Filename); err != nil {
				c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
				return
			}
			video, err := header.Open()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read uploaded video"})
				return
			}
			defer video.Close()

			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Header("X-Accel-Buffering", "no")

			ctx := c.Request.Context()
			emit := func(event model.Event) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				c.SSEvent(string(event.Type), event)
				c.Writer.Flush()
				return nil
			}

			result, err := analyzer.Run(ctx, services.AnalysisRequest{
				Mode:     resolveMode(c.PostForm("mode")),
				Question: c.PostForm("question"),
				Video:    video,
				Filename: header.Filename,
			}, emit)
			if err != nil {
				slog.WarnContext(ctx, "analysis request failed", "error_kind", model.KindOf(err), "error", err)
				return
			}
			slog.InfoContext(ctx, "analysis request finished", "request_id", result.RequestID, "fragments", result.Fragments)
		})

		analyses.GET("/ws", func(c *gin.Context) {
			conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
			if err != nil {
				slog.Warn("websocket upgrade failed", "error", err)
				return
			}
			defer conn.Close()
			serveWebSocket(c, conn, analyzer, maxUploadBytes)
		})
	}
}

// videoFrame hands the binary video frame to the pipeline and calls onEOF
// once the frame has been fully read.
type videoFrame struct {
	io.Reader
	once  sync.Once
	onEOF func()
}

func (v *videoFrame) Read(p []byte) (int, error) {
	n, err := v.Reader.Read(p)
	if errors.Is(err, io.EOF) {
		v.once.Do(v.onEOF)
	}
	return n, err
}

// watchDisconnect keeps reading so control frames are processed, and cancels
// the analysis when the peer closes or the connection breaks. It must only
// run after the video frame has been consumed.
func watchDisconnect(conn *websocket.Conn, cancel context.CancelFunc) {
	for {
		if _, _, err := conn.NextReader(); err != nil {
			cancel()
			return
		}
	}
}

// serveWebSocket reads a JSON AnalysisStartRequest text frame and one binary
// frame holding the video, then writes every event as a JSON text frame.
// A client that disconnects cancels the running analysis.
func serveWebSocket(c *gin.Context, conn *websocket.Conn, analyzer Analyzer, maxUploadBytes int64) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	conn.SetReadLimit(maxUploadBytes)

	reject := func(err error) {
		_ = conn.WriteJSON(model.NewErrorEvent("", err))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
	}

	var start AnalysisStartRequest
	messageType, payload, err := conn.ReadMessage()
	if err != nil {
		slog.Warn("failed to read analysis request", "error", err)
		return
	}
	if messageType != websocket.TextMessage {
		reject(errors.New("first message must be a JSON analysis request"))
		return
	}
	if err := json.Unmarshal(payload, &start); err != nil {
		reject(fmt.Errorf("invalid analysis request: %w", err))
		return
	}
	if err := validateFilename(start.Filename); err != nil {
		reject(err)
		return
	}

	messageType, video, err := conn.NextReader()
	if err != nil {
		slog.Warn("failed to read video frame", "error", err)
		return
	}
	if messageType != websocket.BinaryMessage {
		reject(errors.New("second message must be the binary video"))
		return
	}

	emit := func(event model.Event) error {
		return conn.WriteJSON(event)
	}
	frame := &videoFrame{Reader: video, onEOF: func() { go watchDisconnect(conn, cancel) }}
	_, err = analyzer.Run(ctx, services.AnalysisRequest{
		Mode:     resolveMode(start.Mode),
		Question: start.Question,
		Video:    frame,
		Filename: start.Filename,
	}, emit)
	if err != nil {
		slog.WarnContext(ctx, "websocket analysis failed", "error_kind", model.KindOf(err), "error", err)
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
