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

package cor_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/imeesam/Real-Time-Multimodal-Explain-the-World-Assistant/internal/core/cor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCommand appends its name to a shared log and optionally fails.
type recordingCommand struct {
	cor.BaseCommand
	log    *[]string
	output interface{}
	err    error
}

func newRecordingCommand(name string, log *[]string, output interface{}, err error) *recordingCommand {
	return &recordingCommand{BaseCommand: *cor.NewBaseCommand(name), log: log, output: output, err: err}
}

func (r *recordingCommand) IsExecutable(context cor.Context) bool {
	return context.GetContext() != nil
}

func (r *recordingCommand) Execute(context cor.Context) {
	*r.log = append(*r.log, r.GetName())
	if r.err != nil {
		context.AddError(r.GetName(), r.err)
		return
	}
	context.Add(r.GetOutputParam(), r.output)
	context.Add(r.GetName()+".in", context.Get(r.GetInputParam()))
}

func TestChainPipesOutputToNextInput(t *testing.T) {
	var log []string
	chain := cor.NewBaseChain("pipe")
	chain.AddCommand(newRecordingCommand("first", &log, "a", nil))
	chain.AddCommand(newRecordingCommand("second", &log, "b", nil))

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(cor.CtxIn, "seed")
	chain.Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	assert.Equal(t, []string{"first", "second"}, log)
	assert.Equal(t, "seed", chCtx.Get("first.in"))
	assert.Equal(t, "a", chCtx.Get("second.in"))
	assert.Equal(t, "b", chCtx.Get(cor.CtxIn))
}

func TestChainStopsOnFirstFailure(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	chain := cor.NewBaseChain("stop")
	chain.AddCommand(newRecordingCommand("first", &log, "a", boom))
	chain.AddCommand(newRecordingCommand("second", &log, "b", nil))

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chain.Execute(chCtx)

	assert.Equal(t, []string{"first"}, log)
	assert.ErrorIs(t, chCtx.Err(), boom)
}

func TestChainContinueOnFailure(t *testing.T) {
	var log []string
	chain := cor.NewBaseChain("continue")
	chain.ContinueOnFailure(true)
	chain.AddCommand(newRecordingCommand("first", &log, nil, errors.New("first failed")))
	chain.AddCommand(newRecordingCommand("second", &log, nil, errors.New("second failed")))

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chain.Execute(chCtx)

	assert.Equal(t, []string{"first", "second"}, log)
	assert.Len(t, chCtx.GetErrors(), 2)
	assert.ErrorContains(t, chCtx.Err(), "first failed")
	assert.ErrorContains(t, chCtx.Err(), "second failed")
}

func TestChainDoesNotStartCommandsAfterCancel(t *testing.T) {
	var log []string
	chain := cor.NewBaseChain("cancel")
	chain.AddCommand(newRecordingCommand("first", &log, "a", nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	chain.Execute(chCtx)

	assert.Empty(t, log)
	assert.ErrorIs(t, chCtx.Err(), context.Canceled)
}

func TestBaseContextCloseRemovesTempFiles(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "cor-*.mp4")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	chCtx := cor.NewBaseContext()
	chCtx.AddTempFile(file.Name())
	chCtx.AddTempFile(file.Name() + ".missing")

	assert.NoError(t, chCtx.Close())
	_, err = os.Stat(file.Name())
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, chCtx.GetTempFiles())
}

func TestBaseCommandDefaults(t *testing.T) {
	cmd := cor.NewBaseCommand("defaults")
	assert.Equal(t, cor.CtxIn, cmd.GetInputParam())
	assert.Equal(t, cor.CtxOut, cmd.GetOutputParam())
	assert.NotNil(t, cmd.GetSuccessCounter())
	assert.NotNil(t, cmd.GetErrorCounter())

	chCtx := cor.NewBaseContext()
	assert.False(t, cmd.IsExecutable(chCtx))
	chCtx.SetContext(context.Background())
	chCtx.Add(cor.CtxIn, "value")
	assert.True(t, cmd.IsExecutable(chCtx))
}
