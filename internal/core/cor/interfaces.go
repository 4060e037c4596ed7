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

// Package cor (Chain of Responsibility) provides the building blocks used to
// run a request as a sequence of small commands sharing one property bag.
// This file declares the interfaces; base_*.go hold the default
// implementations.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys the chain uses to pipe the output of one
// command into the input of the next.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the shared state of a single chain execution. It carries the Go
// context, the values exchanged between commands, the errors they raised and
// the temporary files that must be removed when the execution ends.
type Context interface {
	SetContext(context context.Context)
	GetContext() context.Context

	// Add stores a value and returns the Context for chaining.
	Add(key string, value interface{}) Context
	Get(key string) interface{}
	Remove(key string)

	// AddError records err under key, normally the name of the failing command.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool
	// Err returns the recorded errors joined in the order they were added,
	// or nil when there are none.
	Err() error

	// AddTempFile tracks a local file that Close must remove.
	AddTempFile(file string)
	GetTempFiles() []string

	// Close removes every tracked temporary file. It must be deferred by
	// whoever created the Context.
	Close() error
}

// Executable is anything with a unit of work driven by a Context.
type Executable interface {
	Execute(context Context)
}

// Command is one step of a chain.
type Command interface {
	Executable

	GetName() string
	GetInputParam() string
	GetOutputParam() string

	// IsExecutable is checked by the chain before Execute.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command made of other commands, so chains can be nested.
type Chain interface {
	Command

	// ContinueOnFailure controls whether the remaining commands still run
	// after one of them recorded an error.
	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain
}
