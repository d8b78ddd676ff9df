// Copyright 2024 Shift Crypto AG
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errp wraps the github.com/pkg/errors package, so that error
// creation and annotation carry stack traces by default.
package errp

import (
	"github.com/pkg/errors"
)

var (
	// New creates an error with a stack trace.
	New = errors.New
	// Newf creates a formatted error with a stack trace.
	Newf = errors.Errorf
	// WithStack annotates an error with a stack trace.
	WithStack = errors.WithStack
	// WithMessage annotates an error with a message.
	WithMessage = errors.WithMessage
	// Wrap annotates an error with a message and a stack trace.
	Wrap = errors.Wrap
	// Cause unwraps an annotated error.
	Cause = errors.Cause
)
