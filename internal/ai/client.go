/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ai talks to the image analysis/generation collaborator and runs
// the asynchronous task orchestration on top of it: the single chat-triggered
// task per session, the independent per-item edit track, cancellation and
// stale-result discarding.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"pixelstudio/internal/domain"
)

// ErrBusy is returned when a send or item action is attempted while the
// corresponding track already has an outstanding task.
var ErrBusy = errors.New("a task is already running")

// Turn is one transcript entry sent to the classification call.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Kind discriminates classification outcomes.
type Kind int

const (
	// KindGenerate carries a resolved prompt and aspect ratio.
	KindGenerate Kind = iota
	// KindClarify carries a follow-up question; the canvas stays untouched.
	KindClarify
	// KindVerbatim means the response fit neither shape and is shown to the
	// user as-is.
	KindVerbatim
)

// Classification is the parsed result of an analysis call.
type Classification struct {
	Kind        Kind
	Question    string
	Prompt      string
	AspectRatio string
	Raw         string
}

// EditOp names the per-item layer actions.
type EditOp string

const (
	OpRetouch     EditOp = "retouch"
	OpOutpaint    EditOp = "outpaint"
	OpUpscale     EditOp = "upscale"
	OpUnwatermark EditOp = "unwatermark"
)

// Client is the network boundary to the AI collaborator. Implementations
// must honor ctx cancellation.
type Client interface {
	// Classify turns a transcript window plus the product form into either a
	// clarifying question or a generation instruction.
	Classify(ctx context.Context, turns []Turn, form domain.ProductForm) (Classification, error)
	// Generate produces one image for the resolved prompt and returns its
	// reference (URL or path).
	Generate(ctx context.Context, prompt, aspectRatio string, refs []string) (string, error)
	// EditImage applies a per-item operation to one image and returns the
	// replacement reference.
	EditImage(ctx context.Context, op EditOp, src, instruction string) (string, error)
}

// classificationWire is the JSON shape the model is asked to produce.
type classificationWire struct {
	Type        string `json:"type"`
	Question    string `json:"question"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
}

// ParseClassification decodes a model reply. Replies that fit neither the
// clarify nor the generate shape degrade to KindVerbatim so the user always
// sees something.
func ParseClassification(raw string) Classification {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var w classificationWire
	if err := json.Unmarshal([]byte(s), &w); err == nil {
		if w.Type == "clarify" && strings.TrimSpace(w.Question) != "" {
			return Classification{Kind: KindClarify, Question: w.Question, Raw: raw}
		}
		if strings.TrimSpace(w.Prompt) != "" {
			ar := strings.TrimSpace(w.AspectRatio)
			if ar == "" {
				ar = "1:1"
			}
			return Classification{Kind: KindGenerate, Prompt: w.Prompt, AspectRatio: ar, Raw: raw}
		}
	}
	return Classification{Kind: KindVerbatim, Raw: raw}
}
