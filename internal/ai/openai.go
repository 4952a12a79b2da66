/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	applog "pixelstudio/internal/log"

	"pixelstudio/internal/domain"
)

const classifySystemPrompt = `You are the planning step of a product photo studio.
Given the conversation and the product details, reply with exactly one JSON object and nothing else.
If you need more information before generating an image, reply {"type":"clarify","question":"..."}.
Otherwise reply {"prompt":"<detailed English image prompt>","aspect_ratio":"<w:h, e.g. 1:1, 4:3, 16:9, 3:4, 9:16>"}.`

// OpenAI implements Client over any OpenAI-compatible endpoint.
type OpenAI struct {
	log        *slog.Logger
	c          *openai.Client
	chatModel  string
	imageModel string
}

// NewOpenAI builds a client. baseURL may be empty for the default endpoint.
func NewOpenAI(baseURL, apiKey, chatModel, imageModel string, timeout time.Duration) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &OpenAI{
		log:        applog.WithComponent("ai"),
		c:          openai.NewClientWithConfig(cfg),
		chatModel:  chatModel,
		imageModel: imageModel,
	}
}

// Classify sends the transcript window and product form to the chat model
// and parses the structured reply.
func (o *OpenAI) Classify(ctx context.Context, turns []Turn, form domain.ProductForm) (Classification, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: classifySystemPrompt,
	})
	if !form.Empty() {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: formContext(form),
		})
	}
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		if t.Role == string(domain.RoleAssistant) {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}

	resp, err := o.c.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.chatModel,
		Messages: msgs,
	})
	if err != nil {
		return Classification{}, fmt.Errorf("classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Classification{}, errors.New("classify: empty response")
	}
	cls := ParseClassification(resp.Choices[0].Message.Content)
	o.log.Debug("classified", slog.Int("kind", int(cls.Kind)))
	return cls, nil
}

// Generate runs the image generation call and returns the image URL.
// Reference images are folded into the prompt; the endpoint resolves them.
func (o *OpenAI) Generate(ctx context.Context, prompt, aspectRatio string, refs []string) (string, error) {
	p := prompt
	if len(refs) > 0 {
		p = p + "\nReference images: " + strings.Join(refs, ", ")
	}
	resp, err := o.c.CreateImage(ctx, openai.ImageRequest{
		Model:  o.imageModel,
		Prompt: p,
		N:      1,
		Size:   sizeForAspect(aspectRatio),
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", errors.New("generate: no image in response")
	}
	if u := resp.Data[0].URL; u != "" {
		return u, nil
	}
	if b64 := resp.Data[0].B64JSON; b64 != "" {
		return "data:image/png;base64," + b64, nil
	}
	return "", errors.New("generate: response carries neither URL nor data")
}

// EditImage maps a per-item operation onto a generation call whose prompt
// names the source image and the operation's instruction.
func (o *OpenAI) EditImage(ctx context.Context, op EditOp, src, instruction string) (string, error) {
	p := opPrompt(op)
	if strings.TrimSpace(instruction) != "" {
		p += " " + instruction
	}
	p += "\nSource image: " + src
	resp, err := o.c.CreateImage(ctx, openai.ImageRequest{
		Model:  o.imageModel,
		Prompt: p,
		N:      1,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("%s: no image in response", op)
	}
	if u := resp.Data[0].URL; u != "" {
		return u, nil
	}
	if b64 := resp.Data[0].B64JSON; b64 != "" {
		return "data:image/png;base64," + b64, nil
	}
	return "", fmt.Errorf("%s: response carries neither URL nor data", op)
}

func opPrompt(op EditOp) string {
	switch op {
	case OpRetouch:
		return "Retouch this product photo: clean up blemishes and stray artifacts, keep the product unchanged."
	case OpOutpaint:
		return "Extend this image beyond its current borders, continuing the scene naturally."
	case OpUpscale:
		return "Upscale this image to a higher resolution, preserving all detail."
	case OpUnwatermark:
		return "Remove any watermark or overlay text from this image without altering the underlying content."
	default:
		return "Edit this image."
	}
}

func formContext(f domain.ProductForm) string {
	b := &strings.Builder{}
	b.WriteString("Product details:\n")
	if f.Name != "" {
		fmt.Fprintf(b, "- name: %s\n", f.Name)
	}
	if f.Category != "" {
		fmt.Fprintf(b, "- category: %s\n", f.Category)
	}
	if f.SellingPoints != "" {
		fmt.Fprintf(b, "- selling points: %s\n", f.SellingPoints)
	}
	if f.Audience != "" {
		fmt.Fprintf(b, "- audience: %s\n", f.Audience)
	}
	return b.String()
}

// sizeForAspect maps an aspect ratio onto the nearest size the image API
// accepts.
func sizeForAspect(ar string) string {
	switch strings.TrimSpace(ar) {
	case "16:9", "4:3", "3:2":
		return "1792x1024"
	case "9:16", "3:4", "2:3":
		return "1024x1792"
	default:
		return "1024x1024"
	}
}
