/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes canvas content out of the app: single-item
// downloads, thumbnails and a contact-sheet PDF of a whole canvas.
package export

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pixelstudio/internal/domain"
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// FileNameFor generates the download filename for an item: a sanitized stem
// from the source plus a short id suffix so repeated downloads never
// collide.
func FileNameFor(it domain.CanvasItem) string {
	ext := extOf(it.Src)
	if ext == "" {
		if it.Type == domain.ItemVideo {
			ext = ".mp4"
		} else {
			ext = ".png"
		}
	}
	stem := strings.TrimSuffix(filepath.Base(it.Src), filepath.Ext(it.Src))
	stem = sanitize(stem)
	if stem == "" || strings.HasPrefix(it.Src, "data:") {
		stem = string(it.Type)
	}
	suffix := it.ID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("%s-%s%s", stem, suffix, ext)
}

func extOf(src string) string {
	switch {
	case strings.HasPrefix(src, "data:image/png"):
		return ".png"
	case strings.HasPrefix(src, "data:image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(src, "data:"):
		return ""
	}
	// strip URL query before looking at the extension
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	ext := strings.ToLower(filepath.Ext(src))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".mp4", ".webm", ".mov":
		return ext
	}
	return ""
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('_')
		}
	}
	out := b.String()
	if len(out) > 48 {
		out = out[:48]
	}
	return out
}

// Download resolves the item's source (local path, http(s) URL or data URL)
// and writes it under destDir with a generated filename. Returns the
// written path.
func Download(ctx context.Context, it domain.CanvasItem, destDir string) (string, error) {
	if it.Src == "" {
		return "", fmt.Errorf("item %s has no source", it.ID)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	dest := filepath.Join(destDir, FileNameFor(it))

	switch {
	case strings.HasPrefix(it.Src, "data:"):
		return dest, writeDataURL(it.Src, dest)
	case strings.HasPrefix(it.Src, "http://"), strings.HasPrefix(it.Src, "https://"):
		return dest, fetchURL(ctx, it.Src, dest)
	default:
		return dest, copyFile(it.Src, dest)
	}
}

func writeDataURL(src, dest string) error {
	i := strings.Index(src, ",")
	if i < 0 {
		return fmt.Errorf("malformed data URL")
	}
	data, err := base64.StdEncoding.DecodeString(src[i+1:])
	if err != nil {
		return fmt.Errorf("decode data URL: %w", err)
	}
	return os.WriteFile(dest, data, 0o644)
}

func fetchURL(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return f.Sync()
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return out.Sync()
}
