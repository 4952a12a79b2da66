/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"pixelstudio/internal/domain"
)

// ContactSheetOptions controls the contact-sheet layout. Units are
// millimeters on A4 landscape.
type ContactSheetOptions struct {
	Title   string
	Columns int
	Margin  float64
}

// ContactSheet writes a PDF grid of a canvas's image items, in z-order,
// each cell captioned with the source filename. Non-image items and
// unreadable files are skipped; an all-skipped canvas still yields a valid
// one-page PDF.
func ContactSheet(doc domain.CanvasDoc, outPath string, opt ContactSheetOptions) error {
	if opt.Columns <= 0 {
		opt.Columns = 3
	}
	if opt.Margin <= 0 {
		opt.Margin = 12
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(opt.Title, true)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	usableW := pageW - 2*opt.Margin
	cellW := usableW / float64(opt.Columns)
	cellH := cellW * 0.75
	captionH := 6.0

	y := opt.Margin
	if opt.Title != "" {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.Text(opt.Margin, y+5, opt.Title)
		y += 12
	}
	pdf.SetFont("Helvetica", "", 8)

	col := 0
	for _, it := range doc.Items {
		if it.Type != domain.ItemImage || it.Src == "" {
			continue
		}
		imgType := imageTypeOf(it.Src)
		if imgType == "" {
			continue
		}
		if _, err := os.Stat(it.Src); err != nil {
			continue
		}

		x := opt.Margin + float64(col)*cellW
		if y+cellH+captionH > pageH-opt.Margin {
			pdf.AddPage()
			y = opt.Margin
		}

		opts := gofpdf.ImageOptions{ImageType: imgType, ReadDpi: false}
		pdf.ImageOptions(it.Src, x+1, y+1, cellW-2, 0, false, opts, 0, "")
		pdf.Rect(x+0.5, y+0.5, cellW-1, cellH-1, "D")

		caption := filepath.Base(it.Src)
		if len(caption) > 40 {
			caption = caption[:40]
		}
		pdf.Text(x+1, y+cellH+4, caption)

		col++
		if col == opt.Columns {
			col = 0
			y += cellH + captionH
		}
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write contact sheet: %w", err)
	}
	return nil
}

func imageTypeOf(src string) string {
	switch strings.ToLower(filepath.Ext(src)) {
	case ".png":
		return "PNG"
	case ".jpg", ".jpeg":
		return "JPG"
	case ".gif":
		return "GIF"
	}
	return ""
}
