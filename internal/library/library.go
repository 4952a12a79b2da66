/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package library is the product knowledge base: saved product records that
// pre-fill a session's product form. It runs either embedded in the local
// workspace database or against a shared Postgres instance.
package library

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pixelstudio/internal/domain"
)

// ErrNotFound is returned when no product has the requested id.
var ErrNotFound = errors.New("product not found")

// Product is one saved product record.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	SellingPoints string    `json:"sellingPoints"`
	Audience      string    `json:"audience"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Form converts the record into a session product form.
func (p Product) Form() domain.ProductForm {
	return domain.ProductForm{
		Name:          p.Name,
		Category:      p.Category,
		SellingPoints: p.SellingPoints,
		Audience:      p.Audience,
	}
}

// FromForm builds a new product record from a session form.
func FromForm(f domain.ProductForm) Product {
	now := time.Now().UTC()
	return Product{
		ID:            uuid.NewString(),
		Name:          f.Name,
		Category:      f.Category,
		SellingPoints: f.SellingPoints,
		Audience:      f.Audience,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Store is the product persistence boundary.
type Store interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id string) (Product, error)
	Put(ctx context.Context, p Product) error
	Delete(ctx context.Context, id string) error
	// Search matches name and category, case-insensitively.
	Search(ctx context.Context, query string) ([]Product, error)
}
