/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLiteStore keeps products in the local workspace database. It shares the
// *sql.DB owned by the storage package.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore ensures the products table and returns the store.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS products (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		category       TEXT NOT NULL DEFAULT '',
		selling_points TEXT NOT NULL DEFAULT '',
		audience       TEXT NOT NULL DEFAULT '',
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	);`)
	if err != nil {
		return nil, fmt.Errorf("ensure products table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Product, error) {
	return s.query(ctx, `SELECT id, name, category, selling_points, audience, created_at, updated_at
		FROM products ORDER BY updated_at DESC`)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, category, selling_points, audience, created_at, updated_at
		FROM products WHERE id = ?`, id)
	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (s *SQLiteStore) Put(ctx context.Context, p Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO products(id, name, category, selling_points, audience, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, category=excluded.category,
			selling_points=excluded.selling_points, audience=excluded.audience,
			updated_at=excluded.updated_at;`,
		p.ID, p.Name, p.Category, p.SellingPoints, p.Audience,
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("put product: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Search(ctx context.Context, query string) ([]Product, error) {
	q := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	return s.query(ctx, `SELECT id, name, category, selling_points, audience, created_at, updated_at
		FROM products
		WHERE lower(name) LIKE ? OR lower(category) LIKE ?
		ORDER BY updated_at DESC`, q, q)
}

func (s *SQLiteStore) query(ctx context.Context, stmt string, args ...any) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(scan func(...any) error) (Product, error) {
	var p Product
	var created, updated string
	if err := scan(&p.ID, &p.Name, &p.Category, &p.SellingPoints, &p.Audience, &created, &updated); err != nil {
		return Product{}, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, created)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return p, nil
}
