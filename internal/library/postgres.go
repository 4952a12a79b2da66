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

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PGStore is the shared-team variant of the product library, backed by
// Postgres via the pgx stdlib driver.
type PGStore struct {
	db *sql.DB
}

// OpenPG connects to the DSN, pings it and ensures the products table.
func OpenPG(ctx context.Context, dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS products (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		category       TEXT NOT NULL DEFAULT '',
		selling_points TEXT NOT NULL DEFAULT '',
		audience       TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	);`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure products table: %w", err)
	}
	return &PGStore{db: db}, nil
}

// Close releases the connection pool.
func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) List(ctx context.Context) ([]Product, error) {
	return s.query(ctx, `SELECT id, name, category, selling_points, audience, created_at, updated_at
		FROM products ORDER BY updated_at DESC`)
}

func (s *PGStore) Get(ctx context.Context, id string) (Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, category, selling_points, audience, created_at, updated_at
		FROM products WHERE id = $1`, id)
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.SellingPoints, &p.Audience, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (s *PGStore) Put(ctx context.Context, p Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO products(id, name, category, selling_points, audience, created_at, updated_at)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT(id) DO UPDATE SET
			name=EXCLUDED.name, category=EXCLUDED.category,
			selling_points=EXCLUDED.selling_points, audience=EXCLUDED.audience,
			updated_at=EXCLUDED.updated_at;`,
		p.ID, p.Name, p.Category, p.SellingPoints, p.Audience, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put product: %w", err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Search(ctx context.Context, query string) ([]Product, error) {
	q := "%" + strings.TrimSpace(query) + "%"
	return s.query(ctx, `SELECT id, name, category, selling_points, audience, created_at, updated_at
		FROM products
		WHERE name ILIKE $1 OR category ILIKE $1
		ORDER BY updated_at DESC`, q)
}

func (s *PGStore) query(ctx context.Context, stmt string, args ...any) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.SellingPoints, &p.Audience, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
