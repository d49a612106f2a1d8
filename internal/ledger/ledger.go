// Package ledger persists one row per generation invocation so runs can be
// reproduced from their recorded parameters.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"inpaintprep/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS requests (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	mask_id INTEGER NOT NULL,
	start_frame INTEGER NOT NULL,
	end_frame INTEGER NOT NULL,
	fps INTEGER NOT NULL,
	video_prompt TEXT NOT NULL,
	image_prompt TEXT NOT NULL,
	output_path TEXT NOT NULL,
	seed INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
`

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Record inserts the request. Requests are immutable: a duplicate id is an
// error, never an update.
func (s *Store) Record(ctx context.Context, req types.InpaintingRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests
			(id, path, mask_id, start_frame, end_frame, fps, video_prompt, image_prompt, output_path, seed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.Path, req.MaskID, req.StartFrame, req.EndFrame, req.FPS,
		req.VideoPrompt, req.ImagePrompt, req.OutputPath, req.Seed,
		req.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	)
	if err != nil {
		return fmt.Errorf("record request %s: %w", req.ID, err)
	}
	return nil
}

// Get reads one recorded request back, mostly for tests and inspection.
func (s *Store) Get(ctx context.Context, id string) (types.InpaintingRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, mask_id, start_frame, end_frame, fps, video_prompt, image_prompt, output_path, seed
		FROM requests WHERE id = ?`, id)
	var req types.InpaintingRequest
	err := row.Scan(&req.ID, &req.Path, &req.MaskID, &req.StartFrame, &req.EndFrame,
		&req.FPS, &req.VideoPrompt, &req.ImagePrompt, &req.OutputPath, &req.Seed)
	if err != nil {
		return types.InpaintingRequest{}, fmt.Errorf("load request %s: %w", id, err)
	}
	return req, nil
}
