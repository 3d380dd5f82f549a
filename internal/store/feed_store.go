package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/ecosort/internal/domain"
)

// FeedStore keeps the waste records that arrived over the live stream, newest
// last, so the dashboard's recent activity survives a reload or restart.
type FeedStore struct {
	db *sql.DB
}

func NewFeedStore(db *sql.DB) *FeedStore {
	return &FeedStore{db: db}
}

func (s *FeedStore) Append(ctx context.Context, rec domain.WasteRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO waste_feed (record_id, waste_type, time_collected, smartbin, wastebot, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.WasteType, rec.TimeCollected, string(rec.SmartBin), string(rec.WasteBot), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to append feed record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *FeedStore) Recent(ctx context.Context, limit int) ([]domain.WasteRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, waste_type, time_collected, smartbin, wastebot FROM waste_feed
		ORDER BY seq DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var recs []domain.WasteRecord
	for rows.Next() {
		var rec domain.WasteRecord
		var bin, bot string
		if err := rows.Scan(&rec.ID, &rec.WasteType, &rec.TimeCollected, &bin, &bot); err != nil {
			return nil, fmt.Errorf("failed to scan feed record: %w", err)
		}
		rec.SmartBin, rec.WasteBot = domain.Ref(bin), domain.Ref(bot)
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed: %w", err)
	}
	return recs, nil
}

// Trim deletes all but the newest keep records.
func (s *FeedStore) Trim(ctx context.Context, keep int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM waste_feed WHERE seq NOT IN (
			SELECT seq FROM waste_feed ORDER BY seq DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("failed to trim feed: %w", err)
	}
	return nil
}
