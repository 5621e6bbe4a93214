package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/bsdetector/internal/model"
)

// ListHistory returns a user's history rows, newest first
func (s *Store) ListHistory(ctx context.Context, userID string, typ model.HistoryType) ([]model.HistoryItem, error) {
	var query string
	switch typ {
	case model.HistoryValidation:
		query = `
			SELECT id, user_id, claim, verdict, score, mode, created_at
			FROM validation_history
			WHERE user_id = $1
			ORDER BY created_at DESC
		`
	case model.HistorySentiment:
		query = `
			SELECT id, user_id, topic, overall, positive, neutral, negative, created_at
			FROM sentiment_history
			WHERE user_id = $1
			ORDER BY created_at DESC
		`
	default:
		return nil, fmt.Errorf("unknown history type: %s", typ)
	}

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s history: %w", typ, err)
	}
	defer rows.Close()

	items := []model.HistoryItem{}
	for rows.Next() {
		var item model.HistoryItem
		var createdAt time.Time

		if typ == model.HistoryValidation {
			err = rows.Scan(&item.ID, &item.UserID, &item.Claim, &item.Verdict, &item.Score, &item.Mode, &createdAt)
		} else {
			err = rows.Scan(&item.ID, &item.UserID, &item.Topic, &item.Overall, &item.Positive, &item.Neutral, &item.Negative, &createdAt)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s history: %w", typ, err)
		}

		item.Timestamp = createdAt.UnixMilli()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s history: %w", typ, err)
	}

	return items, nil
}

// InsertHistory stores one item for a user, stamped with at
func (s *Store) InsertHistory(ctx context.Context, userID string, typ model.HistoryType, item model.HistoryItem, at time.Time) error {
	var err error
	switch typ {
	case model.HistoryValidation:
		_, err = s.db.Exec(ctx, `
			INSERT INTO validation_history (id, user_id, claim, verdict, score, mode, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, item.ID, userID, item.Claim, item.Verdict, item.Score, item.Mode, at.UTC())
	case model.HistorySentiment:
		_, err = s.db.Exec(ctx, `
			INSERT INTO sentiment_history (id, user_id, topic, overall, positive, neutral, negative, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, item.ID, userID, item.Topic, item.Overall, item.Positive, item.Neutral, item.Negative, at.UTC())
	default:
		return fmt.Errorf("unknown history type: %s", typ)
	}

	if err != nil {
		return fmt.Errorf("failed to insert %s history: %w", typ, err)
	}
	return nil
}

// ClearHistory deletes all of a user's rows of one type
func (s *Store) ClearHistory(ctx context.Context, userID string, typ model.HistoryType) error {
	var table string
	switch typ {
	case model.HistoryValidation:
		table = "validation_history"
	case model.HistorySentiment:
		table = "sentiment_history"
	default:
		return fmt.Errorf("unknown history type: %s", typ)
	}

	if _, err := s.db.Exec(ctx, "DELETE FROM "+table+" WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("failed to clear %s history: %w", typ, err)
	}
	return nil
}
