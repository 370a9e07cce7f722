package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lettermill/import-api/internal/core"
	"github.com/lettermill/import-api/internal/domain/model"
	apperrors "github.com/lettermill/import-api/internal/errors"
)

// SubscriberRepo provides database operations for the destination
// subscriber tables that imports write into.
type SubscriberRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewSubscriberRepo creates a new SubscriberRepo with the given database connection and configuration.
func NewSubscriberRepo(db *sql.DB, cfg RepoConfig) *SubscriberRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &SubscriberRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

// maxUpsertRows keeps multi-VALUES statements under the Postgres 65535
// bind parameter limit. Each subscriber row binds 4 parameters.
const maxUpsertRows = 5000

// UpsertSubscribers writes a batch of subscribers into a list. The upsert
// is keyed by (list_name, email), which makes replaying a chunk after a
// transient failure idempotent. RETURNING (xmax = 0) distinguishes fresh
// inserts from updates of existing rows.
func (r *SubscriberRepo) UpsertSubscribers(ctx context.Context, listName string, subs []model.Subscriber) (core.UpsertResult, error) {
	var result core.UpsertResult
	if listName == "" {
		return result, apperrors.ValidationField("list_name", "is required and cannot be empty")
	}

	for start := 0; start < len(subs); start += maxUpsertRows {
		end := min(start+maxUpsertRows, len(subs))
		partial, err := r.upsertPage(ctx, listName, subs[start:end])
		if err != nil {
			return result, err
		}
		result.Inserted += partial.Inserted
		result.Updated += partial.Updated
	}
	return result, nil
}

func (r *SubscriberRepo) upsertPage(ctx context.Context, listName string, subs []model.Subscriber) (core.UpsertResult, error) {
	var result core.UpsertResult
	if len(subs) == 0 {
		return result, nil
	}

	now := r.timeProvider.Now().UTC()

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO subscribers (list_name, email, attrs, updated_at)
		VALUES `)
	args := make([]any, 0, len(subs)*4)
	for i, sub := range subs {
		attrs, err := json.Marshal(sub.Attrs)
		if err != nil {
			return result, fmt.Errorf("marshal subscriber attrs: %w", err)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		n := len(args)
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4)
		args = append(args, listName, sub.Email, attrs, now)
	}
	sb.WriteString(`
		ON CONFLICT (list_name, email) DO UPDATE
		SET attrs = subscribers.attrs || EXCLUDED.attrs,
		    updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS inserted`)

	rows, err := r.DB.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return result, apperrors.MapDBError(fmt.Errorf("upsert subscribers: %w", err))
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var inserted bool
		if err := rows.Scan(&inserted); err != nil {
			return result, fmt.Errorf("scan upsert result: %w", err)
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
	if err := rows.Err(); err != nil {
		return result, apperrors.MapDBError(fmt.Errorf("upsert subscribers: %w", err))
	}
	return result, nil
}

// DeleteList removes all subscribers for a list and returns the count.
func (r *SubscriberRepo) DeleteList(ctx context.Context, listName string) (int64, error) {
	if listName == "" {
		return 0, errors.New("list name is required")
	}

	res, err := r.DB.ExecContext(ctx, `DELETE FROM subscribers WHERE list_name = $1`, listName)
	if err != nil {
		return 0, fmt.Errorf("delete list: %w", err)
	}
	return res.RowsAffected()
}

// ListSummaries returns per-list subscriber counts, largest first.
func (r *SubscriberRepo) ListSummaries(ctx context.Context) ([]*model.ListSummary, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT list_name, count(*) AS subscribers
		FROM subscribers
		GROUP BY list_name
		ORDER BY subscribers DESC, list_name
	`)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summaries := []*model.ListSummary{}
	for rows.Next() {
		var s model.ListSummary
		if err := rows.Scan(&s.ListName, &s.Subscribers); err != nil {
			return nil, fmt.Errorf("scan list summary: %w", err)
		}
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	return summaries, nil
}
