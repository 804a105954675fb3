package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/asyncmock/internal/mocker"
	"github.com/roach88/asyncmock/internal/wire"
)

// ReadInteractions returns a run's interactions in record order.
//
// Returns an empty slice (not nil) if the run recorded nothing.
func (s *Store) ReadInteractions(ctx context.Context, runID string) ([]mocker.Interaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, kind, method, correlation_id, request, response, reject_code, message
		FROM interactions
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	interactions := []mocker.Interaction{}
	for rows.Next() {
		var (
			in         mocker.Interaction
			kind       string
			request    string
			response   sql.NullString
			rejectCode sql.NullInt64
			message    sql.NullString
		)
		if err := rows.Scan(&in.Step, &kind, &in.Method, &in.CorrelationID, &request, &response, &rejectCode, &message); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		in.Kind = mocker.InteractionKind(kind)
		in.Request = json.RawMessage(request)
		if response.Valid {
			in.Response = json.RawMessage(response.String)
		}
		if rejectCode.Valid {
			in.RejectCode = wire.RejectCode(rejectCode.Int64)
		}
		in.Message = message.String
		interactions = append(interactions, in)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return interactions, nil
}

// CountByMethod returns how many interactions a run recorded per method.
func (s *Store) CountByMethod(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT method, COUNT(*)
		FROM interactions
		WHERE run_id = ?
		GROUP BY method
		ORDER BY method COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query method counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			method string
			n      int
		)
		if err := rows.Scan(&method, &n); err != nil {
			return nil, fmt.Errorf("scan method count: %w", err)
		}
		counts[method] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate method counts: %w", err)
	}
	return counts, nil
}
