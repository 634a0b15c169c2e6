package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	apperrors "github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/errors"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/domain/model"
)

// Transition log table names. Fixed constants so the append helper never
// interpolates caller input into SQL.
const (
	taskTransitionsTable   = "task_transitions"
	escrowTransitionsTable = "escrow_transitions"
	proofTransitionsTable  = "proof_transitions"
)

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// appendTransition writes one append-only audit row. It must run in the same
// transaction as the state update it records.
func appendTransition(
	ctx context.Context,
	execer sqlExecer,
	table string,
	entityID, fromState, toState string,
	tc model.TransitionContext,
) error {
	switch table {
	case taskTransitionsTable, escrowTransitionsTable, proofTransitionsTable:
	default:
		return apperrors.Internalf("unknown transition table: %s", table)
	}

	contextBlob := []byte(`{}`)
	if len(tc.Context) > 0 {
		if !json.Valid(tc.Context) {
			return apperrors.ValidationField("context", "transition context must be valid JSON")
		}
		contextBlob = tc.Context
	}

	query := `
		INSERT INTO ` + table + ` (entity_id, from_state, to_state, actor, context)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := execer.ExecContext(ctx, query, entityID, fromState, toState, tc.ActorOrSystem(), contextBlob); err != nil {
		return apperrors.MapDBError(fmt.Errorf("append %s: %w", table, err))
	}
	return nil
}

// queryHistory returns the full transition log for one entity in append
// order.
func queryHistory(ctx context.Context, db *sql.DB, table, entityID string) ([]model.TransitionRecord, error) {
	switch table {
	case taskTransitionsTable, escrowTransitionsTable, proofTransitionsTable:
	default:
		return nil, apperrors.Internalf("unknown transition table: %s", table)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, entity_id, from_state, to_state, actor, context, created_at
		FROM `+table+`
		WHERE entity_id = $1
		ORDER BY id ASC
	`, entityID)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("query %s: %w", table, err))
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []model.TransitionRecord
	for rows.Next() {
		var rec model.TransitionRecord
		var contextBlob []byte
		if scanErr := rows.Scan(&rec.ID, &rec.EntityID, &rec.FromState, &rec.ToState, &rec.Actor, &contextBlob, &rec.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("scan %s: %w", table, scanErr)
		}
		rec.Context = cloneJSON(contextBlob)
		records = append(records, rec)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, rowsErr)
	}
	return records, nil
}
