package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
)

func recordRow(r Record) goqu.Record {
	return goqu.Record{
		"id":            r.ID,
		"workflow_name": r.WorkflowName,
		"step_name":     r.StepName,
		"method":        r.Method,
		"url":           r.URL,
		"status_code":   r.StatusCode,
		"success":       r.Success,
		"error_message": r.ErrorMessage,
		"started_at":    r.StartedAt.UTC().Format(time.RFC3339Nano),
		"duration_ms":   r.DurationMs,
	}
}

func listRecords(ctx context.Context, db *sql.DB, g *goqu.Database, table string, f Filter) ([]Record, error) {
	sel := g.From(table).
		Select("id", "workflow_name", "step_name", "method", "url", "status_code", "success", "error_message", "started_at", "duration_ms").
		Order(goqu.I("started_at").Desc())
	if f.WorkflowName != "" {
		sel = sel.Where(goqu.I("workflow_name").Eq(f.WorkflowName))
	}
	if f.Limit > 0 {
		sel = sel.Limit(uint(f.Limit))
	}

	query, args, err := sel.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build history list query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var startedAt string
		if err := rows.Scan(&r.ID, &r.WorkflowName, &r.StepName, &r.Method, &r.URL, &r.StatusCode, &r.Success, &r.ErrorMessage, &startedAt, &r.DurationMs); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			r.StartedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
