// Package history persists one row per agent run. The agent layer itself is
// storage-free; callers that want an audit trail record envelopes here.
package history

import (
	"context"
	"time"

	"scribe/internal/agent"
	"scribe/internal/db"

	"github.com/google/uuid"
)

type Store struct {
	database *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{database: database}
}

// Run is one recorded agent invocation.
type Run struct {
	ID           string
	AgentType    agent.Type
	Query        string
	Success      bool
	Content      string
	ErrorMessage string
	CreatedAt    time.Time
}

// RecordRun stores the envelope of one agent call and returns the run id.
func (s *Store) RecordRun(ctx context.Context, agentType agent.Type, query string, resp agent.Response) (string, error) {
	id := uuid.NewString()
	_, err := s.database.Conn().ExecContext(ctx, `
		INSERT INTO runs (id, agent_type, query, success, content, error_message)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(agentType), query, resp.Success, resp.Content, resp.ErrorMessage,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.database.Conn().QueryContext(ctx, `
		SELECT id, agent_type, query, success, content, error_message, created_at
		FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var agentType, createdAt string
		if err := rows.Scan(&r.ID, &agentType, &r.Query, &r.Success, &r.Content, &r.ErrorMessage, &createdAt); err != nil {
			return nil, err
		}
		r.AgentType = agent.Type(agentType)
		if t, err := time.Parse(time.DateTime, createdAt); err == nil {
			r.CreatedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
