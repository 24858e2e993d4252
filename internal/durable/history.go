package durable

import (
	"context"
	"fmt"

	"jobmate/recommendation-service/internal/model"
)

// HistoryStore reads recorded swipes.
type HistoryStore struct {
	db DB
}

func NewHistoryStore(db DB) *HistoryStore {
	return &HistoryStore{db: db}
}

const interactionsSQL = `
SELECT job_id, action
FROM user_swipes
WHERE user_id = $1
  AND job_id = ANY($2)
  AND undone = false
ORDER BY created_at`

// GetInteractions returns the user's live (not undone) actions per job id,
// oldest first.
func (s *HistoryStore) GetInteractions(ctx context.Context, userID string, jobIDs []string) (map[string][]model.Action, error) {
	out := make(map[string][]model.Action)
	if len(jobIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.Query(ctx, interactionsSQL, userID, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("query user_swipes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var jobID, action string
		if err := rows.Scan(&jobID, &action); err != nil {
			return nil, fmt.Errorf("scan user_swipes: %w", err)
		}
		out[jobID] = append(out[jobID], model.Action(action))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user_swipes: %w", err)
	}
	return out, nil
}
