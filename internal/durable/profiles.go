package durable

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobmate/recommendation-service/internal/model"
)

// ProfileStore reads the parts of a user profile ranking needs.
type ProfileStore struct {
	db DB
}

func NewProfileStore(db DB) *ProfileStore {
	return &ProfileStore{db: db}
}

const profileSQL = `
SELECT u.id, COALESCE(u.skills, '{}'), COALESCE(u.location, ''),
       COALESCE(u.resume_parsed, '{}'::jsonb),
       COALESCE(ARRAY(
         SELECT e.title FROM user_experience e
         WHERE e.user_id = u.id
         ORDER BY e.start_date DESC
       ), '{}')
FROM users u
WHERE u.id = $1`

// GetProfile returns ErrNotFound when the user does not exist.
func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (model.UserProfile, error) {
	var p model.UserProfile
	err := s.db.QueryRow(ctx, profileSQL, userID).Scan(
		&p.ID, &p.Skills, &p.Location, &p.Resume, &p.ExperienceTitles,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.UserProfile{}, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("query users: %w", err)
	}
	return p, nil
}
