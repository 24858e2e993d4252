package durable

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/recommendation-service/internal/model"
)

var postingCols = []string{
	"id", "title", "company_name", "description", "requirements", "employment_type",
	"salary_min", "salary_max", "salary_currency", "salary_public",
	"city", "state", "country", "remote", "skills_required", "posted_at", "expires_at",
}

func timePtr(t time.Time) *time.Time { return &t }

func TestQueryActivePostings(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	posted := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows(postingCols).
		AddRow("p1", "Go Engineer", "Acme", "Build things", []string{"3y Go"}, "full_time",
			100000, 140000, "USD", true, "Austin", "TX", "USA", false, []string{"go", "sql"},
			timePtr(posted), (*time.Time)(nil)).
		AddRow("p2", "", "Acme", "", []string{}, "contract",
			0, 0, "USD", false, "", "", "", true, []string{},
			timePtr(posted), (*time.Time)(nil)).
		AddRow("p3", "Remote SRE", "Acme", "", []string{}, "Contractor",
			0, 0, "USD", false, "", "", "", true, []string{"k8s"},
			(*time.Time)(nil), timePtr(posted.Add(720*time.Hour)))

	mock.ExpectQuery("SELECT .+ FROM job_postings p").
		WithArgs("contract", 50).
		WillReturnRows(rows)

	s := NewPostingStore(mock, nil)
	jobs, err := s.QueryActivePostings(context.Background(), model.Filters{JobType: "Contract"}, 50)
	require.NoError(t, err)
	require.Len(t, jobs, 2, "row without a title is skipped")

	assert.Equal(t, "p1", jobs[0].ID)
	assert.Equal(t, model.SourceDurable, jobs[0].Source)
	assert.Equal(t, model.PriorityDurable, jobs[0].Priority)
	assert.Equal(t, model.EmploymentFullTime, jobs[0].EmploymentType)
	assert.Equal(t, "Austin, TX, USA", jobs[0].Location.String())
	assert.Equal(t, posted, jobs[0].PostedAt)
	assert.True(t, jobs[0].Trusted)
	assert.Equal(t, "No", jobs[0].RemoteWork)

	assert.Equal(t, model.EmploymentContract, jobs[1].EmploymentType)
	assert.Equal(t, "Yes", jobs[1].RemoteWork)
	assert.False(t, jobs[1].ExpiresAt.IsZero())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryActivePostingsNoFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM job_postings p").
		WithArgs("", 10).
		WillReturnRows(pgxmock.NewRows(postingCols))

	jobs, err := NewPostingStore(mock, nil).QueryActivePostings(context.Background(), model.Filters{}, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryActivePostingsError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM job_postings p").
		WithArgs("", 10).
		WillReturnError(errors.New("connection refused"))

	_, err = NewPostingStore(mock, nil).QueryActivePostings(context.Background(), model.Filters{}, 10)
	assert.ErrorContains(t, err, "connection refused")
}

func TestGetInteractions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ids := []string{"j1", "j2", "j3"}
	mock.ExpectQuery("SELECT job_id, action FROM user_swipes").
		WithArgs("u1", ids).
		WillReturnRows(pgxmock.NewRows([]string{"job_id", "action"}).
			AddRow("j1", "like").
			AddRow("j2", "dislike").
			AddRow("j1", "apply"))

	got, err := NewHistoryStore(mock).GetInteractions(context.Background(), "u1", ids)
	require.NoError(t, err)
	assert.Equal(t, map[string][]model.Action{
		"j1": {model.ActionLike, model.ActionApply},
		"j2": {model.ActionDislike},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInteractionsNoIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	got, err := NewHistoryStore(mock).GetInteractions(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfile(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM users u").
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "skills", "location", "resume", "titles"}).
			AddRow("u1", []string{"Go", "Postgres"}, "Austin, TX",
				map[string]any{"summary": "backend engineer"}, []string{"Software Engineer"}))

	p, err := NewProfileStore(mock).GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, []string{"Go", "Postgres"}, p.Skills)
	assert.Equal(t, []string{"Software Engineer"}, p.ExperienceTitles)
	assert.Equal(t, "backend engineer", p.Resume["summary"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfileNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM users u").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewProfileStore(mock).GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("SELECT 1").WillReturnResult(pgconn.NewCommandTag("SELECT 1"))
	require.NoError(t, Ping(context.Background(), mock))
	require.NoError(t, mock.ExpectationsWereMet())
}
