package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheFieldsRoundTrip(t *testing.T) {
	posted := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	in := JobRecord{
		ID:             "job-1",
		Title:          "Platform Engineer",
		Company:        "Acme",
		Requirements:   []string{"5+ years Go"},
		Location:       Location{City: "Austin", State: "TX", Country: "USA"},
		EmploymentType: EmploymentContract,
		Skills:         []string{"go", "kubernetes"},
		Salary:         SalaryRange{Min: 100, Max: 200, Currency: "USD", Public: true},
		Trusted:        true,
		PostedAt:       posted,
	}
	in = in.WithSource(SourceFresh)

	f := ToCacheFields(in)
	assert.Equal(t, "Austin, TX, USA", f[FieldLocation])
	assert.Equal(t, "fresh", f[FieldOrigin])

	out, err := FromCache(f)
	require.NoError(t, err)

	assert.Equal(t, SourceCached, out.Source)
	assert.Equal(t, PriorityCached, out.Priority)
	assert.Equal(t, in.Location, out.Location)
	assert.Equal(t, in.Skills, out.Skills)
	assert.Equal(t, in.Salary, out.Salary)
	assert.Equal(t, posted, out.PostedAt)
	assert.True(t, out.ExpiresAt.IsZero())
}

func TestFromCacheMalformed(t *testing.T) {
	_, err := FromCache(map[string]string{FieldID: "x", FieldTitle: "t", FieldSkills: "{not json"})
	assert.ErrorIs(t, err, ErrMalformedRecord)

	_, err = FromCache(map[string]string{FieldID: "x", FieldTitle: "t", FieldSalaryMin: "lots"})
	assert.ErrorIs(t, err, ErrMalformedRecord)

	_, err = FromCache(map[string]string{FieldID: "x"})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}
