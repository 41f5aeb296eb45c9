package codex_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
)

type FiltersTestSuite struct {
	suite.Suite
}

func TestFiltersSuite(t *testing.T) {
	suite.Run(t, new(FiltersTestSuite))
}

func (s *FiltersTestSuite) TestRoundTrip() {
	original := codex.Filters{"tier": {"Alpha", "Beta"}}

	parsed, err := codex.ParseFilters(original.Encode())
	s.Require().NoError(err)
	s.True(original.Equal(parsed))
	s.Equal("tier=Alpha&tier=Beta", original.Encode())
}

func (s *FiltersTestSuite) TestParseFilters() {
	testCases := []struct {
		name     string
		query    string
		skip     []string
		expected codex.Filters
		wantErr  bool
	}{
		{
			name:     "multiple keys",
			query:    "?tier=Alpha&category=Dinosaur",
			expected: codex.Filters{"tier": {"Alpha"}, "category": {"Dinosaur"}},
		},
		{
			name:     "blank values dropped",
			query:    "tier=&category=Dinosaur",
			expected: codex.Filters{"category": {"Dinosaur"}},
		},
		{
			name:     "skipped keys dropped",
			query:    "q=rex&tier=Alpha",
			skip:     []string{"q"},
			expected: codex.Filters{"tier": {"Alpha"}},
		},
		{
			name:    "malformed escape",
			query:   "tier=%zz",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			got, err := codex.ParseFilters(tc.query, tc.skip...)
			if tc.wantErr {
				s.Error(err)
				return
			}
			s.Require().NoError(err)
			s.True(tc.expected.Equal(got), "got %v", got)
		})
	}
}

func (s *FiltersTestSuite) TestEqualIgnoresEmptyKeys() {
	a := codex.Filters{"tier": {"Alpha"}, "diet": nil}
	b := codex.Filters{"tier": {"Alpha"}}
	s.True(a.Equal(b))
	s.False(a.Equal(codex.Filters{"tier": {"Beta"}}))
	s.False(a.Equal(codex.Filters{"tier": {"Alpha", "Beta"}}))
}

func (s *FiltersTestSuite) TestCloneIsDeep() {
	a := codex.Filters{"tier": {"Alpha"}}
	b := a.Clone()
	b["tier"][0] = "Beta"
	s.Equal("Alpha", a["tier"][0])
	s.True(codex.Filters(nil).Clone().IsEmpty())
}

func (s *FiltersTestSuite) TestMatches() {
	rec := &codex.Record{
		ID:         "rex",
		Name:       "Rex",
		Tier:       "Alpha",
		Category:   "Dinosaur",
		Attributes: map[string]any{"diet": "Carnivore", "level": 150.0},
	}

	s.True(codex.Filters{"tier": {"alpha", "Beta"}}.Matches(rec))
	s.True(codex.Filters{"diet": {"Carnivore"}, "category": {"Dinosaur"}}.Matches(rec))
	s.True(codex.Filters{"level": {"150"}}.Matches(rec))
	s.False(codex.Filters{"tier": {"Beta"}}.Matches(rec))
	s.False(codex.Filters{"location": {"Island"}}.Matches(rec))
	s.True(codex.Filters{}.Matches(rec))
}
