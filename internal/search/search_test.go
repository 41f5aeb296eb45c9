package search_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/search"
)

type SearchTestSuite struct {
	suite.Suite
	records []codex.Record
}

func TestSearchSuite(t *testing.T) {
	suite.Run(t, new(SearchTestSuite))
}

func (s *SearchTestSuite) SetupTest() {
	s.records = []codex.Record{
		{ID: "alpha-raptor", Name: "Alpha Raptor", Type: codex.DataTypeCreatures, Tier: "Alpha", Category: "Dinosaur",
			Attributes: map[string]any{"diet": "Carnivore"}},
		{ID: "beta-rex", Name: "Beta Rex", Type: codex.DataTypeCreatures, Tier: "Beta", Category: "Dinosaur",
			Attributes: map[string]any{"diet": "Carnivore"}},
		{ID: "primal-dodo", Name: "Primal Dodo", Type: codex.DataTypeCreatures, Tier: "Primal", Category: "Bird",
			Attributes: map[string]any{"diet": "Herbivore"}},
		{ID: "raptor", Name: "Raptor", Type: codex.DataTypeCreatures, Tier: "Common", Category: "Dinosaur"},
	}
}

func (s *SearchTestSuite) TestApply() {
	testCases := []struct {
		name    string
		filters codex.Filters
		wantIDs []string
	}{
		{"no filters", codex.Filters{}, []string{"alpha-raptor", "beta-rex", "primal-dodo", "raptor"}},
		{"any of tiers", codex.Filters{"tier": {"Alpha", "Beta"}}, []string{"alpha-raptor", "beta-rex"}},
		{"case insensitive", codex.Filters{"category": {"bird"}}, []string{"primal-dodo"}},
		{"attribute field", codex.Filters{"diet": {"Carnivore"}}, []string{"alpha-raptor", "beta-rex"}},
		{"every key must match", codex.Filters{"tier": {"Alpha"}, "category": {"Bird"}}, []string{}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			got := search.Apply(s.records, tc.filters)
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			s.Equal(tc.wantIDs, ids)
		})
	}
}

func (s *SearchTestSuite) TestSearchRanking() {
	got := search.Search(s.records, "raptor", 0)
	s.Require().Len(got, 2)
	s.Equal("raptor", got[0].Record.ID)
	s.Equal(1.0, got[0].Score)
	s.Equal("alpha-raptor", got[1].Record.ID)
	s.Equal(0.8, got[1].Score)

	prefix := search.Search(s.records, "bet", 0)
	s.Require().Len(prefix, 1)
	s.Equal(0.9, prefix[0].Score)
}

func (s *SearchTestSuite) TestSearchToleratesTypos() {
	got := search.Search(s.records, "dodp", 0)
	s.Require().Len(got, 1)
	s.Equal("primal-dodo", got[0].Record.ID)
	s.InDelta(0.64, got[0].Score, 0.0001)
}

func (s *SearchTestSuite) TestSearchLimitAndEmptyQuery() {
	s.Len(search.Search(s.records, "r", 1), 1)
	s.Empty(search.Search(s.records, "   ", 0))
	s.Empty(search.Search(s.records, "zzzzzz", 0))
}

func (s *SearchTestSuite) TestFacets() {
	s.Equal([]string{"Alpha", "Beta", "Common", "Primal"}, search.Facets(s.records, "tier"))
	s.Equal([]string{"Carnivore", "Herbivore"}, search.Facets(s.records, "diet"))
}
