package wiki_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-codex/internal/clients/wiki"
	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
	"github.com/KirkDiggler/rpg-codex/internal/gateway"
	"github.com/KirkDiggler/rpg-codex/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-codex/internal/repositories/storage"
)

const creaturesPage = `<!DOCTYPE html>
<html><body>
<div class="toolbar"><a href="/wiki/Creatures?action=edit">Edit</a></div>
<table class="article-table wikitable sortable">
  <tr><th>Name</th><th>Tier</th><th>Diet</th><th>Base Level</th></tr>
  <tr><td><a href="/wiki/Alpha_Raptor">Alpha Raptor</a></td><td>Alpha</td><td>Carnivore</td><td>150</td></tr>
  <tr><td>Beta Rex</td><td>Beta</td><td>Carnivore</td><td>1,200</td></tr>
  <tr><td>View source</td><td>-</td><td>-</td><td>-</td></tr>
  <tr><td>X</td><td>Alpha</td><td>Carnivore</td><td>1</td></tr>
</table>
<table class="wikitable"><tr><th>Other</th></tr><tr><td>Ignored Row</td></tr></table>
</body></html>`

type ClientTestSuite struct {
	suite.Suite
	ctx   context.Context
	clock *clock.Fake
	hits  atomic.Int32
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	s.hits.Store(0)
}

func (s *ClientTestSuite) newClient(handler http.HandlerFunc, repo storage.Repository) *wiki.Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		handler(w, r)
	}))
	s.T().Cleanup(srv.Close)

	c, err := wiki.New(&wiki.Config{BaseURL: srv.URL, Storage: repo, Clock: s.clock})
	s.Require().NoError(err)
	return c
}

func (s *ClientTestSuite) TestFetchRecordsExtractsFirstTable() {
	var gotPath string
	c := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(creaturesPage))
	}, nil)

	raw, err := c.FetchRecords(s.ctx, codex.DataTypeCreatures)
	s.Require().NoError(err)
	s.Equal("/wiki/Creatures", gotPath)
	s.Require().Len(raw, 2)

	first := raw[0].(map[string]any)
	s.Equal("alpha-raptor", first["id"])
	s.Equal("Alpha Raptor", first["name"])
	s.Equal("Alpha", first["tier"])
	s.Equal("Carnivore", first["diet"])
	s.Equal(150.0, first["base_level"])
	s.Equal("creature", first["category"])
	s.True(strings.HasSuffix(first["wiki_url"].(string), "/wiki/Alpha_Raptor"))

	second := raw[1].(map[string]any)
	s.Equal(1200.0, second["base_level"])
}

func (s *ClientTestSuite) TestRowsPassGatewaySchema() {
	c := s.newClient(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(creaturesPage))
	}, nil)

	raw, err := c.FetchRecords(s.ctx, codex.DataTypeCreatures)
	s.Require().NoError(err)

	records := gateway.Materialize(codex.DataTypeCreatures, raw)
	s.Len(records, 2)
}

func (s *ClientTestSuite) TestFetchRecordsErrors() {
	testCases := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode errors.Code
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantCode: errors.CodeUnavailable,
		},
		{
			name: "no table",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<html><body><p>moved</p></body></html>"))
			},
			wantCode: errors.CodeNotFound,
		},
		{
			name: "header only table",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<table class="wikitable"><tr><th>Name</th></tr></table>`))
			},
			wantCode: errors.CodeNotFound,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			c := s.newClient(tc.handler, nil)
			raw, err := c.FetchRecords(s.ctx, codex.DataTypeItems)
			s.Nil(raw)
			s.Equal(tc.wantCode, errors.GetCode(err))
		})
	}
}

func (s *ClientTestSuite) TestFetchRecordsUsesStorageCache() {
	repo := storage.NewInMemory(s.clock)
	c := s.newClient(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(creaturesPage))
	}, repo)

	_, err := c.FetchRecords(s.ctx, codex.DataTypeCreatures)
	s.Require().NoError(err)

	s.clock.Advance(23 * time.Hour)
	raw, err := c.FetchRecords(s.ctx, codex.DataTypeCreatures)
	s.Require().NoError(err)
	s.Len(raw, 2)
	s.Equal(int32(1), s.hits.Load())

	s.clock.Advance(2 * time.Hour)
	_, err = c.FetchRecords(s.ctx, codex.DataTypeCreatures)
	s.Require().NoError(err)
	s.Equal(int32(2), s.hits.Load())
}

func (s *ClientTestSuite) TestFetchRecordsRejectsUnknownType() {
	c := s.newClient(func(http.ResponseWriter, *http.Request) {}, nil)
	_, err := c.FetchRecords(s.ctx, "weapons")
	s.True(errors.IsInvalidArgument(err))
	s.Equal(int32(0), s.hits.Load())
}
