package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-codex/internal/app"
	"github.com/KirkDiggler/rpg-codex/internal/config"
	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
	"github.com/KirkDiggler/rpg-codex/internal/fallback"
	"github.com/KirkDiggler/rpg-codex/internal/handlers/web"
	"github.com/KirkDiggler/rpg-codex/internal/repositories/storage"
	"github.com/KirkDiggler/rpg-codex/internal/router"
	"github.com/KirkDiggler/rpg-codex/internal/testutils"
)

type AppTestSuite struct {
	suite.Suite
	data     *testutils.DataServer
	settings *config.Config
	ctx      context.Context
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppTestSuite))
}

func (s *AppTestSuite) SetupTest() {
	s.data = testutils.NewDataServer(s.T(), web.DataRoutes(fallback.MustLoad()))
	s.ctx = context.Background()

	s.settings = config.Default()
	s.settings.Data.SourceURL = s.data.URL
	s.settings.Data.MaxAttempts = 1
	s.settings.Data.RetryDelay = time.Millisecond
	s.settings.Sync.Stagger = time.Millisecond
}

func (s *AppTestSuite) newApp(repo storage.Repository) *app.App {
	a, err := app.New(&app.Config{Settings: s.settings, Storage: repo})
	s.Require().NoError(err)
	s.T().Cleanup(a.Close)
	return a
}

func (s *AppTestSuite) TestNewRejectsInvalidSettings() {
	s.settings.Storage.Driver = "sqlite"
	a, err := app.New(&app.Config{Settings: s.settings})
	s.Error(err)
	s.Nil(a)
	s.True(errors.IsInvalidArgument(err))
}

func (s *AppTestSuite) TestBootstrapLoadsEssentialData() {
	a := s.newApp(nil)

	out, err := a.Bootstrap(s.ctx)
	s.Require().NoError(err)
	s.True(out.FirstVisit)
	s.Empty(out.Restored)
	s.Equal([]codex.DataType{codex.DataTypeCreatures, codex.DataTypeItems}, out.Loaded)
	s.False(out.FallbackMode)
	s.NoError(a.BootstrapError())

	state := a.Store.GetState()
	s.True(state.App.Initialized)
	s.True(state.App.Ready)
	s.NotEmpty(state.Data[codex.DataTypeCreatures].Items)
	s.False(state.Data[codex.DataTypeCreatures].Fallback)
	s.Empty(state.Data[codex.DataTypeBosses].Items)
}

func (s *AppTestSuite) TestBootstrapFallsBackWhenSourceIsDown() {
	s.data.SetDown(true)
	a := s.newApp(nil)

	out, err := a.Bootstrap(s.ctx)
	s.Require().NoError(err)
	s.True(out.FallbackMode)

	state := a.Store.GetState()
	s.True(state.App.Ready)
	s.True(state.Data[codex.DataTypeCreatures].Fallback)
	s.Equal(fallback.MustLoad().Records(codex.DataTypeCreatures), state.Data[codex.DataTypeCreatures].Items)

	_, err = a.Storage.Get(s.ctx, storage.GetInput{Key: storage.DataKey(codex.DataTypeCreatures)})
	s.True(errors.IsNotFound(err))
}

func (s *AppTestSuite) TestBootstrapRestoresPersistedData() {
	client, cleanup := testutils.CreateTestRedisClient(s.T())
	defer cleanup()
	repo, err := storage.NewRedis(&storage.RedisConfig{Client: client})
	s.Require().NoError(err)

	_, err = s.newApp(repo).Bootstrap(s.ctx)
	s.Require().NoError(err)

	s.data.SetDown(true)
	requests := s.data.Requests()

	out, err := s.newApp(repo).Bootstrap(s.ctx)
	s.Require().NoError(err)
	s.False(out.FirstVisit)
	s.Equal([]codex.DataType{codex.DataTypeCreatures, codex.DataTypeItems}, out.Restored)
	s.Empty(out.Loaded)
	s.False(out.FallbackMode)
	s.Equal(requests, s.data.Requests())
}

func (s *AppTestSuite) TestRouteTable() {
	a := s.newApp(nil)
	_, err := a.Bootstrap(s.ctx)
	s.Require().NoError(err)

	testCases := []struct {
		name     string
		path     string
		code     errors.Code
		blocked  bool
		title    string
		contains string
	}{
		{
			name:     "home",
			path:     "/",
			title:    "Primal Fear Dex",
			contains: "type-grid",
		},
		{
			name:     "list",
			path:     "/creatures",
			title:    "Creatures - Primal Fear Dex",
			contains: "Alpha Raptor",
		},
		{
			name:     "detail",
			path:     "/creatures/alpha-raptor",
			title:    "Creature - Primal Fear Dex",
			contains: "<h1>Alpha Raptor</h1>",
		},
		{
			name:     "missing record renders a scoped panel",
			path:     "/creatures/no-such-creature",
			code:     errors.CodeInternal,
			contains: "component-error",
		},
		{
			name:    "malformed slug is vetoed",
			path:    "/creatures/Alpha_Raptor",
			code:    errors.CodeAborted,
			blocked: true,
		},
		{
			name:     "unknown path",
			path:     "/dragons",
			code:     errors.CodeNotFound,
			title:    "Page not found - Primal Fear Dex",
			contains: "<code>/dragons</code>",
		},
		{
			name:     "static page",
			path:     "/calculators",
			title:    "Calculators - Primal Fear Dex",
			contains: `href="/calculators/breeding"`,
		},
		{
			name:     "taming calculator",
			path:     "/calculators/taming",
			title:    "Taming Calculator - Primal Fear Dex",
			contains: `<option value="alpha-raptor">Alpha Raptor</option>`,
		},
		{
			name:     "crafting calculator",
			path:     "/calculators/crafting",
			title:    "Crafting Calculator - Primal Fear Dex",
			contains: "<h1>Crafting Calculator</h1>",
		},
		{
			name:     "tip category",
			path:     "/tips/bosses",
			title:    "Tips - Primal Fear Dex",
			contains: "<h1>Tips: Bosses</h1>",
		},
		{
			name:     "unknown tip category",
			path:     "/tips/fishing",
			code:     errors.CodeInternal,
			contains: "component-error",
		},
		{
			name:     "tiers",
			path:     "/tiers",
			title:    "Tiers - Primal Fear Dex",
			contains: `<a href="/tiers/alpha">Alpha</a> <span class="count">2</span>`,
		},
		{
			name:     "tier detail",
			path:     "/tiers/alpha",
			title:    "Tier - Primal Fear Dex",
			contains: `<a href="/creatures/alpha-megalodon">Alpha Megalodon</a>`,
		},
		{
			name:    "malformed tier is vetoed",
			path:    "/tiers/Alpha",
			code:    errors.CodeAborted,
			blocked: true,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			out := a.Router.Navigate(s.ctx, &router.NavigateInput{Path: tc.path})
			if tc.code == "" {
				s.Require().NoError(out.Err)
			} else {
				s.Equal(tc.code, errors.GetCode(out.Err))
			}
			s.Equal(tc.blocked, out.Blocked)
			if tc.title != "" {
				s.Equal(tc.title, out.Document.Title)
			}
			if tc.contains != "" {
				s.Contains(out.Content, tc.contains)
			}
		})
	}
}

func (s *AppTestSuite) TestListNavigationPersistsFilters() {
	a := s.newApp(nil)
	_, err := a.Bootstrap(s.ctx)
	s.Require().NoError(err)

	out := a.Router.Navigate(s.ctx, &router.NavigateInput{Path: "/creatures?tier=Alpha"})
	s.Require().NoError(out.Err)

	var saved codex.Filters
	found, err := storage.Load(s.ctx, a.Storage, storage.KeyCurrentFilters, &saved)
	s.Require().NoError(err)
	s.True(found)
	s.Equal(codex.Filters{"tier": {"Alpha"}}, saved)
}

func (s *AppTestSuite) TestStartPreloadsRemainingTypes() {
	a := s.newApp(nil)
	_, err := a.Bootstrap(s.ctx)
	s.Require().NoError(err)

	a.Start(s.ctx)

	s.Eventually(func() bool {
		for _, t := range codex.AllDataTypes() {
			if len(a.Store.Items(t)) == 0 {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	a.Close()
}
