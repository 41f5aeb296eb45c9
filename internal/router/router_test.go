package router_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
	"github.com/KirkDiggler/rpg-codex/internal/gateway"
	gatewaymock "github.com/KirkDiggler/rpg-codex/internal/gateway/mock"
	"github.com/KirkDiggler/rpg-codex/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-codex/internal/pkg/idgen"
	"github.com/KirkDiggler/rpg-codex/internal/router"
	"github.com/KirkDiggler/rpg-codex/internal/store"
)

type RouterTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	gateway *gatewaymock.MockService
	store   store.Store
	router  router.Router
	ctx     context.Context
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.gateway = gatewaymock.NewMockService(s.ctrl)
	s.ctx = context.Background()

	fake := clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	st, err := store.New(&store.Config{Clock: fake, IDGenerator: idgen.NewSequential("tx")})
	s.Require().NoError(err)
	s.store = st

	r, err := router.New(&router.Config{
		Store:       st,
		Gateway:     s.gateway,
		Clock:       fake,
		IDGenerator: idgen.NewSequential("nav"),
		BaseURL:     "http://localhost:8080/",
	})
	s.Require().NoError(err)
	s.router = r
}

func (s *RouterTestSuite) TearDownTest() {
	s.router.Close()
	s.ctrl.Finish()
}

// text renders a fixed body followed by the params in sorted order
func text(body string) router.View {
	return router.ViewFunc(func(_ context.Context, w io.Writer, _ store.Store, params router.Params) error {
		_, err := io.WriteString(w, body)
		if slug := params["slug"]; slug != "" {
			_, err = fmt.Fprintf(w, ":%s", slug)
		}
		return err
	})
}

func (s *RouterTestSuite) register(routes ...router.Route) {
	for _, rt := range routes {
		s.Require().NoError(s.router.Register(rt))
	}
}

func (s *RouterTestSuite) expectData(t codex.DataType, origin gateway.Origin, records ...codex.Record) *gomock.Call {
	return s.gateway.EXPECT().
		GetData(gomock.Any(), &gateway.GetDataInput{Type: t}).
		Return(&gateway.GetDataOutput{Records: records, Origin: origin}, nil)
}

func creature(id string) codex.Record {
	return codex.Record{ID: id, Slug: id, Name: strings.ToUpper(id), Type: codex.DataTypeCreatures}
}

func (s *RouterTestSuite) TestNewValidatesConfig() {
	_, err := router.New(nil)
	s.Error(err)

	_, err = router.New(&router.Config{Store: s.store})
	s.Error(err)
}

func (s *RouterTestSuite) TestRegisterValidatesRoute() {
	testCases := []struct {
		name  string
		route router.Route
	}{
		{"missing pattern", router.Route{ViewID: "home", View: text("home")}},
		{"missing view id", router.Route{Pattern: "/", View: text("home")}},
		{"missing view", router.Route{Pattern: "/", ViewID: "home"}},
		{"unnamed parameter", router.Route{Pattern: "/items/:", ViewID: "item", View: text("item")}},
		{"unknown data type", router.Route{
			Pattern: "/weapons", ViewID: "weapons", View: text("weapons"),
			RequiredData: []codex.DataType{"weapons"},
		}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			err := s.router.Register(tc.route)
			s.True(errors.IsInvalidArgument(err), "got %v", err)
		})
	}

	s.register(router.Route{Pattern: "/", ViewID: "home", View: text("home")})
	err := s.router.Register(router.Route{Pattern: "/", ViewID: "home", View: text("home")})
	s.Equal(errors.CodeAlreadyExists, errors.GetCode(err))
}

func (s *RouterTestSuite) TestResolvePrecedence() {
	s.register(
		router.Route{Pattern: "/items/:slug", ViewID: "item-detail", View: text("detail")},
		router.Route{Pattern: "/items", ViewID: "items", View: text("list")},
		router.Route{Pattern: "/bosses/:slug", ViewID: "boss-first", View: text("first")},
		router.Route{Pattern: "/bosses/:id", ViewID: "boss-second", View: text("second")},
	)

	testCases := []struct {
		path       string
		wantView   string
		wantParams router.Params
		wantOK     bool
	}{
		{"/items", "items", router.Params{}, true},
		{"/items?tier=T1", "items", router.Params{}, true},
		{"/items/", "items", router.Params{}, true},
		{"/items/sword", "item-detail", router.Params{"slug": "sword"}, true},
		{"/bosses/dragon", "boss-first", router.Params{"slug": "dragon"}, true},
		{"/items/sword/extra", "", nil, false},
		{"/does-not-exist", "", nil, false},
	}

	for _, tc := range testCases {
		s.Run(tc.path, func() {
			rt, params, ok := s.router.Resolve(tc.path)
			s.Equal(tc.wantOK, ok)
			if !tc.wantOK {
				s.Nil(rt)
				return
			}
			s.Equal(tc.wantView, rt.ViewID)
			s.Equal(tc.wantParams, params)
		})
	}
}

func (s *RouterTestSuite) TestNavigateLifecycle() {
	var afterParams router.Params
	s.register(router.Route{
		Pattern:      "/creatures/:slug",
		ViewID:       "creature-detail",
		Title:        "Creature",
		Description:  "One creature",
		RequiredData: []codex.DataType{codex.DataTypeCreatures},
		View: router.ViewFunc(func(_ context.Context, w io.Writer, st store.Store, params router.Params) error {
			rec := codex.FindBySlug(st.Items(codex.DataTypeCreatures), params["slug"])
			if rec == nil {
				return errors.NotFound("no such creature")
			}
			_, err := io.WriteString(w, rec.Name)
			return err
		}),
		AfterNavigate: func(_ context.Context, params router.Params) error {
			afterParams = params
			return nil
		},
	})
	s.expectData(codex.DataTypeCreatures, gateway.OriginSource, creature("rex"))

	out := s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/creatures/rex"})

	s.NoError(out.Err)
	s.Equal(router.PhaseDone, out.Phase)
	s.Equal([]router.Phase{
		router.PhaseIdle,
		router.PhaseValidating,
		router.PhaseLoading,
		router.PhaseRendering,
		router.PhaseMetadata,
		router.PhaseDone,
	}, out.Trace)
	s.Equal("REX", out.Content)
	s.Equal(router.ScrollAuto, out.Scroll)
	s.Equal("Creature - Primal Fear Dex", out.Document.Title)
	s.Equal("One creature", out.Document.Description)
	s.Equal("http://localhost:8080/creatures/rex", out.Document.OpenGraph["og:url"])
	s.Equal(router.Params{"slug": "rex"}, afterParams)

	state := s.store.GetState()
	s.False(state.UI.Loading)
	s.Equal("creature-detail", state.UI.CurrentView)
	s.Equal("rex", state.UI.ViewParams["slug"])
	s.Len(state.Data[codex.DataTypeCreatures].Items, 1)

	current := s.router.Current()
	s.Require().NotNil(current)
	s.Equal("/creatures/rex", current.Path)
	s.Equal(out.Document, s.router.Document())

	entry, ok := s.router.History().Current()
	s.True(ok)
	s.Equal("/creatures/rex", entry.Path)
}

func (s *RouterTestSuite) TestNavigateUnknownPathRendersNotFoundRoute() {
	s.register(router.Route{
		Pattern: router.NotFoundPattern,
		ViewID:  "not-found",
		Title:   "Not Found",
		View: router.ViewFunc(func(_ context.Context, w io.Writer, _ store.Store, params router.Params) error {
			_, err := fmt.Fprintf(w, "missing %s", params["originalPath"])
			return err
		}),
	})

	var out *router.NavigateOutput
	s.NotPanics(func() {
		out = s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/does-not-exist"})
	})

	s.Equal(router.PhaseError, out.Phase)
	s.True(errors.IsNotFound(out.Err))
	s.Equal("missing /does-not-exist", out.Content)
	s.Equal("Not Found - Primal Fear Dex", out.Document.Title)
	s.Equal("Not Found - Primal Fear Dex", s.router.Document().Title)
	s.Equal("not-found", s.store.CurrentView())
	s.Len(s.router.Errors(), 1)
}

func (s *RouterTestSuite) TestNavigateUnknownPathWithoutNotFoundRoute() {
	out := s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/nowhere"})

	s.Equal(router.PhaseError, out.Phase)
	s.True(errors.IsNotFound(out.Err))
	s.Contains(out.Content, `class="generic-error"`)
	s.Contains(out.Content, `href="/"`)
	s.Equal("Primal Fear Dex", out.Document.Title)
}

func (s *RouterTestSuite) TestNavigateBlockedKeepsPreviousView() {
	s.register(
		router.Route{Pattern: "/", ViewID: "home", Title: "Home", View: text("home")},
		router.Route{
			Pattern:      "/bosses",
			ViewID:       "bosses",
			RequiredData: []codex.DataType{codex.DataTypeBosses},
			View:         text("bosses"),
			BeforeNavigate: func(context.Context, router.Params) (bool, error) {
				return false, nil
			},
		},
	)

	s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/"})
	out := s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/bosses?tier=Alpha"})

	s.True(out.Blocked)
	s.Equal(router.PhaseError, out.Phase)
	s.True(errors.IsAborted(out.Err))
	s.Equal("home", out.Content)
	s.Equal("home", s.store.CurrentView())
	s.Equal("/", s.router.Current().Path)
	s.Equal("Home - Primal Fear Dex", s.router.Document().Title)
	s.True(s.store.Filters().IsEmpty())
	s.Len(s.router.History().Entries(), 1)
}

func (s *RouterTestSuite) TestNavigateRenderFailureIsScoped() {
	s.register(
		router.Route{
			Pattern: "/broken",
			ViewID:  "broken",
			Title:   "Broken",
			View: router.ViewFunc(func(context.Context, io.Writer, store.Store, router.Params) error {
				panic("nil template")
			}),
		},
		router.Route{
			Pattern: "/failing",
			ViewID:  "failing",
			View: router.ViewFunc(func(context.Context, io.Writer, store.Store, router.Params) error {
				return errors.Internal("template error")
			}),
		},
		router.Route{Pattern: "/", ViewID: "home", View: text("home")},
	)

	for _, path := range []string{"/broken", "/failing"} {
		s.Run(path, func() {
			out := s.router.Navigate(s.ctx, &router.NavigateInput{Path: path})
			s.Equal(router.PhaseError, out.Phase)
			s.Equal(router.PhaseRendering, out.Trace[len(out.Trace)-2])
			s.True(errors.IsInternal(out.Err))
			s.Contains(out.Content, `class="component-error"`)
			s.Equal(out.Content, s.router.Page().Content)
			s.False(s.store.GetState().UI.Loading)
		})
	}

	out := s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/"})
	s.Equal(router.PhaseDone, out.Phase)
	s.Equal("home", out.Content)
}

func (s *RouterTestSuite) TestNavigatePanicInHookRendersGenericError() {
	s.register(router.Route{
		Pattern: "/trap",
		ViewID:  "trap",
		View:    text("trap"),
		BeforeNavigate: func(context.Context, router.Params) (bool, error) {
			panic("guard exploded")
		},
	})

	var out *router.NavigateOutput
	s.NotPanics(func() {
		out = s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/trap"})
	})
	s.Equal(router.PhaseError, out.Phase)
	s.True(errors.IsInternal(out.Err))
	s.Contains(out.Content, `class="generic-error"`)
	s.Contains(out.Content, `href="/trap"`)
	s.Equal(out.Content, s.router.Page().Content)
}

func (s *RouterTestSuite) TestFilterRoundTrip() {
	s.register(router.Route{
		Pattern:      "/creatures",
		ViewID:       "creatures",
		RequiredData: []codex.DataType{codex.DataTypeCreatures},
		View:         text("creatures"),
	})
	s.expectData(codex.DataTypeCreatures, gateway.OriginCache, creature("rex")).Times(2)

	want := codex.Filters{"tier": {"Alpha", "Beta"}}
	s.Require().NoError(s.store.Dispatch(store.SetFilters{Filters: want}))

	out := s.router.Navigate(s.ctx, &router.NavigateInput{
		Path: "/creatures?" + s.store.Filters().Encode() + "&q=rex",
	})
	s.Require().NoError(out.Err)
	s.True(want.Equal(s.store.Filters()), "got %v", s.store.Filters())
	s.Equal("rex", s.store.GetState().UI.SearchQuery)

	s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/creatures"})
	s.True(s.store.Filters().IsEmpty())
	s.Empty(s.store.GetState().UI.SearchQuery)
}

func (s *RouterTestSuite) TestNavigateFlagsFallbackData() {
	s.register(router.Route{
		Pattern:      "/",
		ViewID:       "home",
		RequiredData: []codex.DataType{codex.DataTypeCreatures, codex.DataTypeItems},
		View:         text("home"),
	})
	fallbackItem := codex.Record{ID: "sword", Name: "Sword", Type: codex.DataTypeItems, IsFallback: true}
	s.expectData(codex.DataTypeCreatures, gateway.OriginSource, creature("rex"))
	s.expectData(codex.DataTypeItems, gateway.OriginFallback, fallbackItem)

	out := s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/"})
	s.Require().NoError(out.Err)

	state := s.store.GetState()
	s.True(state.App.FallbackMode)
	s.True(state.Data[codex.DataTypeItems].Fallback)
	s.False(state.Data[codex.DataTypeCreatures].Fallback)
}

func (s *RouterTestSuite) TestSupersededNavigationDoesNotCommit() {
	s.register(
		router.Route{
			Pattern:      "/creatures",
			ViewID:       "creatures",
			RequiredData: []codex.DataType{codex.DataTypeCreatures},
			View:         text("creatures"),
		},
		router.Route{
			Pattern:      "/items",
			ViewID:       "items",
			RequiredData: []codex.DataType{codex.DataTypeItems},
			View:         text("items"),
		},
	)

	started := make(chan struct{})
	release := make(chan struct{})
	s.gateway.EXPECT().
		GetData(gomock.Any(), &gateway.GetDataInput{Type: codex.DataTypeCreatures}).
		DoAndReturn(func(context.Context, *gateway.GetDataInput) (*gateway.GetDataOutput, error) {
			close(started)
			<-release
			return &gateway.GetDataOutput{Records: []codex.Record{creature("rex")}, Origin: gateway.OriginSource}, nil
		})
	s.expectData(codex.DataTypeItems, gateway.OriginSource,
		codex.Record{ID: "sword", Name: "Sword", Type: codex.DataTypeItems})

	var (
		wg    sync.WaitGroup
		stale *router.NavigateOutput
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		stale = s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/creatures"})
	}()

	<-started
	fresh := s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/items"})
	close(release)
	wg.Wait()

	s.NoError(fresh.Err)
	s.True(stale.Superseded)
	s.True(errors.IsAborted(stale.Err))

	s.Empty(s.store.Items(codex.DataTypeCreatures))
	s.Len(s.store.Items(codex.DataTypeItems), 1)
	s.Equal("items", s.store.CurrentView())
	s.Equal("/items", s.router.Current().Path)
	s.Len(s.router.History().Entries(), 1)
}

func (s *RouterTestSuite) TestNotFoundClearsLoadingOfSupersededNavigation() {
	s.register(
		router.Route{
			Pattern:      "/creatures",
			ViewID:       "creatures",
			RequiredData: []codex.DataType{codex.DataTypeCreatures},
			View:         text("creatures"),
		},
		router.Route{Pattern: router.NotFoundPattern, ViewID: "not-found", View: text("missing")},
	)

	started := make(chan struct{})
	release := make(chan struct{})
	s.gateway.EXPECT().
		GetData(gomock.Any(), &gateway.GetDataInput{Type: codex.DataTypeCreatures}).
		DoAndReturn(func(context.Context, *gateway.GetDataInput) (*gateway.GetDataOutput, error) {
			close(started)
			<-release
			return &gateway.GetDataOutput{Records: []codex.Record{creature("rex")}, Origin: gateway.OriginSource}, nil
		})

	var (
		wg    sync.WaitGroup
		stale *router.NavigateOutput
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		stale = s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/creatures"})
	}()

	<-started
	s.True(s.store.GetState().UI.Loading)

	missing := s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/nope"})
	s.True(errors.IsNotFound(missing.Err))
	s.Equal("not-found", s.store.CurrentView())
	s.False(s.store.GetState().UI.Loading)

	close(release)
	wg.Wait()

	s.True(stale.Superseded)
	s.False(s.store.GetState().UI.Loading)
	s.Equal("/nope", s.router.Current().Path)
}

func (s *RouterTestSuite) TestHandleLinkClick() {
	s.register(router.Route{Pattern: "/items", ViewID: "items", View: text("items")})

	testCases := []struct {
		name        string
		href        string
		optOut      bool
		wantHandled bool
	}{
		{"internal link", "/items", false, true},
		{"opted out", "/items", true, false},
		{"external link", "https://wiki.example.com/items", false, false},
		{"protocol relative", "//cdn.example.com/app.js", false, false},
		{"relative link", "items", false, false},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			out, handled := s.router.HandleLinkClick(s.ctx, tc.href, tc.optOut)
			s.Equal(tc.wantHandled, handled)
			if tc.wantHandled {
				s.Require().NotNil(out)
				s.Equal("items", out.Content)
			} else {
				s.Nil(out)
			}
		})
	}
}

func (s *RouterTestSuite) TestHistoryNavigation() {
	s.register(
		router.Route{Pattern: "/", ViewID: "home", View: text("home")},
		router.Route{Pattern: "/items", ViewID: "items", View: text("items")},
	)

	s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/"})
	s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/items"})

	out, ok := s.router.Back(s.ctx)
	s.Require().True(ok)
	s.Equal("home", out.Content)
	s.Equal(router.ScrollPreserve, out.Scroll)
	s.Len(s.router.History().Entries(), 2)

	_, ok = s.router.Back(s.ctx)
	s.False(ok)

	pop := s.router.HandlePopState(s.ctx, "/items")
	s.Equal("items", pop.Content)
	s.Len(s.router.History().Entries(), 2)

	s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/", Replace: true})
	entries := s.router.History().Entries()
	s.Len(entries, 2)
}

func (s *RouterTestSuite) TestStateObserverRerenders() {
	view := &sidebarView{}
	s.register(router.Route{Pattern: "/", ViewID: "home", View: view})

	var pages []router.Page
	unsubscribe := s.router.OnPage(func(p router.Page) { pages = append(pages, p) })
	defer unsubscribe()

	s.router.Navigate(s.ctx, &router.NavigateInput{Path: "/"})
	s.Require().NoError(s.store.Dispatch(store.ToggleSidebar{}))

	s.Require().Len(pages, 2)
	s.Equal("sidebar=false", pages[0].Content)
	s.Equal("sidebar=true", pages[1].Content)
	s.Equal("sidebar=true", s.router.Page().Content)
}

type sidebarView struct{}

func (v *sidebarView) Render(_ context.Context, w io.Writer, st store.Store, _ router.Params) error {
	_, err := fmt.Fprintf(w, "sidebar=%t", st.GetState().UI.SidebarOpen)
	return err
}

func (v *sidebarView) OnStateChange(store.State) bool {
	return true
}
