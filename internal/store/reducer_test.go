package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/store"
)

type ReducerTestSuite struct {
	suite.Suite
	now time.Time
}

func TestReducerSuite(t *testing.T) {
	suite.Run(t, new(ReducerTestSuite))
}

func (s *ReducerTestSuite) SetupTest() {
	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ReducerTestSuite) TestReduce() {
	testCases := []struct {
		name   string
		action store.Action
		check  func(before, after store.State)
	}{
		{
			name:   "bucket loading",
			action: store.SetBucketLoading{Type: codex.DataTypeItems, Loading: true},
			check: func(before, after store.State) {
				s.True(after.Data[codex.DataTypeItems].Loading)
				s.False(before.Data[codex.DataTypeItems].Loading)
			},
		},
		{
			name:   "bucket error clears loading",
			action: store.SetBucketError{Type: codex.DataTypeBosses, Error: "offline"},
			check: func(_, after store.State) {
				s.Equal("offline", after.Data[codex.DataTypeBosses].Error)
				s.False(after.Data[codex.DataTypeBosses].Loading)
			},
		},
		{
			name: "bucket items mark fallback",
			action: store.SetBucketItems{
				Type:     codex.DataTypeBosses,
				Items:    []codex.Record{{ID: "b", Name: "B", Type: codex.DataTypeBosses}},
				Fallback: true,
			},
			check: func(_, after store.State) {
				b := after.Data[codex.DataTypeBosses]
				s.True(b.Fallback)
				s.Equal(s.now, b.LastUpdate)
				s.Len(b.Items, 1)
			},
		},
		{
			name:   "current view with params",
			action: store.SetCurrentView{View: "creature-detail", Params: map[string]string{"slug": "rex"}},
			check: func(_, after store.State) {
				s.Equal("creature-detail", after.UI.CurrentView)
				s.Equal("rex", after.UI.ViewParams["slug"])
			},
		},
		{
			name:   "search",
			action: store.SetSearch{Query: "rex", Results: []codex.Record{{ID: "rex", Name: "Rex"}}},
			check: func(_, after store.State) {
				s.Equal("rex", after.UI.SearchQuery)
				s.Len(after.UI.SearchResults, 1)
			},
		},
		{
			name:   "sidebar toggle",
			action: store.ToggleSidebar{},
			check: func(before, after store.State) {
				s.NotEqual(before.UI.SidebarOpen, after.UI.SidebarOpen)
			},
		},
		{
			name:   "app initialized",
			action: store.SetAppInitialized{},
			check: func(_, after store.State) {
				s.True(after.App.Initialized)
				s.Equal(s.now, after.App.LastUpdate)
			},
		},
		{
			name:   "app ready",
			action: store.SetAppReady{Ready: true},
			check: func(_, after store.State) {
				s.True(after.App.Ready)
			},
		},
		{
			name:   "fallback mode",
			action: store.SetFallbackMode{Enabled: true},
			check: func(_, after store.State) {
				s.True(after.App.FallbackMode)
			},
		},
		{
			name:   "app error",
			action: store.SetAppError{Error: "boom"},
			check: func(_, after store.State) {
				s.Equal("boom", after.App.Error)
			},
		},
		{
			name:   "invalidate cache",
			action: store.InvalidateCache{},
			check: func(_, after store.State) {
				s.True(after.Cache.Invalidated)
				s.Equal(s.now, after.Cache.InvalidatedAt)
			},
		},
		{
			name:   "nil action",
			action: nil,
			check: func(before, after store.State) {
				s.Equal(before, after)
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			before := store.InitialState(store.DefaultVersion)
			after := store.Reduce(before, tc.action, s.now)
			tc.check(before, after)
			s.NoError(store.Validate(after))
		})
	}
}

func (s *ReducerTestSuite) TestCacheVersionClearsInvalidation() {
	st := store.InitialState(store.DefaultVersion)
	st = store.Reduce(st, store.InvalidateCache{}, s.now)
	st = store.Reduce(st, store.SetCacheVersion{Version: 3}, s.now)

	s.Equal(3, st.Cache.Version)
	s.False(st.Cache.Invalidated)
}

func (s *ReducerTestSuite) TestValidateRejectsMissingBucket() {
	st := store.InitialState(store.DefaultVersion)
	delete(st.Data, codex.DataTypeResources)
	s.Error(store.Validate(st))
}
