package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
	"github.com/KirkDiggler/rpg-codex/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-codex/internal/repositories/storage"
)

type InMemoryStorageTestSuite struct {
	suite.Suite
	clock *clock.Fake
	repo  *storage.InMemoryRepository
	ctx   context.Context
}

func TestInMemoryStorageSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStorageTestSuite))
}

func (s *InMemoryStorageTestSuite) SetupTest() {
	s.clock = clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	s.repo = storage.NewInMemory(s.clock)
	s.ctx = context.Background()
}

func (s *InMemoryStorageTestSuite) TestRoundTripRecords() {
	records := []codex.Record{{ID: "rex", Name: "Rex", Type: codex.DataTypeCreatures, Slug: "rex"}}
	key := storage.DataKey(codex.DataTypeCreatures)
	s.Equal("data_creatures", key)

	_, err := s.repo.Set(s.ctx, storage.SetInput{Key: key, Value: records})
	s.Require().NoError(err)

	var got []codex.Record
	found, err := storage.Load(s.ctx, s.repo, key, &got)
	s.Require().NoError(err)
	s.True(found)
	s.Equal(records, got)
}

func (s *InMemoryStorageTestSuite) TestTTL() {
	_, err := s.repo.Set(s.ctx, storage.SetInput{Key: "k", Value: 1, TTL: time.Hour})
	s.Require().NoError(err)

	s.clock.Advance(59 * time.Minute)
	_, err = s.repo.Get(s.ctx, storage.GetInput{Key: "k"})
	s.NoError(err)

	s.clock.Advance(time.Minute)
	_, err = s.repo.Get(s.ctx, storage.GetInput{Key: "k"})
	s.True(errors.IsNotFound(err))
}

func (s *InMemoryStorageTestSuite) TestDecodeMismatch() {
	_, err := s.repo.Set(s.ctx, storage.SetInput{Key: "k", Value: "text"})
	s.Require().NoError(err)

	var n int
	_, err = storage.Load(s.ctx, s.repo, "k", &n)
	s.Equal(errors.CodeDataLoss, errors.GetCode(err))
}

func (s *InMemoryStorageTestSuite) TestDelete() {
	_, err := s.repo.Delete(s.ctx, storage.DeleteInput{Key: "missing"})
	s.True(errors.IsNotFound(err))

	_, err = s.repo.Set(s.ctx, storage.SetInput{Key: "k", Value: 1})
	s.Require().NoError(err)
	_, err = s.repo.Delete(s.ctx, storage.DeleteInput{Key: "k"})
	s.NoError(err)
}
