// Package mocks provides mock expectation helpers for common testing patterns
package mocks

import (
	"time"

	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
	"github.com/KirkDiggler/rpg-codex/internal/gateway"
	gatewaymock "github.com/KirkDiggler/rpg-codex/internal/gateway/mock"
)

// ExpectLiveData sets up one gateway fetch of t answered by the primary source
func ExpectLiveData(m *gatewaymock.MockService, t codex.DataType, fetchedAt time.Time, records []codex.Record) *gomock.Call {
	return m.EXPECT().
		GetData(gomock.Any(), &gateway.GetDataInput{Type: t}).
		Return(&gateway.GetDataOutput{
			Records:    records,
			Origin:     gateway.OriginSource,
			Confidence: 1.0,
			FetchedAt:  fetchedAt,
			Attempts:   1,
		}, nil)
}

// ExpectFallbackData sets up one gateway fetch of t answered with the bundled
// records after the sources failed
func ExpectFallbackData(m *gatewaymock.MockService, t codex.DataType, records []codex.Record) *gomock.Call {
	marked := make([]codex.Record, len(records))
	for i, r := range records {
		r.IsFallback = true
		marked[i] = r
	}
	return m.EXPECT().
		GetData(gomock.Any(), &gateway.GetDataInput{Type: t}).
		Return(&gateway.GetDataOutput{
			Records:   marked,
			Origin:    gateway.OriginFallback,
			Attempts:  3,
			LastError: errors.Unavailable("data source unavailable"),
		}, nil)
}
