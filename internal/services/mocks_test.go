package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"seriesframe/pkg/contracts/domain"
)

// MockProvider is a mock implementation of marketdata.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) FetchPeriod(ctx context.Context, symbol, period string) ([]domain.Bar, error) {
	args := m.Called(ctx, symbol, period)
	bars, _ := args.Get(0).([]domain.Bar)
	return bars, args.Error(1)
}

func (m *MockProvider) FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	args := m.Called(ctx, symbol, start, end)
	bars, _ := args.Get(0).([]domain.Bar)
	return bars, args.Error(1)
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

// series returns one bar per day starting at first with the given closes
func series(symbol string, first int, closes ...float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{Symbol: symbol, Time: day(first + i), Open: c, High: c, Low: c, Close: c, Volume: 100}
	}
	return bars
}
