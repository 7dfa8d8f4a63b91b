package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marketloft/sessiongate/internal/database"
	"github.com/marketloft/sessiongate/internal/model"
	"github.com/marketloft/sessiongate/internal/repository"
	"github.com/marketloft/sessiongate/internal/service"
)

type mockInstrumentRepo struct {
	mock.Mock
}

func (m *mockInstrumentRepo) ReplaceAll(ctx context.Context, instruments []model.Instrument) (int64, error) {
	args := m.Called(ctx, instruments)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInstrumentRepo) MaxUpdatedAt(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockInstrumentRepo) Query(ctx context.Context, filter model.InstrumentFilter) ([]model.Instrument, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Instrument), args.Error(1)
}

func (m *mockInstrumentRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockInstrumentRepo) WithTx(tx *sqlx.Tx) repository.InstrumentRepository {
	return m
}

type mockFeed struct {
	mock.Mock
}

func (m *mockFeed) FetchInstruments(ctx context.Context) ([]model.Instrument, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Instrument), args.Error(1)
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

func freshStamp() string {
	return time.Now().UTC().Add(time.Hour).Format(model.TimestampLayout)
}

func TestInstrumentQueryEndpoint(t *testing.T) {
	t.Run("maps query parameters onto the filter", func(t *testing.T) {
		repo := new(mockInstrumentRepo)
		feed := new(mockFeed)
		h := NewInstrumentHandler(service.NewInstrumentService(passthroughTx{}, repo, feed, time.UTC))

		repo.On("MaxUpdatedAt", mock.Anything).Return(freshStamp(), nil)
		repo.On("Query", mock.Anything, model.InstrumentFilter{
			Exchange:      "NSE",
			Tradingsymbol: "INFY",
			Limit:         10,
		}).Return([]model.Instrument{{Tradingsymbol: "INFY", Exchange: "NSE"}}, nil)

		req := httptest.NewRequest(http.MethodGet, "/?exchange=NSE&tradingsymbol=INFY&limit=10", nil)
		rec := httptest.NewRecorder()
		h.Query(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Count       int                `json:"count"`
			Instruments []model.Instrument `json:"instruments"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, "INFY", body.Instruments[0].Tradingsymbol)
		repo.AssertExpectations(t)
	})

	t.Run("storage failure is a 500 without internals", func(t *testing.T) {
		repo := new(mockInstrumentRepo)
		feed := new(mockFeed)
		h := NewInstrumentHandler(service.NewInstrumentService(passthroughTx{}, repo, feed, time.UTC))

		repo.On("MaxUpdatedAt", mock.Anything).Return(freshStamp(), nil)
		repo.On("Query", mock.Anything, mock.Anything).Return(nil, assert.AnError)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		h.Query(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
	})
}

func TestInstrumentRefreshEndpoint(t *testing.T) {
	t.Run("reports the rebuilt row count", func(t *testing.T) {
		repo := new(mockInstrumentRepo)
		feed := new(mockFeed)
		h := NewInstrumentHandler(service.NewInstrumentService(passthroughTx{}, repo, feed, time.UTC))

		feed.On("FetchInstruments", mock.Anything).Return([]model.Instrument{{Tradingsymbol: "INFY"}}, nil)
		repo.On("ReplaceAll", mock.Anything, mock.Anything).Return(int64(1), nil)

		req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
		rec := httptest.NewRecorder()
		h.Refresh(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var result service.RefreshResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.True(t, result.Refreshed)
		assert.Equal(t, int64(1), result.Count)
	})

	t.Run("upstream failure is a 502", func(t *testing.T) {
		repo := new(mockInstrumentRepo)
		feed := new(mockFeed)
		h := NewInstrumentHandler(service.NewInstrumentService(passthroughTx{}, repo, feed, time.UTC))

		feed.On("FetchInstruments", mock.Anything).Return(nil, assert.AnError)

		req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
		rec := httptest.NewRecorder()
		h.Refresh(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}
