package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-booking-engine/internal/model"
)

func TestSeatCache(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewSeatCache(rdb, "", 0)
	ctx := context.Background()
	seats := model.SeatMap{"A1": {BookingID: "b1", HolderID: "x", Status: model.SeatConfirmed}}
	raw, err := json.Marshal(seats)
	require.NoError(t, err)

	mock.ExpectGet("seats:S1").RedisNil()
	mock.ExpectSet("seats:S1", raw, 2*time.Second).SetVal("OK")
	mock.ExpectGet("seats:S1").SetVal(string(raw))
	mock.ExpectDel("seats:S1").SetVal(1)
	mock.ExpectGet("seats:S2").SetErr(errors.New("connection reset"))

	_, ok := c.Get(ctx, "S1")
	assert.False(t, ok)
	require.NoError(t, c.Set(ctx, "S1", seats))
	got, ok := c.Get(ctx, "S1")
	require.True(t, ok)
	assert.Equal(t, seats, got)
	require.NoError(t, c.Invalidate(ctx, "S1"))
	_, ok = c.Get(ctx, "S2")
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNilSeatCache(t *testing.T) {
	c := NewSeatCache(nil, "seats", time.Second)
	require.Nil(t, c)
	ctx := context.Background()

	_, ok := c.Get(ctx, "S1")
	assert.False(t, ok)
	assert.NoError(t, c.Set(ctx, "S1", model.SeatMap{}))
	assert.NoError(t, c.Invalidate(ctx, "S1"))
}
