package stream

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dealroom/internal/domain/models"
)

func TestChannelName(t *testing.T) {
	assert.Equal(t, "dealroom:deal-1", ChannelName("deal-1"))
}

func TestDecodeEvent(t *testing.T) {
	event := models.DealEvent{
		Type:    models.EventDealUpdated,
		DealID:  "deal-1",
		Version: 3,
		Deal:    &models.Deal{ID: "deal-1", Status: models.DealOpen, Version: 3},
		At:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	got, err := DecodeEvent(string(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
	assert.Equal(t, models.DealOpen, got.Deal.Status)

	_, err = DecodeEvent("not json")
	assert.Error(t, err)
	_, err = DecodeEvent(`{"version":1}`)
	assert.Error(t, err)
}

func TestDedupe(t *testing.T) {
	d := NewDedupe()
	d.Seed(&models.DealSnapshot{
		Deal:     &models.Deal{ID: "deal-1", Version: 4},
		Messages: []models.Message{{ID: "m1"}},
	})

	updated := func(v int64) models.DealEvent {
		return models.DealEvent{Type: models.EventDealUpdated, DealID: "deal-1", Version: v}
	}
	posted := func(id string) models.DealEvent {
		return models.DealEvent{Type: models.EventMessagePosted, DealID: "deal-1", Message: &models.Message{ID: id}}
	}

	assert.False(t, d.Allow(updated(3)))
	assert.False(t, d.Allow(updated(4)))
	assert.True(t, d.Allow(updated(6)))
	assert.False(t, d.Allow(updated(5)))
	assert.True(t, d.Allow(updated(7)))

	assert.False(t, d.Allow(posted("m1")))
	assert.True(t, d.Allow(posted("m2")))
	assert.False(t, d.Allow(posted("m2")))
	assert.False(t, d.Allow(models.DealEvent{Type: models.EventMessagePosted}))
	assert.False(t, d.Allow(models.DealEvent{Type: "unknown"}))
}
