package regionstate

import (
	"testing"
	"time"

	"RegionFeed/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRecomputesOnCommitAndFilter(t *testing.T) {
	s := NewStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	var published []*ViewState
	s.OnChange(func(v *ViewState) { published = append(published, v) })

	v0 := s.View()
	require.NotNil(t, v0)
	assert.Equal(t, 0, v0.Totals.Records)
	assert.Equal(t, models.StatusDisconnected, v0.Status)

	captured := now.Add(-time.Minute)
	s.Commit([]models.Record{
		rec("610103001", "a", "x", "100", 1),
		rec("610102005", "b", "y", "20", 2),
	}, captured)
	v1 := s.View()
	assert.Equal(t, 2, v1.Totals.Records)
	assert.Equal(t, captured, v1.CapturedAt)
	assert.Equal(t, now, v1.UpdatedAt)

	require.NoError(t, s.SetRegion("610103"))
	v2 := s.View()
	assert.Equal(t, 1, v2.Totals.Records)
	assert.Equal(t, "100", v2.Totals.Amount.String())
	// Earlier views are untouched.
	assert.Equal(t, 2, v1.Totals.Records)

	assert.ErrorIs(t, s.SetRegion(""), ErrInvalidRegion)
	assert.ErrorIs(t, s.SetRegion("6101"), ErrInvalidRegion)
	assert.ErrorIs(t, s.SetRegion("abcdef"), ErrInvalidRegion)
	assert.ErrorIs(t, s.SetRegion("999999"), ErrInvalidRegion)
	assert.Equal(t, "610103", s.View().Filter.Region)

	assert.ErrorIs(t, s.SetView("map"), ErrInvalidView)
	require.NoError(t, s.SetView(ViewStreets))
	assert.ErrorIs(t, s.SetSelectedDistrict("999999"), ErrInvalidRegion)
	require.NoError(t, s.SetSelectedDistrict("610103"))
	assert.Len(t, s.View().Streets, 1)
	require.NoError(t, s.SetSelectedDistrict(""))
	assert.Nil(t, s.View().Streets)

	s.SetStatus(models.StatusConnected)
	s.SetStatus(models.StatusConnected)
	assert.Equal(t, models.StatusConnected, s.View().Status)

	assert.Len(t, published, 6)
}

func TestStoreCommitCopiesRecords(t *testing.T) {
	s := NewStore()
	records := []models.Record{rec("610103001", "a", "x", "1", 1)}
	s.Commit(records, time.Time{})
	records[0].RegionCode = "999999999"
	assert.Equal(t, "610103001", s.View().Records[0].RegionCode)
}
