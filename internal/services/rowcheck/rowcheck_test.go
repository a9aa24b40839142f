package rowcheck

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegionFeed/internal/domain/models"
)

func good() models.Row {
	return models.Row{
		models.FieldRegionCode:    "610103001",
		models.FieldStreetName:    "柏树林街道",
		models.FieldCategoryName:  "餐饮",
		models.FieldSettledAmount: "100.50",
		models.FieldSettledCount:  "4",
	}
}

func TestCheckAcceptsCompleteRow(t *testing.T) {
	require.NoError(t, Check(good()))
	assert.True(t, Valid(good()))
}

func TestCheckRejects(t *testing.T) {
	cases := map[string]func(models.Row) models.Row{
		"nil row":            func(models.Row) models.Row { return nil },
		"missing region":     func(r models.Row) models.Row { delete(r, models.FieldRegionCode); return r },
		"null region":        func(r models.Row) models.Row { r[models.FieldRegionCode] = nil; return r },
		"short region":       func(r models.Row) models.Row { r[models.FieldRegionCode] = "61010"; return r },
		"numeric region":     func(r models.Row) models.Row { r[models.FieldRegionCode] = 610103001; return r },
		"missing street":     func(r models.Row) models.Row { delete(r, models.FieldStreetName); return r },
		"empty street":       func(r models.Row) models.Row { r[models.FieldStreetName] = ""; return r },
		"missing category":   func(r models.Row) models.Row { delete(r, models.FieldCategoryName); return r },
		"null category":      func(r models.Row) models.Row { r[models.FieldCategoryName] = nil; return r },
		"everything missing": func(models.Row) models.Row { return models.Row{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			err := Check(mutate(good()))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRejected))
		})
	}
}

func TestCheckAcceptsExactlySixChars(t *testing.T) {
	r := good()
	r[models.FieldRegionCode] = "610103"
	assert.NoError(t, Check(r))
}

func TestCheckIgnoresMeasures(t *testing.T) {
	r := good()
	r[models.FieldSettledAmount] = "abc"
	delete(r, models.FieldSettledCount)
	assert.NoError(t, Check(r))
}

func TestFilterPartialAcceptance(t *testing.T) {
	bad := good()
	delete(bad, models.FieldStreetName)
	second := good()
	second[models.FieldRegionCode] = "610102005"

	res := Filter([]models.Row{good(), bad, nil, second})

	assert.Equal(t, 2, res.Rejected)
	assert.Len(t, res.Reasons, 2)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "610103001", res.Records[0].RegionCode)
	assert.Equal(t, "610102005", res.Records[1].RegionCode)
	assert.Equal(t, "100.50", res.Records[0].SettledAmount.String())
}

func TestFilterEmpty(t *testing.T) {
	res := Filter(nil)
	assert.Empty(t, res.Records)
	assert.Zero(t, res.Rejected)
}
