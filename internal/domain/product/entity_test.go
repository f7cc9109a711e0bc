package product

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dropsight/dropsight/pkg/errors"
	"github.com/dropsight/dropsight/pkg/types/common"
)

func validRecord() Record {
	return Record{
		ID:           "P1",
		Name:         "LED strip light",
		Niche:        "electronics",
		Price:        50,
		SupplierCost: 20,
	}
}

func TestValidateOK(t *testing.T) {
	assert.NoError(t, validRecord().Validate())
}

func TestValidateMissingID(t *testing.T) {
	r := validRecord()
	r.ID = ""
	err := r.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestValidateNonPositivePrice(t *testing.T) {
	for _, price := range []float64{0, -10} {
		r := validRecord()
		r.Price = price
		err := r.Validate()
		require.Error(t, err, price)
		assert.True(t, apperrors.IsValidation(err))
	}
}

func TestValidateNegativeSupplierCost(t *testing.T) {
	r := validRecord()
	r.SupplierCost = -1
	assert.True(t, apperrors.IsValidation(r.Validate()))
}

func TestValidateReturnRateRange(t *testing.T) {
	r := validRecord()
	r.Attributes.ReturnRate = Float(1.2)
	assert.True(t, apperrors.IsValidation(r.Validate()))

	r.Attributes.ReturnRate = Float(0.12)
	assert.NoError(t, r.Validate())
}

func TestGrossMargin(t *testing.T) {
	r := validRecord()
	m, ok := r.GrossMargin()
	require.True(t, ok)
	assert.InDelta(t, 0.6, m, 1e-9)
}

func TestGrossMarginMissingSupplierCost(t *testing.T) {
	r := validRecord()
	r.SupplierCost = 0
	_, ok := r.GrossMargin()
	assert.False(t, ok)
}

func TestGrossMarginNeverNegative(t *testing.T) {
	r := validRecord()
	r.SupplierCost = 80
	m, ok := r.GrossMargin()
	require.True(t, ok)
	assert.Equal(t, 0.0, m)
}

func TestSafeTrendAbsentCallable(t *testing.T) {
	var b DataSourceBundle
	_, ok := b.SafeTrend(context.Background(), "led strip")
	assert.False(t, ok)
}

func TestSafeTrendErrorRecovered(t *testing.T) {
	b := DataSourceBundle{
		Trend: func(context.Context, string) (*TrendSnapshot, error) {
			return nil, errors.New("upstream timeout")
		},
	}
	_, ok := b.SafeTrend(context.Background(), "led strip")
	assert.False(t, ok)
}

func TestSafeTrendPanicRecovered(t *testing.T) {
	b := DataSourceBundle{
		Trend: func(context.Context, string) (*TrendSnapshot, error) {
			panic("broken client")
		},
	}
	_, ok := b.SafeTrend(context.Background(), "led strip")
	assert.False(t, ok)
}

func TestSafeMarketSuccess(t *testing.T) {
	b := DataSourceBundle{
		Market: func(context.Context, string) (*MarketSnapshot, error) {
			return &MarketSnapshot{CompetitorCount: 7, PricePressure: 0.4}, nil
		},
	}
	snap, ok := b.SafeMarket(context.Background(), "LED strip light")
	require.True(t, ok)
	assert.Equal(t, 7, snap.CompetitorCount)
}

func TestStaticCatalog(t *testing.T) {
	cat := NewStaticCatalog([]CatalogEntry{
		{ID: "A", Category: "electronics", Price: 20},
		{ID: "B", Category: "electronics", Price: 45},
		{ID: "C", Category: "fitness", Price: 15},
	})

	e, err := cat.Get(context.Background(), "B")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, 45.0, e.Price)

	// Unknown ids are a nil entry, not an error.
	e, err = cat.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, e)

	list, err := cat.ListByCategory(context.Background(), "electronics")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "A", list[0].ID)
	assert.Equal(t, 3, cat.Len())
}

func TestAttributeHelpers(t *testing.T) {
	a := Attributes{
		SearchVolume:    LevelOf(common.LevelHigh),
		CompetitorCount: Int(3),
		ReturnRate:      Float(0.1),
	}
	assert.Equal(t, common.LevelHigh, *a.SearchVolume)
	assert.Equal(t, 3, *a.CompetitorCount)
	assert.Equal(t, 0.1, *a.ReturnRate)
}
