package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trentora-system/internal/database/models"
)

func TestBuildOrderExportRows(t *testing.T) {
	placed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	orders := []models.Order{
		{
			ID:        42,
			UserID:    7,
			Status:    models.OrderStatusCompleted,
			Total:     "159.80",
			CreatedAt: placed,
			OrderItems: []models.OrderItem{
				{ProductID: 1, Quantity: 2, Product: &models.Product{ProductName: "Steel Bracket"}},
				{ProductID: 2, Quantity: 1, Product: &models.Product{ProductName: "Hex Bolt Pack"}},
			},
		},
		{
			ID:        43,
			UserID:    8,
			Status:    models.OrderStatusProcessing,
			Total:     "20.00",
			CreatedAt: placed,
			OrderItems: []models.OrderItem{
				{ProductID: 5, Quantity: 4},
			},
		},
	}
	emails := map[int64]string{7: "buyer@acme.test"}

	rows := BuildOrderExportRows(orders, emails)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Order ID", "Date", "Customer", "Status", "Total", "Items"}, rows[0])
	assert.Equal(t, []string{
		"42", "2026-03-14 09:30:00", "buyer@acme.test", "completed", "159.80",
		"Steel Bracket × 2, Hex Bolt Pack × 1",
	}, rows[1])

	// Unknown email stays blank, missing product falls back to the ID.
	assert.Equal(t, "", rows[2][2])
	assert.Equal(t, "#5 × 4", rows[2][5])
}

func TestBuildOrderExportRows_Empty(t *testing.T) {
	rows := BuildOrderExportRows(nil, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, "Order ID", rows[0][0])
}

func TestDateRangeFromQuery(t *testing.T) {
	from, to, err := DateRangeFromQuery("2026-01-01", "2026-01-31")
	require.NoError(t, err)
	require.NotNil(t, from)
	require.NotNil(t, to)

	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *from)
	// End date runs through the last second of the day.
	assert.Equal(t, time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC), *to)
}

func TestDateRangeFromQuery_Open(t *testing.T) {
	from, to, err := DateRangeFromQuery("", "")
	require.NoError(t, err)
	assert.Nil(t, from)
	assert.Nil(t, to)
}

func TestDateRangeFromQuery_Invalid(t *testing.T) {
	_, _, err := DateRangeFromQuery("01/02/2026", "")
	assert.Error(t, err)

	_, _, err = DateRangeFromQuery("", "yesterday")
	assert.Error(t, err)
}
