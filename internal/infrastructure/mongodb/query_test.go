package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mets-platform/mets/internal/domain"
)

func TestOrderFilter(t *testing.T) {
	t.Run("empty filter matches everything", func(t *testing.T) {
		assert.Equal(t, bson.M{}, orderFilter(domain.OrderFilter{}))
	})

	t.Run("single condition is not wrapped", func(t *testing.T) {
		cellType := "RM 36 CB"
		assert.Equal(t, bson.M{"cells.productTypeCode": "RM 36 CB"}, orderFilter(domain.OrderFilter{CellType: &cellType}))
	})

	t.Run("search is a literal case-insensitive match", func(t *testing.T) {
		search := "#0424"
		filter := orderFilter(domain.OrderFilter{Search: &search})
		or, ok := filter["$or"].(bson.A)
		require.True(t, ok)
		require.Len(t, or, 2)
		pattern := or[0].(bson.M)["orderNo"].(primitive.Regex)
		assert.Equal(t, "#0424", pattern.Pattern)
		assert.Equal(t, "i", pattern.Options)
	})

	t.Run("conditions are combined", func(t *testing.T) {
		status := domain.StatusPlanned
		from := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
		filter := orderFilter(domain.OrderFilter{Status: &status, DateFrom: &from, ActiveOnly: true})

		and, ok := filter["$and"].(bson.A)
		require.True(t, ok)
		require.Len(t, and, 3)
		assert.Equal(t, bson.M{"status": domain.StatusPlanned}, and[0])
		assert.Equal(t, bson.M{"orderDate": bson.M{"$gte": from}}, and[1])
		assert.Equal(t, bson.M{"status": bson.M{"$nin": bson.A{domain.StatusCompleted, domain.StatusCanceled}}}, and[2])
	})
}

func TestOrderSort(t *testing.T) {
	assert.Equal(t, bson.D{
		{Key: "priorityRank", Value: -1},
		{Key: "orderDate", Value: 1},
		{Key: "createdAt", Value: 1},
		{Key: "orderId", Value: 1},
	}, orderSort(domain.OrderSort{Field: domain.SortByPriority, Descending: true}))

	assert.Equal(t, bson.D{
		{Key: "orderDate", Value: -1},
		{Key: "createdAt", Value: 1},
		{Key: "orderId", Value: 1},
	}, orderSort(domain.DefaultOrderSort()))
}
