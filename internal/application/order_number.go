package application

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/mets-platform/mets/internal/domain"
)

const orderNoAttempts = 20

// OrderNumberGenerator hands out #YYMM-NNNN order numbers with a random
// four digit suffix, retrying until the repository reports the number free.
type OrderNumberGenerator struct {
	repo   domain.OrderRepository
	random func() int
}

// NewOrderNumberGenerator creates a generator backed by the order repository
func NewOrderNumberGenerator(repo domain.OrderRepository) *OrderNumberGenerator {
	return &OrderNumberGenerator{
		repo:   repo,
		random: func() int { return 1000 + rand.IntN(9000) },
	}
}

// Next returns an unused order number for an order placed at orderDate
func (g *OrderNumberGenerator) Next(ctx context.Context, orderDate time.Time) (string, error) {
	for i := 0; i < orderNoAttempts; i++ {
		candidate := domain.FormatOrderNo(orderDate, g.random())
		taken, err := g.repo.ExistsByOrderNo(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check order number: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no free number after %d attempts", domain.ErrDuplicateOrderNo, orderNoAttempts)
}
