package usecase

import (
	"context"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/hashicorp/go-multierror"
)

// FanoutPublisher delivers each event to every publisher, even when some of them fail.
type FanoutPublisher []domain.EventPublisher

func (f FanoutPublisher) PublishTradeEvent(ctx context.Context, event domain.TradeEvent) error {
	var result *multierror.Error
	for _, p := range f {
		if err := p.PublishTradeEvent(ctx, event); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
