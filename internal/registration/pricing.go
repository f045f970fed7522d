package registration

import (
	"context"
	"errors"

	"eventreg/internal/catalog"
	id "eventreg/pkg/domain"
	dErrors "eventreg/pkg/domain-errors"
	"eventreg/pkg/platform/sentinel"
)

// PriceCalculator derives the monetary total for a proposed selection. It is
// also exposed to callers directly for live price previews before submission.
type PriceCalculator struct {
	catalog catalog.Store
}

func NewPriceCalculator(catalogStore catalog.Store) *PriceCalculator {
	return &PriceCalculator{catalog: catalogStore}
}

// ComputeTotal sums price*quantity over all priced lines. Free tickets count
// toward total quantity but contribute no amount. A selection with zero total
// quantity yields a zero amount with no currency set. Priced lines spanning
// more than one currency fail with CodeInconsistentCurrency.
func (c *PriceCalculator) ComputeTotal(ctx context.Context, occurrenceID id.OccurrenceID, selection Selection) (catalog.Money, error) {
	var total catalog.Money

	for ticketTypeID, quantity := range selection {
		if quantity <= 0 {
			continue
		}
		ticketType, err := c.catalog.GetTicketType(ctx, ticketTypeID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return catalog.Money{}, dErrors.New(dErrors.CodeNotFound, "unknown ticket type in selection")
			}
			return catalog.Money{}, err
		}
		if ticketType.OccurrenceID != occurrenceID {
			return catalog.Money{}, dErrors.New(dErrors.CodeNotFound, "ticket type does not belong to this occurrence")
		}
		if ticketType.Kind == catalog.TicketKindFree {
			continue
		}

		total.Amount += ticketType.Price.Amount * int64(quantity)
		if total.Currency == "" {
			total.Currency = ticketType.Price.Currency
		} else if total.Currency != ticketType.Price.Currency {
			return catalog.Money{}, dErrors.New(dErrors.CodeInconsistentCurrency,
				"selection mixes ticket prices in different currencies")
		}
	}

	return total, nil
}
