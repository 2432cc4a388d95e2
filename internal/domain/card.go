package domain

import (
	"fmt"
	"strings"
)

// CardRef is a card together with the quantity agreed in a proposal.
type CardRef struct {
	CardID   string `json:"card_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// SetIDFromCardID extracts the set identifier from a card id of the form <setId>-<cardNumber>.
func SetIDFromCardID(cardID string) (string, error) {
	idx := strings.LastIndex(cardID, "-")
	if idx <= 0 || idx == len(cardID)-1 {
		return "", fmt.Errorf("%w: card id %q does not match <setId>-<cardNumber>", ErrInvalidCard, cardID)
	}
	return cardID[:idx], nil
}

func ValidateCardRefs(cards []CardRef) error {
	for _, c := range cards {
		if _, err := SetIDFromCardID(c.CardID); err != nil {
			return err
		}
		if c.Quantity <= 0 {
			return fmt.Errorf("%w: card %s has non-positive quantity %d", ErrInvalidCard, c.CardID, c.Quantity)
		}
	}
	return nil
}

func cloneCardRefs(cards []CardRef) []CardRef {
	if cards == nil {
		return nil
	}
	out := make([]CardRef, len(cards))
	copy(out, cards)
	return out
}
