package domain

// BinderCard is one owned card entry. Quantity is always >= 1 while the entry exists.
type BinderCard struct {
	CardID   string `json:"card_id"`
	Quantity int    `json:"quantity"`
	Tradable bool   `json:"tradable"`
}

// Binder is a collector's inventory for a single card set.
// There is at most one binder per (Owner, SetID).
type Binder struct {
	ID      int64        `json:"id"`
	Owner   string       `json:"owner"`
	SetID   string       `json:"set_id"`
	SetName string       `json:"set_name"`
	Cards   []BinderCard `json:"cards"`
}

func (b *Binder) QuantityOf(cardID string) int {
	if i := b.indexOf(cardID); i >= 0 {
		return b.Cards[i].Quantity
	}
	return 0
}

// AddCard increments the card's quantity, creating a non-tradable entry when absent.
func (b *Binder) AddCard(cardID string, quantity int) {
	if quantity <= 0 {
		return
	}
	if i := b.indexOf(cardID); i >= 0 {
		b.Cards[i].Quantity += quantity
		return
	}
	b.Cards = append(b.Cards, BinderCard{CardID: cardID, Quantity: quantity})
}

// RemoveCard decrements the card's quantity and drops the entry once it reaches zero.
// It returns how many copies were actually taken out, 0 when the binder holds no such card.
func (b *Binder) RemoveCard(cardID string, quantity int) int {
	i := b.indexOf(cardID)
	if i < 0 {
		return 0
	}
	held := b.Cards[i].Quantity
	if quantity >= held {
		b.Cards = append(b.Cards[:i], b.Cards[i+1:]...)
		return held
	}
	b.Cards[i].Quantity -= quantity
	return quantity
}

func (b *Binder) Clone() *Binder {
	if b == nil {
		return nil
	}
	c := *b
	if b.Cards != nil {
		c.Cards = make([]BinderCard, len(b.Cards))
		copy(c.Cards, b.Cards)
	}
	return &c
}

func (b *Binder) indexOf(cardID string) int {
	for i := range b.Cards {
		if b.Cards[i].CardID == cardID {
			return i
		}
	}
	return -1
}

// FindBinder returns the binder for setID from a user's binders, or nil.
func FindBinder(binders []*Binder, setID string) *Binder {
	for _, b := range binders {
		if b.SetID == setID {
			return b
		}
	}
	return nil
}
