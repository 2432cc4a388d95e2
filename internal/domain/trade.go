package domain

import (
	"fmt"
	"time"
)

type Party int

const (
	PartyProposer Party = iota + 1
	PartyReceiver
)

func (p Party) String() string {
	switch p {
	case PartyProposer:
		return "proposer"
	case PartyReceiver:
		return "receiver"
	}
	return "unknown"
}

// Trade is the durable record of a proposal being settled in person at a store.
// OfferedCards move from proposer to receiver, RequestedCards the other way.
type Trade struct {
	ID                   int64
	ProposalID           string
	Status               TradeStatus
	ProposerID           string
	ReceiverID           string
	StoreID              string
	CreationDate         time.Time
	TradeDate            string
	OfferedCards         []CardRef
	RequestedCards       []CardRef
	ProposerArrived      bool
	ReceiverArrived      bool
	ProposerSessionCode  int
	ReceiverSessionCode  int
	ProposerInspectionOK *bool
	ReceiverInspectionOK *bool
	UpdatedAt            time.Time
	CompletedAt          *time.Time
}

// NewTradeFromProposal freezes the proposal's cards and meeting data into a new trade.
func NewTradeFromProposal(p *Proposal, now time.Time) (*Trade, error) {
	if err := ValidateCardRefs(p.OfferedCards); err != nil {
		return nil, err
	}
	if err := ValidateCardRefs(p.RequestedCards); err != nil {
		return nil, err
	}
	return &Trade{
		ProposalID:     p.ID,
		Status:         TradeWaitingForArrival,
		ProposerID:     p.ProposerID,
		ReceiverID:     p.ReceiverID,
		StoreID:        p.MeetingPlace,
		CreationDate:   now,
		TradeDate:      p.MeetingDate,
		OfferedCards:   cloneCardRefs(p.OfferedCards),
		RequestedCards: cloneCardRefs(p.RequestedCards),
		UpdatedAt:      now,
	}, nil
}

func (t *Trade) PartyOf(username string) (Party, error) {
	switch username {
	case t.ProposerID:
		return PartyProposer, nil
	case t.ReceiverID:
		return PartyReceiver, nil
	}
	return 0, fmt.Errorf("%w: %s in trade %d", ErrNotParticipant, username, t.ID)
}

func (t *Trade) Involves(username string) bool {
	_, err := t.PartyOf(username)
	return err == nil
}

func (t *Trade) SessionCode(p Party) int {
	if p == PartyProposer {
		return t.ProposerSessionCode
	}
	return t.ReceiverSessionCode
}

// ConfirmPresence marks the user as arrived and returns their freshly generated session code.
// The trade is left untouched on any error.
func (t *Trade) ConfirmPresence(username string, gen SessionCodeGenerator) (int, error) {
	party, err := t.PartyOf(username)
	if err != nil {
		return 0, err
	}

	var next TradeStatus
	switch t.Status {
	case TradeWaitingForArrival:
		next = TradePartiallyArrived
	case TradePartiallyArrived:
		if t.arrived(party) {
			return 0, fmt.Errorf("%w: %s presence in trade %d", ErrAlreadyConfirmed, party, t.ID)
		}
		next = TradeBothArrived
	default:
		return 0, &TransitionError{From: t.Status, Event: "confirm presence"}
	}
	if !CanTransition(t.Status, next) {
		return 0, &TransitionError{From: t.Status, Event: "confirm presence"}
	}

	code, err := t.drawCode(party, gen)
	if err != nil {
		return 0, err
	}

	if party == PartyProposer {
		t.ProposerArrived = true
		t.ProposerSessionCode = code
	} else {
		t.ReceiverArrived = true
		t.ReceiverSessionCode = code
	}
	t.Status = next
	return code, nil
}

// VerifySessionCodes moves the trade into inspection when both submitted codes match.
func (t *Trade) VerifySessionCodes(proposerCode, receiverCode int) error {
	if t.Status != TradeBothArrived {
		return &TransitionError{From: t.Status, Event: "verify session codes"}
	}
	if proposerCode != t.ProposerSessionCode || receiverCode != t.ReceiverSessionCode {
		return fmt.Errorf("%w: trade %d", ErrVerificationFailed, t.ID)
	}
	return t.transition(TradeInspectionPhase, "verify session codes")
}

// RecordInspection stores one party's inspection verdict. A failed inspection cancels the trade.
func (t *Trade) RecordInspection(username string, passed bool) error {
	party, err := t.PartyOf(username)
	if err != nil {
		return err
	}
	if t.Status != TradeInspectionPhase {
		return &TransitionError{From: t.Status, Event: "record inspection"}
	}

	if !passed {
		if err := t.transition(TradeCancelled, "record inspection"); err != nil {
			return err
		}
		t.setInspection(party, false)
		return nil
	}

	if prev := t.inspection(party); prev != nil && *prev {
		return fmt.Errorf("%w: %s inspection in trade %d", ErrAlreadyConfirmed, party, t.ID)
	}
	t.setInspection(party, true)

	if isTrue(t.ProposerInspectionOK) && isTrue(t.ReceiverInspectionOK) {
		return t.transition(TradeInspectionPassed, "record inspection")
	}
	return nil
}

func (t *Trade) MarkCompleted(now time.Time) error {
	if err := t.transition(TradeCompleted, "complete trade"); err != nil {
		return err
	}
	t.CompletedAt = &now
	return nil
}

func (t *Trade) Clone() *Trade {
	if t == nil {
		return nil
	}
	c := *t
	c.OfferedCards = cloneCardRefs(t.OfferedCards)
	c.RequestedCards = cloneCardRefs(t.RequestedCards)
	c.ProposerInspectionOK = cloneBool(t.ProposerInspectionOK)
	c.ReceiverInspectionOK = cloneBool(t.ReceiverInspectionOK)
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

func (t *Trade) transition(to TradeStatus, event string) error {
	if !CanTransition(t.Status, to) {
		return &TransitionError{From: t.Status, Event: event}
	}
	t.Status = to
	return nil
}

func (t *Trade) arrived(p Party) bool {
	if p == PartyProposer {
		return t.ProposerArrived
	}
	return t.ReceiverArrived
}

func (t *Trade) inspection(p Party) *bool {
	if p == PartyProposer {
		return t.ProposerInspectionOK
	}
	return t.ReceiverInspectionOK
}

func (t *Trade) setInspection(p Party, ok bool) {
	if p == PartyProposer {
		t.ProposerInspectionOK = &ok
	} else {
		t.ReceiverInspectionOK = &ok
	}
}

// drawCode keeps the two parties' codes distinct so the operator can tell them apart.
func (t *Trade) drawCode(p Party, gen SessionCodeGenerator) (int, error) {
	other := t.SessionCode(PartyReceiver)
	if p == PartyReceiver {
		other = t.SessionCode(PartyProposer)
	}
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := gen()
		if err != nil {
			return 0, fmt.Errorf("generate session code: %w", err)
		}
		if code <= 0 {
			return 0, fmt.Errorf("generate session code: non-positive code %d", code)
		}
		if code != other {
			return code, nil
		}
	}
	return 0, fmt.Errorf("generate session code: no distinct code after %d attempts", maxCodeAttempts)
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
