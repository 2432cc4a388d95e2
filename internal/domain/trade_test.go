package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedCodes(codes ...int) SessionCodeGenerator {
	i := 0
	return func() (int, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}

func newTestTrade() *Trade {
	return &Trade{
		ID:           7,
		Status:       TradeWaitingForArrival,
		ProposerID:   "ash",
		ReceiverID:   "misty",
		StoreID:      "store-1",
		TradeDate:    "2026-10-20",
		OfferedCards: []CardRef{{CardID: "base1-4", Name: "Charizard", Quantity: 1}},
	}
}

func TestConfirmPresence_FirstParty(t *testing.T) {
	tr := newTestTrade()

	code, err := tr.ConfirmPresence("ash", fixedCodes(123456))
	require.NoError(t, err)
	assert.Equal(t, 123456, code)
	assert.Equal(t, TradePartiallyArrived, tr.Status)
	assert.True(t, tr.ProposerArrived)
	assert.False(t, tr.ReceiverArrived)
	assert.Equal(t, 123456, tr.ProposerSessionCode)
}

func TestConfirmPresence_SamePartyTwice(t *testing.T) {
	tr := newTestTrade()
	_, err := tr.ConfirmPresence("ash", fixedCodes(111111))
	require.NoError(t, err)

	code, err := tr.ConfirmPresence("ash", fixedCodes(222222))
	require.ErrorIs(t, err, ErrAlreadyConfirmed)
	assert.Zero(t, code)
	assert.Equal(t, TradePartiallyArrived, tr.Status)
	assert.Equal(t, 111111, tr.ProposerSessionCode)
}

func TestConfirmPresence_SecondParty(t *testing.T) {
	tr := newTestTrade()
	_, err := tr.ConfirmPresence("misty", fixedCodes(111111))
	require.NoError(t, err)

	code, err := tr.ConfirmPresence("ash", fixedCodes(222222))
	require.NoError(t, err)
	assert.Equal(t, 222222, code)
	assert.Equal(t, TradeBothArrived, tr.Status)
	assert.Equal(t, 111111, tr.ReceiverSessionCode)
	assert.Equal(t, 222222, tr.ProposerSessionCode)
}

func TestConfirmPresence_RedrawsCollidingCode(t *testing.T) {
	tr := newTestTrade()
	_, err := tr.ConfirmPresence("ash", fixedCodes(111111))
	require.NoError(t, err)

	code, err := tr.ConfirmPresence("misty", fixedCodes(111111, 333333))
	require.NoError(t, err)
	assert.Equal(t, 333333, code)
}

func TestConfirmPresence_RejectedAfterBothArrived(t *testing.T) {
	for _, status := range []TradeStatus{
		TradeBothArrived, TradeInspectionPhase, TradeInspectionPassed, TradeCompleted, TradeCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			tr := newTestTrade()
			tr.Status = status
			tr.ProposerSessionCode = 42

			_, err := tr.ConfirmPresence("ash", fixedCodes(999999))
			require.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, status, tr.Status)
			assert.Equal(t, 42, tr.ProposerSessionCode)
		})
	}
}

func TestConfirmPresence_NotParticipant(t *testing.T) {
	tr := newTestTrade()
	_, err := tr.ConfirmPresence("brock", fixedCodes(1))
	require.ErrorIs(t, err, ErrNotParticipant)
	assert.Equal(t, TradeWaitingForArrival, tr.Status)
}

func TestConfirmPresence_GeneratorFailureLeavesTradeUntouched(t *testing.T) {
	tr := newTestTrade()
	_, err := tr.ConfirmPresence("ash", func() (int, error) { return 0, errors.New("entropy") })
	require.Error(t, err)
	assert.Equal(t, TradeWaitingForArrival, tr.Status)
	assert.False(t, tr.ProposerArrived)
}

func bothArrived() *Trade {
	tr := newTestTrade()
	tr.Status = TradeBothArrived
	tr.ProposerArrived, tr.ReceiverArrived = true, true
	tr.ProposerSessionCode, tr.ReceiverSessionCode = 111111, 222222
	return tr
}

func TestVerifySessionCodes(t *testing.T) {
	tests := []struct {
		name     string
		proposer int
		receiver int
		wantErr  error
		want     TradeStatus
	}{
		{"both match", 111111, 222222, nil, TradeInspectionPhase},
		{"proposer wrong", 111112, 222222, ErrVerificationFailed, TradeBothArrived},
		{"receiver wrong", 111111, 0, ErrVerificationFailed, TradeBothArrived},
		{"swapped", 222222, 111111, ErrVerificationFailed, TradeBothArrived},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := bothArrived()
			err := tr.VerifySessionCodes(tt.proposer, tt.receiver)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, tr.Status)
		})
	}
}

func TestVerifySessionCodes_WrongStatus(t *testing.T) {
	tr := newTestTrade()
	err := tr.VerifySessionCodes(0, 0)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.NotErrorIs(t, err, ErrVerificationFailed)
}

func inInspection() *Trade {
	tr := bothArrived()
	tr.Status = TradeInspectionPhase
	return tr
}

func TestRecordInspection_BothPass(t *testing.T) {
	tr := inInspection()

	require.NoError(t, tr.RecordInspection("ash", true))
	assert.Equal(t, TradeInspectionPhase, tr.Status)

	require.NoError(t, tr.RecordInspection("misty", true))
	assert.Equal(t, TradeInspectionPassed, tr.Status)
}

func TestRecordInspection_FailureCancels(t *testing.T) {
	for _, first := range []bool{true, false} {
		tr := inInspection()
		if first {
			require.NoError(t, tr.RecordInspection("misty", true))
		}
		require.NoError(t, tr.RecordInspection("ash", false))
		assert.Equal(t, TradeCancelled, tr.Status)
		require.NotNil(t, tr.ProposerInspectionOK)
		assert.False(t, *tr.ProposerInspectionOK)
	}
}

func TestRecordInspection_RepeatedPass(t *testing.T) {
	tr := inInspection()
	require.NoError(t, tr.RecordInspection("ash", true))
	require.ErrorIs(t, tr.RecordInspection("ash", true), ErrAlreadyConfirmed)
	assert.Equal(t, TradeInspectionPhase, tr.Status)
}

func TestRecordInspection_OutsideInspection(t *testing.T) {
	tr := bothArrived()
	require.ErrorIs(t, tr.RecordInspection("ash", false), ErrInvalidTransition)
	assert.Equal(t, TradeBothArrived, tr.Status)
}

func TestMarkCompleted(t *testing.T) {
	now := time.Date(2026, 10, 20, 15, 0, 0, 0, time.UTC)

	tr := inInspection()
	require.ErrorIs(t, tr.MarkCompleted(now), ErrInvalidTransition)
	assert.Nil(t, tr.CompletedAt)

	tr.Status = TradeInspectionPassed
	require.NoError(t, tr.MarkCompleted(now))
	assert.Equal(t, TradeCompleted, tr.Status)
	assert.Equal(t, now, *tr.CompletedAt)

	require.ErrorIs(t, tr.MarkCompleted(now), ErrInvalidTransition)
}

func TestNewTradeFromProposal(t *testing.T) {
	p := &Proposal{
		ID:             "p-1",
		ProposerID:     "ash",
		ReceiverID:     "misty",
		OfferedCards:   []CardRef{{CardID: "base1-4", Quantity: 1}},
		RequestedCards: []CardRef{{CardID: "sv3pt5-25", Quantity: 2}},
		MeetingPlace:   "store-9",
		MeetingDate:    "2026-11-01",
	}
	now := time.Now()

	tr, err := NewTradeFromProposal(p, now)
	require.NoError(t, err)
	assert.Equal(t, TradeWaitingForArrival, tr.Status)
	assert.Equal(t, "store-9", tr.StoreID)
	assert.Equal(t, "2026-11-01", tr.TradeDate)
	assert.Equal(t, p.OfferedCards, tr.OfferedCards)

	p.OfferedCards[0].Quantity = 5
	assert.Equal(t, 1, tr.OfferedCards[0].Quantity, "trade cards must be frozen")

	p.RequestedCards = []CardRef{{CardID: "nodash", Quantity: 1}}
	_, err = NewTradeFromProposal(p, now)
	require.ErrorIs(t, err, ErrInvalidCard)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(TradeInspectionPhase, TradeCancelled))
	assert.False(t, CanTransition(TradeBothArrived, TradeCancelled))
	assert.False(t, CanTransition(TradeCompleted, TradeCancelled))
	assert.False(t, CanTransition(TradeWaitingForArrival, TradeCompleted))
}
