package domain

type TradeStatus string

const (
	TradeWaitingForArrival TradeStatus = "WAITING_FOR_ARRIVAL"
	TradePartiallyArrived  TradeStatus = "PARTIALLY_ARRIVED"
	TradeBothArrived       TradeStatus = "BOTH_ARRIVED"
	TradeInspectionPhase   TradeStatus = "INSPECTION_PHASE"
	TradeInspectionPassed  TradeStatus = "INSPECTION_PASSED"
	TradeCompleted         TradeStatus = "COMPLETED"
	TradeCancelled         TradeStatus = "CANCELLED"
)

var tradeTransitions = map[TradeStatus][]TradeStatus{
	TradeWaitingForArrival: {TradePartiallyArrived},
	TradePartiallyArrived:  {TradeBothArrived},
	TradeBothArrived:       {TradeInspectionPhase},
	TradeInspectionPhase:   {TradeInspectionPassed, TradeCancelled},
	TradeInspectionPassed:  {TradeCompleted},
}

// CanTransition is the single source of truth for allowed status changes.
func CanTransition(from, to TradeStatus) bool {
	for _, next := range tradeTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s TradeStatus) Valid() bool {
	switch s {
	case TradeWaitingForArrival, TradePartiallyArrived, TradeBothArrived,
		TradeInspectionPhase, TradeInspectionPassed, TradeCompleted, TradeCancelled:
		return true
	}
	return false
}

func (s TradeStatus) IsTerminal() bool {
	return s == TradeCompleted || s == TradeCancelled
}

// AwaitingArrival covers the statuses in which a trade waits on people showing up.
func (s TradeStatus) AwaitingArrival() bool {
	return s == TradeWaitingForArrival || s == TradePartiallyArrived || s == TradeBothArrived
}

var (
	ScheduledTradeStatuses = []TradeStatus{
		TradeWaitingForArrival, TradePartiallyArrived, TradeBothArrived,
		TradeInspectionPhase, TradeInspectionPassed,
	}
	ConcludedTradeStatuses = []TradeStatus{TradeCompleted, TradeCancelled}
	StaleCandidateStatuses = []TradeStatus{TradeWaitingForArrival, TradePartiallyArrived, TradeBothArrived}
)
