package model

// Transition is an edge of the order status graph.
type Transition struct {
	From OrderStatus
	To   OrderStatus
}

// orderTransitions is the single source of truth for legal status moves,
// shared by customer and admin actions.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

// PaymentEffect rewrites the payment status when a transition fires and the
// payment currently sits in When.
type PaymentEffect struct {
	When           PaymentStatus
	Then           PaymentStatus
	RequiresRefund bool
}

var cancelEffects = []PaymentEffect{
	{When: PaymentStatusCompleted, Then: PaymentStatusRefunded, RequiresRefund: true},
	{When: PaymentStatusPendingIntent, Then: PaymentStatusFailed},
}

// paymentEffects lists every automatic payment side effect keyed by the
// transition that triggers it.
var paymentEffects = map[Transition][]PaymentEffect{
	{From: OrderStatusShipped, To: OrderStatusCompleted}: {
		{When: PaymentStatusPending, Then: PaymentStatusCompleted},
	},
	{From: OrderStatusPending, To: OrderStatusCancelled}:    cancelEffects,
	{From: OrderStatusProcessing, To: OrderStatusCancelled}: cancelEffects,
	{From: OrderStatusShipped, To: OrderStatusCancelled}:    cancelEffects,
}

// IsValid reports whether s is a known order status.
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s in one step.
func (s OrderStatus) NextStatuses() []OrderStatus {
	next := orderTransitions[s]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// PaymentEffectFor returns the side effect the transition applies to a
// payment currently in status current. ok is false when nothing changes.
func PaymentEffectFor(t Transition, current PaymentStatus) (PaymentEffect, bool) {
	for _, effect := range paymentEffects[t] {
		if effect.When == current {
			return effect, true
		}
	}
	return PaymentEffect{}, false
}

// PaymentStatusAfter is the payment status once t has fired.
func PaymentStatusAfter(t Transition, current PaymentStatus) PaymentStatus {
	if effect, ok := PaymentEffectFor(t, current); ok {
		return effect.Then
	}
	return current
}
