package domain

type TicketState string

const (
	TicketStateInCart    TicketState = "IN_CART"
	TicketStateReserved  TicketState = "RESERVED"
	TicketStatePurchased TicketState = "PURCHASED"
	TicketStateCancelled TicketState = "CANCELLED"
)

// LiveTicketStates are the states that hold a seat or standing slot.
var LiveTicketStates = []TicketState{TicketStateInCart, TicketStateReserved, TicketStatePurchased}

// IsValid checks if the ticket state is known
func (s TicketState) IsValid() bool {
	switch s {
	case TicketStateInCart, TicketStateReserved, TicketStatePurchased, TicketStateCancelled:
		return true
	}
	return false
}

func (s TicketState) String() string {
	return string(s)
}

// IsLive reports whether a ticket in this state occupies capacity.
func (s TicketState) IsLive() bool {
	switch s {
	case TicketStateInCart, TicketStateReserved, TicketStatePurchased:
		return true
	}
	return false
}

// IsRemovable reports whether a ticket in this state may be dropped without a refund.
func (s TicketState) IsRemovable() bool {
	return s == TicketStateInCart || s == TicketStateReserved
}

// CanTransitionTo enforces the ticket lifecycle. CANCELLED is terminal.
func (s TicketState) CanTransitionTo(next TicketState) bool {
	switch s {
	case TicketStateInCart:
		return next == TicketStateReserved || next == TicketStatePurchased || next == TicketStateCancelled
	case TicketStateReserved:
		return next == TicketStatePurchased || next == TicketStateCancelled
	case TicketStatePurchased:
		return next == TicketStateCancelled
	}
	return false
}

type TicketType string

const (
	TicketTypeRegular  TicketType = "REGULAR"
	TicketTypeStanding TicketType = "STANDING"
)

// Intent selects the state a freshly created ticket starts in.
type Intent string

const (
	IntentCart    Intent = "cart"
	IntentReserve Intent = "reserve"
)

// InitialState maps a creation intent to the starting ticket state.
func (i Intent) InitialState() (TicketState, bool) {
	switch i {
	case IntentCart:
		return TicketStateInCart, true
	case IntentReserve:
		return TicketStateReserved, true
	}
	return "", false
}
