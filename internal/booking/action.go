package booking

// Action selects between a temporary hold and an outright purchase.
type Action string

const (
	ActionHold     Action = "book"
	ActionPurchase Action = "buy"
)

// ParseAction validates a client-supplied action flag.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionHold, ActionPurchase:
		return Action(s), nil
	default:
		return "", invalidf("unknown action %q", s)
	}
}

// Messages returned to the client on success.
const (
	MessageHeld      = "Места успешно забронированы"
	MessagePurchased = "Билеты успешно куплены"
	MessagePaid      = "Бронирование оплачено"
)

func (a Action) message() string {
	if a == ActionPurchase {
		return MessagePurchased
	}
	return MessageHeld
}
