package domain

// OrderKind tells which side of the trade the maker is on.
type OrderKind string

const (
	OrderKindBuy  OrderKind = "buy"
	OrderKindSell OrderKind = "sell"
)

// ParseOrderKind returns the kind matching the given string, or false when
// the value is unknown.
func ParseOrderKind(s string) (OrderKind, bool) {
	switch OrderKind(s) {
	case OrderKindBuy, OrderKindSell:
		return OrderKind(s), true
	}
	return "", false
}

// OrderStatus represents the lifecycle states an order goes through, from
// publication to settlement or cancellation.
type OrderStatus string

const (
	StatusPending             OrderStatus = "pending"
	StatusWaitingPayment      OrderStatus = "waiting-payment"
	StatusWaitingBuyerInvoice OrderStatus = "waiting-buyer-invoice"
	StatusActive              OrderStatus = "active"
	StatusFiatSent            OrderStatus = "fiat-sent"
	StatusSettledHoldInvoice  OrderStatus = "settled-hold-invoice"
	StatusSuccess             OrderStatus = "success"
	StatusCanceled            OrderStatus = "canceled"
	StatusCanceledByAdmin     OrderStatus = "canceled-by-admin"
	StatusCompletedByAdmin    OrderStatus = "completed-by-admin"
	StatusDispute             OrderStatus = "dispute"
	StatusExpired             OrderStatus = "expired"
	StatusInProgress          OrderStatus = "in-progress"
)

// ParseOrderStatus returns the status matching the given string, or false
// when the value is unknown.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case StatusPending, StatusWaitingPayment, StatusWaitingBuyerInvoice,
		StatusActive, StatusFiatSent, StatusSettledHoldInvoice, StatusSuccess,
		StatusCanceled, StatusCanceledByAdmin, StatusCompletedByAdmin,
		StatusDispute, StatusExpired, StatusInProgress:
		return OrderStatus(s), true
	}
	return "", false
}

// IsTerminal reports whether no further lifecycle event can mutate the order.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusCanceled, StatusCanceledByAdmin,
		StatusCompletedByAdmin, StatusExpired:
		return true
	}
	return false
}

// Order defines the negotiation record entity. An amount of 0 means the
// order trades at market price. FiatAmount and the MinAmount/MaxAmount range
// are mutually exclusive.
type Order struct {
	ID                string      `badgerhold:"key" json:"id,omitempty"`
	Kind              OrderKind   `json:"kind,omitempty"`
	Status            OrderStatus `json:"status,omitempty"`
	Amount            int64       `json:"amount"`
	FiatCode          string      `json:"fiat_code"`
	FiatAmount        int64       `json:"fiat_amount"`
	MinAmount         *int64      `json:"min_amount,omitempty"`
	MaxAmount         *int64      `json:"max_amount,omitempty"`
	PaymentMethod     string      `json:"payment_method"`
	Premium           int64       `json:"premium"`
	BuyerTradePubkey  string      `json:"buyer_trade_pubkey,omitempty"`
	SellerTradePubkey string      `json:"seller_trade_pubkey,omitempty"`
	BuyerInvoice      string      `json:"buyer_invoice,omitempty"`
	// TradeIndex references the locally derived trade key bound to this
	// order. Zero when the order belongs to somebody else.
	TradeIndex uint32 `json:"trade_index,omitempty"`
	CreatedAt  int64  `json:"created_at,omitempty"`
	ExpiresAt  int64  `json:"expires_at,omitempty"`
}

// HasRange reports whether the order advertises a min/max fiat range instead
// of an exact amount.
func (o *Order) HasRange() bool {
	return o.MinAmount != nil && o.MaxAmount != nil
}

// Validate enforces the structural invariants of an order before it is
// published or persisted.
func (o *Order) Validate() error {
	if o.HasRange() {
		if o.FiatAmount != 0 {
			return ErrExclusiveFiatFields
		}
		if *o.MinAmount >= *o.MaxAmount {
			return ErrInvalidFiatRange
		}
	}
	return nil
}
