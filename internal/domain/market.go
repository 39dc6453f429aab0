package domain

// Market is one venue for a single underlying instrument.
type Market struct {
	ID           string
	InstrumentID string
	Status       MarketStatus
}

// SettlementIntent describes the transfer obligation implied by a trade.
// It is emitted once per trade and handed to the external settlement
// process via the outbox; the venue never moves funds itself.
type SettlementIntent struct {
	InstrumentID    string `json:"instrumentId"`
	SellerHolderRef string `json:"sellerHolderRef"`
	BuyerHolderRef  string `json:"buyerHolderRef"`
	Quantity        Amount `json:"quantity"`
	TradeID         string `json:"tradeId"`
	PaymentRef      string `json:"paymentRef"`
}
