package core

import "github.com/olyamironova/trading-venue/internal/domain"

// buildSettlementIntent translates one trade into the transfer
// obligation handed to the external settlement process. Holder refs are
// the matched order ids; resolving them to custody accounts is the
// settlement collaborator's job.
func buildSettlementIntent(t *domain.Trade, m *domain.Market) domain.SettlementIntent {
	return domain.SettlementIntent{
		InstrumentID:    m.InstrumentID,
		SellerHolderRef: t.SellOrderID,
		BuyerHolderRef:  t.BuyOrderID,
		Quantity:        t.Quantity,
		TradeID:         t.ID,
		PaymentRef:      "pi_" + t.ID,
	}
}
