package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifica o tipo de fato emitido pelo marketplace.
type EventType string

const (
	EventAuctionCreated    EventType = "auction_created"
	EventBidPlaced         EventType = "bid_placed"
	EventAuctionSettled    EventType = "auction_settled"
	EventAuctionCanceled   EventType = "auction_canceled"
	EventFundsWithdrawn    EventType = "funds_withdrawn"
	EventPlatformFeeUpdate EventType = "platform_fee_updated"
)

// Event é um fato emitido para indexadores externos. Não é necessário para a
// correção do núcleo; serve apenas como feed de auditoria.
type Event struct {
	ID        string    `json:"id" db:"id"`
	Type      EventType `json:"type" db:"type"`
	AuctionID uint64    `json:"auction_id,omitempty" db:"auction_id"` // 0 quando o fato não se refere a um leilão
	Account   string    `json:"account,omitempty" db:"account"`       // licitante, vendedor ou sacador, conforme o tipo
	Amount    uint64    `json:"amount,omitempty" db:"amount"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewEvent monta um fato com ID próprio e carimbo de tempo fornecido pelo chamador.
func NewEvent(t EventType, auctionID uint64, account string, amount uint64, at time.Time) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      t,
		AuctionID: auctionID,
		Account:   account,
		Amount:    amount,
		CreatedAt: at,
	}
}
