package models

import "time"

// AuctionStatus representa o estado do ciclo de vida de um leilão.
type AuctionStatus string

const (
	AuctionActive   AuctionStatus = "active"
	AuctionCanceled AuctionStatus = "canceled"
	AuctionSettled  AuctionStatus = "settled"
)

// NoBidder é o valor sentinela para "nenhum licitante ainda".
const NoBidder = ""

// Auction representa um leilão de um ativo único registrado no marketplace.
// O registro nunca é apagado: leilões encerrados permanecem consultáveis (trilha de auditoria).
type Auction struct {
	ID            uint64        `json:"id" db:"id"`
	AssetContract string        `json:"asset_contract" db:"asset_contract"` // Endereço do registro de ativos (ex: mint na Solana)
	AssetID       uint64        `json:"asset_id" db:"asset_id"`             // Identificador do ativo dentro do registro
	Seller        string        `json:"seller" db:"seller"`                 // Conta (pubkey base58) do vendedor
	ReservePrice  uint64        `json:"reserve_price" db:"reserve_price"`   // Lance mínimo aceitável, em unidades menores (> 0)
	CurrentBid    uint64        `json:"current_bid" db:"current_bid"`       // Maior lance atual (0 = nenhum lance)
	CurrentBidder string        `json:"current_bidder" db:"current_bidder"` // Conta do maior licitante (NoBidder = nenhum)
	EndTime       time.Time     `json:"end_time" db:"end_time"`             // Fixado na criação; nunca alterado
	Status        AuctionStatus `json:"status" db:"status"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// HasBid informa se o leilão já recebeu ao menos um lance.
func (a Auction) HasBid() bool {
	return a.CurrentBidder != NoBidder
}

// IsTerminal informa se o leilão atingiu um estado final (liquidado ou cancelado).
func (a Auction) IsTerminal() bool {
	return a.Status == AuctionSettled || a.Status == AuctionCanceled
}
