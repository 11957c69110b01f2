package services

import "github.com/ferreirogomes/pregao/models"

// Store é o estado persistido do marketplace: leilões por id, saldos por
// conta e o feed de fatos emitidos. Implementado por storage.DB (Postgres)
// e storage.MemoryStore (testes e execução sem banco).
type Store interface {
	// AllocateAuctionID devolve o próximo id de leilão e avança o contador.
	// Ids são crescentes e nunca reutilizados.
	AllocateAuctionID() (uint64, error)
	// PeekNextAuctionID devolve o próximo id sem consumi-lo.
	PeekNextAuctionID() (uint64, error)

	SaveAuction(auction models.Auction) error
	GetAuction(id uint64) (models.Auction, bool, error)

	GetBalance(account string) (uint64, error)
	SaveBalance(account string, amount uint64) error

	SaveEvent(event models.Event) error
	ListEvents(limit int) ([]models.Event, error)
}
