package storage

import (
	"sort"
	"sync"

	"github.com/ferreirogomes/pregao/models"
)

// MemoryStore é a implementação em memória do estado do marketplace:
// mapas de leilão por id e saldo por conta, protegidos por mutex. Usada nos
// testes e como fallback quando nenhum banco está configurado.
type MemoryStore struct {
	mu            sync.RWMutex
	auctions      map[uint64]models.Auction
	balances      map[string]uint64
	events        []models.Event
	nextAuctionID uint64
}

// NewMemoryStore cria o armazenamento vazio. Ids de leilão começam em 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		auctions:      make(map[uint64]models.Auction),
		balances:      make(map[string]uint64),
		nextAuctionID: 1,
	}
}

// AllocateAuctionID devolve o próximo id e avança o contador.
func (m *MemoryStore) AllocateAuctionID() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextAuctionID
	m.nextAuctionID++
	return id, nil
}

// PeekNextAuctionID devolve o próximo id sem consumi-lo.
func (m *MemoryStore) PeekNextAuctionID() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nextAuctionID, nil
}

// SaveAuction grava ou sobrescreve o leilão.
func (m *MemoryStore) SaveAuction(auction models.Auction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auctions[auction.ID] = auction
	return nil
}

// GetAuction devolve o leilão pelo id.
func (m *MemoryStore) GetAuction(id uint64) (models.Auction, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	auction, found := m.auctions[id]
	return auction, found, nil
}

// GetBalance devolve o saldo da conta (0 para conta desconhecida).
func (m *MemoryStore) GetBalance(account string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[account], nil
}

// SaveBalance grava o saldo da conta.
func (m *MemoryStore) SaveBalance(account string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] = amount
	return nil
}

// SaveEvent adiciona um fato ao feed.
func (m *MemoryStore) SaveEvent(event models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// ListEvents devolve os fatos mais recentes, do mais novo para o mais antigo.
func (m *MemoryStore) ListEvents(limit int) ([]models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Event, len(m.events))
	copy(out, m.events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
