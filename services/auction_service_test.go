package services_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ferreirogomes/pregao/models"
	"github.com/ferreirogomes/pregao/services"
	"github.com/ferreirogomes/pregao/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockAssetRegistry é uma implementação mock do services.AssetRegistry para testes de unidade
type MockAssetRegistry struct {
	mock.Mock
}

func (m *MockAssetRegistry) OwnerOf(contract string, assetID uint64) (string, error) {
	args := m.Called(contract, assetID)
	return args.String(0), args.Error(1)
}

func (m *MockAssetRegistry) IsApproved(contract string, assetID uint64, spender string) (bool, error) {
	args := m.Called(contract, assetID, spender)
	return args.Bool(0), args.Error(1)
}

func (m *MockAssetRegistry) Transfer(contract string, assetID uint64, from, to string) error {
	args := m.Called(contract, assetID, from, to)
	return args.Error(0)
}

const (
	testContract    = "MintEnderecoDoAtivo11111111111111111111111"
	testSeller      = "vendedor"
	testPlatform    = "plataforma"
	testMarketplace = "marketplace"
)

// fakeClock controla o tempo injetado nos serviços.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestService monta o núcleo com armazenamento em memória, relógio falso
// e registro de ativos mockado. Taxa de 500 bps (5%).
func newTestService(t *testing.T) (*services.AuctionService, *services.EscrowService, *MockAssetRegistry, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := storage.NewMemoryStore()
	registry := new(MockAssetRegistry)

	fees, err := services.NewFeeSchedule(500)
	assert.Nil(t, err)

	escrow := services.NewEscrowService(store, new(MockPayout))
	escrow.Now = clock.Now

	svc := services.NewAuctionService(store, registry, escrow, fees, testPlatform, testMarketplace)
	svc.Now = clock.Now

	return svc, escrow, registry, clock
}

// expectApprovedAsset configura o mock para um ativo do vendedor, aprovado para o marketplace.
func expectApprovedAsset(registry *MockAssetRegistry) {
	registry.On("OwnerOf", testContract, uint64(7)).Return(testSeller, nil)
	registry.On("IsApproved", testContract, uint64(7), testMarketplace).Return(true, nil)
}

// createTestAuction cria um leilão padrão: reserva 100, duração 3600s.
func createTestAuction(t *testing.T, svc *services.AuctionService, registry *MockAssetRegistry) uint64 {
	t.Helper()
	expectApprovedAsset(registry)
	id, err := svc.CreateAuction(testSeller, testContract, 7, 100, 3600*time.Second)
	assert.Nil(t, err)
	return id
}

// TestCreateAuction verifica a criação e os campos iniciais do leilão
func TestCreateAuction(t *testing.T) {
	svc, _, registry, clock := newTestService(t)

	id := createTestAuction(t, svc, registry)
	assert.Equal(t, uint64(1), id)

	auction, found, err := svc.GetAuction(id)
	assert.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, testSeller, auction.Seller)
	assert.Equal(t, uint64(100), auction.ReservePrice)
	assert.Equal(t, uint64(0), auction.CurrentBid)
	assert.Equal(t, models.NoBidder, auction.CurrentBidder)
	assert.Equal(t, models.AuctionActive, auction.Status)
	assert.Equal(t, clock.Now().Add(3600*time.Second), auction.EndTime)

	// Ids são crescentes e nunca reutilizados
	next, err := svc.GetNextAuctionID()
	assert.Nil(t, err)
	assert.Equal(t, uint64(2), next)

	active, err := svc.IsActive(id)
	assert.Nil(t, err)
	assert.True(t, active)

	registry.AssertExpectations(t)
}

// TestCreateAuctionValidation verifica as pré-condições de criação sem mutação de estado
func TestCreateAuctionValidation(t *testing.T) {
	svc, _, registry, _ := newTestService(t)

	_, err := svc.CreateAuction(testSeller, testContract, 7, 0, 3600*time.Second)
	assert.ErrorIs(t, err, services.ErrInvalidReservePrice)

	_, err = svc.CreateAuction(testSeller, testContract, 7, 100, 30*time.Second)
	assert.ErrorIs(t, err, services.ErrInvalidDuration)

	_, err = svc.CreateAuction(testSeller, testContract, 7, 100, 31*24*time.Hour)
	assert.ErrorIs(t, err, services.ErrInvalidDuration)

	// Entrada inválida é rejeitada antes de qualquer consulta externa
	registry.AssertNotCalled(t, "OwnerOf", mock.Anything, mock.Anything)

	// Chamador que não é dono
	registry.On("OwnerOf", testContract, uint64(7)).Return(testSeller, nil)
	_, err = svc.CreateAuction("intruso", testContract, 7, 100, 3600*time.Second)
	assert.ErrorIs(t, err, services.ErrNotAssetOwner)

	// Marketplace sem aprovação
	registry.On("IsApproved", testContract, uint64(7), testMarketplace).Return(false, nil)
	_, err = svc.CreateAuction(testSeller, testContract, 7, 100, 3600*time.Second)
	assert.ErrorIs(t, err, services.ErrAssetNotApproved)

	// Nenhum id foi consumido por tentativas rejeitadas
	next, err := svc.GetNextAuctionID()
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), next)
}

// TestPlaceBidSequence percorre o cenário de referência: reserva 100, lance
// exatamente 100 aceito, 100 repetido rejeitado, 150 aceito com reembolso de 100
func TestPlaceBidSequence(t *testing.T) {
	svc, escrow, registry, _ := newTestService(t)
	id := createTestAuction(t, svc, registry)

	// Primeiro lance precisa atingir a reserva: 99 falha, 100 passa
	err := svc.PlaceBid("ana", id, 99)
	assert.ErrorIs(t, err, services.ErrBidTooLow)

	assert.Nil(t, svc.PlaceBid("ana", id, 100))

	auction, _, _ := svc.GetAuction(id)
	assert.Equal(t, uint64(100), auction.CurrentBid)
	assert.Equal(t, "ana", auction.CurrentBidder)

	// Lance igual ao atual é rejeitado sem mutação
	err = svc.PlaceBid("beto", id, 100)
	assert.ErrorIs(t, err, services.ErrBidTooLow)
	auction, _, _ = svc.GetAuction(id)
	assert.Equal(t, "ana", auction.CurrentBidder)

	// Lance estritamente maior vence e credita o reembolso da ana
	assert.Nil(t, svc.PlaceBid("beto", id, 150))
	auction, _, _ = svc.GetAuction(id)
	assert.Equal(t, uint64(150), auction.CurrentBid)
	assert.Equal(t, "beto", auction.CurrentBidder)

	balance, err := escrow.GetBalance("ana")
	assert.Nil(t, err)
	assert.Equal(t, uint64(100), balance)
}

// TestPlaceBidErrors verifica a taxonomia de erros de lance
func TestPlaceBidErrors(t *testing.T) {
	svc, _, registry, clock := newTestService(t)

	err := svc.PlaceBid("ana", 42, 100)
	assert.ErrorIs(t, err, services.ErrAuctionNotFound)

	id := createTestAuction(t, svc, registry)

	clock.Advance(3600 * time.Second)
	err = svc.PlaceBid("ana", id, 100)
	assert.ErrorIs(t, err, services.ErrAuctionExpired)

	active, err := svc.IsActive(id)
	assert.Nil(t, err)
	assert.False(t, active)
}

// TestSettleAuction percorre a liquidação completa com taxa de 500 bps
func TestSettleAuction(t *testing.T) {
	svc, escrow, registry, clock := newTestService(t)
	id := createTestAuction(t, svc, registry)

	assert.Nil(t, svc.PlaceBid("ana", id, 100))
	assert.Nil(t, svc.PlaceBid("beto", id, 150))

	// Antes do fim: erro temporal
	err := svc.SettleAuction("qualquer", id)
	assert.ErrorIs(t, err, services.ErrAuctionNotYetEnded)

	clock.Advance(3601 * time.Second)
	registry.On("Transfer", testContract, uint64(7), testSeller, "beto").Return(nil).Once()

	// Liquidação sem permissão: qualquer conta pode chamar
	assert.Nil(t, svc.SettleAuction("qualquer", id))

	auction, _, _ := svc.GetAuction(id)
	assert.Equal(t, models.AuctionSettled, auction.Status)

	// floor(150 * 500 / 10000) = 7 para a plataforma, 143 para o vendedor
	sellerBalance, _ := escrow.GetBalance(testSeller)
	platformBalance, _ := escrow.GetBalance(testPlatform)
	assert.Equal(t, uint64(143), sellerBalance)
	assert.Equal(t, uint64(7), platformBalance)
	assert.Equal(t, uint64(150), sellerBalance+platformBalance)

	// Estado terminal: segunda liquidação e novos lances falham
	err = svc.SettleAuction("qualquer", id)
	assert.ErrorIs(t, err, services.ErrAuctionNotActive)
	err = svc.PlaceBid("carla", id, 200)
	assert.ErrorIs(t, err, services.ErrAuctionNotActive)

	registry.AssertExpectations(t)
}

// TestSettleWithoutBids verifica a liquidação "não vendido": sem transferência e sem fundos
func TestSettleWithoutBids(t *testing.T) {
	svc, escrow, registry, clock := newTestService(t)
	id := createTestAuction(t, svc, registry)

	clock.Advance(3601 * time.Second)
	assert.Nil(t, svc.SettleAuction("qualquer", id))

	auction, _, _ := svc.GetAuction(id)
	assert.Equal(t, models.AuctionSettled, auction.Status)

	sellerBalance, _ := escrow.GetBalance(testSeller)
	platformBalance, _ := escrow.GetBalance(testPlatform)
	assert.Equal(t, uint64(0), sellerBalance)
	assert.Equal(t, uint64(0), platformBalance)
	registry.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestSettleTransferFailure verifica que a liquidação aborta atomicamente
// quando a transferência do ativo falha
func TestSettleTransferFailure(t *testing.T) {
	svc, escrow, registry, clock := newTestService(t)
	id := createTestAuction(t, svc, registry)

	assert.Nil(t, svc.PlaceBid("ana", id, 100))
	clock.Advance(3601 * time.Second)

	registry.On("Transfer", testContract, uint64(7), testSeller, "ana").Return(errors.New("vendedor revogou a aprovação")).Once()

	err := svc.SettleAuction("qualquer", id)
	assert.ErrorIs(t, err, services.ErrTransferFailed)

	// Nada mudou: leilão ativo de novo, nenhum crédito parcial
	auction, _, _ := svc.GetAuction(id)
	assert.Equal(t, models.AuctionActive, auction.Status)
	sellerBalance, _ := escrow.GetBalance(testSeller)
	assert.Equal(t, uint64(0), sellerBalance)

	// Resolvido o problema externo, a liquidação funciona
	registry.On("Transfer", testContract, uint64(7), testSeller, "ana").Return(nil).Once()
	assert.Nil(t, svc.SettleAuction("qualquer", id))

	sellerBalance, _ = escrow.GetBalance(testSeller)
	platformBalance, _ := escrow.GetBalance(testPlatform)
	assert.Equal(t, uint64(100), sellerBalance+platformBalance)

	registry.AssertExpectations(t)
}

// TestCancelAuction verifica as regras de cancelamento
func TestCancelAuction(t *testing.T) {
	svc, _, registry, _ := newTestService(t)

	err := svc.CancelAuction(testSeller, 42)
	assert.ErrorIs(t, err, services.ErrAuctionNotFound)

	id := createTestAuction(t, svc, registry)

	err = svc.CancelAuction("intruso", id)
	assert.ErrorIs(t, err, services.ErrNotSeller)

	assert.Nil(t, svc.CancelAuction(testSeller, id))

	auction, _, _ := svc.GetAuction(id)
	assert.Equal(t, models.AuctionCanceled, auction.Status)

	// Estado terminal: lance, liquidação e novo cancelamento falham
	err = svc.PlaceBid("ana", id, 100)
	assert.ErrorIs(t, err, services.ErrAuctionNotActive)
	err = svc.SettleAuction("qualquer", id)
	assert.ErrorIs(t, err, services.ErrAuctionNotActive)
	err = svc.CancelAuction(testSeller, id)
	assert.ErrorIs(t, err, services.ErrAuctionNotActive)
}

// TestCancelAfterBid verifica que cancelar depois de um lance é proibido
func TestCancelAfterBid(t *testing.T) {
	svc, _, registry, _ := newTestService(t)
	id := createTestAuction(t, svc, registry)

	assert.Nil(t, svc.PlaceBid("ana", id, 100))

	err := svc.CancelAuction(testSeller, id)
	assert.ErrorIs(t, err, services.ErrBidAlreadyPlaced)

	auction, _, _ := svc.GetAuction(id)
	assert.Equal(t, models.AuctionActive, auction.Status)
}

// TestUpdatePlatformFee verifica a autorização da troca de taxa
func TestUpdatePlatformFee(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	err := svc.UpdatePlatformFee("intruso", 250)
	assert.ErrorIs(t, err, services.ErrNotPlatformOwner)
	assert.Equal(t, uint64(500), svc.GetPlatformFee())

	assert.Nil(t, svc.UpdatePlatformFee(testPlatform, 250))
	assert.Equal(t, uint64(250), svc.GetPlatformFee())

	err = svc.UpdatePlatformFee(testPlatform, services.MaxFeeBps+1)
	assert.ErrorIs(t, err, services.ErrInvalidFeeRate)
}

// TestEmittedEvents verifica o feed de fatos do ciclo de vida
func TestEmittedEvents(t *testing.T) {
	svc, _, registry, clock := newTestService(t)
	id := createTestAuction(t, svc, registry)

	assert.Nil(t, svc.PlaceBid("ana", id, 100))
	clock.Advance(3601 * time.Second)
	registry.On("Transfer", testContract, uint64(7), testSeller, "ana").Return(nil).Once()
	assert.Nil(t, svc.SettleAuction("qualquer", id))

	events, err := svc.ListEvents(10)
	assert.Nil(t, err)
	assert.Len(t, events, 3)

	types := make(map[models.EventType]bool)
	for _, event := range events {
		types[event.Type] = true
		assert.Equal(t, id, event.AuctionID)
	}
	assert.True(t, types[models.EventAuctionCreated])
	assert.True(t, types[models.EventBidPlaced])
	assert.True(t, types[models.EventAuctionSettled])
}

// reentrantRegistry tenta liquidar de novo DURANTE a transferência do ativo.
type reentrantRegistry struct {
	svc       *services.AuctionService
	auctionID uint64
	nestedErr error
}

func (r *reentrantRegistry) OwnerOf(contract string, assetID uint64) (string, error) {
	return testSeller, nil
}

func (r *reentrantRegistry) IsApproved(contract string, assetID uint64, spender string) (bool, error) {
	return true, nil
}

func (r *reentrantRegistry) Transfer(contract string, assetID uint64, from, to string) error {
	r.nestedErr = r.svc.SettleAuction("reentrante", r.auctionID)
	return nil
}

// TestSettleReentrancy verifica que uma chamada reentrante durante a
// transferência já observa o leilão liquidado: liquidação dupla é impossível
func TestSettleReentrancy(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := storage.NewMemoryStore()
	registry := &reentrantRegistry{}

	fees, err := services.NewFeeSchedule(500)
	assert.Nil(t, err)
	escrow := services.NewEscrowService(store, new(MockPayout))
	escrow.Now = clock.Now

	svc := services.NewAuctionService(store, registry, escrow, fees, testPlatform, testMarketplace)
	svc.Now = clock.Now
	registry.svc = svc

	id, err := svc.CreateAuction(testSeller, testContract, 7, 100, 3600*time.Second)
	assert.Nil(t, err)
	registry.auctionID = id

	assert.Nil(t, svc.PlaceBid("ana", id, 100))
	clock.Advance(3601 * time.Second)

	assert.Nil(t, svc.SettleAuction("qualquer", id))
	assert.ErrorIs(t, registry.nestedErr, services.ErrAuctionNotActive)

	// Os fundos foram creditados exatamente uma vez
	sellerBalance, _ := escrow.GetBalance(testSeller)
	platformBalance, _ := escrow.GetBalance(testPlatform)
	assert.Equal(t, uint64(100), sellerBalance+platformBalance)
}
