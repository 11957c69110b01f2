package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ferreirogomes/pregao/models"
)

// Limites de duração de um leilão. O máximo vem do contrato de referência
// do marketplace (30 dias).
const (
	MinAuctionDuration = time.Minute
	MaxAuctionDuration = 30 * 24 * time.Hour
)

// AuctionService é o núcleo do marketplace: dono do ciclo de vida dos
// leilões, da aceitação de lances e da liquidação. Cada operação executa
// como unidade indivisível sobre o estado compartilhado; chamadas externas
// (registro de ativos, pagamento) só acontecem DEPOIS que o estado interno
// já foi gravado no seu valor final, de modo que uma chamada reentrante
// observa estado consistente e não consegue liquidar ou gastar duas vezes.
type AuctionService struct {
	mu     sync.Mutex
	store  Store
	assets AssetRegistry
	escrow *EscrowService
	fees   *FeeSchedule

	// platformAccount recebe a taxa de cada venda e é quem pode alterá-la.
	platformAccount string
	// marketplaceAccount é a identidade deste marketplace perante o registro
	// de ativos (o spender que o vendedor precisa aprovar).
	marketplaceAccount string

	// Now fornece o tempo corrente. Injetado para os testes controlarem o relógio.
	Now func() time.Time
}

// NewAuctionService monta o núcleo com seus colaboradores.
func NewAuctionService(store Store, assets AssetRegistry, escrow *EscrowService, fees *FeeSchedule, platformAccount, marketplaceAccount string) *AuctionService {
	return &AuctionService{
		store:              store,
		assets:             assets,
		escrow:             escrow,
		fees:               fees,
		platformAccount:    platformAccount,
		marketplaceAccount: marketplaceAccount,
		Now:                time.Now,
	}
}

// CreateAuction valida posse e aprovação do ativo no momento da chamada e
// registra um novo leilão ativo. Devolve o id alocado (crescente, nunca
// reutilizado).
func (s *AuctionService) CreateAuction(caller, assetContract string, assetID, reservePrice uint64, duration time.Duration) (uint64, error) {
	if reservePrice == 0 {
		return 0, ErrInvalidReservePrice
	}
	if duration < MinAuctionDuration || duration > MaxAuctionDuration {
		return 0, ErrInvalidDuration
	}

	// Consultas ao registro de ativos são somente leitura; fora da seção crítica.
	owner, err := s.assets.OwnerOf(assetContract, assetID)
	if err != nil {
		return 0, fmt.Errorf("falha ao consultar dono do ativo: %w", err)
	}
	if owner != caller {
		return 0, ErrNotAssetOwner
	}
	approved, err := s.assets.IsApproved(assetContract, assetID, s.marketplaceAccount)
	if err != nil {
		return 0, fmt.Errorf("falha ao consultar aprovação do ativo: %w", err)
	}
	if !approved {
		return 0, ErrAssetNotApproved
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.store.AllocateAuctionID()
	if err != nil {
		return 0, fmt.Errorf("falha ao alocar id de leilão: %w", err)
	}

	now := s.Now()
	auction := models.Auction{
		ID:            id,
		AssetContract: assetContract,
		AssetID:       assetID,
		Seller:        caller,
		ReservePrice:  reservePrice,
		CurrentBid:    0,
		CurrentBidder: models.NoBidder,
		EndTime:       now.Add(duration),
		Status:        models.AuctionActive,
		CreatedAt:     now,
	}
	if err := s.store.SaveAuction(auction); err != nil {
		return 0, fmt.Errorf("falha ao gravar leilão: %w", err)
	}

	s.recordEvent(models.NewEvent(models.EventAuctionCreated, id, caller, reservePrice, now))
	return id, nil
}

// PlaceBid registra um lance. O primeiro lance precisa atingir o preço de
// reserva; os seguintes precisam apenas superar estritamente o lance atual
// (não há incremento percentual mínimo no protocolo). O licitante superado é
// reembolsado por crédito na custódia, nunca por transferência direta —
// trabalho O(1) por lance, e um recebedor malicioso não trava o leilão.
func (s *AuctionService) PlaceBid(caller string, auctionID, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, found, err := s.store.GetAuction(auctionID)
	if err != nil {
		return fmt.Errorf("falha ao ler leilão %d: %w", auctionID, err)
	}
	if !found {
		return ErrAuctionNotFound
	}
	if auction.Status != models.AuctionActive {
		return ErrAuctionNotActive
	}
	if !s.Now().Before(auction.EndTime) {
		return ErrAuctionExpired
	}
	if auction.HasBid() {
		if amount <= auction.CurrentBid {
			return ErrBidTooLow
		}
	} else if amount < auction.ReservePrice {
		return ErrBidTooLow
	}

	// Reembolsa o licitante anterior ANTES de sobrescrever os campos do lance.
	if auction.HasBid() {
		if err := s.escrow.Credit(auction.CurrentBidder, auction.CurrentBid); err != nil {
			return fmt.Errorf("falha ao reembolsar licitante anterior: %w", err)
		}
	}

	auction.CurrentBid = amount
	auction.CurrentBidder = caller
	if err := s.store.SaveAuction(auction); err != nil {
		return fmt.Errorf("falha ao gravar lance: %w", err)
	}

	s.recordEvent(models.NewEvent(models.EventBidPlaced, auctionID, caller, amount, s.Now()))
	return nil
}

// SettleAuction liquida um leilão expirado. Qualquer conta pode chamar
// (liquidação sem permissão): o resultado paga sempre as partes corretas.
// Um leilão sem lances liquida como "não vendido", sem movimentar ativo nem
// fundos. A transferência do ativo falhar aborta a liquidação inteira: o
// leilão volta a Active e nenhum fundo é creditado.
func (s *AuctionService) SettleAuction(caller string, auctionID uint64) error {
	s.mu.Lock()
	auction, found, err := s.store.GetAuction(auctionID)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("falha ao ler leilão %d: %w", auctionID, err)
	}
	if !found {
		s.mu.Unlock()
		return ErrAuctionNotFound
	}
	if auction.Status != models.AuctionActive {
		s.mu.Unlock()
		return ErrAuctionNotActive
	}
	if s.Now().Before(auction.EndTime) {
		s.mu.Unlock()
		return ErrAuctionNotYetEnded
	}

	// Marca como liquidado ANTES de qualquer chamada externa.
	auction.Status = models.AuctionSettled
	if err := s.store.SaveAuction(auction); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("falha ao gravar liquidação: %w", err)
	}
	s.mu.Unlock()

	if !auction.HasBid() {
		// Expirou sem lances: transição terminal inofensiva.
		s.recordEvent(models.NewEvent(models.EventAuctionSettled, auctionID, models.NoBidder, 0, s.Now()))
		return nil
	}

	net, fee := s.fees.Split(auction.CurrentBid)

	// Transferência do ativo fora da seção crítica: uma chamada reentrante
	// já encontra o leilão liquidado.
	if err := s.assets.Transfer(auction.AssetContract, auction.AssetID, auction.Seller, auction.CurrentBidder); err != nil {
		// Aborta atomicamente: restaura o leilão e não credita nada.
		s.mu.Lock()
		auction.Status = models.AuctionActive
		if restoreErr := s.store.SaveAuction(auction); restoreErr != nil {
			log.Printf("ERRO: transferência do leilão %d falhou e a restauração do estado também: %v", auctionID, restoreErr)
		}
		s.mu.Unlock()
		return fmt.Errorf("%w: transferência do ativo: %v", ErrTransferFailed, err)
	}

	if err := s.escrow.Credit(auction.Seller, net); err != nil {
		// O ativo já mudou de mãos; exige reconciliação, nunca reversão do leilão.
		log.Printf("ERRO: leilão %d liquidado, mas falha ao creditar vendedor: %v", auctionID, err)
		return fmt.Errorf("falha ao creditar vendedor: %w", err)
	}
	if err := s.escrow.Credit(s.platformAccount, fee); err != nil {
		log.Printf("ERRO: leilão %d liquidado, mas falha ao creditar plataforma: %v", auctionID, err)
		return fmt.Errorf("falha ao creditar plataforma: %w", err)
	}

	s.recordEvent(models.NewEvent(models.EventAuctionSettled, auctionID, auction.CurrentBidder, auction.CurrentBid, s.Now()))
	return nil
}

// CancelAuction cancela um leilão que ainda não recebeu lances. Só o
// vendedor pode cancelar; depois do primeiro lance o cancelamento é
// proibido para não prejudicar o licitante.
func (s *AuctionService) CancelAuction(caller string, auctionID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, found, err := s.store.GetAuction(auctionID)
	if err != nil {
		return fmt.Errorf("falha ao ler leilão %d: %w", auctionID, err)
	}
	if !found {
		return ErrAuctionNotFound
	}
	if auction.Status != models.AuctionActive {
		return ErrAuctionNotActive
	}
	if auction.HasBid() {
		return ErrBidAlreadyPlaced
	}
	if auction.Seller != caller {
		return ErrNotSeller
	}

	auction.Status = models.AuctionCanceled
	if err := s.store.SaveAuction(auction); err != nil {
		return fmt.Errorf("falha ao gravar cancelamento: %w", err)
	}

	s.recordEvent(models.NewEvent(models.EventAuctionCanceled, auctionID, caller, 0, s.Now()))
	return nil
}

// UpdatePlatformFee altera a taxa da plataforma. Só a conta da plataforma pode.
func (s *AuctionService) UpdatePlatformFee(caller string, rateBps uint64) error {
	if caller != s.platformAccount {
		return ErrNotPlatformOwner
	}
	if err := s.fees.SetRate(rateBps); err != nil {
		return err
	}
	s.recordEvent(models.NewEvent(models.EventPlatformFeeUpdate, 0, caller, rateBps, s.Now()))
	return nil
}

// GetAuction devolve o leilão pelo id, inclusive após estado terminal.
func (s *AuctionService) GetAuction(auctionID uint64) (models.Auction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.GetAuction(auctionID)
}

// IsActive informa se o leilão existe, está ativo e ainda não expirou.
func (s *AuctionService) IsActive(auctionID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	auction, found, err := s.store.GetAuction(auctionID)
	if err != nil || !found {
		return false, err
	}
	return auction.Status == models.AuctionActive && s.Now().Before(auction.EndTime), nil
}

// GetNextAuctionID devolve o próximo id que será atribuído, sem consumi-lo.
func (s *AuctionService) GetNextAuctionID() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.PeekNextAuctionID()
}

// GetPlatformFee devolve a taxa corrente em basis points.
func (s *AuctionService) GetPlatformFee() uint64 {
	return s.fees.RateBps()
}

// ListEvents devolve os fatos mais recentes do marketplace (feed para indexadores).
func (s *AuctionService) ListEvents(limit int) ([]models.Event, error) {
	return s.store.ListEvents(limit)
}

// recordEvent grava um fato emitido. Fatos não são necessários para a
// correção do núcleo; falha ao gravar é logada e não propaga.
func (s *AuctionService) recordEvent(event models.Event) {
	if err := s.store.SaveEvent(event); err != nil {
		log.Printf("ERRO: falha ao registrar fato %s (%s): %v", event.ID, event.Type, err)
	}
}
