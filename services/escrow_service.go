package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ferreirogomes/pregao/models"
)

// Payout é o colaborador externo que efetivamente paga um saque (ex:
// transferência de lamports do tesouro na Solana). Devolve o id da
// transação externa.
type Payout interface {
	Pay(account string, amount uint64) (string, error)
}

// EscrowService mantém o saldo sacável de cada conta (padrão pull-payment):
// o marketplace só credita saldos; quem recebe é responsável por sacar.
// Créditos e saques são serializados pelo mutex do serviço, mas o pagamento
// externo acontece FORA da seção crítica, com o saldo já zerado — uma
// chamada reentrante vinda do pagador observa o estado final e não consegue
// sacar duas vezes.
type EscrowService struct {
	mu     sync.Mutex
	store  Store
	payout Payout

	// Now fornece o tempo para carimbo dos fatos emitidos. Substituível em teste.
	Now func() time.Time
}

// NewEscrowService cria o serviço de custódia sobre o Store dado.
func NewEscrowService(store Store, payout Payout) *EscrowService {
	return &EscrowService{
		store:  store,
		payout: payout,
		Now:    time.Now,
	}
}

// Credit adiciona amount ao saldo sacável da conta. Uso interno do
// AuctionService (reembolso de licitante superado, repasse de venda, taxa da
// plataforma); nunca exposto diretamente a usuários finais.
func (s *EscrowService) Credit(account string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.store.GetBalance(account)
	if err != nil {
		return fmt.Errorf("falha ao ler saldo de %s: %w", account, err)
	}
	if err := s.store.SaveBalance(account, balance+amount); err != nil {
		return fmt.Errorf("falha ao creditar %d para %s: %w", amount, account, err)
	}
	return nil
}

// Withdraw saca o saldo integral do chamador. O saldo é zerado ANTES do
// pagamento externo; se o pagamento falhar, o valor é devolvido ao saldo e o
// erro reportado (o ledger nunca perde fundos num pagamento falho). Saldo
// zero é um no-op e devolve 0 sem erro.
func (s *EscrowService) Withdraw(caller string) (uint64, error) {
	s.mu.Lock()
	balance, err := s.store.GetBalance(caller)
	if err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("falha ao ler saldo de %s: %w", caller, err)
	}
	if balance == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	if err := s.store.SaveBalance(caller, 0); err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("falha ao zerar saldo de %s: %w", caller, err)
	}
	s.mu.Unlock()

	// Pagamento externo fora da seção crítica: o saldo já está zerado.
	txID, err := s.payout.Pay(caller, balance)
	if err != nil {
		// Devolve o valor por cima do saldo atual: créditos podem ter
		// acontecido entre o zeramento e a falha.
		if restoreErr := s.Credit(caller, balance); restoreErr != nil {
			// Situação grave: o pagamento falhou e o saldo não pôde ser
			// restaurado no armazenamento. Exige reconciliação manual.
			log.Printf("ERRO: pagamento de %d para %s falhou e a restauração do saldo também: %v", balance, caller, restoreErr)
		}
		return 0, fmt.Errorf("%w: pagamento de saque: %v", ErrTransferFailed, err)
	}

	event := models.NewEvent(models.EventFundsWithdrawn, 0, caller, balance, s.Now())
	if err := s.store.SaveEvent(event); err != nil {
		// O saque já aconteceu; a perda é só do fato de auditoria.
		log.Printf("ERRO: saque %s efetuado (tx %s), mas falha ao registrar fato: %v", event.ID, txID, err)
	}
	return balance, nil
}

// GetBalance devolve o saldo sacável da conta (consulta somente leitura).
func (s *EscrowService) GetBalance(account string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.GetBalance(account)
}
