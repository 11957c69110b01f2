package services

import (
	"context"
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaPayoutService implementa Payout transferindo lamports do tesouro do
// marketplace para a conta sacadora (system program).
type SolanaPayoutService struct {
	RPCClient *rpc.Client
	Treasury  solana.PrivateKey
}

// NewSolanaPayoutService cria o serviço de pagamento de saques.
func NewSolanaPayoutService(rpcEndpoint, treasuryKeyBase58 string) (*SolanaPayoutService, error) {
	treasury, err := solana.PrivateKeyFromBase58(treasuryKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("falha ao carregar chave privada do tesouro: %w", err)
	}
	return &SolanaPayoutService{
		RPCClient: rpc.New(rpcEndpoint),
		Treasury:  treasury,
	}, nil
}

// Pay envia amount lamports do tesouro para account. Devolve a assinatura da
// transação; uma falha aqui faz o EscrowService restaurar o saldo do sacador.
func (s *SolanaPayoutService) Pay(account string, amount uint64) (string, error) {
	recipient, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return "", fmt.Errorf("conta de destino inválida: %w", err)
	}

	resp, err := s.RPCClient.GetRecentBlockhash(context.Background(), rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("falha ao obter blockhash: %w", err)
	}

	transferInstruction := system.NewTransferInstruction(
		amount,
		s.Treasury.PublicKey(),
		recipient,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{transferInstruction},
		resp.Value.Blockhash,
		solana.TransactionPayer(s.Treasury.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("falha ao criar transação de pagamento: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.Treasury.PublicKey()) {
			return &s.Treasury
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("falha ao assinar pagamento pelo tesouro: %w", err)
	}

	txID, err := s.RPCClient.SendTransactionWithOpts(context.Background(), tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("falha ao enviar pagamento: %w", err)
	}
	log.Printf("Pagamento de %d lamports para %s enviado: %s", amount, account, txID)

	return txID.String(), nil
}
