package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaRPC é a fatia do cliente RPC que o adaptador usa.
type SolanaRPC interface {
	GetTokenLargestAccounts(ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenLargestAccountsResult, error)
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetRecentBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetRecentBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

// SolanaAssetRegistry implementa AssetRegistry sobre a Solana. Cada ativo é
// um mint de supply 1 (NFT); o campo contract carrega o endereço do mint e o
// assetID é mantido apenas para o registro interno do marketplace. A
// aprovação usa o mecanismo de delegate do token program: o vendedor delega
// 1 unidade para a conta do tesouro do marketplace.
type SolanaAssetRegistry struct {
	RPCClient SolanaRPC
	Treasury  solana.PrivateKey // autoridade do marketplace: delegate das transferências e pagadora das taxas de rede
}

// NewSolanaAssetRegistry cria o adaptador com o endpoint RPC e a chave do tesouro.
func NewSolanaAssetRegistry(rpcEndpoint, treasuryKeyBase58 string) (*SolanaAssetRegistry, error) {
	treasury, err := solana.PrivateKeyFromBase58(treasuryKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("falha ao carregar chave privada do tesouro: %w", err)
	}
	return &SolanaAssetRegistry{
		RPCClient: rpc.New(rpcEndpoint),
		Treasury:  treasury,
	}, nil
}

// holderAccount localiza a conta de token que detém a unidade do mint e a decodifica.
func (s *SolanaAssetRegistry) holderAccount(mint solana.PublicKey) (token.Account, error) {
	var holder token.Account

	largest, err := s.RPCClient.GetTokenLargestAccounts(context.Background(), mint, rpc.CommitmentFinalized)
	if err != nil {
		return holder, fmt.Errorf("falha ao consultar contas do mint %s: %w", mint, err)
	}

	for _, candidate := range largest.Value {
		if candidate.Amount == "0" {
			continue
		}
		info, err := s.RPCClient.GetAccountInfo(context.Background(), candidate.Address)
		if err != nil {
			return holder, fmt.Errorf("falha ao ler conta de token %s: %w", candidate.Address, err)
		}
		if info.Value == nil {
			// Conta fechada entre as duas consultas
			return holder, fmt.Errorf("conta de token %s não existe mais", candidate.Address)
		}
		if err := bin.NewBinDecoder(info.Value.Data.GetBinary()).Decode(&holder); err != nil {
			return holder, fmt.Errorf("falha ao decodificar conta de token %s: %w", candidate.Address, err)
		}
		return holder, nil
	}

	return holder, errors.New("nenhuma conta detém o ativo")
}

// OwnerOf devolve a conta dona do ativo (o dono da conta de token que detém o mint).
func (s *SolanaAssetRegistry) OwnerOf(contract string, assetID uint64) (string, error) {
	mint, err := solana.PublicKeyFromBase58(contract)
	if err != nil {
		return "", fmt.Errorf("endereço de mint inválido: %w", err)
	}
	holder, err := s.holderAccount(mint)
	if err != nil {
		return "", err
	}
	return holder.Owner.String(), nil
}

// IsApproved informa se spender é o delegate da conta que detém o ativo.
func (s *SolanaAssetRegistry) IsApproved(contract string, assetID uint64, spender string) (bool, error) {
	mint, err := solana.PublicKeyFromBase58(contract)
	if err != nil {
		return false, fmt.Errorf("endereço de mint inválido: %w", err)
	}
	holder, err := s.holderAccount(mint)
	if err != nil {
		return false, err
	}
	if holder.Delegate == nil || holder.DelegatedAmount == 0 {
		return false, nil
	}
	return holder.Delegate.String() == spender, nil
}

// Transfer move a unidade do ativo de from para to, assinando como delegate.
// Assume que a conta associada de destino já existe; a criação dela é
// responsabilidade do fluxo de onboarding do comprador.
func (s *SolanaAssetRegistry) Transfer(contract string, assetID uint64, from, to string) error {
	mint, err := solana.PublicKeyFromBase58(contract)
	if err != nil {
		return fmt.Errorf("endereço de mint inválido: %w", err)
	}
	fromOwner, err := solana.PublicKeyFromBase58(from)
	if err != nil {
		return fmt.Errorf("conta de origem inválida: %w", err)
	}
	toOwner, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return fmt.Errorf("conta de destino inválida: %w", err)
	}

	fromATA, _, err := solana.FindAssociatedTokenAddress(fromOwner, mint)
	if err != nil {
		return fmt.Errorf("falha ao derivar ATA de origem: %w", err)
	}
	toATA, _, err := solana.FindAssociatedTokenAddress(toOwner, mint)
	if err != nil {
		return fmt.Errorf("falha ao derivar ATA de destino: %w", err)
	}

	resp, err := s.RPCClient.GetRecentBlockhash(context.Background(), rpc.CommitmentFinalized)
	if err != nil {
		return fmt.Errorf("falha ao obter blockhash: %w", err)
	}

	transferInstruction := token.NewTransferInstruction(
		1, // supply 1: o ativo inteiro
		fromATA,
		toATA,
		s.Treasury.PublicKey(), // o tesouro age como delegate aprovado pelo vendedor
		nil,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{transferInstruction},
		resp.Value.Blockhash,
		solana.TransactionPayer(s.Treasury.PublicKey()),
	)
	if err != nil {
		return fmt.Errorf("falha ao criar transação de transferência: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.Treasury.PublicKey()) {
			return &s.Treasury
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("falha ao assinar transação pelo tesouro: %w", err)
	}

	txID, err := s.RPCClient.SendTransactionWithOpts(context.Background(), tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return fmt.Errorf("falha ao enviar transferência do ativo: %w", err)
	}
	log.Printf("Transferência do ativo %s enviada: %s", contract, txID)

	return nil
}
