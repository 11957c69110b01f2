package blockchain_listener

import (
	"context"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
)

// BlockchainListener acompanha na Solana as transações do tesouro do
// marketplace (transferências de ativos liquidados e pagamentos de saque)
// para fins de reconciliação. É observacional: a correção do núcleo não
// depende dele.
type BlockchainListener struct {
	WSClient *ws.Client
	Treasury solana.PublicKey
}

// NewBlockchainListener conecta o cliente WebSocket e prepara a escuta.
func NewBlockchainListener(wsEndpoint, treasuryPubKeyBase58 string) *BlockchainListener {
	wsClient, err := ws.Connect(context.Background(), wsEndpoint)
	if err != nil {
		log.Fatalf("Falha ao conectar ao WebSocket Solana: %v", err)
	}

	treasury, err := solana.PublicKeyFromBase58(treasuryPubKeyBase58)
	if err != nil {
		log.Fatalf("Chave pública do tesouro inválida para o listener: %v", err)
	}

	return &BlockchainListener{
		WSClient: wsClient,
		Treasury: treasury,
	}
}

// StartListening inicia a escuta por transações que mencionam o tesouro.
func (l *BlockchainListener) StartListening() {
	log.Println("Iniciando listener da blockchain...")

	for {
		sub, err := l.WSClient.LogsSubscribeMentions(l.Treasury, rpc.CommitmentFinalized)
		if err != nil {
			log.Printf("Falha ao subscrever aos logs do tesouro: %v. Nova tentativa em 10s.", err)
			time.Sleep(10 * time.Second)
			continue
		}

		l.consume(sub)
		sub.Unsubscribe()
	}
}

// consume processa os resultados da subscrição até ela falhar.
func (l *BlockchainListener) consume(sub *ws.LogSubscription) {
	for {
		result, err := sub.Recv(context.Background())
		if err != nil {
			log.Printf("Subscrição de logs encerrada: %v", err)
			return
		}
		if result.Value.Err != nil {
			log.Printf("Transação %s do tesouro FALHOU na rede: %v", result.Value.Signature, result.Value.Err)
			continue
		}
		log.Printf("Transação %s do tesouro confirmada.", result.Value.Signature)
	}
}
