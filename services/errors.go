package services

import "errors"

// Erros do núcleo do marketplace. A taxonomia importa para o chamador:
// erros de validação são corrigíveis reenviando a chamada, erros de
// autorização exigem ação externa (ex: aprovar o marketplace no registro de
// ativos), erros temporais dependem do relógio e erros de integridade
// abortam a operação inteira sem efeito parcial.
var (
	// Validação
	ErrInvalidReservePrice = errors.New("preço de reserva inválido")
	ErrInvalidDuration     = errors.New("duração de leilão inválida")
	ErrBidTooLow           = errors.New("lance abaixo do mínimo exigido")
	ErrInvalidFeeRate      = errors.New("taxa de plataforma inválida")

	// Autorização
	ErrNotAssetOwner    = errors.New("chamador não é o dono do ativo")
	ErrAssetNotApproved = errors.New("marketplace não está aprovado para transferir o ativo")
	ErrNotSeller        = errors.New("chamador não é o vendedor do leilão")
	ErrNotPlatformOwner = errors.New("chamador não é o dono da plataforma")

	// Temporais / estado
	ErrAuctionExpired     = errors.New("leilão já expirou")
	ErrAuctionNotYetEnded = errors.New("leilão ainda não terminou")
	ErrAuctionNotActive   = errors.New("leilão não está ativo")
	ErrBidAlreadyPlaced   = errors.New("leilão já recebeu lances")

	// Não encontrado
	ErrAuctionNotFound = errors.New("leilão não encontrado")

	// Integridade (transferência de ativo ou pagamento externo falhou)
	ErrTransferFailed = errors.New("transferência externa falhou")
)
