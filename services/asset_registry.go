package services

// AssetRegistry é o colaborador externo que mantém posse e aprovação de
// ativos únicos transferíveis (ex: um programa de NFT na Solana). O núcleo
// só precisa destas três operações; a mecânica de transferência/aprovação
// do registro em si não pertence ao marketplace.
type AssetRegistry interface {
	// OwnerOf devolve a conta dona do ativo.
	OwnerOf(contract string, assetID uint64) (string, error)
	// IsApproved informa se spender está autorizado a transferir o ativo.
	IsApproved(contract string, assetID uint64, spender string) (bool, error)
	// Transfer move o ativo de from para to. Uma falha aqui é fatal para a
	// liquidação em curso: nenhum fundo pode ser creditado sem o ativo mudar de mãos.
	Transfer(contract string, assetID uint64, from, to string) error
}
