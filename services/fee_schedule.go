package services

import (
	"math/bits"
	"sync"
)

// MaxFeeBps é a taxa máxima da plataforma: 1000 basis points = 10%.
const MaxFeeBps = 1000

// FeeSchedule divide um valor bruto de venda entre vendedor e plataforma.
// É determinístico: fee = floor(bruto * taxa / 10000), líquido = bruto - fee.
type FeeSchedule struct {
	mu      sync.RWMutex
	rateBps uint64
}

// NewFeeSchedule cria o divisor de taxas. A taxa é limitada a [0, MaxFeeBps].
func NewFeeSchedule(rateBps uint64) (*FeeSchedule, error) {
	if rateBps > MaxFeeBps {
		return nil, ErrInvalidFeeRate
	}
	return &FeeSchedule{rateBps: rateBps}, nil
}

// Split divide o valor bruto em (líquido para o vendedor, taxa da plataforma).
// A soma das duas partes é sempre igual ao bruto: nenhum valor é criado ou perdido.
// O produto bruto*taxa é calculado em 128 bits: valores altos de lance não
// podem estourar o uint64 e distorcer a divisão. O quociente sempre cabe em
// 64 bits porque a taxa é no máximo MaxFeeBps < 10000.
func (f *FeeSchedule) Split(gross uint64) (net uint64, fee uint64) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	hi, lo := bits.Mul64(gross, f.rateBps)
	fee, _ = bits.Div64(hi, lo, 10000) // divisão inteira (floor)
	net = gross - fee
	return net, fee
}

// RateBps retorna a taxa configurada em basis points.
func (f *FeeSchedule) RateBps() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.rateBps
}

// SetRate atualiza a taxa. A autorização (dono da plataforma) é verificada
// pelo AuctionService; aqui só valida os limites.
func (f *FeeSchedule) SetRate(rateBps uint64) error {
	if rateBps > MaxFeeBps {
		return ErrInvalidFeeRate
	}
	f.mu.Lock()
	f.rateBps = rateBps
	f.mu.Unlock()
	return nil
}
