package service

import (
	"context"

	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/core/domain"
)

// SequenceAllocator emite o próximo nosso número sequencial de um convênio.
// A alocação é otimista: o contador avançado é persistido antes de o número
// ser entregue, então uma falha de registro posterior deixa uma lacuna
// permanente em vez de arriscar duplicata.
type SequenceAllocator struct {
	integracaoRepo domain.IntegracaoRepository
	logger         domain.Logger
}

func NewSequenceAllocator(integracaoRepo domain.IntegracaoRepository, logger domain.Logger) *SequenceAllocator {
	return &SequenceAllocator{
		integracaoRepo: integracaoRepo,
		logger:         logger,
	}
}

// ProximoNossoNumero avança o contador de forma atômica no armazenamento e
// devolve o número formatado com 11 dígitos. Chamadas concorrentes para o
// mesmo convênio nunca recebem o mesmo valor.
func (a *SequenceAllocator) ProximoNossoNumero(ctx context.Context, integracaoID string) (string, error) {
	sequencia, err := a.integracaoRepo.IncrementarSequencia(ctx, integracaoID)
	if err != nil {
		return "", err
	}

	nossoNumero := domain.FormataNossoNumero(sequencia)

	a.logger.Debug(ctx, "nosso número alocado", map[string]interface{}{
		"integracao_id": integracaoID,
		"nosso_numero":  nossoNumero,
	})

	return nossoNumero, nil
}
