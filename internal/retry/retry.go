// Package retry concentra as políticas de repetição e polling do gateway,
// substituindo loops de sleep espalhados: toda espera tem número máximo de
// tentativas, tempo total e cancelamento via contexto.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// PollConfig limita um polling de resultado assíncrono
type PollConfig struct {
	// MaxTentativas é o número máximo de consultas (0 = usa o padrão)
	MaxTentativas uint64
	// IntervaloInicial entre consultas; cresce exponencialmente
	IntervaloInicial time.Duration
	// IntervaloMaximo entre consultas
	IntervaloMaximo time.Duration
	// TempoTotal é o teto de duração do polling inteiro
	TempoTotal time.Duration
}

// DefaultPollConfig: até 10 consultas em no máximo 2 minutos
func DefaultPollConfig() PollConfig {
	return PollConfig{
		MaxTentativas:    10,
		IntervaloInicial: 2 * time.Second,
		IntervaloMaximo:  30 * time.Second,
		TempoTotal:       2 * time.Minute,
	}
}

// ErrEsgotado indica que o polling terminou sem resultado conclusivo
var ErrEsgotado = errors.New("polling esgotado sem resultado conclusivo")

// errContinuar sinaliza internamente que o resultado ainda não chegou
var errContinuar = errors.New("resultado ainda não disponível")

// Poll executa op até que ela indique conclusão, o limite de tentativas
// ou de tempo se esgote, ou o contexto seja cancelado. Erros de op
// interrompem o polling imediatamente.
func Poll(ctx context.Context, cfg PollConfig, op func(ctx context.Context) (concluido bool, err error)) error {
	// Campos zerados recebem o padrão individualmente; os que o chamador
	// preencheu são respeitados
	padrao := DefaultPollConfig()
	if cfg.MaxTentativas == 0 {
		cfg.MaxTentativas = padrao.MaxTentativas
	}
	if cfg.IntervaloInicial == 0 {
		cfg.IntervaloInicial = padrao.IntervaloInicial
	}
	if cfg.IntervaloMaximo == 0 {
		cfg.IntervaloMaximo = padrao.IntervaloMaximo
	}
	if cfg.TempoTotal == 0 {
		cfg.TempoTotal = padrao.TempoTotal
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.IntervaloInicial
	eb.MaxInterval = cfg.IntervaloMaximo
	eb.MaxElapsedTime = cfg.TempoTotal

	// MaxTentativas conta consultas; WithMaxRetries conta repetições
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, cfg.MaxTentativas-1), ctx)

	err := backoff.Retry(func() error {
		concluido, opErr := op(ctx)
		if opErr != nil {
			return backoff.Permanent(opErr)
		}
		if !concluido {
			return errContinuar
		}
		return nil
	}, policy)

	if errors.Is(err, errContinuar) {
		return ErrEsgotado
	}
	return err
}
