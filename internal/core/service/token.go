package service

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/core/domain"
)

// Token é o resultado de EnsureValidToken: o access token utilizável e
// até quando ele vale
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiraEm    time.Time `json:"expira_em"`
}

// TokenManager obtém e cacheia tokens OAuth do banco parceiro.
// O refresh é single-flight por convênio: chamadas concorrentes durante a
// janela de expiração colapsam em uma única troca client-credentials e
// todas observam o mesmo token (ou a mesma falha).
type TokenManager struct {
	integracaoRepo domain.IntegracaoRepository
	banco          domain.BancoClient
	logger         domain.Logger
	metrics        domain.MetricsCollector
	flight         singleflight.Group
}

func NewTokenManager(
	integracaoRepo domain.IntegracaoRepository,
	banco domain.BancoClient,
	logger domain.Logger,
	metrics domain.MetricsCollector,
) *TokenManager {
	return &TokenManager{
		integracaoRepo: integracaoRepo,
		banco:          banco,
		logger:         logger,
		metrics:        metrics,
	}
}

// EnsureValidToken devolve o token em cache enquanto ele vale (zero
// chamadas de rede) e faz o refresh single-flight quando expirou
func (m *TokenManager) EnsureValidToken(ctx context.Context, integracao *domain.IntegracaoBancaria) (Token, error) {
	agora := time.Now()
	if integracao.TokenValido(agora) {
		return Token{AccessToken: integracao.AccessToken, ExpiraEm: *integracao.TokenExpiraEm}, nil
	}

	// Todos que chegarem com o refresh em voo esperam o resultado dele
	// em vez de disparar a própria troca
	resultado, err, _ := m.flight.Do(integracao.ID, func() (interface{}, error) {
		return m.refresh(ctx, integracao.ID)
	})
	if err != nil {
		m.metrics.IncrementTokenRefreshCounter("falha")
		return Token{}, err
	}

	token := resultado.(Token)

	// Propaga o token para a cópia da configuração desta ação, para que
	// os passos seguintes não releiam a base
	integracao.AccessToken = token.AccessToken
	expira := token.ExpiraEm
	integracao.TokenExpiraEm = &expira

	return token, nil
}

// refresh executa a troca client-credentials e persiste o resultado.
// Roda no máximo uma vez por convênio por vez.
func (m *TokenManager) refresh(ctx context.Context, integracaoID string) (Token, error) {
	// Relê a configuração: outro processo pode ter renovado o token
	// entre a verificação do chamador e a entrada no flight
	integracao, err := m.integracaoRepo.GetIntegracao(ctx, integracaoID)
	if err != nil {
		return Token{}, err
	}

	agora := time.Now()
	if integracao.TokenValido(agora) {
		return Token{AccessToken: integracao.AccessToken, ExpiraEm: *integracao.TokenExpiraEm}, nil
	}

	emitido, err := m.banco.EmitirToken(ctx, integracao)
	if err != nil {
		m.logger.Warn(ctx, "refresh de token rejeitado pelo banco", map[string]interface{}{
			"integracao_id": integracaoID,
			"erro":          err.Error(),
		})
		// Nada é cacheado na falha: a próxima chamada tenta de novo
		return Token{}, err
	}

	expiraEm := agora.Add(time.Duration(emitido.ExpiresIn) * time.Second)

	if err := m.integracaoRepo.AtualizarToken(ctx, integracaoID, emitido.AccessToken, expiraEm.Unix()); err != nil {
		return Token{}, err
	}

	m.metrics.IncrementTokenRefreshCounter("sucesso")
	m.logger.Info(ctx, "token do banco renovado", map[string]interface{}{
		"integracao_id": integracaoID,
		"expira_em":     expiraEm.Format(time.RFC3339),
	})

	return Token{AccessToken: emitido.AccessToken, ExpiraEm: expiraEm}, nil
}
