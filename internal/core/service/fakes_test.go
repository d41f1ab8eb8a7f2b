package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/core/domain"
)

// fakeIntegracaoRepo é um IntegracaoRepository em memória com as mesmas
// garantias atômicas do armazenamento real
type fakeIntegracaoRepo struct {
	mu           sync.Mutex
	integracoes  map[string]*domain.IntegracaoBancaria
	tokenUpdates int
}

func newFakeIntegracaoRepo(integracoes ...*domain.IntegracaoBancaria) *fakeIntegracaoRepo {
	repo := &fakeIntegracaoRepo{integracoes: make(map[string]*domain.IntegracaoBancaria)}
	for _, i := range integracoes {
		copia := *i
		repo.integracoes[i.ID] = &copia
	}
	return repo
}

func (r *fakeIntegracaoRepo) GetIntegracao(ctx context.Context, id string) (*domain.IntegracaoBancaria, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	integracao, ok := r.integracoes[id]
	if !ok {
		return nil, domain.NewNotFoundError(fmt.Sprintf("integração %s não encontrada", id))
	}
	copia := *integracao
	return &copia, nil
}

func (r *fakeIntegracaoRepo) AtualizarToken(ctx context.Context, id, token string, expiraEm int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	integracao, ok := r.integracoes[id]
	if !ok {
		return domain.NewNotFoundError(fmt.Sprintf("integração %s não encontrada", id))
	}
	expira := time.Unix(expiraEm, 0)
	integracao.AccessToken = token
	integracao.TokenExpiraEm = &expira
	r.tokenUpdates++
	return nil
}

func (r *fakeIntegracaoRepo) IncrementarSequencia(ctx context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	integracao, ok := r.integracoes[id]
	if !ok {
		return 0, domain.NewNotFoundError(fmt.Sprintf("integração %s não encontrada", id))
	}
	integracao.Sequencia++
	return integracao.Sequencia, nil
}

func (r *fakeIntegracaoRepo) sequenciaAtual(id string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.integracoes[id].Sequencia
}

// fakeBoletoRepo é um BoletoRepository em memória indexado por
// integração + nosso número
type fakeBoletoRepo struct {
	mu      sync.Mutex
	boletos map[string]*domain.Boleto // chave: integracaoID/nossoNumero
}

func newFakeBoletoRepo() *fakeBoletoRepo {
	return &fakeBoletoRepo{boletos: make(map[string]*domain.Boleto)}
}

func chaveBoleto(integracaoID, nossoNumero string) string {
	return integracaoID + "/" + nossoNumero
}

func (r *fakeBoletoRepo) Save(ctx context.Context, boleto *domain.Boleto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chave := chaveBoleto(boleto.IntegracaoID, boleto.NossoNumero)
	if _, ok := r.boletos[chave]; ok {
		return domain.NewValidationError("boleto já existe", nil)
	}
	copia := *boleto
	r.boletos[chave] = &copia
	return nil
}

func (r *fakeBoletoRepo) Update(ctx context.Context, boleto *domain.Boleto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chave := chaveBoleto(boleto.IntegracaoID, boleto.NossoNumero)
	if _, ok := r.boletos[chave]; !ok {
		return domain.NewNotFoundError("boleto não encontrado")
	}
	copia := *boleto
	r.boletos[chave] = &copia
	return nil
}

func (r *fakeBoletoRepo) GetByNossoNumero(ctx context.Context, integracaoID, nossoNumero string) (*domain.Boleto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	boleto, ok := r.boletos[chaveBoleto(integracaoID, nossoNumero)]
	if !ok {
		return nil, domain.NewNotFoundError(fmt.Sprintf("boleto %s não encontrado", nossoNumero))
	}
	copia := *boleto
	return &copia, nil
}

// fakeBanco simula a API do banco parceiro contando chamadas por operação
type fakeBanco struct {
	mu sync.Mutex

	tokenCalls    int
	registerCalls int
	consultaCalls int
	baixaCalls    int

	tokenErr     error
	registerErr  error
	consultaErr  error
	baixaErr     error
	expiresIn    int64
	snapshots    []*domain.StatusSnapshot // devolvidos em sequência; o último repete
	tokenEmitido string
}

func newFakeBanco() *fakeBanco {
	return &fakeBanco{expiresIn: 3600, tokenEmitido: "token-emitido"}
}

func (b *fakeBanco) EmitirToken(ctx context.Context, integracao *domain.IntegracaoBancaria) (*domain.TokenBancario, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokenCalls++
	if b.tokenErr != nil {
		return nil, b.tokenErr
	}
	return &domain.TokenBancario{
		AccessToken: fmt.Sprintf("%s-%d", b.tokenEmitido, b.tokenCalls),
		ExpiresIn:   b.expiresIn,
	}, nil
}

func (b *fakeBanco) RegistrarBoleto(ctx context.Context, integracao *domain.IntegracaoBancaria, token string, pedido *domain.PedidoRegistro) (*domain.RegistroBancario, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registerCalls++
	if b.registerErr != nil {
		return nil, b.registerErr
	}
	return &domain.RegistroBancario{
		NossoNumero:    pedido.NossoNumero,
		CodigoBarras:   "23790000000" + pedido.NossoNumero,
		LinhaDigitavel: "23790.00000 00000." + pedido.NossoNumero,
		IDInstituicao:  "prov-" + pedido.NossoNumero,
	}, nil
}

func (b *fakeBanco) ConsultarBoleto(ctx context.Context, integracao *domain.IntegracaoBancaria, token, nossoNumero string) (*domain.StatusSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consultaCalls++
	if b.consultaErr != nil {
		return nil, b.consultaErr
	}
	if len(b.snapshots) == 0 {
		return &domain.StatusSnapshot{Status: domain.StatusRegistrado, StatusBanco: "ABERTO"}, nil
	}
	idx := b.consultaCalls - 1
	if idx >= len(b.snapshots) {
		idx = len(b.snapshots) - 1
	}
	return b.snapshots[idx], nil
}

func (b *fakeBanco) BaixarBoleto(ctx context.Context, integracao *domain.IntegracaoBancaria, token, nossoNumero, motivo string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.baixaCalls++
	return b.baixaErr
}

func (b *fakeBanco) chamadasToken() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokenCalls
}

func (b *fakeBanco) chamadasBaixa() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.baixaCalls
}

// noopLogger descarta logs nos testes
type noopLogger struct{}

func (noopLogger) Info(ctx context.Context, msg string, fields map[string]interface{})             {}
func (noopLogger) Error(ctx context.Context, msg string, err error, fields map[string]interface{}) {}
func (noopLogger) Warn(ctx context.Context, msg string, fields map[string]interface{})             {}
func (noopLogger) Debug(ctx context.Context, msg string, fields map[string]interface{})            {}

// noopMetrics descarta métricas nos testes
type noopMetrics struct{}

func (noopMetrics) IncrementActionCounter(action, result string)        {}
func (noopMetrics) RecordActionLatency(action string, duration float64) {}
func (noopMetrics) IncrementTokenRefreshCounter(result string)          {}
func (noopMetrics) IncrementErrorCounter(errorType string)              {}

// noopTracer descarta spans nos testes
type noopTracer struct{}

func (noopTracer) StartSpan(ctx context.Context, operationName string) (context.Context, interface{}) {
	return ctx, nil
}
func (noopTracer) FinishSpan(span interface{}, err error)                 {}
func (noopTracer) AddTag(span interface{}, key string, value interface{}) {}

// integracaoDeTeste monta um convênio sandbox com os padrões preenchidos
func integracaoDeTeste(id string) *domain.IntegracaoBancaria {
	return &domain.IntegracaoBancaria{
		ID:                    id,
		Banco:                 "001",
		Ambiente:              domain.AmbienteSandbox,
		ClientID:              "client-id",
		ClientSecret:          "client-secret",
		Sequencia:             0,
		InstrucoesPadrao:      "Não receber após o vencimento",
		JurosPercentualPadrao: 1.0,
		MultaPercentualPadrao: 2.0,
		EspecieDocumento:      "DM",
	}
}

func novoServicoDeTeste(repo *fakeIntegracaoRepo, boletos *fakeBoletoRepo, banco *fakeBanco) *BoletoService {
	tokens := NewTokenManager(repo, banco, noopLogger{}, noopMetrics{})
	sequencias := NewSequenceAllocator(repo, noopLogger{})
	return NewBoletoService(tokens, sequencias, banco, repo, boletos, noopMetrics{}, noopTracer{}, noopLogger{})
}
