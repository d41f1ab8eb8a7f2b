package domain

import "context"

// IntegracaoRepository gerencia as configurações de convênio bancário
type IntegracaoRepository interface {
	GetIntegracao(ctx context.Context, integracaoID string) (*IntegracaoBancaria, error)
	// AtualizarToken persiste token e expiração obtidos no refresh
	AtualizarToken(ctx context.Context, integracaoID string, token string, expiraEm int64) error
	// IncrementarSequencia avança o contador de forma atômica e devolve o
	// novo valor; chamadas concorrentes nunca observam o mesmo contador
	IncrementarSequencia(ctx context.Context, integracaoID string) (int64, error)
}

// BoletoRepository gerencia os registros de boleto
type BoletoRepository interface {
	Save(ctx context.Context, boleto *Boleto) error
	Update(ctx context.Context, boleto *Boleto) error
	GetByNossoNumero(ctx context.Context, integracaoID, nossoNumero string) (*Boleto, error)
}

// TokenBancario é o resultado da troca client-credentials no banco parceiro
type TokenBancario struct {
	AccessToken string
	// ExpiresIn em segundos, conforme devolvido pelo banco
	ExpiresIn int64
}

// RegistroBancario é a resposta do banco ao registro de um boleto
type RegistroBancario struct {
	NossoNumero    string
	CodigoBarras   string
	LinhaDigitavel string
	IDInstituicao  string
	URL            string
}

// BancoClient é a superfície HTTP do banco parceiro consumida pelo gateway
type BancoClient interface {
	EmitirToken(ctx context.Context, integracao *IntegracaoBancaria) (*TokenBancario, error)
	RegistrarBoleto(ctx context.Context, integracao *IntegracaoBancaria, token string, pedido *PedidoRegistro) (*RegistroBancario, error)
	ConsultarBoleto(ctx context.Context, integracao *IntegracaoBancaria, token, nossoNumero string) (*StatusSnapshot, error)
	BaixarBoleto(ctx context.Context, integracao *IntegracaoBancaria, token, nossoNumero, motivo string) error
}

// PedidoRegistro é o payload de registro já normalizado, montado pelo
// serviço a partir do rascunho e dos padrões da integração
type PedidoRegistro struct {
	NossoNumero      string
	NumeroDocumento  string
	Valor            string // decimal com duas casas, ex. "1500.00"
	Vencimento       string // formato do banco: AAAAMMDD
	Pagador          Pagador
	EspecieDocumento string
	Instrucoes       string
	JurosPercentual  float64
	MultaPercentual  float64
}

// MetricsCollector coleta métricas para observabilidade
type MetricsCollector interface {
	IncrementActionCounter(action, result string)
	RecordActionLatency(action string, duration float64)
	IncrementTokenRefreshCounter(result string)
	IncrementErrorCounter(errorType string)
}

// DistributedTracer gerencia tracing distribuído
type DistributedTracer interface {
	StartSpan(ctx context.Context, operationName string) (context.Context, interface{})
	FinishSpan(span interface{}, err error)
	AddTag(span interface{}, key string, value interface{})
}

// Logger interface para logging estruturado
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}
