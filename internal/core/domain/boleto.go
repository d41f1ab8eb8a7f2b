package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status do ciclo de vida do boleto
const (
	StatusPendente   = "PENDENTE"
	StatusRegistrado = "REGISTRADO"
	StatusPago       = "PAGO"
	StatusVencido    = "VENCIDO"
	StatusBaixado    = "BAIXADO"
	StatusFalha      = "FALHA"
	// StatusDesconhecido é o valor sentinela para vocabulário do banco
	// não reconhecido; nunca vira erro na consulta.
	StatusDesconhecido = "DESCONHECIDO"
)

// Pagador identifica o sacado do boleto
type Pagador struct {
	Nome      string `json:"nome"`
	Documento string `json:"documento"` // CPF ou CNPJ
	Endereco  string `json:"endereco"`
	Cidade    string `json:"cidade"`
	UF        string `json:"uf"`
	CEP       string `json:"cep"`
}

// Normaliza remove tudo que não é dígito de documento e CEP, conforme
// exigido pelo formato do banco parceiro
func (p *Pagador) Normaliza() {
	p.Documento = apenasDigitos(p.Documento)
	p.CEP = apenasDigitos(p.CEP)
}

// BoletoDraft é a entrada fornecida pelo chamador para o registro.
// Campos opcionais sobrescrevem os padrões da integração.
type BoletoDraft struct {
	Valor           decimal.Decimal `json:"valor"`
	Vencimento      time.Time       `json:"vencimento"`
	Pagador         Pagador         `json:"pagador"`
	NumeroDocumento string          `json:"numero_documento,omitempty"`

	Instrucoes       string   `json:"instrucoes,omitempty"`
	JurosPercentual  *float64 `json:"juros_percentual,omitempty"`
	MultaPercentual  *float64 `json:"multa_percentual,omitempty"`
	EspecieDocumento string   `json:"especie_documento,omitempty"`
}

// Valida rejeita rascunhos malformados antes de qualquer chamada de rede
func (d *BoletoDraft) Valida() error {
	if d.Valor.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("o valor do boleto deve ser positivo", nil)
	}
	if d.Vencimento.IsZero() {
		return NewValidationError("a data de vencimento é obrigatória", nil)
	}
	if d.Pagador.Nome == "" {
		return NewValidationError("o nome do pagador é obrigatório", nil)
	}
	if apenasDigitos(d.Pagador.Documento) == "" {
		return NewValidationError("o documento do pagador (CPF/CNPJ) é obrigatório", nil)
	}
	return nil
}

// Boleto representa o registro persistido de um título de cobrança
type Boleto struct {
	ID             string           `json:"id"`
	IntegracaoID   string           `json:"integracao_id"`
	NossoNumero    string           `json:"nosso_numero"`
	NumeroDoc      string           `json:"numero_documento"`
	CodigoBarras   string           `json:"codigo_barras,omitempty"`
	LinhaDigitavel string           `json:"linha_digitavel,omitempty"`
	IDInstituicao  string           `json:"id_instituicao,omitempty"`
	Status         string           `json:"status"`
	Valor          decimal.Decimal  `json:"valor"`
	Vencimento     time.Time        `json:"vencimento"`
	RegistradoEm   *time.Time       `json:"registrado_em,omitempty"`
	PagoEm         *time.Time       `json:"pago_em,omitempty"`
	ValorPago      *decimal.Decimal `json:"valor_pago,omitempty"`
	MotivoFalha    string           `json:"motivo_falha,omitempty"`
	CorrelationID  string           `json:"correlation_id"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NovoBoleto cria o registro no estado PENDENTE, no momento em que o
// nosso número é alocado
func NovoBoleto(integracaoID, nossoNumero string, draft *BoletoDraft, correlationID string) *Boleto {
	agora := time.Now()
	numeroDoc := draft.NumeroDocumento
	if numeroDoc == "" {
		numeroDoc = nossoNumero
	}
	return &Boleto{
		ID:            uuid.New().String(),
		IntegracaoID:  integracaoID,
		NossoNumero:   nossoNumero,
		NumeroDoc:     numeroDoc,
		Status:        StatusPendente,
		Valor:         draft.Valor,
		Vencimento:    draft.Vencimento,
		CorrelationID: correlationID,
		CreatedAt:     agora,
		UpdatedAt:     agora,
	}
}

// Terminal indica estados que nenhuma transição abandona
func (b *Boleto) Terminal() bool {
	return b.Status == StatusPago || b.Status == StatusBaixado
}

// Registrar aplica a aceitação do banco: PENDENTE -> REGISTRADO
func (b *Boleto) Registrar(codigoBarras, linhaDigitavel, idInstituicao string, quando time.Time) error {
	if b.Status != StatusPendente {
		return transicaoInvalida(b.Status, StatusRegistrado)
	}
	b.CodigoBarras = codigoBarras
	b.LinhaDigitavel = linhaDigitavel
	b.IDInstituicao = idInstituicao
	b.Status = StatusRegistrado
	b.RegistradoEm = &quando
	b.UpdatedAt = quando
	return nil
}

// Falhar aplica a rejeição do registro: PENDENTE -> FALHA. O nosso número
// fica permanentemente queimado; um novo rascunho aloca outro.
func (b *Boleto) Falhar(motivo string) error {
	if b.Status != StatusPendente {
		return transicaoInvalida(b.Status, StatusFalha)
	}
	b.Status = StatusFalha
	b.MotivoFalha = motivo
	b.UpdatedAt = time.Now()
	return nil
}

// AplicarSnapshot aplica o estado observado na consulta de status.
// Somente REGISTRADO -> PAGO/VENCIDO e VENCIDO -> PAGO são aceitos;
// snapshots DESCONHECIDO ou repetidos não mudam nada.
func (b *Boleto) AplicarSnapshot(s *StatusSnapshot) error {
	if s.Status == b.Status || s.Status == StatusDesconhecido {
		return nil
	}
	switch {
	case b.Status == StatusRegistrado && s.Status == StatusPago,
		b.Status == StatusVencido && s.Status == StatusPago:
		b.Status = StatusPago
		b.PagoEm = s.PagoEm
		b.ValorPago = s.ValorPago
	case b.Status == StatusRegistrado && s.Status == StatusVencido:
		b.Status = StatusVencido
	default:
		return transicaoInvalida(b.Status, s.Status)
	}
	b.UpdatedAt = time.Now()
	return nil
}

// Baixar aplica a baixa confirmada pelo banco: REGISTRADO|VENCIDO -> BAIXADO
func (b *Boleto) Baixar() error {
	if b.Status != StatusRegistrado && b.Status != StatusVencido {
		return transicaoInvalida(b.Status, StatusBaixado)
	}
	b.Status = StatusBaixado
	b.UpdatedAt = time.Now()
	return nil
}

// StatusSnapshot é o estado observado no banco parceiro; quem consulta
// decide se aplica ao registro local
type StatusSnapshot struct {
	Status      string           `json:"status"`
	StatusBanco string           `json:"status_banco"`
	PagoEm      *time.Time       `json:"pago_em,omitempty"`
	ValorPago   *decimal.Decimal `json:"valor_pago,omitempty"`
}

// FormataNossoNumero formata o contador como decimal de 11 dígitos com
// zeros à esquerda, o formato do nosso número no banco parceiro
func FormataNossoNumero(sequencia int64) string {
	return fmt.Sprintf("%011d", sequencia)
}

func transicaoInvalida(de, para string) error {
	return NewValidationError(fmt.Sprintf("transição de status inválida: %s -> %s", de, para), nil)
}

func apenasDigitos(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
