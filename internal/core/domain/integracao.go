package domain

import (
	"time"
)

// Ambiente identifica o ambiente do convênio bancário
type Ambiente string

const (
	AmbienteSandbox  Ambiente = "sandbox"
	AmbienteProducao Ambiente = "producao"
)

// MargemSegurancaToken é descontada da expiração ao decidir se o token
// em cache ainda pode ser usado, evitando requisições com token prestes
// a expirar em trânsito.
const MargemSegurancaToken = 60 * time.Second

// IntegracaoBancaria representa a configuração de um convênio com o banco
// parceiro: credenciais OAuth, token em cache e o contador de nosso número.
type IntegracaoBancaria struct {
	ID            string     `json:"id"`
	Banco         string     `json:"banco"`
	Ambiente      Ambiente   `json:"ambiente"`
	ClientID      string     `json:"client_id"`
	ClientSecret  string     `json:"client_secret"`
	AccessToken   string     `json:"access_token,omitempty"`
	TokenExpiraEm *time.Time `json:"token_expira_em,omitempty"`

	// Sequencia é o último nosso número emitido para este convênio.
	// Só cresce; lacunas são aceitas, duplicatas não.
	Sequencia int64 `json:"sequencia"`

	InstrucoesPadrao      string  `json:"instrucoes_padrao"`
	JurosPercentualPadrao float64 `json:"juros_percentual_padrao"`
	MultaPercentualPadrao float64 `json:"multa_percentual_padrao"`
	EspecieDocumento      string  `json:"especie_documento"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenValido verifica se o token em cache ainda pode ser usado no
// instante informado, respeitando a margem de segurança.
func (i *IntegracaoBancaria) TokenValido(agora time.Time) bool {
	if i.AccessToken == "" || i.TokenExpiraEm == nil {
		return false
	}
	return agora.Add(MargemSegurancaToken).Before(*i.TokenExpiraEm)
}

// Valida verifica se a integração tem o mínimo necessário para autenticar
func (i *IntegracaoBancaria) Valida() error {
	if i.ID == "" {
		return NewValidationError("integração sem ID", nil)
	}
	if i.ClientID == "" || i.ClientSecret == "" {
		return NewValidationError("integração sem credenciais do banco parceiro", nil)
	}
	if i.Ambiente != AmbienteSandbox && i.Ambiente != AmbienteProducao {
		return NewValidationError("ambiente da integração deve ser sandbox ou producao", nil)
	}
	return nil
}
