package bank

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/core/domain"
)

// tokenResponse é a resposta da troca client-credentials
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type,omitempty"`
}

// erroBanco é o corpo de erro devolvido pelo parceiro
type erroBanco struct {
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
	Message          string `json:"message,omitempty"`
}

// descricao devolve a mensagem mais específica disponível no corpo
func (e *erroBanco) descricao(fallback string) string {
	switch {
	case e.ErrorDescription != "":
		return e.ErrorDescription
	case e.Message != "":
		return e.Message
	case e.Error != "":
		return e.Error
	}
	return fallback
}

// pagadorPayload é o bloco de sacado no formato do parceiro
type pagadorPayload struct {
	Name       string `json:"name"`
	TaxID      string `json:"taxId"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

type encargoPayload struct {
	Type       string  `json:"type"`
	Percentage float64 `json:"percentage"`
}

// registroRequest é o payload de registro na API do parceiro
type registroRequest struct {
	InstrumentNumber string         `json:"instrumentNumber"`
	DocumentNumber   string         `json:"documentNumber"`
	Amount           string         `json:"amount"`
	DueDate          string         `json:"dueDate"` // AAAAMMDD
	Payer            pagadorPayload `json:"payer"`
	Species          string         `json:"species"`
	Instructions     string         `json:"instructions,omitempty"`
	Interest         encargoPayload `json:"interest"`
	Fine             encargoPayload `json:"fine"`
}

type registroResponse struct {
	OurNumber            string `json:"ourNumber"`
	DigitableLine        string `json:"digitableLine"`
	Barcode              string `json:"barcode"`
	InstrumentURL        string `json:"instrumentUrl"`
	ProviderInstrumentID string `json:"providerInstrumentId"`
}

type consultaResponse struct {
	Status      string           `json:"status"`
	PaymentDate string           `json:"paymentDate,omitempty"` // AAAA-MM-DD
	PaidAmount  *decimal.Decimal `json:"paidAmount,omitempty"`
}

type baixaRequest struct {
	Reason string `json:"reason"`
}

// mapeiaStatusBanco traduz o vocabulário do parceiro para o enum interno.
// Código não reconhecido vira DESCONHECIDO, nunca erro.
func mapeiaStatusBanco(status string) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "LIQUIDADO", "SETTLED", "PAGO", "PAID":
		return domain.StatusPago
	case "ABERTO", "EM ABERTO", "OPEN", "REGISTRADO", "REGISTERED":
		return domain.StatusRegistrado
	case "VENCIDO", "OVERDUE":
		return domain.StatusVencido
	case "BAIXADO", "CANCELADO", "WRITTEN_OFF":
		return domain.StatusBaixado
	default:
		return domain.StatusDesconhecido
	}
}
