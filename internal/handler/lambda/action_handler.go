package awslambda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/core/domain"
	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/core/service"
	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/retry"
)

// Action é a enumeração fechada das ações suportadas pelo gateway
type Action string

const (
	ActionIssueToken         Action = "issueToken"
	ActionRegisterInstrument Action = "registerInstrument"
	ActionQueryStatus        Action = "queryStatus"
	ActionWriteOff           Action = "writeOff"
)

// Valida verifica se a ação pertence à enumeração
func (a Action) Valida() error {
	switch a {
	case ActionIssueToken, ActionRegisterInstrument, ActionQueryStatus, ActionWriteOff:
		return nil
	}
	return domain.NewValidationError(fmt.Sprintf("ação desconhecida: %q", string(a)), nil)
}

// Request é o evento discriminado de invocação do gateway
type Request struct {
	Action        Action          `json:"action"`
	IntegracaoID  string          `json:"integrationConfigId"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Response é a resposta padronizada de toda ação
type Response struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse carrega o erro classificado; nunca um erro opaco cruza
// a fronteira do handler
type ErrorResponse struct {
	Kind          string `json:"kind"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id"`
}

// registrarPayload é o payload da ação registerInstrument
type registrarPayload struct {
	Valor            decimal.Decimal `json:"valor"`
	Vencimento       string          `json:"vencimento"` // AAAA-MM-DD
	Pagador          domain.Pagador  `json:"pagador"`
	NumeroDocumento  string          `json:"numero_documento,omitempty"`
	Instrucoes       string          `json:"instrucoes,omitempty"`
	JurosPercentual  *float64        `json:"juros_percentual,omitempty"`
	MultaPercentual  *float64        `json:"multa_percentual,omitempty"`
	EspecieDocumento string          `json:"especie_documento,omitempty"`
}

// consultaPayload é o payload da ação queryStatus. Aplicar grava o estado
// observado no registro local; Aguardar faz polling limitado até a
// liquidação sair de REGISTRADO.
type consultaPayload struct {
	NossoNumero string `json:"nosso_numero"`
	Aplicar     bool   `json:"aplicar,omitempty"`
	Aguardar    bool   `json:"aguardar,omitempty"`
}

// baixaPayload é o payload da ação writeOff
type baixaPayload struct {
	NossoNumero string `json:"nosso_numero"`
	Motivo      string `json:"motivo"`
}

// ActionHandler despacha os eventos de ação para o serviço de boletos
type ActionHandler struct {
	boletoService *service.BoletoService
	logger        domain.Logger
	metrics       domain.MetricsCollector
}

func NewActionHandler(
	boletoService *service.BoletoService,
	logger domain.Logger,
	metrics domain.MetricsCollector,
) *ActionHandler {
	return &ActionHandler{
		boletoService: boletoService,
		logger:        logger,
		metrics:       metrics,
	}
}

// HandleRequest é o ponto de entrada do Lambda
func (h *ActionHandler) HandleRequest(ctx context.Context, request Request) (Response, error) {
	inicio := time.Now()

	correlationID := request.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	ctx = context.WithValue(ctx, "correlation_id", correlationID)

	h.logger.Info(ctx, "ação recebida", map[string]interface{}{
		"action":        string(request.Action),
		"integracao_id": request.IntegracaoID,
	})

	data, err := h.dispatch(ctx, request)

	duration := time.Since(inicio).Seconds()
	h.metrics.RecordActionLatency(string(request.Action), duration)

	if err != nil {
		kind := domain.KindDe(err)
		h.metrics.IncrementActionCounter(string(request.Action), "erro")
		h.metrics.IncrementErrorCounter(string(kind))
		h.logger.Warn(ctx, "ação falhou", map[string]interface{}{
			"action": string(request.Action),
			"kind":   string(kind),
			"erro":   err.Error(),
		})

		return Response{
			Success: false,
			Data:    data,
			Error: &ErrorResponse{
				Kind:          string(kind),
				Message:       mensagemDe(err),
				CorrelationID: correlationID,
			},
		}, nil
	}

	h.metrics.IncrementActionCounter(string(request.Action), "sucesso")
	h.logger.Info(ctx, "ação concluída", map[string]interface{}{
		"action":      string(request.Action),
		"duration_ms": duration * 1000,
	})

	return Response{Success: true, Data: data}, nil
}

// dispatch mapeia cada ação da enumeração para um método do serviço
func (h *ActionHandler) dispatch(ctx context.Context, request Request) (interface{}, error) {
	if err := request.Action.Valida(); err != nil {
		return nil, err
	}

	switch request.Action {
	case ActionIssueToken:
		return h.handleIssueToken(ctx, request)
	case ActionRegisterInstrument:
		return h.handleRegister(ctx, request)
	case ActionQueryStatus:
		return h.handleQueryStatus(ctx, request)
	case ActionWriteOff:
		return h.handleWriteOff(ctx, request)
	}
	// Inalcançável: Valida cobre a enumeração inteira
	return nil, domain.NewValidationError(fmt.Sprintf("ação desconhecida: %q", string(request.Action)), nil)
}

func (h *ActionHandler) handleIssueToken(ctx context.Context, request Request) (interface{}, error) {
	token, err := h.boletoService.EmitirToken(ctx, request.IntegracaoID)
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (h *ActionHandler) handleRegister(ctx context.Context, request Request) (interface{}, error) {
	var payload registrarPayload
	if err := json.Unmarshal(request.Payload, &payload); err != nil {
		return nil, domain.NewValidationError("payload de registro inválido", err)
	}

	draft := &domain.BoletoDraft{
		Valor:            payload.Valor,
		Pagador:          payload.Pagador,
		NumeroDocumento:  payload.NumeroDocumento,
		Instrucoes:       payload.Instrucoes,
		JurosPercentual:  payload.JurosPercentual,
		MultaPercentual:  payload.MultaPercentual,
		EspecieDocumento: payload.EspecieDocumento,
	}
	if payload.Vencimento != "" {
		vencimento, err := time.Parse("2006-01-02", payload.Vencimento)
		if err != nil {
			return nil, domain.NewValidationError("vencimento deve estar no formato AAAA-MM-DD", err)
		}
		draft.Vencimento = vencimento
	}

	boleto, err := h.boletoService.RegistrarBoleto(ctx, request.IntegracaoID, draft)
	if err != nil {
		if boleto == nil {
			return nil, err
		}
		// O registro FALHA volta no data junto com o erro classificado
		return boleto, err
	}
	return boleto, nil
}

func (h *ActionHandler) handleQueryStatus(ctx context.Context, request Request) (interface{}, error) {
	var payload consultaPayload
	if err := json.Unmarshal(request.Payload, &payload); err != nil {
		return nil, domain.NewValidationError("payload de consulta inválido", err)
	}
	if payload.NossoNumero == "" {
		return nil, domain.NewValidationError("nosso_numero é obrigatório", nil)
	}

	if payload.Aguardar {
		return h.boletoService.AguardarLiquidacao(ctx, request.IntegracaoID, payload.NossoNumero, retry.DefaultPollConfig())
	}
	if payload.Aplicar {
		return h.boletoService.AtualizarStatus(ctx, request.IntegracaoID, payload.NossoNumero)
	}
	return h.boletoService.ConsultarStatus(ctx, request.IntegracaoID, payload.NossoNumero)
}

func (h *ActionHandler) handleWriteOff(ctx context.Context, request Request) (interface{}, error) {
	var payload baixaPayload
	if err := json.Unmarshal(request.Payload, &payload); err != nil {
		return nil, domain.NewValidationError("payload de baixa inválido", err)
	}
	if payload.NossoNumero == "" {
		return nil, domain.NewValidationError("nosso_numero é obrigatório", nil)
	}
	if payload.Motivo == "" {
		payload.Motivo = "ACERTOS"
	}

	boleto, err := h.boletoService.BaixarBoleto(ctx, request.IntegracaoID, payload.NossoNumero, payload.Motivo)
	if err != nil {
		return nil, err
	}
	return boleto, nil
}

// mensagemDe extrai a mensagem estruturada sem o prefixo de tipo
func mensagemDe(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
