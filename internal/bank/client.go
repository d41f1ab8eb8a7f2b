// Package bank implementa o cliente HTTP da API de cobrança do banco
// parceiro: emissão de token OAuth, registro, consulta e baixa de boletos.
package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/core/domain"
)

// URLs base por ambiente do convênio
const (
	DefaultSandboxURL  = "https://sandbox.api.bancoparceiro.com.br"
	DefaultProducaoURL = "https://api.bancoparceiro.com.br"
)

// Config configura o cliente do banco parceiro
type Config struct {
	SandboxURL  string
	ProducaoURL string
	Timeout     time.Duration
}

// Client implementa domain.BancoClient sobre a API HTTP do parceiro.
// Falhas transitórias (conexão, 5xx) são re-tentadas uma única vez;
// 4xx nunca é re-tentado.
type Client struct {
	http        *retryablehttp.Client
	sandboxURL  string
	producaoURL string
	logger      domain.Logger
}

func NewClient(cfg Config, logger domain.Logger) *Client {
	if cfg.SandboxURL == "" {
		cfg.SandboxURL = DefaultSandboxURL
	}
	if cfg.ProducaoURL == "" {
		cfg.ProducaoURL = DefaultProducaoURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 1
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = nil

	return &Client{
		http:        rc,
		sandboxURL:  cfg.SandboxURL,
		producaoURL: cfg.ProducaoURL,
		logger:      logger,
	}
}

// baseURL resolve a URL base a partir do ambiente do convênio
func (c *Client) baseURL(integracao *domain.IntegracaoBancaria) string {
	if integracao.Ambiente == domain.AmbienteProducao {
		return c.producaoURL
	}
	return c.sandboxURL
}

// EmitirToken troca client_id/client_secret por um access token
// (grant client_credentials, form-encoded)
func (c *Client) EmitirToken(ctx context.Context, integracao *domain.IntegracaoBancaria) (*domain.TokenBancario, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", integracao.ClientID)
	form.Set("client_secret", integracao.ClientSecret)

	endpoint := c.baseURL(integracao) + "/oauth/token"
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, domain.NewInternalError("erro ao montar requisição de token", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("falha de rede ao emitir token no banco parceiro", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, domain.NewProviderError(c.mensagemErro(resp, "banco indisponível ao emitir token"), nil)
	}
	if resp.StatusCode >= 400 {
		return nil, domain.NewAuthError(c.mensagemErro(resp, "credenciais rejeitadas pelo banco parceiro"), nil)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.NewAuthError("resposta de token malformada do banco parceiro", err)
	}
	if body.AccessToken == "" || body.ExpiresIn <= 0 {
		return nil, domain.NewAuthError("resposta de token sem access_token ou expires_in", nil)
	}

	return &domain.TokenBancario{AccessToken: body.AccessToken, ExpiresIn: body.ExpiresIn}, nil
}

// RegistrarBoleto submete o registro de um boleto
func (c *Client) RegistrarBoleto(ctx context.Context, integracao *domain.IntegracaoBancaria, token string, pedido *domain.PedidoRegistro) (*domain.RegistroBancario, error) {
	payload := registroRequest{
		InstrumentNumber: pedido.NossoNumero,
		DocumentNumber:   pedido.NumeroDocumento,
		Amount:           pedido.Valor,
		DueDate:          pedido.Vencimento,
		Payer: pagadorPayload{
			Name:       pedido.Pagador.Nome,
			TaxID:      pedido.Pagador.Documento,
			Address:    pedido.Pagador.Endereco,
			City:       pedido.Pagador.Cidade,
			State:      pedido.Pagador.UF,
			PostalCode: pedido.Pagador.CEP,
		},
		Species:      pedido.EspecieDocumento,
		Instructions: pedido.Instrucoes,
		Interest:     encargoPayload{Type: "PERCENTUAL_MENSAL", Percentage: pedido.JurosPercentual},
		Fine:         encargoPayload{Type: "PERCENTUAL", Percentage: pedido.MultaPercentual},
	}

	endpoint := c.baseURL(integracao) + "/api/v1/instrument"
	resp, err := c.doJSON(ctx, http.MethodPost, endpoint, token, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, domain.NewProviderError(c.mensagemErro(resp, "banco indisponível ao registrar boleto"), nil)
	}
	if resp.StatusCode >= 400 {
		return nil, domain.NewRegistrationError(c.mensagemErro(resp, "banco rejeitou o registro do boleto"), nil)
	}

	var body registroResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.NewRegistrationError("resposta de registro malformada do banco parceiro", err)
	}

	return &domain.RegistroBancario{
		NossoNumero:    body.OurNumber,
		CodigoBarras:   body.Barcode,
		LinhaDigitavel: body.DigitableLine,
		IDInstituicao:  body.ProviderInstrumentID,
		URL:            body.InstrumentURL,
	}, nil
}

// ConsultarBoleto consulta a situação de liquidação de um boleto registrado
func (c *Client) ConsultarBoleto(ctx context.Context, integracao *domain.IntegracaoBancaria, token, nossoNumero string) (*domain.StatusSnapshot, error) {
	endpoint := fmt.Sprintf("%s/api/v1/instrument/%s", c.baseURL(integracao), url.PathEscape(nossoNumero))
	resp, err := c.doJSON(ctx, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.NewNotFoundError(fmt.Sprintf("boleto %s desconhecido pelo banco parceiro", nossoNumero))
	case resp.StatusCode >= 500:
		return nil, domain.NewProviderError(c.mensagemErro(resp, "banco indisponível ao consultar boleto"), nil)
	case resp.StatusCode >= 400:
		return nil, domain.NewValidationError(c.mensagemErro(resp, "banco rejeitou a consulta do boleto"), nil)
	}

	var body consultaResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.NewProviderError("resposta de consulta malformada do banco parceiro", err)
	}

	snapshot := &domain.StatusSnapshot{
		Status:      mapeiaStatusBanco(body.Status),
		StatusBanco: body.Status,
		ValorPago:   body.PaidAmount,
	}
	if body.PaymentDate != "" {
		if pago, err := time.Parse("2006-01-02", body.PaymentDate); err == nil {
			snapshot.PagoEm = &pago
		}
	}
	return snapshot, nil
}

// BaixarBoleto solicita a baixa (cancelamento) de um boleto registrado
func (c *Client) BaixarBoleto(ctx context.Context, integracao *domain.IntegracaoBancaria, token, nossoNumero, motivo string) error {
	endpoint := fmt.Sprintf("%s/api/v1/instrument/%s/writeoff", c.baseURL(integracao), url.PathEscape(nossoNumero))
	resp, err := c.doJSON(ctx, http.MethodPost, endpoint, token, baixaRequest{Reason: motivo})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewNotFoundError(fmt.Sprintf("boleto %s desconhecido pelo banco parceiro", nossoNumero))
	case resp.StatusCode >= 500:
		return domain.NewProviderError(c.mensagemErro(resp, "banco indisponível ao baixar boleto"), nil)
	case resp.StatusCode >= 400:
		return domain.NewValidationError(c.mensagemErro(resp, "banco rejeitou a baixa do boleto"), nil)
	}
	return nil
}

// doJSON monta e envia uma requisição autenticada com corpo JSON opcional
func (c *Client) doJSON(ctx context.Context, method, endpoint, token string, payload interface{}) (*http.Response, error) {
	var req *retryablehttp.Request
	var err error

	if payload != nil {
		body, merr := json.Marshal(payload)
		if merr != nil {
			return nil, domain.NewInternalError("erro ao serializar payload para o banco", merr)
		}
		req, err = retryablehttp.NewRequestWithContext(ctx, method, endpoint, body)
	} else {
		req, err = retryablehttp.NewRequestWithContext(ctx, method, endpoint, nil)
	}
	if err != nil {
		return nil, domain.NewInternalError("erro ao montar requisição para o banco", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// retryablehttp já re-tentou a falha transitória uma vez
		return nil, domain.NewProviderError("falha de rede na chamada ao banco parceiro", err)
	}
	return resp, nil
}

// mensagemErro extrai a descrição de erro do corpo, preservando a
// mensagem crua do parceiro para diagnóstico
func (c *Client) mensagemErro(resp *http.Response, fallback string) string {
	var body erroBanco
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Sprintf("%s (HTTP %d)", fallback, resp.StatusCode)
	}
	return fmt.Sprintf("%s (HTTP %d)", body.descricao(fallback), resp.StatusCode)
}
