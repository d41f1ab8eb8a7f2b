package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/core/domain"
	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/retry"
)

// BoletoService orquestra o ciclo de vida do boleto contra o banco
// parceiro: registro, consulta de liquidação e baixa. Toda ação garante
// um token válido antes de tocar a API do banco.
type BoletoService struct {
	tokens         *TokenManager
	sequencias     *SequenceAllocator
	banco          domain.BancoClient
	integracaoRepo domain.IntegracaoRepository
	boletoRepo     domain.BoletoRepository
	metrics        domain.MetricsCollector
	tracer         domain.DistributedTracer
	logger         domain.Logger
}

func NewBoletoService(
	tokens *TokenManager,
	sequencias *SequenceAllocator,
	banco domain.BancoClient,
	integracaoRepo domain.IntegracaoRepository,
	boletoRepo domain.BoletoRepository,
	metrics domain.MetricsCollector,
	tracer domain.DistributedTracer,
	logger domain.Logger,
) *BoletoService {
	return &BoletoService{
		tokens:         tokens,
		sequencias:     sequencias,
		banco:          banco,
		integracaoRepo: integracaoRepo,
		boletoRepo:     boletoRepo,
		metrics:        metrics,
		tracer:         tracer,
		logger:         logger,
	}
}

// EmitirToken garante um token válido para o convênio e o devolve;
// é a ação issueToken do handler
func (s *BoletoService) EmitirToken(ctx context.Context, integracaoID string) (Token, error) {
	ctx, span := s.tracer.StartSpan(ctx, "BoletoService.EmitirToken")
	var err error
	defer func() { s.tracer.FinishSpan(span, err) }()

	integracao, err := s.carregaIntegracao(ctx, integracaoID)
	if err != nil {
		return Token{}, err
	}

	return s.tokens.EnsureValidToken(ctx, integracao)
}

// RegistrarBoleto implementa o registro completo: token válido, alocação
// do nosso número, submissão ao banco e materialização do registro.
// Na rejeição o registro é persistido como FALHA e o nosso número alocado
// fica permanentemente queimado; o boleto com o estado final é devolvido
// junto com o erro classificado.
func (s *BoletoService) RegistrarBoleto(ctx context.Context, integracaoID string, draft *domain.BoletoDraft) (*domain.Boleto, error) {
	inicio := time.Now()
	ctx, span := s.tracer.StartSpan(ctx, "BoletoService.RegistrarBoleto")
	var err error
	defer func() {
		s.metrics.RecordActionLatency("registrar_boleto", time.Since(inicio).Seconds())
		s.tracer.FinishSpan(span, err)
	}()

	// 1. Validação de entrada, antes de qualquer chamada de rede
	if err = draft.Valida(); err != nil {
		s.metrics.IncrementErrorCounter("validation_error")
		return nil, err
	}

	integracao, err := s.carregaIntegracao(ctx, integracaoID)
	if err != nil {
		return nil, err
	}

	// 2. Token válido antes de qualquer efeito colateral
	token, err := s.tokens.EnsureValidToken(ctx, integracao)
	if err != nil {
		return nil, err
	}

	// 3. Nosso número: explícito no rascunho ou alocado na sequência.
	// O contador atômico garante unicidade dos números alocados; um número
	// explícito precisa da verificação local, senão dois registros com o
	// mesmo documento compartilhariam o mesmo nosso número.
	nossoNumero := draft.NumeroDocumento
	if nossoNumero == "" {
		nossoNumero, err = s.sequencias.ProximoNossoNumero(ctx, integracaoID)
		if err != nil {
			return nil, err
		}
	} else {
		if _, getErr := s.boletoRepo.GetByNossoNumero(ctx, integracaoID, nossoNumero); getErr == nil {
			err = domain.NewValidationError(fmt.Sprintf("nosso número %s já utilizado neste convênio", nossoNumero), nil)
			return nil, err
		} else if !domain.EKind(getErr, domain.KindNotFound) {
			err = getErr
			return nil, err
		}
	}

	s.tracer.AddTag(span, "integracao_id", integracaoID)
	s.tracer.AddTag(span, "nosso_numero", nossoNumero)

	// 4. Registro local PENDENTE no momento da alocação: uma queda daqui
	// em diante deixa rastro auditável em vez de um número sumido
	correlationID := correlationIDDe(ctx)
	boleto := domain.NovoBoleto(integracaoID, nossoNumero, draft, correlationID)
	if err = s.boletoRepo.Save(ctx, boleto); err != nil {
		return nil, err
	}

	// 5. Submissão ao banco
	pedido := s.montaPedido(integracao, draft, nossoNumero)
	registro, err := s.banco.RegistrarBoleto(ctx, integracao, token.AccessToken, pedido)
	if err != nil {
		return s.falharRegistro(ctx, boleto, err)
	}

	// 6. Materializa o aceite do banco
	if trErr := boleto.Registrar(registro.CodigoBarras, registro.LinhaDigitavel, registro.IDInstituicao, time.Now()); trErr != nil {
		err = trErr
		return nil, err
	}
	if err = s.boletoRepo.Update(ctx, boleto); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "boleto registrado no banco", map[string]interface{}{
		"boleto_id":     boleto.ID,
		"integracao_id": integracaoID,
		"nosso_numero":  nossoNumero,
		"valor":         boleto.Valor.StringFixed(2),
	})
	s.metrics.IncrementActionCounter("registrar_boleto", "sucesso")

	return boleto, nil
}

// ConsultarStatus consulta a situação de liquidação no banco e devolve o
// snapshot mapeado. Não altera o registro local; quem chama decide se
// aplica o estado observado (ver AtualizarStatus).
func (s *BoletoService) ConsultarStatus(ctx context.Context, integracaoID, nossoNumero string) (*domain.StatusSnapshot, error) {
	ctx, span := s.tracer.StartSpan(ctx, "BoletoService.ConsultarStatus")
	var err error
	defer func() { s.tracer.FinishSpan(span, err) }()

	integracao, err := s.carregaIntegracao(ctx, integracaoID)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.EnsureValidToken(ctx, integracao)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.banco.ConsultarBoleto(ctx, integracao, token.AccessToken, nossoNumero)
	if err != nil {
		return nil, err
	}

	if snapshot.Status == domain.StatusDesconhecido {
		s.logger.Warn(ctx, "status do banco não reconhecido", map[string]interface{}{
			"integracao_id": integracaoID,
			"nosso_numero":  nossoNumero,
			"status_banco":  snapshot.StatusBanco,
		})
	}

	return snapshot, nil
}

// AtualizarStatus consulta o banco e aplica o estado observado ao registro
// local através da máquina de estados
func (s *BoletoService) AtualizarStatus(ctx context.Context, integracaoID, nossoNumero string) (*domain.Boleto, error) {
	boleto, err := s.boletoRepo.GetByNossoNumero(ctx, integracaoID, nossoNumero)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.ConsultarStatus(ctx, integracaoID, nossoNumero)
	if err != nil {
		return nil, err
	}

	anterior := boleto.Status
	if err := boleto.AplicarSnapshot(snapshot); err != nil {
		return nil, err
	}

	if boleto.Status != anterior {
		if err := s.boletoRepo.Update(ctx, boleto); err != nil {
			return nil, err
		}
		s.logger.Info(ctx, "status do boleto atualizado", map[string]interface{}{
			"nosso_numero": nossoNumero,
			"de":           anterior,
			"para":         boleto.Status,
		})
	}

	return boleto, nil
}

// AguardarLiquidacao faz polling limitado da situação do boleto até sair de
// REGISTRADO, respeitando número máximo de tentativas, tempo total e
// cancelamento do contexto
func (s *BoletoService) AguardarLiquidacao(ctx context.Context, integracaoID, nossoNumero string, cfg retry.PollConfig) (*domain.StatusSnapshot, error) {
	var ultimo *domain.StatusSnapshot

	err := retry.Poll(ctx, cfg, func(ctx context.Context) (bool, error) {
		snapshot, err := s.ConsultarStatus(ctx, integracaoID, nossoNumero)
		if err != nil {
			return false, err
		}
		ultimo = snapshot
		concluido := snapshot.Status != domain.StatusRegistrado && snapshot.Status != domain.StatusDesconhecido
		return concluido, nil
	})
	if err != nil {
		return ultimo, err
	}

	return ultimo, nil
}

// BaixarBoleto solicita a baixa de um boleto registrado. A existência
// local é verificada antes de qualquer chamada de rede; nosso número
// nunca registrado falha rápido com NOT_FOUND.
func (s *BoletoService) BaixarBoleto(ctx context.Context, integracaoID, nossoNumero, motivo string) (*domain.Boleto, error) {
	inicio := time.Now()
	ctx, span := s.tracer.StartSpan(ctx, "BoletoService.BaixarBoleto")
	var err error
	defer func() {
		s.metrics.RecordActionLatency("baixar_boleto", time.Since(inicio).Seconds())
		s.tracer.FinishSpan(span, err)
	}()

	boleto, err := s.boletoRepo.GetByNossoNumero(ctx, integracaoID, nossoNumero)
	if err != nil {
		return nil, err
	}

	switch boleto.Status {
	case domain.StatusPendente, domain.StatusFalha:
		// Alocado mas nunca aceito pelo banco: não há o que baixar lá
		err = domain.NewNotFoundError("boleto nunca foi registrado no banco")
		return nil, err
	case domain.StatusPago, domain.StatusBaixado:
		err = domain.NewValidationError("boleto em estado terminal não pode ser baixado", nil)
		return nil, err
	}

	integracao, err := s.carregaIntegracao(ctx, integracaoID)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.EnsureValidToken(ctx, integracao)
	if err != nil {
		return nil, err
	}

	if err = s.banco.BaixarBoleto(ctx, integracao, token.AccessToken, nossoNumero, motivo); err != nil {
		s.metrics.IncrementActionCounter("baixar_boleto", "falha")
		return nil, err
	}

	if err = boleto.Baixar(); err != nil {
		return nil, err
	}
	if err = s.boletoRepo.Update(ctx, boleto); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "boleto baixado no banco", map[string]interface{}{
		"integracao_id": integracaoID,
		"nosso_numero":  nossoNumero,
		"motivo":        motivo,
	})
	s.metrics.IncrementActionCounter("baixar_boleto", "sucesso")

	return boleto, nil
}

// falharRegistro persiste a rejeição do banco como FALHA e devolve o
// registro queimado junto com o erro classificado. Falhas transitórias
// (PROVIDER) não queimam o número: o banco pode ter aceitado o registro
// sem conseguirmos ler a resposta, então o registro fica PENDENTE.
func (s *BoletoService) falharRegistro(ctx context.Context, boleto *domain.Boleto, causa error) (*domain.Boleto, error) {
	if domain.KindDe(causa) == domain.KindProvider {
		s.metrics.IncrementActionCounter("registrar_boleto", "falha_transitoria")
		return boleto, causa
	}

	if err := boleto.Falhar(causa.Error()); err == nil {
		if err := s.boletoRepo.Update(ctx, boleto); err != nil {
			s.logger.Error(ctx, "erro ao persistir boleto com falha", err, map[string]interface{}{
				"boleto_id": boleto.ID,
			})
		}
	}

	s.logger.Warn(ctx, "banco rejeitou o registro do boleto", map[string]interface{}{
		"boleto_id":    boleto.ID,
		"nosso_numero": boleto.NossoNumero,
		"erro":         causa.Error(),
	})
	s.metrics.IncrementActionCounter("registrar_boleto", "falha")

	return boleto, causa
}

// montaPedido monta o payload de registro a partir do rascunho e dos
// padrões do convênio, com o sacado já normalizado
func (s *BoletoService) montaPedido(integracao *domain.IntegracaoBancaria, draft *domain.BoletoDraft, nossoNumero string) *domain.PedidoRegistro {
	pagador := draft.Pagador
	pagador.Normaliza()

	especie := draft.EspecieDocumento
	if especie == "" {
		especie = integracao.EspecieDocumento
	}
	instrucoes := draft.Instrucoes
	if instrucoes == "" {
		instrucoes = integracao.InstrucoesPadrao
	}
	juros := integracao.JurosPercentualPadrao
	if draft.JurosPercentual != nil {
		juros = *draft.JurosPercentual
	}
	multa := integracao.MultaPercentualPadrao
	if draft.MultaPercentual != nil {
		multa = *draft.MultaPercentual
	}

	numeroDoc := draft.NumeroDocumento
	if numeroDoc == "" {
		numeroDoc = nossoNumero
	}

	return &domain.PedidoRegistro{
		NossoNumero:      nossoNumero,
		NumeroDocumento:  numeroDoc,
		Valor:            draft.Valor.StringFixed(2),
		Vencimento:       draft.Vencimento.Format("20060102"),
		Pagador:          pagador,
		EspecieDocumento: especie,
		Instrucoes:       instrucoes,
		JurosPercentual:  juros,
		MultaPercentual:  multa,
	}
}

func (s *BoletoService) carregaIntegracao(ctx context.Context, integracaoID string) (*domain.IntegracaoBancaria, error) {
	if integracaoID == "" {
		return nil, domain.NewValidationError("integracaoId é obrigatório", nil)
	}

	integracao, err := s.integracaoRepo.GetIntegracao(ctx, integracaoID)
	if err != nil {
		return nil, err
	}
	if err := integracao.Valida(); err != nil {
		return nil, err
	}

	return integracao, nil
}

// correlationIDDe extrai o correlation ID do contexto, se houver
func correlationIDDe(ctx context.Context) string {
	if value := ctx.Value("correlation_id"); value != nil {
		if s, ok := value.(string); ok {
			return s
		}
	}
	return ""
}
