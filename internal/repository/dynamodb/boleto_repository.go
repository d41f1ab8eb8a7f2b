package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/core/domain"
)

// BoletoRepository persiste os registros de boleto
type BoletoRepository struct {
	client    *dynamodb.Client
	tableName string
}

type BoletoItem struct {
	ID             string `dynamodbav:"id"`
	IntegracaoID   string `dynamodbav:"integracao_id"`
	NossoNumero    string `dynamodbav:"nosso_numero"`
	NumeroDoc      string `dynamodbav:"numero_documento"`
	CodigoBarras   string `dynamodbav:"codigo_barras"`
	LinhaDigitavel string `dynamodbav:"linha_digitavel"`
	IDInstituicao  string `dynamodbav:"id_instituicao"`
	Status         string `dynamodbav:"status"`
	Valor          string `dynamodbav:"valor"` // decimal serializado como string
	Vencimento     string `dynamodbav:"vencimento"`
	RegistradoEm   string `dynamodbav:"registrado_em"`
	PagoEm         string `dynamodbav:"pago_em"`
	ValorPago      string `dynamodbav:"valor_pago"`
	MotivoFalha    string `dynamodbav:"motivo_falha"`
	CorrelationID  string `dynamodbav:"correlation_id"`
	CreatedAt      string `dynamodbav:"created_at"`
	UpdatedAt      string `dynamodbav:"updated_at"`
}

func NewBoletoRepository(client *dynamodb.Client, tableName string) *BoletoRepository {
	return &BoletoRepository{
		client:    client,
		tableName: tableName,
	}
}

// Save persiste um boleto recém-alocado. A condição attribute_not_exists
// garante que um nosso número alocado nunca sobrescreve outro registro.
func (r *BoletoRepository) Save(ctx context.Context, boleto *domain.Boleto) error {
	av, err := attributevalue.MarshalMap(r.boletoToItem(boleto))
	if err != nil {
		return domain.NewInternalError("erro ao serializar boleto", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	}

	_, err = r.client.PutItem(ctx, input)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return domain.NewValidationError(fmt.Sprintf("boleto %s já existe", boleto.ID), nil)
		}
		return domain.NewInternalError("erro ao salvar boleto", err)
	}

	return nil
}

// Update substitui o registro de um boleto já persistido
func (r *BoletoRepository) Update(ctx context.Context, boleto *domain.Boleto) error {
	av, err := attributevalue.MarshalMap(r.boletoToItem(boleto))
	if err != nil {
		return domain.NewInternalError("erro ao serializar boleto", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(id)"),
	}

	_, err = r.client.PutItem(ctx, input)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return domain.NewNotFoundError(fmt.Sprintf("boleto %s não encontrado", boleto.ID))
		}
		return domain.NewInternalError("erro ao atualizar boleto", err)
	}

	return nil
}

// GetByNossoNumero busca um boleto pelo nosso número dentro de um convênio.
// Requer o GSI integracao-nosso-numero-index (integracao_id + nosso_numero).
func (r *BoletoRepository) GetByNossoNumero(ctx context.Context, integracaoID, nossoNumero string) (*domain.Boleto, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("integracao-nosso-numero-index"),
		KeyConditionExpression: aws.String("integracao_id = :integracao_id AND nosso_numero = :nosso_numero"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":integracao_id": &types.AttributeValueMemberS{Value: integracaoID},
			":nosso_numero":  &types.AttributeValueMemberS{Value: nossoNumero},
		},
		Limit: aws.Int32(1),
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, domain.NewInternalError(fmt.Sprintf("erro ao buscar boleto %s", nossoNumero), err)
	}

	if len(result.Items) == 0 {
		return nil, domain.NewNotFoundError(fmt.Sprintf("boleto %s não encontrado para a integração %s", nossoNumero, integracaoID))
	}

	var item BoletoItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, domain.NewInternalError("erro ao deserializar boleto", err)
	}

	return r.itemToBoleto(&item), nil
}

func (r *BoletoRepository) boletoToItem(boleto *domain.Boleto) *BoletoItem {
	item := &BoletoItem{
		ID:             boleto.ID,
		IntegracaoID:   boleto.IntegracaoID,
		NossoNumero:    boleto.NossoNumero,
		NumeroDoc:      boleto.NumeroDoc,
		CodigoBarras:   boleto.CodigoBarras,
		LinhaDigitavel: boleto.LinhaDigitavel,
		IDInstituicao:  boleto.IDInstituicao,
		Status:         boleto.Status,
		Valor:          boleto.Valor.StringFixed(2),
		Vencimento:     boleto.Vencimento.Format("2006-01-02"),
		MotivoFalha:    boleto.MotivoFalha,
		CorrelationID:  boleto.CorrelationID,
		CreatedAt:      boleto.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      boleto.UpdatedAt.Format(time.RFC3339),
	}

	if boleto.RegistradoEm != nil {
		item.RegistradoEm = boleto.RegistradoEm.Format(time.RFC3339)
	}
	if boleto.PagoEm != nil {
		item.PagoEm = boleto.PagoEm.Format(time.RFC3339)
	}
	if boleto.ValorPago != nil {
		item.ValorPago = boleto.ValorPago.StringFixed(2)
	}

	return item
}

func (r *BoletoRepository) itemToBoleto(item *BoletoItem) *domain.Boleto {
	boleto := &domain.Boleto{
		ID:             item.ID,
		IntegracaoID:   item.IntegracaoID,
		NossoNumero:    item.NossoNumero,
		NumeroDoc:      item.NumeroDoc,
		CodigoBarras:   item.CodigoBarras,
		LinhaDigitavel: item.LinhaDigitavel,
		IDInstituicao:  item.IDInstituicao,
		Status:         item.Status,
		MotivoFalha:    item.MotivoFalha,
		CorrelationID:  item.CorrelationID,
	}

	if v, err := decimal.NewFromString(item.Valor); err == nil {
		boleto.Valor = v
	}
	if item.ValorPago != "" {
		if v, err := decimal.NewFromString(item.ValorPago); err == nil {
			boleto.ValorPago = &v
		}
	}
	if t, err := time.Parse("2006-01-02", item.Vencimento); err == nil {
		boleto.Vencimento = t
	}
	if item.RegistradoEm != "" {
		if t, err := time.Parse(time.RFC3339, item.RegistradoEm); err == nil {
			boleto.RegistradoEm = &t
		}
	}
	if item.PagoEm != "" {
		if t, err := time.Parse(time.RFC3339, item.PagoEm); err == nil {
			boleto.PagoEm = &t
		}
	}
	if t, err := time.Parse(time.RFC3339, item.CreatedAt); err == nil {
		boleto.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, item.UpdatedAt); err == nil {
		boleto.UpdatedAt = t
	}

	return boleto
}
