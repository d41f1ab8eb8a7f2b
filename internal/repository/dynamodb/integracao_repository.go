package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/core/domain"
)

// IntegracaoRepository persiste as configurações de convênio bancário.
// Token e contador de sequência são os dois campos mutáveis compartilhados;
// ambos são atualizados com escritas condicionais/atômicas do DynamoDB.
type IntegracaoRepository struct {
	client    *dynamodb.Client
	tableName string
}

type IntegracaoItem struct {
	ID                    string  `dynamodbav:"id"`
	Banco                 string  `dynamodbav:"banco"`
	Ambiente              string  `dynamodbav:"ambiente"`
	ClientID              string  `dynamodbav:"client_id"`
	ClientSecret          string  `dynamodbav:"client_secret"`
	AccessToken           string  `dynamodbav:"access_token"`
	TokenExpiraEm         int64   `dynamodbav:"token_expira_em"` // epoch segundos; 0 = sem token
	Sequencia             int64   `dynamodbav:"sequencia"`
	InstrucoesPadrao      string  `dynamodbav:"instrucoes_padrao"`
	JurosPercentualPadrao float64 `dynamodbav:"juros_percentual_padrao"`
	MultaPercentualPadrao float64 `dynamodbav:"multa_percentual_padrao"`
	EspecieDocumento      string  `dynamodbav:"especie_documento"`
	CreatedAt             string  `dynamodbav:"created_at"`
	UpdatedAt             string  `dynamodbav:"updated_at"`
}

func NewIntegracaoRepository(client *dynamodb.Client, tableName string) *IntegracaoRepository {
	return &IntegracaoRepository{
		client:    client,
		tableName: tableName,
	}
}

// GetIntegracao busca a configuração de um convênio pelo ID
func (r *IntegracaoRepository) GetIntegracao(ctx context.Context, integracaoID string) (*domain.IntegracaoBancaria, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: integracaoID},
		},
		// Leitura consistente: token e sequência recém-gravados precisam
		// ser observados pela próxima chamada
		ConsistentRead: aws.Bool(true),
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, domain.NewInternalError(fmt.Sprintf("erro ao buscar integração %s", integracaoID), err)
	}

	if result.Item == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("integração %s não encontrada", integracaoID))
	}

	var item IntegracaoItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, domain.NewInternalError("erro ao deserializar integração", err)
	}

	return r.itemToIntegracao(&item), nil
}

// AtualizarToken persiste token e expiração de um refresh bem-sucedido.
// A condição attribute_exists impede criar um convênio fantasma.
func (r *IntegracaoRepository) AtualizarToken(ctx context.Context, integracaoID, token string, expiraEm int64) error {
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: integracaoID},
		},
		UpdateExpression: aws.String("SET access_token = :token, token_expira_em = :expira, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":token":  &types.AttributeValueMemberS{Value: token},
			":expira": &types.AttributeValueMemberN{Value: strconv.FormatInt(expiraEm, 10)},
			":now":    &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(id)"),
	}

	_, err := r.client.UpdateItem(ctx, input)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return domain.NewNotFoundError(fmt.Sprintf("integração %s não encontrada", integracaoID))
		}
		return domain.NewInternalError(fmt.Sprintf("erro ao atualizar token da integração %s", integracaoID), err)
	}

	return nil
}

// IncrementarSequencia avança o contador de nosso número e devolve o novo
// valor. O ADD do DynamoDB é atômico: chamadas concorrentes são
// serializadas pelo armazenamento e nunca observam o mesmo contador.
func (r *IntegracaoRepository) IncrementarSequencia(ctx context.Context, integracaoID string) (int64, error) {
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: integracaoID},
		},
		UpdateExpression: aws.String("SET updated_at = :now ADD sequencia :um"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":um":  &types.AttributeValueMemberN{Value: "1"},
			":now": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(id)"),
		// O valor novo volta na própria resposta: incremento e leitura
		// são uma única operação
		ReturnValues: types.ReturnValueUpdatedNew,
	}

	result, err := r.client.UpdateItem(ctx, input)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return 0, domain.NewNotFoundError(fmt.Sprintf("integração %s não encontrada", integracaoID))
		}
		return 0, domain.NewInternalError(fmt.Sprintf("erro ao incrementar sequência da integração %s", integracaoID), err)
	}

	attr, ok := result.Attributes["sequencia"]
	if !ok {
		return 0, domain.NewInternalError("incremento de sequência não devolveu o novo valor", nil)
	}

	var sequencia int64
	if err := attributevalue.Unmarshal(attr, &sequencia); err != nil {
		return 0, domain.NewInternalError("erro ao deserializar nova sequência", err)
	}

	return sequencia, nil
}

func (r *IntegracaoRepository) itemToIntegracao(item *IntegracaoItem) *domain.IntegracaoBancaria {
	integracao := &domain.IntegracaoBancaria{
		ID:                    item.ID,
		Banco:                 item.Banco,
		Ambiente:              domain.Ambiente(item.Ambiente),
		ClientID:              item.ClientID,
		ClientSecret:          item.ClientSecret,
		AccessToken:           item.AccessToken,
		Sequencia:             item.Sequencia,
		InstrucoesPadrao:      item.InstrucoesPadrao,
		JurosPercentualPadrao: item.JurosPercentualPadrao,
		MultaPercentualPadrao: item.MultaPercentualPadrao,
		EspecieDocumento:      item.EspecieDocumento,
	}

	if item.TokenExpiraEm > 0 {
		expira := time.Unix(item.TokenExpiraEm, 0)
		integracao.TokenExpiraEm = &expira
	}
	if t, err := time.Parse(time.RFC3339, item.CreatedAt); err == nil {
		integracao.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, item.UpdatedAt); err == nil {
		integracao.UpdatedAt = t
	}

	return integracao
}
