package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/bank"
	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/core/service"
	awslambda "github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/handler/lambda"
	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/observability/logger"
	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/observability/metrics"
	"github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/observability/tracing"
	dynamorepo "github.com/pandorainfoporto-rgb/riviera-empreendimentos-sub010/internal/repository/dynamodb"
)

func main() {
	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("erro ao carregar configuração AWS: %v", err)
	}
	dynamoClient := dynamodb.NewFromConfig(awsCfg)

	// Configurações do ambiente
	integracoesTableName := getEnvOrDefault("INTEGRACOES_TABLE_NAME", "integracoes_bancarias")
	boletosTableName := getEnvOrDefault("BOLETOS_TABLE_NAME", "boletos")

	// Componentes de observabilidade
	structuredLogger := logger.NewStructuredLogger()
	simpleTracer := tracing.NewSimpleTracer("boleto-gateway")
	prometheusCollector := metrics.NewPrometheusCollector()

	// Repositórios
	integracaoRepository := dynamorepo.NewIntegracaoRepository(dynamoClient, integracoesTableName)
	boletoRepository := dynamorepo.NewBoletoRepository(dynamoClient, boletosTableName)

	// Cliente da API do banco parceiro
	bancoClient := bank.NewClient(bank.Config{
		SandboxURL:  os.Getenv("BANCO_SANDBOX_URL"),
		ProducaoURL: os.Getenv("BANCO_PRODUCAO_URL"),
	}, structuredLogger)

	// Serviços do ciclo de vida do boleto
	tokenManager := service.NewTokenManager(integracaoRepository, bancoClient, structuredLogger, prometheusCollector)
	sequenceAllocator := service.NewSequenceAllocator(integracaoRepository, structuredLogger)
	boletoService := service.NewBoletoService(
		tokenManager,
		sequenceAllocator,
		bancoClient,
		integracaoRepository,
		boletoRepository,
		prometheusCollector,
		simpleTracer,
		structuredLogger,
	)

	// Handler de ações
	handler := awslambda.NewActionHandler(boletoService, structuredLogger, prometheusCollector)

	lambda.Start(handler.HandleRequest)
}

// getEnvOrDefault retorna variável de ambiente ou valor padrão
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
