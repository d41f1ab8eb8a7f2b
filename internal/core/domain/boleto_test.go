package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func draftValido() *BoletoDraft {
	return &BoletoDraft{
		Valor:      decimal.NewFromFloat(1500.00),
		Vencimento: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Pagador: Pagador{
			Nome:      "Fulano de Tal",
			Documento: "123.456.789-09",
			Endereco:  "Rua das Flores, 100",
			Cidade:    "Porto Alegre",
			UF:        "RS",
			CEP:       "90000-000",
		},
	}
}

func TestNovoBoleto(t *testing.T) {
	draft := draftValido()

	boleto := NovoBoleto("int-1", "00000000042", draft, "test-correlation")

	if boleto.IntegracaoID != "int-1" {
		t.Errorf("IntegracaoID esperado int-1, got %s", boleto.IntegracaoID)
	}
	if boleto.NossoNumero != "00000000042" {
		t.Errorf("NossoNumero esperado 00000000042, got %s", boleto.NossoNumero)
	}
	if boleto.Status != StatusPendente {
		t.Errorf("Status inicial esperado %s, got %s", StatusPendente, boleto.Status)
	}
	if !boleto.Valor.Equal(draft.Valor) {
		t.Errorf("Valor esperado %s, got %s", draft.Valor, boleto.Valor)
	}
	// Sem número de documento explícito, o nosso número é reaproveitado
	if boleto.NumeroDoc != "00000000042" {
		t.Errorf("NumeroDoc esperado 00000000042, got %s", boleto.NumeroDoc)
	}
	if _, err := uuid.Parse(boleto.ID); err != nil {
		t.Errorf("ID deve ser um UUID válido: %v", err)
	}
	if boleto.CorrelationID != "test-correlation" {
		t.Errorf("CorrelationID esperado test-correlation, got %s", boleto.CorrelationID)
	}
}

func TestBoletoDraft_Valida(t *testing.T) {
	tests := []struct {
		name    string
		mutacao func(d *BoletoDraft)
		valido  bool
	}{
		{
			name:    "rascunho válido",
			mutacao: func(d *BoletoDraft) {},
			valido:  true,
		},
		{
			name:    "valor zero",
			mutacao: func(d *BoletoDraft) { d.Valor = decimal.Zero },
			valido:  false,
		},
		{
			name:    "valor negativo",
			mutacao: func(d *BoletoDraft) { d.Valor = decimal.NewFromFloat(-10.0) },
			valido:  false,
		},
		{
			name:    "sem vencimento",
			mutacao: func(d *BoletoDraft) { d.Vencimento = time.Time{} },
			valido:  false,
		},
		{
			name:    "sem nome do pagador",
			mutacao: func(d *BoletoDraft) { d.Pagador.Nome = "" },
			valido:  false,
		},
		{
			name:    "documento sem dígitos",
			mutacao: func(d *BoletoDraft) { d.Pagador.Documento = "---" },
			valido:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := draftValido()
			tt.mutacao(draft)

			err := draft.Valida()

			if tt.valido && err != nil {
				t.Errorf("rascunho deveria ser válido, got %v", err)
			}
			if !tt.valido {
				if err == nil {
					t.Fatal("rascunho deveria ser inválido")
				}
				if KindDe(err) != KindValidation {
					t.Errorf("erro esperado %s, got %s", KindValidation, KindDe(err))
				}
			}
		})
	}
}

func TestPagador_Normaliza(t *testing.T) {
	pagador := Pagador{
		Documento: "123.456.789-09",
		CEP:       "90000-000",
	}

	pagador.Normaliza()

	if pagador.Documento != "12345678909" {
		t.Errorf("Documento esperado 12345678909, got %s", pagador.Documento)
	}
	if pagador.CEP != "90000000" {
		t.Errorf("CEP esperado 90000000, got %s", pagador.CEP)
	}
}

func TestBoleto_Registrar(t *testing.T) {
	boleto := NovoBoleto("int-1", "00000000001", draftValido(), "c")
	quando := time.Now()

	if err := boleto.Registrar("barras", "linha", "prov-1", quando); err != nil {
		t.Fatalf("registro deveria transicionar: %v", err)
	}

	if boleto.Status != StatusRegistrado {
		t.Errorf("Status esperado %s, got %s", StatusRegistrado, boleto.Status)
	}
	if boleto.RegistradoEm == nil || !boleto.RegistradoEm.Equal(quando) {
		t.Error("RegistradoEm deve ser o instante do aceite")
	}

	// Registrar de novo é transição inválida
	if err := boleto.Registrar("b", "l", "p", quando); err == nil {
		t.Error("registrar um boleto já registrado deveria falhar")
	}
}

func TestBoleto_Falhar(t *testing.T) {
	boleto := NovoBoleto("int-1", "00000000001", draftValido(), "c")

	if err := boleto.Falhar("banco rejeitou"); err != nil {
		t.Fatalf("falha deveria transicionar: %v", err)
	}
	if boleto.Status != StatusFalha {
		t.Errorf("Status esperado %s, got %s", StatusFalha, boleto.Status)
	}
	if boleto.MotivoFalha != "banco rejeitou" {
		t.Errorf("MotivoFalha esperado preservado, got %s", boleto.MotivoFalha)
	}
}

func TestBoleto_AplicarSnapshot(t *testing.T) {
	pago := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	valorPago := decimal.NewFromFloat(1500.00)

	tests := []struct {
		name           string
		statusInicial  string
		snapshot       StatusSnapshot
		statusEsperado string
		erro           bool
	}{
		{
			name:           "registrado para pago",
			statusInicial:  StatusRegistrado,
			snapshot:       StatusSnapshot{Status: StatusPago, PagoEm: &pago, ValorPago: &valorPago},
			statusEsperado: StatusPago,
		},
		{
			name:           "registrado para vencido",
			statusInicial:  StatusRegistrado,
			snapshot:       StatusSnapshot{Status: StatusVencido},
			statusEsperado: StatusVencido,
		},
		{
			name:           "vencido para pago",
			statusInicial:  StatusVencido,
			snapshot:       StatusSnapshot{Status: StatusPago, PagoEm: &pago},
			statusEsperado: StatusPago,
		},
		{
			name:           "desconhecido não muda nada",
			statusInicial:  StatusRegistrado,
			snapshot:       StatusSnapshot{Status: StatusDesconhecido},
			statusEsperado: StatusRegistrado,
		},
		{
			name:           "mesmo status não muda nada",
			statusInicial:  StatusRegistrado,
			snapshot:       StatusSnapshot{Status: StatusRegistrado},
			statusEsperado: StatusRegistrado,
		},
		{
			name:          "pago é terminal",
			statusInicial: StatusPago,
			snapshot:      StatusSnapshot{Status: StatusVencido},
			erro:          true,
		},
		{
			name:          "baixado é terminal",
			statusInicial: StatusBaixado,
			snapshot:      StatusSnapshot{Status: StatusPago, PagoEm: &pago},
			erro:          true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			boleto := NovoBoleto("int-1", "00000000001", draftValido(), "c")
			boleto.Status = tt.statusInicial

			err := boleto.AplicarSnapshot(&tt.snapshot)

			if tt.erro {
				if err == nil {
					t.Fatal("transição deveria ser rejeitada")
				}
				return
			}
			if err != nil {
				t.Fatalf("snapshot deveria aplicar: %v", err)
			}
			if boleto.Status != tt.statusEsperado {
				t.Errorf("Status esperado %s, got %s", tt.statusEsperado, boleto.Status)
			}
			if tt.statusEsperado == StatusPago && tt.snapshot.PagoEm != nil {
				if boleto.PagoEm == nil || !boleto.PagoEm.Equal(*tt.snapshot.PagoEm) {
					t.Error("PagoEm deve vir do snapshot")
				}
			}
		})
	}
}

func TestBoleto_Baixar(t *testing.T) {
	tests := []struct {
		statusInicial string
		permitido     bool
	}{
		{StatusRegistrado, true},
		{StatusVencido, true},
		{StatusPendente, false},
		{StatusPago, false},
		{StatusBaixado, false},
		{StatusFalha, false},
	}

	for _, tt := range tests {
		t.Run(tt.statusInicial, func(t *testing.T) {
			boleto := NovoBoleto("int-1", "00000000001", draftValido(), "c")
			boleto.Status = tt.statusInicial

			err := boleto.Baixar()

			if tt.permitido {
				if err != nil {
					t.Fatalf("baixa deveria ser permitida: %v", err)
				}
				if boleto.Status != StatusBaixado {
					t.Errorf("Status esperado %s, got %s", StatusBaixado, boleto.Status)
				}
			} else if err == nil {
				t.Errorf("baixa a partir de %s deveria ser rejeitada", tt.statusInicial)
			}
		})
	}
}

func TestFormataNossoNumero(t *testing.T) {
	tests := []struct {
		sequencia int64
		esperado  string
	}{
		{1, "00000000001"},
		{42, "00000000042"},
		{99999999999, "99999999999"},
	}

	for _, tt := range tests {
		if got := FormataNossoNumero(tt.sequencia); got != tt.esperado {
			t.Errorf("FormataNossoNumero(%d) esperado %s, got %s", tt.sequencia, tt.esperado, got)
		}
	}
}

func TestIntegracaoBancaria_TokenValido(t *testing.T) {
	agora := time.Now()

	expiraLonge := agora.Add(time.Hour)
	expiraPerto := agora.Add(30 * time.Second) // dentro da margem de segurança
	expirado := agora.Add(-time.Minute)

	tests := []struct {
		name       string
		integracao IntegracaoBancaria
		valido     bool
	}{
		{"token válido por uma hora", IntegracaoBancaria{AccessToken: "t", TokenExpiraEm: &expiraLonge}, true},
		{"token dentro da margem de segurança", IntegracaoBancaria{AccessToken: "t", TokenExpiraEm: &expiraPerto}, false},
		{"token expirado", IntegracaoBancaria{AccessToken: "t", TokenExpiraEm: &expirado}, false},
		{"sem token", IntegracaoBancaria{TokenExpiraEm: &expiraLonge}, false},
		{"sem expiração", IntegracaoBancaria{AccessToken: "t"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.integracao.TokenValido(agora); got != tt.valido {
				t.Errorf("TokenValido esperado %v, got %v", tt.valido, got)
			}
		})
	}
}

// Testes de propriedades
func TestBoleto_Properties(t *testing.T) {
	// IDs de boletos devem ser únicos mesmo com rascunhos idênticos
	draft := draftValido()
	b1 := NovoBoleto("int-1", "00000000001", draft, "c")
	b2 := NovoBoleto("int-1", "00000000002", draft, "c")
	if b1.ID == b2.ID {
		t.Error("IDs de boletos devem ser únicos")
	}

	// Estado inicial sempre deve ser PENDENTE
	if b1.Status != StatusPendente {
		t.Error("status inicial sempre deve ser PENDENTE")
	}

	// Estados terminais nunca transicionam
	b1.Status = StatusPago
	if !b1.Terminal() {
		t.Error("PAGO deve ser terminal")
	}
	if err := b1.Baixar(); err == nil {
		t.Error("nenhuma transição deve sair de PAGO")
	}
}

func BenchmarkFormataNossoNumero(b *testing.B) {
	for i := 0; i < b.N; i++ {
		FormataNossoNumero(int64(i))
	}
}
