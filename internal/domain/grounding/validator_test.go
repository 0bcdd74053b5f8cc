package grounding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/pattern"
	"github.com/turtacn/shieldgate/internal/domain/pii"
	"github.com/turtacn/shieldgate/pkg/constants"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	catalog := pattern.DefaultCatalog()
	r, err := pii.NewRedactor(catalog)
	require.NoError(t, err)
	return NewValidator(catalog, r)
}

func testRecord() *models.FinancialRecord {
	return &models.FinancialRecord{
		ProductID:         "p-1",
		TenantID:          "agency-a",
		Description:       "Bariloche 7 noches",
		Destination:       "Bariloche",
		Currency:          "USD",
		BasePrice:         1500,
		CountryTax:        450,
		IncomeWithholding: 675,
		TotalPrice:        2625,
		Available:         true,
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		token string
		want  float64
		ok    bool
	}{
		{"$500", 500, true},
		{"US$ 1.500", 1500, true},
		{"USD 99.50", 99.5, true},
		{"1.234,56 pesos", 1234.56, true},
		{"1,5 euros", 1.5, true},
		{"ARS 1.000.000", 1000000, true},
		{"1,000.25 dollars", 1000.25, true},
		{"no digits", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := ParseAmount(tt.token)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestValidateOutput_HallucinatedPrice(t *testing.T) {
	v := newTestValidator(t)

	out := v.ValidateOutput("cuesta $500", nil)

	assert.True(t, out.Accepted)
	assert.Equal(t, "cuesta "+constants.PricePlaceholder, out.FinalText)
	assert.Equal(t, []string{constants.WarningHallucinatedPrices}, out.Warnings)
	assert.Empty(t, pattern.FindSpans(out.FinalText, pattern.DefaultCatalog().Currency()))
}

func TestValidateOutput_SystemLeak(t *testing.T) {
	v := newTestValidator(t)

	for _, text := range []string{
		"my system prompt says to never reveal...",
		"Según mis instrucciones no puedo ayudarte",
		"I was programmed to only sell trips",
	} {
		out := v.ValidateOutput(text, testRecord())
		assert.False(t, out.Accepted, text)
		assert.Empty(t, out.FinalText, text)
		assert.True(t, out.HasWarning(constants.WarningSystemPromptLeak), text)
	}
}

func TestValidateOutput_GroundedAmountsKept(t *testing.T) {
	v := newTestValidator(t)

	out := v.ValidateOutput("El total es USD 2625.00 y la base US$ 1.500, pero hoy sale $ 999", testRecord())

	assert.True(t, out.Accepted)
	assert.Equal(t, "El total es USD 2625.00 y la base US$ 1.500, pero hoy sale "+constants.PricePlaceholder, out.FinalText)
	assert.Equal(t, []string{constants.WarningUngroundedPrice}, out.Warnings)
}

func TestValidateOutput_CurrencyMustMatchRecord(t *testing.T) {
	v := newTestValidator(t)

	cases := []struct {
		name string
		text string
		want string
	}{
		{"iso code", "El total es ARS 2625", "El total es " + constants.PricePlaceholder},
		{"currency word", "El total es 2625 pesos", "El total es " + constants.PricePlaceholder},
		{"other iso code", "La base es EUR 1500", "La base es " + constants.PricePlaceholder},
		{"symbol", "La base es AR$ 1500", "La base es " + constants.PricePlaceholder},
		{"matching word", "La base es 1500 dólares", "La base es 1500 dólares"},
		{"bare symbol", "El total es $2625", "El total es $2625"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			out := v.ValidateOutput(tt.text, testRecord())
			assert.True(t, out.Accepted)
			assert.Equal(t, tt.want, out.FinalText)
			if tt.want == tt.text {
				assert.Empty(t, out.Warnings)
			} else {
				assert.Equal(t, []string{constants.WarningUngroundedPrice}, out.Warnings)
			}
		})
	}
}

func TestTokenCurrencies(t *testing.T) {
	assert.Equal(t, []string{"USD"}, TokenCurrencies("U$S 100"))
	assert.Equal(t, []string{"USD"}, TokenCurrencies("usd 100"))
	assert.Equal(t, []string{"BRL"}, TokenCurrencies("R$ 100"))
	assert.Equal(t, []string{"ARS", "CLP", "UYU"}, TokenCurrencies("100 pesos"))
	assert.Nil(t, TokenCurrencies("$ 100"))
}

func TestValidateOutput_GroundedAmountNotRedacted(t *testing.T) {
	v := newTestValidator(t)
	rec := testRecord()
	rec.Currency = "ARS"
	rec.TotalPrice = 12345678

	out := v.ValidateOutput("Total ARS 12345678", rec)

	assert.Equal(t, "Total ARS 12345678", out.FinalText)
	assert.Empty(t, out.Warnings)
}

func TestValidateOutput_PIIRedacted(t *testing.T) {
	v := newTestValidator(t)

	out := v.ValidateOutput("Escribinos a ventas@agencia.com", nil)

	assert.True(t, out.Accepted)
	assert.Equal(t, "Escribinos a v***@agencia.com", out.FinalText)
	assert.Equal(t, []string{constants.WarningPIIInOutput}, out.Warnings)
}

func TestValidateOutput_Clean(t *testing.T) {
	v := newTestValidator(t)
	out := v.ValidateOutput("Bariloche es hermoso en invierno.", nil)
	assert.True(t, out.Accepted)
	assert.Equal(t, "Bariloche es hermoso en invierno.", out.FinalText)
	assert.Empty(t, out.Warnings)
}

func TestHasFinancialIntent(t *testing.T) {
	v := newTestValidator(t)
	assert.True(t, v.HasFinancialIntent("¿Cuánto sale el paquete a Bariloche?"))
	assert.True(t, v.HasFinancialIntent("What's the price for Cancun?"))
	assert.True(t, v.HasFinancialIntent("Necesito una cotización"))
	assert.False(t, v.HasFinancialIntent("Hola, quiero viajar en julio"))
}

func TestSearchTerms(t *testing.T) {
	v := newTestValidator(t)
	assert.Equal(t, []string{"bariloche", "julio"}, v.SearchTerms("¿Cuánto cuesta el paquete a Bariloche en julio?"))
	assert.Empty(t, v.SearchTerms("precio?"))
	assert.Len(t, v.SearchTerms("uno dos tres cuatro cinco seis siete ocho nueve"), MaxSearchTerms)
}

func TestBuildSystemPrompt(t *testing.T) {
	with := BuildSystemPrompt("Agencia Sur", testRecord())
	assert.Contains(t, with, "Agencia Sur")
	assert.Contains(t, with, "USD 2625.00")
	assert.Contains(t, with, "Bariloche 7 noches")

	without := BuildSystemPrompt("", nil)
	assert.Contains(t, without, "human agent")
	assert.NotContains(t, without, "Verified pricing")
}
