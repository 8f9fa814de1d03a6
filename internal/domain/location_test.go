package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(t *testing.T) *LocationNormalizer {
	t.Helper()
	n, err := NewLocationNormalizer(DefaultNormalizerConfig())
	require.NoError(t, err)
	return n
}

func TestNormalize(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"abbreviations and city suffix", "Brgy Sta. Rosa City, N.E.", "Barangay Santa Rosa, Nueva Ecija, Philippines"},
		{"zip and island", "Cagayan de Oro City, Mindanao 9000", "Cagayan de Oro, Mindanao, Philippines 9000"},
		{"existing country stripped", "Los Banos, Laguna, Philippines", "Los Banos, Laguna, Philippines"},
		{"province of", "Province of Laguna", "Laguna Province, Philippines"},
		{"city infix", "Quezon City Metro Manila", "Quezon, Metro Manila, Philippines"},
		{"noise token", "TIA Cotabato", "Cotabato, Philippines"},
		{"island at end of last component", "Davao Mindanao", "Davao, Mindanao, Philippines"},
		{"island inside a name is kept", "CMU", "Central Mindanao University, Philippines"},
		{"specific zambo rule first", "Zambo Norte", "Zamboanga Del Norte, Philippines"},
		{"general zambo rule", "zambo", "Zamboanga, Philippines"},
		{"gensan", "Gensan", "General Santos, Philippines"},
		{"gen tri", "Gen Tri Cavite", "General Trias Cavite, Philippines"},
		{"acronym", "CDO", "Cagayan De Oro, Philippines"},
		{"override naval", "naval", "Naval, Santa Rosa, Laguna, Philippines"},
		{"override camp 1", "Camp 1 Tuba", "Camp 1, Tuba, Benguet, Philippines"},
		{"override pio v corpuz", "Pio V. Corpuz, Masbate", "Pio V Corpuz, Philippines"},
		{"redundant punctuation", "Los Banos,, , Laguna ,", "Los Banos, Laguna, Philippines"},
		{"decomposed unicode", "Dasmarin\u0303as, Cavite", "Dasmari\u00f1as, Cavite, Philippines"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}

func TestNormalize_Unusable(t *testing.T) {
	n := newTestNormalizer(t)

	for _, in := range []string{"", "   ", "-", "...", " , / ", "Philippines", "TIA"} {
		t.Run(in, func(t *testing.T) {
			assert.Empty(t, n.Normalize(in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n := newTestNormalizer(t)

	inputs := []string{
		"Brgy Sta. Rosa City, N.E.",
		"Cagayan de Oro City, Mindanao 9000",
		"Province of Laguna",
		"Quezon City Metro Manila",
		"brgy. san isidro, sto. tomas, batangas 4234",
		"Mt. Province",
		"Pio V. Corpuz, Masbate",
		"naval",
		"zambo norte, mindanao",
		"Iloilo, Visayas",
		"Gensan Conel",
		"Sjdm, Bulacan, Luzon",
		"CMU Musuan, Bukidnon",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once := n.Normalize(in)
			require.NotEmpty(t, once)
			assert.Equal(t, once, n.Normalize(once))
		})
	}
}

func TestNormalize_StackedIslandTokens(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		in   string
		want string
	}{
		{"Visayas Luzon", ""},
		{"Sta. Mesa, Manila, Visayas Luzon", "Santa Mesa, Manila, Luzon, Philippines"},
		{"Tacloban Visayas, Luzon", "Tacloban, Luzon, Philippines"},
		{"Luzon, Tacloban Visayas", "Tacloban, Visayas, Philippines"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			once := n.Normalize(tt.in)
			assert.Equal(t, tt.want, once)
			assert.Equal(t, once, n.Normalize(once))
		})
	}
}

func TestNormalize_OverridesWinOverExpansions(t *testing.T) {
	n, err := NewLocationNormalizer(NormalizerConfig{
		Overrides: []Rule{
			{Pattern: `\bfoo\b`, Replacement: "Resolved Place", Mode: ReplaceWhole},
			{Pattern: `\bbar\b`, Replacement: "Never Used", Mode: ReplaceWhole},
		},
		Expansions: []Rule{
			{Pattern: `\bfoo\b`, Replacement: "Expanded"},
		},
		Country: "Philippines",
	})
	require.NoError(t, err)

	assert.Equal(t, "Resolved Place, Philippines", n.Normalize("foo bar"))
	assert.Equal(t, "Never Used, Philippines", n.Normalize("bar"))
}

func TestNewLocationNormalizer_InvalidPattern(t *testing.T) {
	_, err := NewLocationNormalizer(NormalizerConfig{
		Expansions: []Rule{{Pattern: `(unclosed`, Replacement: "x"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile expansions")
}
