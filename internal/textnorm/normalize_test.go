package textnorm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"accents", "Balón", "balon"},
		{"enye", "AÑO", "ano"},
		{"smart quotes", "“fuera de juego” ‘claro’", `"fuera de juego" 'claro'`},
		{"trailing annotation", "3 décimas (ver ART. 5)", "3 decimas"},
		{"leading annotation", "[Regla 12] Tiro libre directo", "tiro libre directo"},
		{"middle annotation", "Saque (art. 3) de esquina", "saque de esquina"},
		{"nested annotation", "Penalti (ver (Regla 14) y 15) indirecto", "penalti indirecto"},
		{"whitespace", "  dos\t\tjugadores \n expulsados ", "dos jugadores expulsados"},
		{"ellipsis", "El árbitro detiene el juego…", "el arbitro detiene el juego..."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Balón", "İstanbul", "ẞtraße", "3 décimas (ver ART. 5)", "((a) b",
		"“Quote” ‘x’", "  Mixed   CASE\tand  ÀÉÎÕÜ ", "Tiro [libre] {directo} (indirecto)",
		"unbalanced ) bracket (", "Ω ohm Å angstrom",
	}
	for _, in := range inputs {
		once := Normalize(in)
		require.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestEqualFoldsAccents(t *testing.T) {
	require.True(t, Equal("balón", "balon"))
	require.True(t, Equal("Árbitro Asistente", "arbitro   asistente"))
	require.False(t, Equal("amarilla", "roja"))
}
