package s3

import "testing"

func TestLetterStem(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"carta_mensal_/carta_novembro_2026.pdf", "carta_novembro_2026"},
		{"carta_mensal_/nested/carta.PDF", "carta"},
		{"carta_sem_extensao", "carta_sem_extensao"},
	}
	for _, c := range cases {
		if got := LetterStem(c.key); got != c.want {
			t.Errorf("LetterStem(%q) = %q, want %q", c.key, got, c.want)
		}
	}
}
