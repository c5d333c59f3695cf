package guard

import (
	"strings"
	"testing"
)

func TestClassifyKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Classification
	}{
		{"private key mixed case", "my private KEY is abc", SuspectedSecret},
		{"mnemonic upper", "MNEMONIC", SuspectedSecret},
		{"seed inside word", "seedphrase", SuspectedSecret},
		{"plain address", "0x52908400098527886E0F7030069857D2E4169EE7", Clean},
		{"short text", "MainWallet", Clean},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyHexKey(t *testing.T) {
	key := strings.Repeat("a1", 32) // 64 hex символа

	tests := []struct {
		name string
		text string
		want Classification
	}{
		{"bare 64 hex", key, SuspectedSecret},
		{"0x prefix", "0x" + key, SuspectedSecret},
		{"0X prefix upper", "0X" + strings.ToUpper(key), SuspectedSecret},
		{"embedded in text", "here: " + key + " ok", SuspectedSecret},
		{"63 hex", key[:63], Clean},
		{"65 hex", key + "b", Clean},
		{"40 hex address", "0x" + key[:40], Clean},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(len=%d) = %v, want %v", len(tt.text), got, tt.want)
			}
		})
	}
}

func TestClassifyPhraseShape(t *testing.T) {
	sentence := func(n int) string {
		words := make([]string, n)
		for i := range words {
			words[i] = "word"
		}
		return strings.Join(words, " ")
	}

	tests := []struct {
		words int
		want  Classification
	}{
		{9, Clean},
		{10, SuspectedSecret},
		{11, SuspectedSecret},
		{12, SuspectedSecret},
		{24, SuspectedSecret},
		{25, Clean},
	}

	for _, tt := range tests {
		text := sentence(tt.words)
		if got := Classify(text); got != tt.want {
			t.Errorf("Classify(%d words) = %v, want %v", tt.words, got, tt.want)
		}
	}

	// обычное предложение из 11 слов тоже отклоняется
	plain := "the quick brown fox jumps over the lazy dog every day"
	if Classify(plain) != SuspectedSecret {
		t.Errorf("11-word sentence should be flagged")
	}

	// разделители - любые пробельные символы
	if Classify("a\tb\nc d e f g h i j") != SuspectedSecret {
		t.Errorf("tokens split by mixed whitespace should be counted")
	}
}

func TestReason(t *testing.T) {
	if r := Reason("my seed"); r != ReasonKeyword {
		t.Errorf("expected %q, got %q", ReasonKeyword, r)
	}
	if r := Reason(strings.Repeat("f", 64)); r != ReasonHexKey {
		t.Errorf("expected %q, got %q", ReasonHexKey, r)
	}
	if r := Reason("one two three four five six seven eight nine ten"); r != ReasonPhraseShape {
		t.Errorf("expected %q, got %q", ReasonPhraseShape, r)
	}
	if r := Reason("TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE"); r != ReasonNone {
		t.Errorf("expected no reason, got %q", r)
	}
}

func TestClassificationString(t *testing.T) {
	if Clean.String() != "clean" || SuspectedSecret.String() != "suspected_secret" {
		t.Error("unexpected String() output")
	}
	if !IsSuspected("mnemonic") || IsSuspected("hello") {
		t.Error("IsSuspected mismatch")
	}
}
