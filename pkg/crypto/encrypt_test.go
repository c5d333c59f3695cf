package crypto

import (
	"encoding/base64"
	"strings"
	"testing"
)

// TestEncryptDecrypt проверяет базовый цикл шифрования/расшифровки
func TestEncryptDecrypt(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	tests := []struct {
		name      string
		plaintext string
	}{
		{"empty string", ""},
		{"api key example", "vmPUZE6mv9SD5VNHk4HlWFsOr6aKE2zvsw0MuIgwCIPy6utIco14y7Ju91duEh8A"},
		{"unicode text", "Привет мир 你好世界"},
		{"special chars", "!@#$%^&*()_+-=[]{}|;':\",./<>?"},
		{"long text", strings.Repeat("a", 1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encrypted, err := Encrypt(tt.plaintext, key)
			if err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}

			if _, err := base64.StdEncoding.DecodeString(encrypted); err != nil {
				t.Errorf("Encrypted result is not valid base64: %v", err)
			}

			if encrypted == tt.plaintext && tt.plaintext != "" {
				t.Error("Encrypted text should not equal plaintext")
			}

			decrypted, err := Decrypt(encrypted, key)
			if err != nil {
				t.Fatalf("Decrypt failed: %v", err)
			}

			if decrypted != tt.plaintext {
				t.Errorf("Decrypted text mismatch: got %q, want %q", decrypted, tt.plaintext)
			}
		})
	}
}

// TestEncryptDifferentResults проверяет что каждое шифрование даёт разный результат (разный nonce)
func TestEncryptDifferentResults(t *testing.T) {
	key, _ := GenerateKey()

	encrypted1, _ := Encrypt("same text", key)
	encrypted2, _ := Encrypt("same text", key)

	if encrypted1 == encrypted2 {
		t.Error("Two encryptions of the same text should produce different ciphertexts")
	}
}

func TestEncryptInvalidKeyLength(t *testing.T) {
	for _, keyLen := range []int{0, 16, 31, 33, 64} {
		key := make([]byte, keyLen)
		if _, err := Encrypt("test", key); err != ErrInvalidKeyLength {
			t.Errorf("Encrypt with %d byte key: got error %v, want %v", keyLen, err, ErrInvalidKeyLength)
		}
		if _, err := Decrypt("test", key); err != ErrInvalidKeyLength {
			t.Errorf("Decrypt with %d byte key: got error %v, want %v", keyLen, err, ErrInvalidKeyLength)
		}
	}
}

// TestDecryptWrongKey проверяет что расшифровка с неправильным ключом возвращает ошибку
func TestDecryptWrongKey(t *testing.T) {
	key1, _ := GenerateKey()
	key2, _ := GenerateKey()

	encrypted, _ := Encrypt("secret data", key1)

	if _, err := Decrypt(encrypted, key2); err != ErrDecryptionFailed {
		t.Errorf("Decrypt with wrong key: got error %v, want %v", err, ErrDecryptionFailed)
	}
}

func TestDecryptInvalidInput(t *testing.T) {
	key, _ := GenerateKey()

	tests := []struct {
		name       string
		ciphertext string
		wantErr    error
	}{
		{"not base64", "not-valid-base64!!!", ErrInvalidCiphertext},
		{"truncated base64", "YWJj", ErrCiphertextTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decrypt(tt.ciphertext, key); err != tt.wantErr {
				t.Errorf("Decrypt(%q): got error %v, want %v", tt.ciphertext, err, tt.wantErr)
			}
		})
	}
}

// TestDecryptTamperedCiphertext проверяет обнаружение изменённого шифротекста
func TestDecryptTamperedCiphertext(t *testing.T) {
	key, _ := GenerateKey()
	encrypted, _ := Encrypt("original data", key)

	decoded, _ := base64.StdEncoding.DecodeString(encrypted)
	decoded[20] ^= 0xFF
	tampered := base64.StdEncoding.EncodeToString(decoded)

	if _, err := Decrypt(tampered, key); err != ErrDecryptionFailed {
		t.Errorf("Decrypt tampered ciphertext: got error %v, want %v", err, ErrDecryptionFailed)
	}
}

func TestGenerateKeyString(t *testing.T) {
	keyStr, err := GenerateKeyString()
	if err != nil {
		t.Fatalf("GenerateKeyString failed: %v", err)
	}

	key, err := ParseKey(keyStr)
	if err != nil {
		t.Fatalf("ParseKey(generated) failed: %v", err)
	}
	if len(key) != KeySize {
		t.Errorf("got %d bytes, want %d", len(key), KeySize)
	}
}

func TestParseKey(t *testing.T) {
	raw := strings.Repeat("k", 32)
	std := base64.StdEncoding.EncodeToString([]byte(raw))
	urlSafe := base64.URLEncoding.EncodeToString([]byte{0xfb, 0xff, 0xfe, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28})

	tests := []struct {
		name    string
		value   string
		wantErr error
	}{
		{"raw 32 bytes", raw, nil},
		{"std base64", std, nil},
		{"url base64", urlSafe, nil},
		{"too short", "short", ErrInvalidKeyLength},
		{"base64 of 16 bytes", base64.StdEncoding.EncodeToString(make([]byte, 16)), ErrInvalidKeyLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParseKey(tt.value)
			if err != tt.wantErr {
				t.Fatalf("ParseKey: got error %v, want %v", err, tt.wantErr)
			}
			if err == nil && len(key) != KeySize {
				t.Errorf("ParseKey: got %d bytes", len(key))
			}
		})
	}
}
