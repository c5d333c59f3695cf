package crypto

import (
	"crypto/cipher"
)

// Режимы работы хранилища
const (
	ModeAESGCM      = "aes-256-gcm"
	ModePassthrough = "passthrough"
)

// Vault шифрует API ключи бирж перед сохранением.
//
// Один ключ на весь процесс, ротации нет: смена ключа делает старые
// значения нерасшифровываемыми, Decrypt вернёт их как есть и биржа
// отклонит их при первом вызове.
//
// Без ключа Vault работает в режиме passthrough (Encrypt и Decrypt -
// тождественные функции). Режим явный: EncryptionEnabled/Mode выводятся
// в лог и метрики при старте.
type Vault struct {
	aead cipher.AEAD
}

// NewVault создаёт хранилище. Пустой ключ включает passthrough,
// ключ неправильной длины - ошибка конфигурации.
func NewVault(key string) (*Vault, error) {
	if key == "" {
		return &Vault{}, nil
	}

	raw, err := ParseKey(key)
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(raw)
	if err != nil {
		return nil, err
	}

	return &Vault{aead: aead}, nil
}

// NewPassthroughVault - хранилище без шифрования
func NewPassthroughVault() *Vault {
	return &Vault{}
}

// EncryptionEnabled сообщает, настроен ли ключ
func (v *Vault) EncryptionEnabled() bool {
	return v != nil && v.aead != nil
}

// Mode возвращает имя режима для оператора
func (v *Vault) Mode() string {
	if v.EncryptionEnabled() {
		return ModeAESGCM
	}
	return ModePassthrough
}

// Encrypt шифрует значение. В passthrough возвращает его без изменений.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if !v.EncryptionEnabled() {
		return plaintext, nil
	}
	return seal(v.aead, plaintext)
}

// Decrypt расшифровывает значение и никогда не возвращает ошибку.
//
// Повреждённый или чужой шифротекст возвращается как есть: значение
// остаётся пригодным как непрозрачная строка, а ошибка проявится
// как отказ аутентификации на бирже.
func (v *Vault) Decrypt(token string) string {
	if !v.EncryptionEnabled() {
		return token
	}

	plaintext, err := open(v.aead, token)
	if err != nil {
		return token
	}
	return plaintext
}
