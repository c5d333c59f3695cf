// keygen печатает значения для .env: ENCRYPTION_KEY и API_TOKEN_HASH.
//
//	go run ./cmd/keygen                  # новый ENCRYPTION_KEY
//	go run ./cmd/keygen -token s3cret    # bcrypt-хеш токена API
//	go run ./cmd/keygen -check "$KEY"    # проверить ENCRYPTION_KEY
package main

import (
	"flag"
	"fmt"
	"os"

	"limitbot/pkg/crypto"
)

func main() {
	token := flag.String("token", "", "bearer token to hash for API_TOKEN_HASH")
	cost := flag.Int("cost", crypto.DefaultCost, "bcrypt cost")
	check := flag.String("check", "", "validate an ENCRYPTION_KEY value")
	flag.Parse()

	if err := run(*token, *cost, *check); err != nil {
		fmt.Fprintln(os.Stderr, "keygen:", err)
		os.Exit(1)
	}
}

func run(token string, cost int, check string) error {
	switch {
	case check != "":
		key, err := crypto.ParseKey(check)
		if err != nil {
			return err
		}
		// Ключ должен пройти полный цикл шифрования
		sealed, err := crypto.Encrypt("probe", key)
		if err != nil {
			return err
		}
		if plain, err := crypto.Decrypt(sealed, key); err != nil || plain != "probe" {
			return fmt.Errorf("round trip failed: %v", err)
		}
		fmt.Println("ENCRYPTION_KEY is valid")

	case token != "":
		hash, err := crypto.HashToken(token, cost)
		if err != nil {
			return err
		}
		fmt.Printf("API_TOKEN_HASH=%s\n", hash)

	default:
		key, err := crypto.GenerateKeyString()
		if err != nil {
			return err
		}
		fmt.Printf("ENCRYPTION_KEY=%s\n", key)
	}
	return nil
}
