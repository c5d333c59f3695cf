package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"limitbot/internal/models"
)

// Имена файлов в DATA_DIR
const (
	OrdersFileName = "orders.json"
	UsersFileName  = "users.json"
)

var snapshotJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// readJSONFile читает JSON файл в v. Отсутствующий файл не ошибка: v остаётся пустым.
func readJSONFile(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := snapshotJSON.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// writeJSONFile атомарно заменяет файл: запись во временный файл
// в том же каталоге, fsync и rename поверх старого.
func writeJSONFile(path string, v interface{}) error {
	data, err := snapshotJSON.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// FileOrderBackend хранит снапшот ордеров в DATA_DIR/orders.json
type FileOrderBackend struct {
	path string
}

// NewFileOrderBackend создает файловый backend в каталоге dir
func NewFileOrderBackend(dir string) *FileOrderBackend {
	return &FileOrderBackend{path: filepath.Join(dir, OrdersFileName)}
}

// Path - путь к файлу ордеров
func (b *FileOrderBackend) Path() string {
	return b.path
}

func (b *FileOrderBackend) Load(ctx context.Context) (*models.OrderSnapshot, error) {
	snap := &models.OrderSnapshot{NextID: 1}
	if _, err := readJSONFile(b.path, snap); err != nil {
		return nil, err
	}
	if snap.Orders == nil {
		snap.Orders = []models.Order{}
	}
	return snap, nil
}

func (b *FileOrderBackend) Save(ctx context.Context, snap *models.OrderSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeJSONFile(b.path, snap)
}
