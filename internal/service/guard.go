package service

import (
	"errors"

	"limitbot/internal/bot"
	"limitbot/pkg/guard"
	"limitbot/pkg/utils"
)

// ErrSuspectedSecret - ввод похож на приватный ключ или seed-фразу.
// Значение не сохраняется и не логируется.
var ErrSuspectedSecret = errors.New("input looks like a private key or seed phrase; it was not saved, send only public data")

// rejectSecret проверяет ввод перед сохранением
func rejectSecret(field, value string) error {
	if !guard.IsSuspected(value) {
		return nil
	}
	reason := guard.Reason(value)
	bot.RecordGuardRejection(field, reason)
	utils.Warn("input rejected as suspected secret",
		utils.Component("guard"),
		utils.String("field", field),
		utils.GuardReason(reason),
	)
	return ErrSuspectedSecret
}
