// internal/models/toast.go
package models

import "time"

// Toast — кратковременное сообщение для пользователя. Не сохраняется:
// создаётся и исчезает по таймеру.
type Toast struct {
	ID       string        `json:"id"`
	Message  string        `json:"message"`
	Severity string        `json:"severity"`
	Duration time.Duration `json:"duration"`
}

// Уровни важности
const (
	ToastSuccess = "success"
	ToastError   = "error"
	ToastInfo    = "info"
	ToastWarning = "warning"
)

// DefaultToastDuration возвращает длительность показа по уровню важности.
func DefaultToastDuration(severity string) time.Duration {
	switch severity {
	case ToastError:
		return 5 * time.Second
	case ToastWarning:
		return 4 * time.Second
	default:
		return 3 * time.Second
	}
}
