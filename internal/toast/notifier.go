// internal/toast/notifier.go
package toast

import (
	"sync"
	"time"

	"alerta-vecinal/internal/models"

	"github.com/google/uuid"
)

// Notifier — общий для всего процесса канал кратковременных сообщений.
// Презентационный слой подписывается и сам прячет сообщение по истечении
// Duration.
type Notifier struct {
	mu      sync.Mutex
	subs    map[int]chan models.Toast
	nextSub int
}

func NewNotifier() *Notifier {
	return &Notifier{
		subs: make(map[int]chan models.Toast),
	}
}

func (n *Notifier) Success(message string) { n.show(models.ToastSuccess, message, 0) }
func (n *Notifier) Error(message string)   { n.show(models.ToastError, message, 0) }
func (n *Notifier) Info(message string)    { n.show(models.ToastInfo, message, 0) }
func (n *Notifier) Warning(message string) { n.show(models.ToastWarning, message, 0) }

// ShowFor показывает сообщение с нестандартной длительностью.
func (n *Notifier) ShowFor(severity, message string, duration time.Duration) {
	n.show(severity, message, duration)
}

func (n *Notifier) show(severity, message string, duration time.Duration) {
	if duration <= 0 {
		duration = models.DefaultToastDuration(severity)
	}
	t := models.Toast{
		ID:       uuid.NewString(),
		Message:  message,
		Severity: severity,
		Duration: duration,
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- t:
		default:
			// Переполненный подписчик теряет сообщение, не блокируя остальных
		}
	}
}

func (n *Notifier) Subscribe() (<-chan models.Toast, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextSub
	n.nextSub++
	ch := make(chan models.Toast, 16)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}
