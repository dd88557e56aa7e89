// internal/refresh/poller.go
package refresh

import (
	"context"
	"sync/atomic"
	"time"

	"alerta-vecinal/internal/models"

	log "github.com/sirupsen/logrus"
)

// Sink получает результаты обновления вместе с номером запроса. Номер
// растёт монотонно в момент отправки, поэтому ответ, пришедший позже
// более нового, отбрасывается получателем.
type Sink interface {
	SetAlertsSeq(seq uint64, alerts []models.Alert) bool
}

// Poller перечитывает алерты по фиксированному интервалу и по явному
// запросу пользователя. Остановка — через отмену контекста Run: уход со
// страницы обязан погасить таймер, иначе он продолжит стрелять по уже
// разобранному виджету.
type Poller struct {
	fetch    func(ctx context.Context) ([]models.Alert, error)
	sink     Sink
	interval time.Duration

	kick chan struct{}
	seq  atomic.Uint64

	onError func(error)
}

func NewPoller(interval time.Duration, fetch func(ctx context.Context) ([]models.Alert, error), sink Sink) *Poller {
	return &Poller{
		fetch:    fetch,
		sink:     sink,
		interval: interval,
		kick:     make(chan struct{}, 1),
	}
}

// OnError регистрирует обработчик сетевых ошибок обновления.
func (p *Poller) OnError(fn func(error)) {
	p.onError = fn
}

// Refresh просит внеочередное обновление. Не блокирует: если запрос уже
// в очереди, второй не нужен.
func (p *Poller) Refresh() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run крутит цикл обновления до отмены контекста. Первое обновление
// уходит сразу.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.dispatch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.dispatch(ctx)
		case <-p.kick:
			p.dispatch(ctx)
		}
	}
}

// dispatch нумерует запрос в момент отправки и применяет ответ через
// sink. Перекрывающиеся запросы допустимы: устаревший ответ отбросит
// получатель по номеру.
func (p *Poller) dispatch(ctx context.Context) {
	seq := p.seq.Add(1)
	go func() {
		alerts, err := p.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warnf("Обновление алертов %d не удалось: %v", seq, err)
			if p.onError != nil {
				p.onError(err)
			}
			return
		}
		if !p.sink.SetAlertsSeq(seq, alerts) {
			log.Debugf("Ответ обновления %d устарел, отброшен", seq)
		}
	}()
}
