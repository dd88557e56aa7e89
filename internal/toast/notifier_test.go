package toast

import (
	"testing"
	"time"

	"alerta-vecinal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityPicksDefaultDuration(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe()
	defer cancel()

	n.Error("Algo salió mal")
	got := <-ch
	assert.Equal(t, models.ToastError, got.Severity)
	assert.Equal(t, "Algo salió mal", got.Message)
	assert.Equal(t, 5*time.Second, got.Duration)
	assert.NotEmpty(t, got.ID)

	n.Success("Listo")
	got = <-ch
	assert.Equal(t, models.ToastSuccess, got.Severity)
	assert.Equal(t, 3*time.Second, got.Duration)
}

func TestShowForOverridesDuration(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe()
	defer cancel()

	n.ShowFor(models.ToastInfo, "Actualizando", 10*time.Second)
	assert.Equal(t, 10*time.Second, (<-ch).Duration)
}

func TestEverySubscriberGetsEveryToast(t *testing.T) {
	n := NewNotifier()
	ch1, cancel1 := n.Subscribe()
	defer cancel1()
	ch2, cancel2 := n.Subscribe()
	defer cancel2()

	n.Info("hola")
	assert.Equal(t, "hola", (<-ch1).Message)
	assert.Equal(t, "hola", (<-ch2).Message)
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	n := NewNotifier()
	slow, cancelSlow := n.Subscribe()
	defer cancelSlow()
	fast, cancelFast := n.Subscribe()
	defer cancelFast()

	// Переполняем буфер медленного подписчика
	for i := 0; i < 50; i++ {
		n.Warning("aviso")
	}

	// Быстрый подписчик всё ещё получает сообщения в рамках своего буфера
	require.NotEmpty(t, <-fast)
	require.NotEmpty(t, <-slow)
}

func TestCancelIsIdempotent(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe()

	cancel()
	cancel()

	// Канал закрыт, сообщений больше не будет
	_, open := <-ch
	assert.False(t, open)
	n.Info("a nadie")
}
