package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToggleReaction(t *testing.T) {
	alert := &Alert{UserReaction: ReactionNone}

	// Первая реакция уходит как есть
	assert.Equal(t, ReactionLike, alert.ToggleReaction(ReactionLike))

	// Повторный выбор той же реакции снимает её
	alert.UserReaction = ReactionLike
	assert.Equal(t, ReactionRemove, alert.ToggleReaction(ReactionLike))

	// Смена реакции не снимает, а заменяет
	assert.Equal(t, ReactionDislike, alert.ToggleReaction(ReactionDislike))
}

func TestAlertStatusHelpers(t *testing.T) {
	assert.True(t, (&Alert{Status: AlertStatusActive}).IsActive())
	// Отсутствие статуса у свежего алерта считается активным
	assert.True(t, (&Alert{}).IsActive())
	assert.False(t, (&Alert{Status: AlertStatusResolved}).IsActive())
	assert.True(t, (&Alert{Status: AlertStatusResolved}).IsResolved())
}

func TestIsOwnedBy(t *testing.T) {
	alert := &Alert{User: &User{ID: 7}}
	assert.True(t, alert.IsOwnedBy(7))
	assert.False(t, alert.IsOwnedBy(8))
	assert.False(t, (&Alert{}).IsOwnedBy(7))
}

func TestGetCommentCountPrefersLoadedComments(t *testing.T) {
	alert := &Alert{CommentCount: 5}
	assert.Equal(t, 5, alert.GetCommentCount())

	alert.Comments = []Comment{{Text: "uno"}, {Text: "dos"}}
	assert.Equal(t, 2, alert.GetCommentCount())
}

func TestIsValidReaction(t *testing.T) {
	assert.True(t, IsValidReaction(ReactionLike))
	assert.True(t, IsValidReaction(ReactionDislike))
	assert.True(t, IsValidReaction(ReactionRemove))
	assert.False(t, IsValidReaction("love"))
	assert.False(t, IsValidReaction(""))
}

func TestBuiltinCategories(t *testing.T) {
	c, ok := GetBuiltinCategory(CategoryTrafficAccident)
	assert.True(t, ok)
	assert.Equal(t, "Accidente de tráfico", c.Name)
	assert.Equal(t, "#DC2626", c.Color)

	_, ok = GetBuiltinCategory("parade")
	assert.False(t, ok)
	assert.True(t, IsBuiltinCategory(CategoryOther))
}

func TestDefaultToastDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, DefaultToastDuration(ToastError))
	assert.Equal(t, 4*time.Second, DefaultToastDuration(ToastWarning))
	assert.Equal(t, 3*time.Second, DefaultToastDuration(ToastSuccess))
	assert.Equal(t, 3*time.Second, DefaultToastDuration(ToastInfo))
}
