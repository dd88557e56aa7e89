// internal/models/alert.go
package models

import "time"

type Alert struct {
	ID int64 `json:"id,omitempty"`

	// Основная информация
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required,alertcategory"`

	// Местоположение
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Address   string  `json:"address,omitempty"`

	// Медиафайлы
	Image string `json:"image,omitempty"` // URL, назначенный сервером

	// Статус и владелец
	Status string `json:"status,omitempty"` // active, resolved, expired
	User   *User  `json:"user,omitempty"`

	// Взаимодействие с пользователями
	Likes        int       `json:"likes"`
	Dislikes     int       `json:"dislikes"`
	UserReaction string    `json:"user_reaction,omitempty"` // собственная реакция вызывающего
	Comments     []Comment `json:"comments,omitempty"`
	CommentCount int       `json:"comment_count"`

	// Метаданные
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Comment struct {
	ID        int64     `json:"id,omitempty"`
	User      *User     `json:"user,omitempty"`
	Text      string    `json:"text" validate:"required,max=1000"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Статусы алертов
const (
	AlertStatusActive   = "active"   // Активна
	AlertStatusResolved = "resolved" // Решена
	AlertStatusExpired  = "expired"  // Истекла
)

// Реакции
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
	ReactionRemove  = "remove"
	ReactionNone    = ""
)

// Методы для работы с алертами

func (a *Alert) IsActive() bool {
	return a.Status == AlertStatusActive || a.Status == ""
}

func (a *Alert) IsResolved() bool {
	return a.Status == AlertStatusResolved
}

func (a *Alert) IsOwnedBy(userID int64) bool {
	return a.User != nil && a.User.ID == userID
}

func (a *Alert) HasImage() bool {
	return a.Image != ""
}

func (a *Alert) GetCommentCount() int {
	if len(a.Comments) > 0 {
		return len(a.Comments)
	}
	return a.CommentCount
}

// ToggleReaction возвращает тип реакции, который нужно отправить на сервер,
// чтобы переключить реакцию пользователя: повторный выбор той же реакции
// снимает её.
func (a *Alert) ToggleReaction(reaction string) string {
	if a.UserReaction == reaction {
		return ReactionRemove
	}
	return reaction
}

func (a *Alert) HasCoordinates() bool {
	return a.Latitude != 0 || a.Longitude != 0
}

func IsValidReaction(reaction string) bool {
	switch reaction {
	case ReactionLike, ReactionDislike, ReactionRemove:
		return true
	}
	return false
}

func IsValidStatus(status string) bool {
	switch status {
	case AlertStatusActive, AlertStatusResolved, AlertStatusExpired:
		return true
	}
	return false
}
