// internal/api/client.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// Session — то, что клиенту нужно от хранилища сессии: актуальный токен в
// момент отправки и путь принудительного выхода. Токен читается лениво на
// каждый запрос, а не кешируется при создании клиента.
type Session interface {
	Token() string
	Logout() bool
}

// Error — ошибка удалённого API с деталью сервера, когда она есть.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api: status %d", e.StatusCode)
}

// IsUnauthorized сообщает, была ли ошибка ответом 401.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == 401
}

// IsNotFound сообщает, была ли ошибка ответом 404.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// Client — чистый слой построения запросов к удалённому API алертов: по
// методу на пару ресурс-действие. Никакой бизнес-логики, кроме глобальной
// уборки по 401.
type Client struct {
	http    *resty.Client
	session Session

	// onForcedLogout дергается ровно один раз на протухший токен —
	// компонентам не приходится повторять одну и ту же уборку.
	onForcedLogout func()
}

func NewClient(baseURL string, timeout time.Duration, session Session) *Client {
	c := &Client{session: session}

	c.http = resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	// 401 на авторизованном запросе означает протухший токен: чистим
	// сессию до того, как ошибка уйдёт вызывающему.
	c.http.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		if resp.StatusCode() == 401 && resp.Request.Header.Get("Authorization") != "" {
			c.forceLogout()
		}
		return nil
	})

	return c
}

// OnForcedLogout регистрирует сигнал навигации на экран входа.
func (c *Client) OnForcedLogout(fn func()) {
	c.onForcedLogout = fn
}

func (c *Client) forceLogout() {
	// Logout возвращает false, если сессии уже нет: повторный 401 не
	// приводит ко второй навигации.
	if c.session.Logout() {
		log.Warn("Получен 401, принудительный выход из сессии")
		if c.onForcedLogout != nil {
			c.onForcedLogout()
		}
	}
}

// newRequest — запрос без авторизации.
func (c *Client) newRequest() *resty.Request {
	return c.http.R()
}

// newAuthRequest подставляет актуальный токен в момент отправки.
func (c *Client) newAuthRequest() *resty.Request {
	req := c.http.R()
	if token := c.session.Token(); token != "" {
		req.SetHeader("Authorization", "Token "+token)
	}
	return req
}

// apiError разбирает тело ошибки сервера. Django-бэкенды кладут деталь в
// error, detail или message.
func (c *Client) apiError(resp *resty.Response) error {
	detail := ""
	var body map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		for _, key := range []string{"error", "detail", "message"} {
			if v, ok := body[key].(string); ok && v != "" {
				detail = v
				break
			}
		}
	}
	return &Error{StatusCode: resp.StatusCode(), Detail: detail}
}
