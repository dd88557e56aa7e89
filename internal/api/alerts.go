// internal/api/alerts.go
package api

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"alerta-vecinal/internal/models"
)

// ImageFile — вложение формы алерта до загрузки на сервер.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// AlertForm — данные форм создания и редактирования. С вложением уходит
// multipart, без него — обычный JSON. Координаты — указатели: required на
// значении отверг бы честный ноль (экватор, нулевой меридиан).
type AlertForm struct {
	Title       string     `json:"title" form:"title" binding:"required,max=200"`
	Description string     `json:"description" form:"description" binding:"required"`
	Category    string     `json:"category" form:"category" binding:"required,alertcategory"`
	Latitude    *float64   `json:"latitude" form:"latitude" binding:"required,latitude"`
	Longitude   *float64   `json:"longitude" form:"longitude" binding:"required,longitude"`
	Address     string     `json:"address,omitempty" form:"address"`
	Image       *ImageFile `json:"-" form:"-"`
}

// Categories загружает справочник категорий. Загружается один раз за
// сессию, дальше клиент живёт со снапшотом.
func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	resp, err := c.newAuthRequest().
		SetContext(ctx).
		SetResult(&out).
		Get("/categories/")
	if err != nil {
		return nil, fmt.Errorf("categories request: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	return out, nil
}

func (c *Client) Alerts(ctx context.Context) ([]models.Alert, error) {
	var out []models.Alert
	resp, err := c.newAuthRequest().
		SetContext(ctx).
		SetResult(&out).
		Get("/alerts/")
	if err != nil {
		return nil, fmt.Errorf("alerts request: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	return out, nil
}

func (c *Client) MyAlerts(ctx context.Context) ([]models.Alert, error) {
	var out []models.Alert
	resp, err := c.newAuthRequest().
		SetContext(ctx).
		SetResult(&out).
		Get("/alerts/my_alerts/")
	if err != nil {
		return nil, fmt.Errorf("my alerts request: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	return out, nil
}

func (c *Client) NearbyAlerts(ctx context.Context, lat, lng, radiusKm float64) ([]models.Alert, error) {
	var out []models.Alert
	resp, err := c.newAuthRequest().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":    formatCoord(lat),
			"lng":    formatCoord(lng),
			"radius": strconv.FormatFloat(radiusKm, 'f', -1, 64),
		}).
		SetResult(&out).
		Get("/alerts/nearby/")
	if err != nil {
		return nil, fmt.Errorf("nearby alerts request: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	return out, nil
}

// Alert — единственная операция без токена: карточка алерта публична.
func (c *Client) Alert(ctx context.Context, id int64) (*models.Alert, error) {
	var out models.Alert
	resp, err := c.newRequest().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/alerts/%d/", id))
	if err != nil {
		return nil, fmt.Errorf("alert request: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	return &out, nil
}

func (c *Client) CreateAlert(ctx context.Context, form AlertForm) (*models.Alert, error) {
	return c.submitAlert(ctx, "POST", "/alerts/", form)
}

func (c *Client) UpdateAlert(ctx context.Context, id int64, form AlertForm) (*models.Alert, error) {
	return c.submitAlert(ctx, "PUT", fmt.Sprintf("/alerts/%d/", id), form)
}

func (c *Client) submitAlert(ctx context.Context, method, url string, form AlertForm) (*models.Alert, error) {
	var out models.Alert
	req := c.newAuthRequest().SetContext(ctx).SetResult(&out)

	if form.Image != nil {
		// Multipart: браузерная форма с файлом. Content-Type выставит resty.
		req.SetFormData(map[string]string{
			"title":       form.Title,
			"description": form.Description,
			"category":    form.Category,
			"latitude":    formatCoordPtr(form.Latitude),
			"longitude":   formatCoordPtr(form.Longitude),
			"address":     form.Address,
		})
		req.SetFileReader("image", form.Image.Name, bytes.NewReader(form.Image.Data))
	} else {
		req.SetBody(form)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, fmt.Errorf("alert submit request: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	return &out, nil
}

func (c *Client) DeleteAlert(ctx context.Context, id int64) error {
	resp, err := c.newAuthRequest().
		SetContext(ctx).
		Delete(fmt.Sprintf("/alerts/%d/", id))
	if err != nil {
		return fmt.Errorf("alert delete request: %w", err)
	}
	if resp.IsError() {
		return c.apiError(resp)
	}
	return nil
}

// React отправляет реакцию. Переключение «та же реакция дважды = снять»
// вычисляет вызывающий через Alert.ToggleReaction.
func (c *Client) React(ctx context.Context, id int64, reactionType string) (*models.Alert, error) {
	var out models.Alert
	resp, err := c.newAuthRequest().
		SetContext(ctx).
		SetBody(map[string]string{"reaction_type": reactionType}).
		SetResult(&out).
		Post(fmt.Sprintf("/alerts/%d/react/", id))
	if err != nil {
		return nil, fmt.Errorf("react request: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	return &out, nil
}

// CloseAlert переводит собственный алерт в статус resolved.
func (c *Client) CloseAlert(ctx context.Context, id int64) (*models.Alert, error) {
	var out models.Alert
	resp, err := c.newAuthRequest().
		SetContext(ctx).
		SetResult(&out).
		Post(fmt.Sprintf("/alerts/%d/close/", id))
	if err != nil {
		return nil, fmt.Errorf("close request: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	return &out, nil
}

func (c *Client) Comments(ctx context.Context, alertID int64) ([]models.Comment, error) {
	var out []models.Comment
	resp, err := c.newAuthRequest().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/alerts/%d/comments/", alertID))
	if err != nil {
		return nil, fmt.Errorf("comments request: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	return out, nil
}

func (c *Client) AddComment(ctx context.Context, alertID int64, text string) (*models.Comment, error) {
	var out models.Comment
	resp, err := c.newAuthRequest().
		SetContext(ctx).
		SetBody(map[string]string{"text": text}).
		SetResult(&out).
		Post(fmt.Sprintf("/alerts/%d/comments/", alertID))
	if err != nil {
		return nil, fmt.Errorf("add comment request: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	return &out, nil
}

// formatCoord печатает координату с шестью знаками, как формы оригинала.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatCoordPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatCoord(*v)
}
