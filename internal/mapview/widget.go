// internal/mapview/widget.go
package mapview

import "errors"

// Ошибки инициализации. Оба случая — гонка старта, а не постоянное
// состояние: вызывающий повторяет попытку после сигнала готовности
// контейнера.
var (
	ErrContainerMissing = errors.New("map container is not attached")
	ErrZeroDimensions   = errors.New("map container has zero dimensions")
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Container описывает DOM-контейнер, о котором сообщила оболочка.
type Container struct {
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Icon struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type MarkerOptions struct {
	Icon      Icon   `json:"icon"`
	Draggable bool   `json:"draggable"`
	Popup     string `json:"popup,omitempty"`
}

// Marker — визуальная метка, созданная виджетом. Удаление идёт через
// Widget.RemoveMarker, как в Leaflet (map.removeLayer).
type Marker interface {
	Position() LatLng
	SetPosition(LatLng)
	OnActivate(fn func())
	OnDragEnd(fn func(LatLng))
	OpenPopup()
}

// Widget — порт к картографическому виджету. Реальная реализация зеркалит
// операции в Leaflet на стороне оболочки; тесты подставляют фейк.
type Widget interface {
	AddMarker(pos LatLng, opts MarkerOptions) (Marker, error)
	RemoveMarker(m Marker)
	SetView(center LatLng, zoom int)
	FitBounds(southWest, northEast LatLng, padding float64)
	Close()
}

// WidgetFactory привязывает виджет к контейнеру. Возвращает
// ErrContainerMissing / ErrZeroDimensions, пока контейнер не готов.
type WidgetFactory func(c Container) (Widget, error)
