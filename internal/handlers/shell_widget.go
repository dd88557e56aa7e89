// internal/handlers/shell_widget.go
package handlers

import (
	"sync"

	"alerta-vecinal/internal/mapview"

	"github.com/google/uuid"
)

// shellWidget реализует порт mapview.Widget поверх websocket-хаба:
// каждая операция зеркалится в Leaflet на стороне оболочки, обратные
// события маркеров приходят через ShellEvents.
type shellWidget struct {
	hub *Hub

	mu      sync.Mutex
	markers map[string]*shellMarker
	closed  bool
}

// NewShellWidgetFactory возвращает фабрику виджетов для Renderer.
// Один живой виджет на хаб: повторная привязка заменяет получателя
// событий.
func NewShellWidgetFactory(hub *Hub) mapview.WidgetFactory {
	return func(c mapview.Container) (mapview.Widget, error) {
		w := &shellWidget{
			hub:     hub,
			markers: make(map[string]*shellMarker),
		}
		hub.SetShellEvents(w)
		hub.Broadcast("map_init", map[string]interface{}{
			"container": c.ID,
		})
		return w, nil
	}
}

func (w *shellWidget) AddMarker(pos mapview.LatLng, opts mapview.MarkerOptions) (mapview.Marker, error) {
	m := &shellMarker{
		id:     uuid.NewString(),
		widget: w,
		pos:    pos,
	}

	w.mu.Lock()
	w.markers[m.id] = m
	w.mu.Unlock()

	w.hub.Broadcast("marker_add", map[string]interface{}{
		"id":        m.id,
		"lat":       pos.Lat,
		"lng":       pos.Lng,
		"icon":      opts.Icon,
		"draggable": opts.Draggable,
		"popup":     opts.Popup,
	})
	return m, nil
}

func (w *shellWidget) RemoveMarker(m mapview.Marker) {
	sm, ok := m.(*shellMarker)
	if !ok {
		return
	}

	w.mu.Lock()
	delete(w.markers, sm.id)
	w.mu.Unlock()

	w.hub.Broadcast("marker_remove", map[string]interface{}{"id": sm.id})
}

func (w *shellWidget) SetView(center mapview.LatLng, zoom int) {
	w.hub.Broadcast("map_set_view", map[string]interface{}{
		"lat":  center.Lat,
		"lng":  center.Lng,
		"zoom": zoom,
	})
}

func (w *shellWidget) FitBounds(southWest, northEast mapview.LatLng, padding float64) {
	w.hub.Broadcast("map_fit_bounds", map[string]interface{}{
		"south_west": southWest,
		"north_east": northEast,
		"padding":    padding,
	})
}

func (w *shellWidget) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.markers = make(map[string]*shellMarker)
	w.mu.Unlock()

	w.hub.SetShellEvents(nil)
	w.hub.Broadcast("map_teardown", nil)
}

// MarkerActivated — клик по маркеру в оболочке.
func (w *shellWidget) MarkerActivated(markerID string) {
	w.mu.Lock()
	m := w.markers[markerID]
	w.mu.Unlock()
	if m != nil {
		m.activate()
	}
}

// MarkerDragged — конец перетаскивания маркера в оболочке.
func (w *shellWidget) MarkerDragged(markerID string, pos mapview.LatLng) {
	w.mu.Lock()
	m := w.markers[markerID]
	w.mu.Unlock()
	if m != nil {
		m.dragged(pos)
	}
}

type shellMarker struct {
	id     string
	widget *shellWidget

	mu         sync.Mutex
	pos        mapview.LatLng
	onActivate func()
	onDragEnd  func(mapview.LatLng)
}

func (m *shellMarker) Position() mapview.LatLng {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

func (m *shellMarker) SetPosition(pos mapview.LatLng) {
	m.mu.Lock()
	m.pos = pos
	m.mu.Unlock()
	m.widget.hub.Broadcast("marker_move", map[string]interface{}{
		"id":  m.id,
		"lat": pos.Lat,
		"lng": pos.Lng,
	})
}

func (m *shellMarker) OnActivate(fn func()) {
	m.mu.Lock()
	m.onActivate = fn
	m.mu.Unlock()
}

func (m *shellMarker) OnDragEnd(fn func(mapview.LatLng)) {
	m.mu.Lock()
	m.onDragEnd = fn
	m.mu.Unlock()
}

func (m *shellMarker) OpenPopup() {
	m.widget.hub.Broadcast("marker_popup", map[string]interface{}{"id": m.id})
}

func (m *shellMarker) activate() {
	m.mu.Lock()
	fn := m.onActivate
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *shellMarker) dragged(pos mapview.LatLng) {
	m.mu.Lock()
	m.pos = pos
	fn := m.onDragEnd
	m.mu.Unlock()
	if fn != nil {
		fn(pos)
	}
}
