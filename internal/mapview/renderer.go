// internal/mapview/renderer.go
package mapview

import (
	"sync"

	"alerta-vecinal/internal/models"

	log "github.com/sirupsen/logrus"
)

// markerSpec — желаемый маркер, выведенный из алерта и активного фильтра.
type markerSpec struct {
	AlertID int64
	Pos     LatLng
	Opts    MarkerOptions
}

// desiredMarkers — чистая функция реконсиляции: (алерты, фильтр) →
// желаемый набор маркеров. nil-фильтр означает «все категории видимы»,
// пустой набор — «ни одной».
func desiredMarkers(alerts []models.Alert, filter map[string]struct{}, cats map[string]models.Category) []markerSpec {
	specs := make([]markerSpec, 0, len(alerts))
	for _, a := range alerts {
		if filter != nil {
			if _, ok := filter[a.Category]; !ok {
				continue
			}
		}
		specs = append(specs, markerSpec{
			AlertID: a.ID,
			Pos:     LatLng{Lat: a.Latitude, Lng: a.Longitude},
			Opts: MarkerOptions{
				Icon:  iconFor(a.Category, cats),
				Popup: a.Title,
			},
		})
	}
	return specs
}

func iconFor(categoryKey string, cats map[string]models.Category) Icon {
	if c, ok := cats[categoryKey]; ok {
		return Icon{Name: c.Icon, Color: c.Color}
	}
	if c, ok := models.GetBuiltinCategory(categoryKey); ok {
		return Icon{Name: c.Icon, Color: c.Color}
	}
	// Цвет категории "other" как нейтральный fallback
	return Icon{Name: "other_admissions", Color: "#64748B"}
}

type Options struct {
	DefaultCenter LatLng
	DefaultZoom   int
}

// Renderer поддерживает взаимно-однозначное соответствие между текущей
// коллекцией алертов и набором маркеров одного виджета. Маркер выбора
// точки и маркер местоположения пользователя отслеживаются отдельно и
// реконсиляцией не затрагиваются.
type Renderer struct {
	mu      sync.Mutex
	factory WidgetFactory
	widget  Widget
	opts    Options

	alerts  []models.Alert
	filter  map[string]struct{}
	cats    map[string]models.Category
	tracked map[int64]Marker

	selection   Marker
	selectedPos *LatLng
	userMarker  Marker

	center LatLng
	zoom   int
	fitted bool

	lastSeq uint64

	onActivate func(alertID int64)
}

func NewRenderer(factory WidgetFactory, opts Options) *Renderer {
	if opts.DefaultZoom == 0 {
		opts.DefaultZoom = 13
	}
	return &Renderer{
		factory: factory,
		opts:    opts,
		cats:    make(map[string]models.Category),
		tracked: make(map[int64]Marker),
		center:  opts.DefaultCenter,
		zoom:    opts.DefaultZoom,
	}
}

// Initialize привязывает виджет к контейнеру. Ошибки готовности контейнера
// типизированы, вызывающий повторяет попытку после сигнала от оболочки.
func (r *Renderer) Initialize(c Container) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.widget != nil {
		return nil
	}
	if c.ID == "" {
		return ErrContainerMissing
	}
	if c.Width == 0 || c.Height == 0 {
		return ErrZeroDimensions
	}

	w, err := r.factory(c)
	if err != nil {
		return err
	}
	r.widget = w
	r.fitted = false
	r.center = r.opts.DefaultCenter
	r.zoom = r.opts.DefaultZoom
	w.SetView(r.center, r.zoom)

	// После повторной инициализации восстанавливаем сохранённый набор
	if len(r.alerts) > 0 {
		r.reconcile()
	}
	return nil
}

// OnMarkerActivated регистрирует обработчик клика по маркеру алерта.
func (r *Renderer) OnMarkerActivated(fn func(alertID int64)) {
	r.mu.Lock()
	r.onActivate = fn
	r.mu.Unlock()
}

// SetAlerts заменяет известный набор алертов целиком. Идемпотентна:
// повторный вызов с тем же набором даёт тот же набор маркеров. В нумерации
// обновлений не участвует: счётчиком владеет цикл опроса, и следующий его
// ответ перепишет набор в любом случае.
func (r *Renderer) SetAlerts(alerts []models.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyAlerts(alerts)
}

// SetAlertsSeq применяет ответ обновления с монотонным номером. Ответы
// старше уже применённого отбрасываются: перекрывающиеся запросы не
// должны откатывать состояние. Возвращает false для отброшенного ответа.
func (r *Renderer) SetAlertsSeq(seq uint64, alerts []models.Alert) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq < r.lastSeq {
		return false
	}
	r.lastSeq = seq
	r.applyAlerts(alerts)
	return true
}

func (r *Renderer) applyAlerts(alerts []models.Alert) {
	r.alerts = make([]models.Alert, len(alerts))
	copy(r.alerts, alerts)
	r.reconcile()
}

// SetCategoryFilter ограничивает видимые маркеры активными категориями.
// Сам набор алертов не меняется. nil снимает фильтр.
func (r *Renderer) SetCategoryFilter(activeKeys []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if activeKeys == nil {
		r.filter = nil
	} else {
		r.filter = make(map[string]struct{}, len(activeKeys))
		for _, k := range activeKeys {
			r.filter[k] = struct{}{}
		}
	}
	r.reconcile()
}

// SetCategories задаёт справочник для цветов и иконок маркеров.
func (r *Renderer) SetCategories(cats []models.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cats = make(map[string]models.Category, len(cats))
	for _, c := range cats {
		r.cats[c.Key] = c
	}
	r.reconcile()
}

// Alert возвращает снапшот алерта из последнего применённого набора.
func (r *Renderer) Alert(id int64) (models.Alert, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.ID == id {
			return a, true
		}
	}
	return models.Alert{}, false
}

// Alerts возвращает копию последнего применённого набора.
func (r *Renderer) Alerts() []models.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}

// TrackedMarkerCount возвращает число маркеров алертов (без маркера выбора
// и маркера пользователя).
func (r *Renderer) TrackedMarkerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tracked)
}

// reconcile вызывается под r.mu. Сначала снимаем все отслеживаемые маркеры
// (именно наши, а не все слои виджета), потом добавляем желаемый набор —
// иначе на повторном обновлении появятся дубликаты.
func (r *Renderer) reconcile() {
	if r.widget == nil {
		return
	}

	for id, m := range r.tracked {
		r.widget.RemoveMarker(m)
		delete(r.tracked, id)
	}

	specs := desiredMarkers(r.alerts, r.filter, r.cats)
	for _, spec := range specs {
		m, err := r.widget.AddMarker(spec.Pos, spec.Opts)
		if err != nil {
			// Ошибка одного маркера не срывает реконсиляцию остальных
			log.Warnf("Не удалось создать маркер алерта %d: %v", spec.AlertID, err)
			continue
		}
		// Захватываем идентификатор, а не изменяемую ссылку на алерт
		alertID := spec.AlertID
		m.OnActivate(func() { r.activate(alertID) })
		r.tracked[spec.AlertID] = m
	}

	// Первое заполнение после Initialize подгоняет вьюпорт под все маркеры;
	// дальнейшие обновления сохраняют вьюпорт пользователя.
	if !r.fitted && len(r.tracked) > 0 {
		sw, ne := bounds(specsPositions(specs, r.tracked))
		r.widget.FitBounds(sw, ne, 0.1)
		r.fitted = true
	}
}

func specsPositions(specs []markerSpec, tracked map[int64]Marker) []LatLng {
	positions := make([]LatLng, 0, len(tracked))
	for _, spec := range specs {
		if _, ok := tracked[spec.AlertID]; ok {
			positions = append(positions, spec.Pos)
		}
	}
	return positions
}

func bounds(positions []LatLng) (southWest, northEast LatLng) {
	southWest = positions[0]
	northEast = positions[0]
	for _, p := range positions[1:] {
		if p.Lat < southWest.Lat {
			southWest.Lat = p.Lat
		}
		if p.Lng < southWest.Lng {
			southWest.Lng = p.Lng
		}
		if p.Lat > northEast.Lat {
			northEast.Lat = p.Lat
		}
		if p.Lng > northEast.Lng {
			northEast.Lng = p.Lng
		}
	}
	return southWest, northEast
}

func (r *Renderer) activate(alertID int64) {
	r.mu.Lock()
	fn := r.onActivate
	r.mu.Unlock()
	if fn != nil {
		fn(alertID)
	}
}

// PlaceSelectionMarker ставит единственный перетаскиваемый маркер будущего
// алерта. Перетаскивание обновляет обе координаты атомарно.
func (r *Renderer) PlaceSelectionMarker(lat, lng float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.widget == nil {
		return ErrContainerMissing
	}

	if r.selection != nil {
		r.widget.RemoveMarker(r.selection)
		r.selection = nil
	}

	pos := LatLng{Lat: lat, Lng: lng}
	m, err := r.widget.AddMarker(pos, MarkerOptions{Draggable: true})
	if err != nil {
		return err
	}
	m.OnDragEnd(func(newPos LatLng) {
		r.mu.Lock()
		p := newPos
		r.selectedPos = &p
		r.mu.Unlock()
	})

	r.selection = m
	p := pos
	r.selectedPos = &p
	r.widget.SetView(pos, r.zoom)
	r.center = pos
	return nil
}

// ClearSelectionMarker убирает маркер выбора, не трогая маркеры алертов.
func (r *Renderer) ClearSelectionMarker() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selection != nil && r.widget != nil {
		r.widget.RemoveMarker(r.selection)
	}
	r.selection = nil
	r.selectedPos = nil
}

// SelectedLocation возвращает выбранную пару координат целиком.
func (r *Renderer) SelectedLocation() (LatLng, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selectedPos == nil {
		return LatLng{}, false
	}
	return *r.selectedPos, true
}

// PlaceUserMarker отмечает местоположение пользователя (кнопка «где я»).
func (r *Renderer) PlaceUserMarker(lat, lng float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.widget == nil {
		return ErrContainerMissing
	}

	if r.userMarker != nil {
		r.widget.RemoveMarker(r.userMarker)
		r.userMarker = nil
	}

	pos := LatLng{Lat: lat, Lng: lng}
	m, err := r.widget.AddMarker(pos, MarkerOptions{
		Icon: Icon{Name: "my_location", Color: "#2563EB"},
	})
	if err != nil {
		return err
	}
	r.userMarker = m
	r.zoom = 16
	r.center = pos
	r.widget.SetView(pos, r.zoom)
	return nil
}

// CenterOn смещает вьюпорт, не меняя маркеры.
func (r *Renderer) CenterOn(lat, lng float64, zoom int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.center = LatLng{Lat: lat, Lng: lng}
	if zoom > 0 {
		r.zoom = zoom
	}
	if r.widget != nil {
		r.widget.SetView(r.center, r.zoom)
	}
}

func (r *Renderer) ZoomIn()  { r.zoomBy(1) }
func (r *Renderer) ZoomOut() { r.zoomBy(-1) }

func (r *Renderer) zoomBy(delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	z := r.zoom + delta
	if z < 1 {
		z = 1
	}
	if z > 19 {
		z = 19
	}
	r.zoom = z
	if r.widget != nil {
		r.widget.SetView(r.center, r.zoom)
	}
}

// OpenPopupFor открывает попап маркера указанного алерта, если он видим.
func (r *Renderer) OpenPopupFor(alertID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.tracked[alertID]
	if !ok {
		return false
	}
	m.OpenPopup()
	return true
}

// Teardown освобождает виджет. Идемпотентна: повторные вызовы безопасны.
func (r *Renderer) Teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.widget == nil {
		return
	}
	r.widget.Close()
	r.widget = nil
	r.tracked = make(map[int64]Marker)
	r.selection = nil
	r.selectedPos = nil
	r.userMarker = nil
	r.fitted = false
}
