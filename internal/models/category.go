// internal/models/category.go
package models

// Category описывает элемент справочника категорий алертов. Справочник
// read-only со стороны клиента и загружается один раз за сессию.
type Category struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon"`
	Color       string `json:"color"` // шестнадцатеричный цвет для маркера

	// LegacyID поддерживает устаревший числовой контракт категорий.
	// Новые версии API отдают строковый key.
	LegacyID int64 `json:"id,omitempty"`
}

// Ключи категорий
const (
	CategoryTrafficAccident = "traffic_accident"
	CategoryRoadClosure     = "road_closure"
	CategoryTrafficJam      = "traffic_jam"
	CategoryRoadHazard      = "road_hazard"
	CategoryFlooding        = "flooding"
	CategoryConstruction    = "construction"
	CategoryPolice          = "police"
	CategoryEmergency       = "emergency"
	CategoryPublicEvent     = "public_event"
	CategoryOther           = "other"
)

// BuiltinCategories — встроенный справочник на случай, когда сервер ещё не
// отвечал. Значения совпадают с серверным справочником.
var BuiltinCategories = []Category{
	{Key: CategoryTrafficAccident, Name: "Accidente de tráfico", Description: "Colisiones vehiculares, choques, volcamientos", Icon: "car_crash", Color: "#DC2626"},
	{Key: CategoryRoadClosure, Name: "Cierre de vía", Description: "Vías cerradas temporalmente por construcción o eventos", Icon: "remove_road", Color: "#EA580C"},
	{Key: CategoryTrafficJam, Name: "Congestión vehicular", Description: "Tráfico lento o detenido", Icon: "traffic_jam", Color: "#F59E0B"},
	{Key: CategoryRoadHazard, Name: "Peligro en la vía", Description: "Obstáculos, baches, derrumbes, objetos en la vía", Icon: "warning", Color: "#EAB308"},
	{Key: CategoryFlooding, Name: "Inundación", Description: "Vías inundadas o con acumulación de agua", Icon: "flood", Color: "#06B6D4"},
	{Key: CategoryConstruction, Name: "Obra en construcción", Description: "Trabajos de construcción o mantenimiento vial", Icon: "construction", Color: "#6B7280"},
	{Key: CategoryPolice, Name: "Presencia policial", Description: "Controles policiales, retenes", Icon: "local_police", Color: "#3B82F6"},
	{Key: CategoryEmergency, Name: "Emergencia", Description: "Ambulancias, bomberos, situaciones de emergencia", Icon: "e911_emergency", Color: "#EF4444"},
	{Key: CategoryPublicEvent, Name: "Evento público", Description: "Manifestaciones, eventos deportivos, conciertos", Icon: "event", Color: "#8B5CF6"},
	{Key: CategoryOther, Name: "Otro", Description: "Otras situaciones no categorizadas", Icon: "other_admissions", Color: "#64748B"},
}

// GetBuiltinCategory возвращает встроенную категорию по ключу.
func GetBuiltinCategory(key string) (Category, bool) {
	for _, c := range BuiltinCategories {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}

func IsBuiltinCategory(key string) bool {
	_, ok := GetBuiltinCategory(key)
	return ok
}
