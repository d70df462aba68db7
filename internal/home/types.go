package home

import (
	"time"
)

// Mode is the scene a home is in.
type Mode string

const (
	ModeHome  Mode = "Home"
	ModeAway  Mode = "Away"
	ModeNight Mode = "Night"
)

// Modes lists every valid mode in cycle order.
var Modes = []Mode{ModeHome, ModeAway, ModeNight}

// ParseMode reports whether s names a valid mode. Matching is exact.
func ParseMode(s string) (Mode, bool) {
	for _, m := range Modes {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// Next returns the mode following m in cycle order. Unknown modes map to Home.
func (m Mode) Next() Mode {
	for i, candidate := range Modes {
		if candidate == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return ModeHome
}

// DeviceLights is the only device a home can toggle.
const DeviceLights = "lights"

// Defaults applied to new families and items.
const (
	DefaultTemperature       = 24.0
	DefaultHumidity          = 45.0
	DefaultQuantity          = 1.0
	DefaultUnit              = "pcs"
	DefaultCategory          = "Grocery"
	DefaultLowStockThreshold = 2.0

	MaxFamilyNameLength  = 64
	MaxNoteContentLength = 1000
)

// Rune limits on item fields. They match the widest store columns.
const (
	MaxItemNameLength = 255
	MaxLocationLength = 255
	MaxUnitLength     = 32
	MaxCategoryLength = 64
)

// Family is the persisted state of one household.
type Family struct {
	Name        string
	Lights      bool
	Temperature float64
	Humidity    float64
	Mode        Mode
	UpdatedAt   time.Time
}

// NewFamily returns a family with default climate and mode.
func NewFamily(name string) Family {
	return Family{
		Name:        name,
		Temperature: DefaultTemperature,
		Humidity:    DefaultHumidity,
		Mode:        ModeHome,
		UpdatedAt:   time.Now().UTC(),
	}
}

// Status returns the wire view of f.
func (f Family) Status() Status {
	return Status{
		Family:      f.Name,
		Lights:      f.Lights,
		Temperature: f.Temperature,
		Humidity:    f.Humidity,
		Mode:        f.Mode,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Status is the environmental snapshot served to clients.
type Status struct {
	Family      string    `json:"family"`
	Lights      bool      `json:"lights"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Mode        Mode      `json:"mode"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Item is one inventory entry.
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Quantity  float64   `json:"quantity"`
	Unit      string    `json:"unit"`
	Location  string    `json:"location"`
	Category  string    `json:"category"`
	Family    string    `json:"family"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemInput describes a new item. Zero values take the item defaults;
// Quantity is a pointer so an explicit zero is kept.
type ItemInput struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Location string   `json:"location,omitempty"`
	Category string   `json:"category,omitempty"`
}

// ItemPatch is a partial item update. Nil fields are left untouched.
type ItemPatch struct {
	Name     *string  `json:"name,omitempty"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     *string  `json:"unit,omitempty"`
	Location *string  `json:"location,omitempty"`
	Category *string  `json:"category,omitempty"`
}

// Empty reports whether p changes nothing.
func (p ItemPatch) Empty() bool {
	return p.Name == nil && p.Quantity == nil && p.Unit == nil && p.Location == nil && p.Category == nil
}

// Note is a message on the family board.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Family    string    `json:"family"`
	CreatedAt time.Time `json:"created_at"`
}
