package models

import "time"

// WidgetImage is one exported photo with its display fields. The image is
// recompressed to a fixed size and carried inline as base64 so the widget
// process never touches the network.
type WidgetImage struct {
	EntityID    string `json:"entityId"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	ImageBase64 string `json:"image"`
}

// WidgetSnapshot is the point-in-time export the home-screen widget reads.
// It is regenerated whole on every export; Title/Icon/Color are optional
// display metadata preserved across re-exports.
type WidgetSnapshot struct {
	LastUpdated time.Time     `json:"lastUpdated"`
	Title       string        `json:"title,omitempty"`
	Icon        string        `json:"icon,omitempty"`
	Color       string        `json:"color,omitempty"`
	Images      []WidgetImage `json:"images"`
}
