package organization

import "github.com/foodbridge/server/pkg/geo"

// Organization is a distribution center. The catalog is static reference
// data: assignment copies the location and address into the task and
// donation at assignment time.
type Organization struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Address  string    `json:"address" yaml:"address"`
	Location geo.Point `json:"location" yaml:"location"`
	Contact  string    `json:"contact,omitempty" yaml:"contact,omitempty"`
}
