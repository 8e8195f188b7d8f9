// Package model defines the data structures shared by the store, service,
// HTTP and client layers.
package model

import "time"

// Image is a single gallery entry.
//
// ID and CreatedAt are assigned by the store and never change afterwards.
// Title and Description are optional; an absent value is the empty string
// (stored as NULL).
//
// The JSON tags follow the wire format of the REST API:
//
//	{"id":1,"url":"https://...","title":"...","description":"...","created_at":"..."}
type Image struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// DisplayTitle returns the title shown in a gallery grid.
func (i Image) DisplayTitle() string {
	if i.Title == "" {
		return "Untitled"
	}
	return i.Title
}

// ImageInput carries the mutable fields of an Image. It is the body of both
// the create and the update request; on update every field replaces the
// stored value.
type ImageInput struct {
	URL         string `json:"url" validate:"required"`
	Title       string `json:"title"`
	Description string `json:"description"`
}
