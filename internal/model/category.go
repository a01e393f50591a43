package model

import "errors"

// Category is read-only reference data maintained in the remote schema.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// CategorySummary is the projection embedded in topic rows.
type CategorySummary struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

var (
	// ErrCategoryRequired is returned when a new topic is submitted without a
	// valid category selection
	ErrCategoryRequired = errors.New("please select a category")
)
