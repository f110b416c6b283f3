package domain

// Category is a user-facing transaction category.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsCustom bool   `json:"is_custom"`
}
