package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category is the closed set of expense categories.
type Category string

const (
	CategoryGroceries   Category = "GROCERIES"
	CategoryLeisure     Category = "LEISURE"
	CategoryElectronics Category = "ELECTRONICS"
	CategoryUtilities   Category = "UTILITIES"
	CategoryClothing    Category = "CLOTHING"
	CategoryHealth      Category = "HEALTH"
	CategoryOthers      Category = "OTHERS"
)

var categoryNames = map[Category]string{
	CategoryGroceries:   "Groceries",
	CategoryLeisure:     "Leisure",
	CategoryElectronics: "Electronics",
	CategoryUtilities:   "Utilities",
	CategoryClothing:    "Clothing",
	CategoryHealth:      "Health",
	CategoryOthers:      "Others",
}

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{
		CategoryGroceries,
		CategoryLeisure,
		CategoryElectronics,
		CategoryUtilities,
		CategoryClothing,
		CategoryHealth,
		CategoryOthers,
	}
}

// ParseCategory accepts a code (any case) or a display name. Unknown values
// are rejected; there is no fallback category.
func ParseCategory(raw string) (Category, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("category is empty")
	}

	code := Category(strings.ToUpper(value))
	if _, ok := categoryNames[code]; ok {
		return code, nil
	}

	for c, name := range categoryNames {
		if strings.EqualFold(name, value) {
			return c, nil
		}
	}

	return "", fmt.Errorf("unknown category %q", raw)
}

func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// DisplayName is the human readable label, also used as the stored value.
func (c Category) DisplayName() string {
	return categoryNames[c]
}

func (c Category) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %q", string(c))
	}
	return json.Marshal(c.DisplayName())
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseCategory(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// CategoryCodes returns the codes joined for error messages.
func CategoryCodes() string {
	codes := make([]string, 0, len(categoryNames))
	for _, c := range Categories() {
		codes = append(codes, string(c))
	}
	return strings.Join(codes, ", ")
}
