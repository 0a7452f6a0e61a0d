package render

import (
	"github.com/Sussexdowns/Foodshare/internal/model"
	"github.com/Sussexdowns/Foodshare/internal/season"
)

var categoryColors = map[string]string{
	model.CategoryFruit:     "red",
	model.CategoryVegetable: "green",
	model.CategoryFlower:    "purple",
	model.CategoryHerb:      "blue",
	model.CategoryOther:     "gray",
}

var categoryIcons = map[string]string{
	model.CategoryFruit:     "apple-whole",
	model.CategoryVegetable: "carrot",
	model.CategoryFlower:    "seedling",
	model.CategoryHerb:      "leaf",
	model.CategoryOther:     "map-marker-alt",
}

// Style returns the pin colour and Font Awesome glyph for a category.
func Style(category string) (color, icon string) {
	color, ok := categoryColors[category]
	if !ok {
		color = "purple"
	}
	icon, ok = categoryIcons[category]
	if !ok {
		icon = "location-dot"
	}
	return color, icon
}

// NewMarker builds the marker for l.
func NewMarker(l model.Location) Marker {
	color, icon := Style(l.Category)
	return Marker{
		ID:               l.ID,
		Lat:              l.Lat,
		Lng:              l.Lng,
		Name:             l.Name,
		DisplayName:      l.DisplayName,
		Category:         l.Category,
		ShortDescription: l.ShortDescription,
		Description:      l.Description,
		Image:            l.Image,
		Link:             l.Link,
		Season:           season.Encode(l.Season),
		Likes:            l.Likes,
		Dislikes:         l.Dislikes,
		Color:            color,
		Icon:             icon,
	}
}
