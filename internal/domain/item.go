package domain

// Item is one catalog record: a garment review row from the dataset.
// Items are loaded once at startup and never mutated afterwards.
type Item struct {
	Title        string
	Review       string
	ConsRating   string
	ClothClass   string
	Materials    string
	Construction string
	Color        string
	Finishing    string
	Durability   string
	CombinedText string
}

// Attributes renders the item as the attribute map exposed in search
// responses. Every original dataset column appears under its dataset name.
func (it Item) Attributes() map[string]any {
	return map[string]any{
		"Title":         it.Title,
		"Review":        it.Review,
		"Cons_rating":   it.ConsRating,
		"Cloth_class":   it.ClothClass,
		"Materials":     it.Materials,
		"Construction":  it.Construction,
		"Color":         it.Color,
		"Finishing":     it.Finishing,
		"Durability":    it.Durability,
		"Combined_Text": it.CombinedText,
	}
}
