package models

// Tone is one swatch of the material finish palette.
type Tone struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

const (
	DefaultToneHex      = "#7C9082"
	StandardEditionText = "Standard Edition"
)

// Palette lists the material finishes a customer can pick.
var Palette = []Tone{
	{Name: "Sage Resin", Hex: "#7C9082"},
	{Name: "Sandstone", Hex: "#A18F7D"},
	{Name: "Obsidian", Hex: "#2A2A2A"},
	{Name: "Gold Infused", Hex: "#D4AF37"},
}

// KnownTone reports whether hex is a palette colour.
func KnownTone(hex string) bool {
	for _, t := range Palette {
		if t.Hex == hex {
			return true
		}
	}
	return false
}

// CustomizationState is the personalization captured on a product page.
type CustomizationState struct {
	Text    string            `json:"text"`
	Color   string            `json:"color"`
	Options map[string]string `json:"options"`
}

// StandardCustomization is what "buy now" submits in place of a captured customization.
func StandardCustomization() CustomizationState {
	return CustomizationState{
		Text:    StandardEditionText,
		Color:   DefaultToneHex,
		Options: map[string]string{},
	}
}

// CartItem is a customized line in a session cart. Name, price and image are
// a snapshot of the product at the time it was added.
type CartItem struct {
	CustomizationState
	CartID    string  `json:"cart_id"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
}
