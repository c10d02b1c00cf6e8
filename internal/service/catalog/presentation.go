package catalog

import (
	"strconv"
	"strings"

	"storefront/internal/domain"
)

var sizesByCategory = map[string][]string{
	"hoodies": {"S", "M", "L", "XL", "XXL"},
	"jackets": {"S", "M", "L", "XL", "XXL"},
	"tshirts": {"S", "M", "L", "XL", "XXL"},
	"pants":   {"28", "30", "32", "34", "36"},
	"shoes":   {"7", "8", "9", "10", "11", "12"},
	"bags":    {"ONE SIZE"},
}

var defaultSizes = []string{"S", "M", "L", "XL"}

var descriptionTemplates = map[string]string{
	"hoodies": "Premium {name} built for the streets. Heavyweight construction with signature {brand} detailing. Oversized fit, ribbed cuffs, kangaroo pocket.",
	"tshirts": "The {name}, essential streetwear from {brand}. 100% premium cotton, relaxed fit, screen-printed graphics.",
	"jackets": "{name} by {brand}. Weather-resistant shell with bold branding. Full zip, adjustable cuffs, inner pocket.",
	"pants":   "{name} from {brand}. Tapered silhouette, reinforced stitching, elastic waistband with drawcord.",
	"shoes":   "{name}: {brand} footwear. Cushioned insole, durable rubber outsole, premium materials throughout.",
	"bags":    "{name} by {brand}. Spacious main compartment, padded straps, water-resistant fabric.",
}

const defaultDescription = "{name} by {brand}. Premium quality, exclusive design."

// SizesFor returns the sizes offered for a category.
func SizesFor(category string) []string {
	sizes, ok := sizesByCategory[strings.ToLower(category)]
	if !ok {
		sizes = defaultSizes
	}
	out := make([]string, len(sizes))
	copy(out, sizes)
	return out
}

// Description generates the product copy from its category and brand.
func Description(p domain.Product) string {
	tmpl, ok := descriptionTemplates[strings.ToLower(p.Category)]
	if !ok {
		tmpl = defaultDescription
	}
	return strings.NewReplacer("{name}", p.Name, "{brand}", p.Brand).Replace(tmpl)
}

func StockLabel(p domain.Product) string {
	switch p.StockStatus() {
	case "out_of_stock":
		return "Out of stock"
	case "low_stock":
		return "Only " + strconv.Itoa(*p.Stock) + " left in stock"
	default:
		return ""
	}
}
