package catalog

// Category names one of the five priceable catalog sections.
type Category string

const (
	CategoryCollection Category = "collection"
	CategoryModel      Category = "model"
	CategoryCommodity  Category = "commodity"
	CategoryComponent  Category = "component"
	CategoryOptional   Category = "optional"
)

// Categories lists the categories in the order quotes present them.
var Categories = []Category{
	CategoryCollection,
	CategoryModel,
	CategoryCommodity,
	CategoryComponent,
	CategoryOptional,
}

// BillingMethod is the raw billing id of a tariff entry.
type BillingMethod int

const (
	BillingHeight BillingMethod = 1
	BillingWidth  BillingMethod = 2
	BillingArea   BillingMethod = 3
	BillingUnit   BillingMethod = 4
)

func (b BillingMethod) String() string {
	switch b {
	case BillingHeight:
		return "height"
	case BillingWidth:
		return "width"
	case BillingArea:
		return "area"
	default:
		return "unit"
	}
}

// ChargeType tells whether an entry is charged once for the whole product
// or once per physical piece.
type ChargeType int

const (
	ChargePerPiece ChargeType = 0
	ChargeGeneral  ChargeType = 1
)

// Applicability holds the model/line/classification id lists and the
// inclusive measurement ranges of a tariff entry. Empty lists and zero
// bounds are wildcards.
type Applicability struct {
	Models          []string `json:"models,omitempty"`
	Lines           []string `json:"lines,omitempty"`
	Classifications []string `json:"classifications,omitempty"`
	MinWidth        float64  `json:"minWidth,omitempty"`
	MaxWidth        float64  `json:"maxWidth,omitempty"`
	MinHeight       float64  `json:"minHeight,omitempty"`
	MaxHeight       float64  `json:"maxHeight,omitempty"`
	MinArea         float64  `json:"minArea,omitempty"`
	MaxArea         float64  `json:"maxArea,omitempty"`
}

// Entry is one tariff line of a category.
type Entry struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	// ItemID is the scope id of the priced thing: the collection, model,
	// commodity, component or optional id.
	ItemID string `json:"itemId"`
	Name   string `json:"name"`
	// Print restricts collection entries to one print/pattern.
	Print string `json:"print,omitempty"`
	// GroupID is the group the entry belongs to, when declared.
	GroupID string `json:"groupId,omitempty"`

	Price         float64       `json:"price"`
	Billing       BillingMethod `json:"billing"`
	Applicability Applicability `json:"applicability"`
	ChargeType    ChargeType    `json:"chargeType"`
	// Unitary model entries are charged once regardless of the piece count.
	Unitary                  bool     `json:"unitary,omitempty"`
	MinMeasurement           float64  `json:"minMeasurement,omitempty"`
	MinMeasurementSubstitute float64  `json:"minMeasurementSubstitute,omitempty"`
	LinkedFormulas           []string `json:"linkedFormulas,omitempty"`
}

// Product carries the product-wide percentages applied by the order total.
type Product struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	TaxPercent     float64 `json:"taxPercent"`
	FreightPercent float64 `json:"freightPercent"`
}

// Tariff is the whole catalog of one product.
type Tariff struct {
	Product    Product `json:"product"`
	Collection []Entry `json:"collection"`
	Model      []Entry `json:"model"`
	Commodity  []Entry `json:"commodity"`
	Component  []Entry `json:"component"`
	Optional   []Entry `json:"optional"`
}

// Entries returns the raw entries of one category.
func (t Tariff) Entries(c Category) []Entry {
	switch c {
	case CategoryCollection:
		return t.Collection
	case CategoryModel:
		return t.Model
	case CategoryCommodity:
		return t.Commodity
	case CategoryComponent:
		return t.Component
	case CategoryOptional:
		return t.Optional
	}
	return nil
}

// GeneralMeasureID identifies the aggregate of every piece.
const GeneralMeasureID = "general"

// Measure is one physical piece of the configured product.
type Measure struct {
	ID         string  `json:"id"`
	Identifier string  `json:"identifier"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	// Area is stored independently; it is not always Width*Height.
	Area float64 `json:"area"`
}

// ConfirmedOption is a selected commodity, component or optional.
type ConfirmedOption struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	ItemID   string   `json:"itemId"`
	GroupID  string   `json:"groupId"`
	ParentID string   `json:"parentId,omitempty"`
}

// Configuration is the user's product build. The pricing engine only
// reads it.
type Configuration struct {
	ProductID        string            `json:"productId"`
	ModelID          string            `json:"modelId"`
	LineID           string            `json:"lineId"`
	ClassificationID string            `json:"classificationId"`
	CollectionID     string            `json:"collectionId,omitempty"`
	Print            string            `json:"print,omitempty"`
	Measures         []Measure         `json:"measures"`
	Groups           []string          `json:"groups,omitempty"`
	Options          []ConfirmedOption `json:"options,omitempty"`
	// Variables are extra formula inputs supplied by the caller.
	Variables map[string]float64 `json:"variables,omitempty"`
}

// GroupIndex returns the position of groupID among the declared groups,
// or 0 when the group is unknown.
func (c Configuration) GroupIndex(groupID string) int {
	for i, g := range c.Groups {
		if g == groupID {
			return i
		}
	}
	return 0
}

// FirstGroup returns the id of the general group.
func (c Configuration) FirstGroup() string {
	if len(c.Groups) == 0 {
		return ""
	}
	return c.Groups[0]
}

// IsGeneralGroup reports whether groupID is the general group. Without
// declared groups the whole product is one general group.
func (c Configuration) IsGeneralGroup(groupID string) bool {
	return len(c.Groups) == 0 || c.Groups[0] == groupID
}

// OptionsOf returns the confirmed options of one category in input order.
func (c Configuration) OptionsOf(category Category) []ConfirmedOption {
	var out []ConfirmedOption
	for _, o := range c.Options {
		if o.Category == category {
			out = append(out, o)
		}
	}
	return out
}

// MeasureAt returns the measure billed for a group index. Indexes past the
// last piece resolve to the last piece.
func (c Configuration) MeasureAt(idx int) (Measure, int) {
	if len(c.Measures) == 0 {
		return Measure{}, 0
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(c.Measures) {
		idx = len(c.Measures) - 1
	}
	return c.Measures[idx], idx
}

// TotalMeasure sums width, height and area over every piece.
func (c Configuration) TotalMeasure() Measure {
	total := Measure{ID: GeneralMeasureID, Identifier: GeneralMeasureID}
	for _, m := range c.Measures {
		total.Width += m.Width
		total.Height += m.Height
		total.Area += m.Area
	}
	return total
}
