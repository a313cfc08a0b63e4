package model

import "slices"

// Category is one label from the fixed set of asset categories.
type Category string

// Default categories.
const (
	CategoryLand                   Category = "LAND"
	CategoryBuilding               Category = "BUILDING"
	CategoryOfficeEquipment        Category = "OFFICE EQUIPMENT"
	CategoryFurniture              Category = "FURNITURE & FIXTURES"
	CategoryITEquipment            Category = "IT EQUIPMENT"
	CategoryConstruction           Category = "CONSTRUCTION AND HEAVY EQUIPMENT"
	CategoryTechnical              Category = "TECHNICAL AND SCIENTIFIC EQUIPMENT"
	CategoryWatercraft             Category = "WATERCRAFT"
	CategoryMotorVehicles          Category = "MOTOR VEHICLES"
	CategorySoftware               Category = "SOFTWARE"
	CategorySportsEquipment        Category = "SPORTS EQUIPMENT"
	CategoryCommunicationEquipment Category = "COMMUNICATION EQUIPMENT"
)

// DefaultCategoryNames lists the default categories in display order.
var DefaultCategoryNames = []Category{
	CategoryLand,
	CategoryBuilding,
	CategoryOfficeEquipment,
	CategoryFurniture,
	CategoryITEquipment,
	CategoryConstruction,
	CategoryTechnical,
	CategoryWatercraft,
	CategoryMotorVehicles,
	CategorySoftware,
	CategorySportsEquipment,
	CategoryCommunicationEquipment,
}

// DefaultParts lists the sub-part labels of a parts-decomposed category.
var DefaultParts = []string{"CPU", "Monitor", "Keyboard", "Mouse", "UPS", "Speaker", "Camera"}

// CategoryInfo describes a category and, if it decomposes into sub-parts,
// the part labels its photos may carry.
type CategoryInfo struct {
	Name  Category `json:"name"`
	Parts []string `json:"parts,omitempty"`
}

// SupportsParts reports whether photos in this category carry a part label.
func (c CategoryInfo) SupportsParts() bool {
	return len(c.Parts) > 0
}

// ResolvePart returns the part label to store on a photo of this category.
// Parts-decomposed categories require a known label; every other category
// drops the label.
func (c CategoryInfo) ResolvePart(part string) (string, error) {
	if !c.SupportsParts() {
		return "", nil
	}
	if part == "" {
		return "", ErrPartRequired
	}
	if !slices.Contains(c.Parts, part) {
		return "", ErrUnknownPart
	}
	return part, nil
}

// Catalog is the closed set of categories known to the process. It is built
// once at startup and never modified afterwards.
type Catalog struct {
	list   []CategoryInfo
	byName map[Category]int
}

// NewCatalog builds a catalog from the given categories, in order.
// Duplicate names keep their first occurrence.
func NewCatalog(infos []CategoryInfo) *Catalog {
	c := &Catalog{byName: make(map[Category]int, len(infos))}
	for _, info := range infos {
		if _, dup := c.byName[info.Name]; dup {
			continue
		}
		info.Parts = slices.Clone(info.Parts)
		c.byName[info.Name] = len(c.list)
		c.list = append(c.list, info)
	}
	return c
}

// DefaultCategories returns the default category set. The named categories
// decompose into DefaultParts; with no names given, only IT EQUIPMENT does.
func DefaultCategories(partsCategories ...Category) []CategoryInfo {
	if len(partsCategories) == 0 {
		partsCategories = []Category{CategoryITEquipment}
	}
	infos := make([]CategoryInfo, 0, len(DefaultCategoryNames))
	for _, name := range DefaultCategoryNames {
		info := CategoryInfo{Name: name}
		if slices.Contains(partsCategories, name) {
			info.Parts = slices.Clone(DefaultParts)
		}
		infos = append(infos, info)
	}
	return infos
}

// DefaultCatalog returns a catalog of the default categories.
func DefaultCatalog() *Catalog {
	return NewCatalog(DefaultCategories())
}

// Lookup returns the category with the given name.
func (c *Catalog) Lookup(name string) (CategoryInfo, error) {
	i, ok := c.byName[Category(name)]
	if !ok {
		return CategoryInfo{}, &InvalidCategoryError{Name: name}
	}
	return c.list[i], nil
}

// Known reports whether the category is part of the catalog.
func (c *Catalog) Known(name Category) bool {
	_, ok := c.byName[name]
	return ok
}

// All returns every category in display order.
func (c *Catalog) All() []CategoryInfo {
	return slices.Clone(c.list)
}

// Index returns the display position of a category, or -1.
func (c *Catalog) Index(name Category) int {
	i, ok := c.byName[name]
	if !ok {
		return -1
	}
	return i
}
