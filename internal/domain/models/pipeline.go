package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PipelineKind enumerates the processing lines run by the station.
type PipelineKind string

const (
	PipelineTofu            PipelineKind = "tofu"
	PipelineBeanSprouts     PipelineKind = "bean_sprouts"
	PipelineSaltedVegetable PipelineKind = "salted_vegetable"
	PipelineSausage         PipelineKind = "sausage"
	PipelineLivestock       PipelineKind = "livestock"
	PipelinePoultry         PipelineKind = "poultry"
)

// Category names one output of a pipeline.
type Category string

const (
	CategoryTofu            Category = "tofu"
	CategoryBeanSprouts     Category = "bean_sprouts"
	CategorySaltedVegetable Category = "salted_vegetable"
	CategorySausage         Category = "sausage"
	CategoryLeanMeat        Category = "lean_meat"
	CategoryBone            Category = "bone"
	CategoryGroundMeat      Category = "ground_meat"
	CategoryOrgans          Category = "organs"
	CategoryDressedPoultry  Category = "dressed_poultry"
	CategoryGiblets         Category = "giblets"
)

// Pipeline is the static description of one conversion line.
type Pipeline struct {
	Kind                PipelineKind
	Name                string
	RawMaterial         string
	Categories          []Category
	DefaultRawUnitPrice decimal.Decimal
	DefaultUnitPrices   map[Category]decimal.Decimal
}

// HasByproducts is true for pipelines producing more than one output.
func (p Pipeline) HasByproducts() bool {
	return len(p.Categories) > 1
}

// HasCategory reports whether c is one of the pipeline outputs.
func (p Pipeline) HasCategory(c Category) bool {
	for _, own := range p.Categories {
		if own == c {
			return true
		}
	}
	return false
}

// PrimaryCategory is the first output, the only one for single-output pipelines.
func (p Pipeline) PrimaryCategory() Category {
	return p.Categories[0]
}

func prices(pairs ...string) map[Category]decimal.Decimal {
	out := make(map[Category]decimal.Decimal, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out[Category(pairs[i])] = decimal.RequireFromString(pairs[i+1])
	}
	return out
}

var catalog = []Pipeline{
	{
		Kind:                PipelineTofu,
		Name:                "Soybean to tofu",
		RawMaterial:         "soybean",
		Categories:          []Category{CategoryTofu},
		DefaultRawUnitPrice: decimal.RequireFromString("4.20"),
		DefaultUnitPrices:   prices("tofu", "2.50"),
	},
	{
		Kind:                PipelineBeanSprouts,
		Name:                "Soybean to bean sprouts",
		RawMaterial:         "soybean",
		Categories:          []Category{CategoryBeanSprouts},
		DefaultRawUnitPrice: decimal.RequireFromString("4.20"),
		DefaultUnitPrices:   prices("bean_sprouts", "1.80"),
	},
	{
		Kind:                PipelineSaltedVegetable,
		Name:                "Cabbage to salted vegetable",
		RawMaterial:         "cabbage",
		Categories:          []Category{CategorySaltedVegetable},
		DefaultRawUnitPrice: decimal.RequireFromString("0.90"),
		DefaultUnitPrices:   prices("salted_vegetable", "2.00"),
	},
	{
		Kind:                PipelineSausage,
		Name:                "Meat to sausage",
		RawMaterial:         "meat",
		Categories:          []Category{CategorySausage},
		DefaultRawUnitPrice: decimal.RequireFromString("18.00"),
		DefaultUnitPrices:   prices("sausage", "26.00"),
	},
	{
		Kind:                PipelineLivestock,
		Name:                "Live pigs to dressed meat",
		RawMaterial:         "live_pig",
		Categories:          []Category{CategoryLeanMeat, CategoryBone, CategoryGroundMeat, CategoryOrgans},
		DefaultRawUnitPrice: decimal.RequireFromString("1500.00"),
		DefaultUnitPrices:   prices("lean_meat", "24.00", "bone", "9.00", "ground_meat", "20.00", "organs", "12.00"),
	},
	{
		Kind:                PipelinePoultry,
		Name:                "Live poultry to dressed cuts",
		RawMaterial:         "live_poultry",
		Categories:          []Category{CategoryDressedPoultry, CategoryGiblets},
		DefaultRawUnitPrice: decimal.RequireFromString("35.00"),
		DefaultUnitPrices:   prices("dressed_poultry", "22.00", "giblets", "8.00"),
	},
}

// Pipelines lists the catalog in a stable order.
func Pipelines() []Pipeline {
	out := make([]Pipeline, len(catalog))
	copy(out, catalog)
	return out
}

// LookupPipeline returns the catalog entry for kind.
func LookupPipeline(kind PipelineKind) (Pipeline, bool) {
	for _, p := range catalog {
		if p.Kind == kind {
			return p, true
		}
	}
	return Pipeline{}, false
}

// ParsePipelineKind accepts the canonical names plus hyphenated variants.
func ParsePipelineKind(value string) (PipelineKind, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	kind := PipelineKind(normalized)
	if _, ok := LookupPipeline(kind); !ok {
		return "", &ValidationError{Field: "pipeline", Reason: fmt.Sprintf("unknown pipeline %q", value)}
	}
	return kind, nil
}

// ParseCategory validates c against the pipeline's outputs.
func (p Pipeline) ParseCategory(value string) (Category, error) {
	c := Category(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_"))
	if !p.HasCategory(c) {
		return "", &ValidationError{Field: "category", Reason: fmt.Sprintf("category %q does not belong to pipeline %s", value, p.Kind)}
	}
	return c, nil
}
