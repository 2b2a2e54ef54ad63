// Package seed loads products and their pricing rule sets from a YAML file,
// for demo and staging environments where no catalog sync is running.
package seed

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pricing-table-api/internal/models"
	"pricing-table-api/internal/service"
)

// File is the root of a seed document.
type File struct {
	Products []Entry `yaml:"products"`
}

// Entry pairs one product with its configured rule sets and optional meta.
type Entry struct {
	Product  models.Product    `yaml:"product"`
	Meta     map[string]string `yaml:"meta,omitempty"`
	RuleSets []models.RuleSet  `yaml:"rule_sets,omitempty"`
}

// Load reads and parses a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &file, nil
}

// Apply stores every seeded product, its meta and its rule sets through the
// service so the usual validation applies.
func Apply(ctx context.Context, file *File, svc *service.Service) error {
	for _, entry := range file.Products {
		if err := svc.SaveProduct(ctx, entry.Product); err != nil {
			return fmt.Errorf("failed to seed product %d: %w", entry.Product.ID, err)
		}
		for key, value := range entry.Meta {
			if err := svc.SetProductMeta(ctx, entry.Product.ID, key, value); err != nil {
				return fmt.Errorf("failed to seed meta for product %d: %w", entry.Product.ID, err)
			}
		}
		if len(entry.RuleSets) > 0 {
			if _, err := svc.SaveRuleSets(ctx, entry.Product.ID, entry.RuleSets); err != nil {
				return fmt.Errorf("failed to seed rule sets for product %d: %w", entry.Product.ID, err)
			}
		}
	}
	return nil
}
