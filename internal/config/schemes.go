package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/cateradmin/api/internal/rank"
	"gopkg.in/yaml.v3"
)

// Scheme describes one orderable catalog: where to list and persist it and
// which classification fields partition it.
type Scheme struct {
	Name          string   `yaml:"name"           json:"name"`
	Label         string   `yaml:"label"          json:"label"`
	Fields        []string `yaml:"fields"         json:"fields"`
	ListPath      string   `yaml:"list_path"      json:"list_path"`
	PersistPath   string   `yaml:"persist_path"   json:"persist_path"`
	Table         string   `yaml:"table"          json:"table"`
	IDField       string   `yaml:"id_field"       json:"id_field"`
	PositionField string   `yaml:"position_field" json:"position_field"`
}

// Partitioning returns the rank scheme derived from the catalog scheme.
func (s Scheme) Partitioning() rank.Scheme {
	return rank.Scheme{Name: s.Name, Fields: s.Fields}
}

type schemesFile struct {
	Schemes []Scheme `yaml:"schemes"`
}

// DefaultSchemes returns the catalogs the admin console orders out of the box.
func DefaultSchemes() []Scheme {
	return withDefaults([]Scheme{
		{
			Name:        "food_packages",
			Label:       "Food packages",
			Fields:      []string{"superfast", "cp_type", "meal_time", "veg_non_veg"},
			ListPath:    "/food_packages/list.php",
			PersistPath: "/food_packages/update_positions.php",
			Table:       "food_packages",
		},
		{
			Name:        "categories",
			Label:       "Menu categories",
			Fields:      []string{"superfast"},
			ListPath:    "/categories/list.php",
			PersistPath: "/categories/update_positions.php",
			Table:       "categories",
		},
		{
			Name:        "superfast_categories",
			Label:       "Superfast categories",
			ListPath:    "/superfast/categories/list.php",
			PersistPath: "/superfast/categories/update_positions.php",
			Table:       "superfast_categories",
		},
	})
}

// LoadSchemes reads a YAML scheme file. If the file doesn't exist, defaults
// are used.
func LoadSchemes(path string) ([]Scheme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSchemes(), nil
		}
		return nil, err
	}

	var f schemesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := validateSchemes(f.Schemes); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return withDefaults(f.Schemes), nil
}

// FindScheme looks a scheme up by name.
func FindScheme(schemes []Scheme, name string) (Scheme, bool) {
	for _, s := range schemes {
		if s.Name == name {
			return s, true
		}
	}
	return Scheme{}, false
}

func validateSchemes(schemes []Scheme) error {
	if len(schemes) == 0 {
		return errors.New("no schemes defined")
	}
	seen := make(map[string]bool, len(schemes))
	for i, s := range schemes {
		if s.Name == "" {
			return fmt.Errorf("schemes[%d]: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("schemes[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
		if s.ListPath == "" && s.Table == "" {
			return fmt.Errorf("scheme %q: list_path or table is required", s.Name)
		}
	}
	return nil
}

func withDefaults(schemes []Scheme) []Scheme {
	for i := range schemes {
		if schemes[i].IDField == "" {
			schemes[i].IDField = "id"
		}
		if schemes[i].PositionField == "" {
			schemes[i].PositionField = "position"
		}
		if schemes[i].Label == "" {
			schemes[i].Label = schemes[i].Name
		}
	}
	return schemes
}
