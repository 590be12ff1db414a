// Package program holds the static catalog of programs offered by the academy.
package program

import (
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Kingsman71/Binary-Learning/core"
	appfs "github.com/Kingsman71/Binary-Learning/fs"
)

const catalogPath = "catalog/programs.yaml"

// Categories
const (
	CategoryWebDevelopment = "Web Development"
	CategoryDataScience    = "Data Science"
	CategoryUIUXDesign     = "UI/UX Design"
	CategoryCybersecurity  = "Cybersecurity"
)

var (
	ErrNotFound = core.NotFoundError{Resource: "program"}

	AllCategories = []string{CategoryWebDevelopment, CategoryDataScience, CategoryUIUXDesign, CategoryCybersecurity}
)

type (
	Instructor struct {
		Name      string `json:"name" yaml:"name"`
		Bio       string `json:"bio" yaml:"bio"`
		AvatarURL string `json:"avatar_url" yaml:"avatarUrl"`
	}

	Module struct {
		Module  int    `json:"module" yaml:"module"`
		Title   string `json:"title" yaml:"title"`
		Content string `json:"content" yaml:"content"`
	}

	Program struct {
		ID          string     `json:"id" yaml:"id"`
		Title       string     `json:"title" yaml:"title"`
		Category    string     `json:"category" yaml:"category"`
		Duration    string     `json:"duration" yaml:"duration"`
		StartDate   time.Time  `json:"start_date" yaml:"startDate"`
		Description string     `json:"description" yaml:"description"`
		Instructor  Instructor `json:"instructor" yaml:"instructor"`
		Curriculum  []Module   `json:"curriculum" yaml:"curriculum"`
	}

	// QueryFilter applies AND operation on its set fields.
	// Search does a case-insensitive match on Program.Title or Program.Description.
	QueryFilter struct {
		Search   string `query:"search"`
		Category string `query:"category"`
		Duration string `query:"duration"`
	}

	// Catalog is read-only once built and safe for concurrent use.
	Catalog struct {
		programs []Program
		byID     map[string]int
	}
)

func isCategory(c string) bool {
	for _, cat := range AllCategories {
		if cat == c {
			return true
		}
	}
	return false
}

// NewCatalog builds a Catalog, rejecting duplicated IDs and unknown categories.
// Curriculum modules are kept ordered by their module number.
func NewCatalog(programs []Program) (*Catalog, error) {
	cat := &Catalog{
		programs: make([]Program, 0, len(programs)),
		byID:     make(map[string]int, len(programs)),
	}
	for _, p := range programs {
		p.ID = core.CleanString(p.ID, true /* lower */)
		if p.ID == "" || p.Title == "" {
			return nil, errors.Errorf("program %q: id and title are required", p.Title)
		}
		if _, ok := cat.byID[p.ID]; ok {
			return nil, errors.Errorf("program %q: duplicated id", p.ID)
		}
		if !isCategory(p.Category) {
			return nil, errors.Errorf("program %q: unknown category %q", p.ID, p.Category)
		}
		curriculum := make([]Module, len(p.Curriculum))
		copy(curriculum, p.Curriculum)
		sort.SliceStable(curriculum, func(i, j int) bool { return curriculum[i].Module < curriculum[j].Module })
		p.Curriculum = curriculum

		cat.byID[p.ID] = len(cat.programs)
		cat.programs = append(cat.programs, p)
	}
	return cat, nil
}

// LoadCatalog reads the YAML catalog at `name` within `fsys`.
func LoadCatalog(fsys fs.FS, name string) (*Catalog, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Wrap(err, "reading program catalog")
	}
	var programs []Program
	if err = yaml.Unmarshal(data, &programs); err != nil {
		return nil, errors.Wrap(err, "decoding program catalog")
	}
	return NewCatalog(programs)
}

// DefaultCatalog loads the catalog embedded in the binaries.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(appfs.FS, catalogPath)
}

func (c *Catalog) All() []Program {
	programs := make([]Program, len(c.programs))
	copy(programs, c.programs)
	return programs
}

func (c *Catalog) Get(id string) (Program, error) {
	idx, ok := c.byID[core.CleanString(id, true /* lower */)]
	if !ok {
		return Program{}, ErrNotFound
	}
	return c.programs[idx], nil
}

func (c *Catalog) Exists(id string) bool {
	_, err := c.Get(id)
	return err == nil
}

// Filter returns the programs matching all the set fields of `filter`, in catalog order.
func (c *Catalog) Filter(filter QueryFilter) []Program {
	search := core.CleanString(filter.Search, true /* lower */)
	programs := make([]Program, 0, len(c.programs))
	for _, p := range c.programs {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Duration != "" && p.Duration != filter.Duration {
			continue
		}
		programs = append(programs, p)
	}
	return programs
}

// Categories lists the categories having at least one program, in catalog order.
func (c *Catalog) Categories() []string {
	return c.distinct(func(p Program) string { return p.Category })
}

// Durations lists the distinct program durations, in catalog order.
func (c *Catalog) Durations() []string {
	return c.distinct(func(p Program) string { return p.Duration })
}

func (c *Catalog) distinct(field func(Program) string) []string {
	seen := make(map[string]bool)
	vals := make([]string, 0)
	for _, p := range c.programs {
		if v := field(p); !seen[v] {
			seen[v] = true
			vals = append(vals, v)
		}
	}
	return vals
}
