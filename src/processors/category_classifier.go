// src/processors/category_classifier.go
package processors

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kaibayosung/ohsung-system/src/models"
	"gopkg.in/yaml.v3"
)

var ErrShadowedRule = errors.New("category rule can never match")

// CategoryRule maps a keyword fragment of the equipment code onto a category.
type CategoryRule struct {
	Keyword  string `yaml:"keyword"`
	Category string `yaml:"category"`
}

// CategoryRuleSet is the ordered rule table. Earlier rules win.
type CategoryRuleSet struct {
	Rules   []CategoryRule `yaml:"rules"`
	Default string         `yaml:"default"`
}

// DefaultCategoryRules lists SLITING2 before SLITING, which it contains.
func DefaultCategoryRules() CategoryRuleSet {
	return CategoryRuleSet{
		Rules: []CategoryRule{
			{Keyword: "SLITING2", Category: string(models.CategorySlitting2)},
			{Keyword: "SLITING", Category: string(models.CategorySlitting1)},
			{Keyword: "LEVELLING", Category: string(models.CategoryLevelling)},
		},
		Default: string(models.CategoryOther),
	}
}

// LoadCategoryRules reads a rule table from a YAML file.
func LoadCategoryRules(path string) (CategoryRuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CategoryRuleSet{}, err
	}
	var set CategoryRuleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return CategoryRuleSet{}, fmt.Errorf("parsing category rules %s: %w", path, err)
	}
	return set, nil
}

// CategoryClassifier maps free-text equipment codes onto the closed category set.
type CategoryClassifier struct {
	rules    []CategoryRule
	fallback models.WorkCategory
}

// NewCategoryClassifier validates the rule order: a keyword that contains an
// earlier keyword would always lose to it, so such a table is rejected.
func NewCategoryClassifier(set CategoryRuleSet) (*CategoryClassifier, error) {
	rules := make([]CategoryRule, 0, len(set.Rules))
	for i, r := range set.Rules {
		kw := strings.ToUpper(strings.TrimSpace(r.Keyword))
		if kw == "" || strings.TrimSpace(r.Category) == "" {
			return nil, fmt.Errorf("category rule %d: keyword and category are required", i)
		}
		for _, earlier := range rules {
			if strings.Contains(kw, earlier.Keyword) {
				return nil, fmt.Errorf("%w: %q is listed after %q", ErrShadowedRule, kw, earlier.Keyword)
			}
		}
		rules = append(rules, CategoryRule{Keyword: kw, Category: r.Category})
	}
	fallback := models.WorkCategory(strings.TrimSpace(set.Default))
	if fallback == "" {
		fallback = models.CategoryOther
	}
	return &CategoryClassifier{rules: rules, fallback: fallback}, nil
}

func (c *CategoryClassifier) Classify(code string) models.WorkCategory {
	upper := strings.ToUpper(strings.TrimSpace(code))
	if upper == "" {
		return c.fallback
	}
	for _, r := range c.rules {
		if strings.Contains(upper, r.Keyword) {
			return models.WorkCategory(r.Category)
		}
	}
	return c.fallback
}

// Categories returns the closed set this classifier can produce.
func (c *CategoryClassifier) Categories() []models.WorkCategory {
	seen := make(map[models.WorkCategory]bool)
	var out []models.WorkCategory
	for _, r := range c.rules {
		cat := models.WorkCategory(r.Category)
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	if !seen[c.fallback] {
		out = append(out, c.fallback)
	}
	return out
}
