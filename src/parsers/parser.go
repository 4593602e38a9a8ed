// src/parsers/parser.go
package parsers

import (
	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/kaibayosung/ohsung-system/src/parsers/tabular"
)

// Re-exported so callers need not import the tabular package.
var (
	ErrNoInput        = tabular.ErrNoInput
	ErrNoParsableRows = tabular.ErrNoParsableRows
)

type Parser interface {
	Domain() models.Domain
	Parse(raw string) (*models.Analysis, error)
}
