// src/parsers/factory.go
package parsers

import (
	"errors"
	"fmt"

	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/kaibayosung/ohsung-system/src/parsers/ledger"
	"github.com/kaibayosung/ohsung-system/src/parsers/worklog"
	"github.com/kaibayosung/ohsung-system/src/processors"
)

var ErrUnknownDomain = errors.New("unknown domain")

// Options configures every domain parser built by GetParser.
type Options struct {
	Strict              bool
	Classifier          *processors.CategoryClassifier
	WorkLogNoiseMarkers []string
	LedgerNoiseMarkers  []string
}

func GetParser(domain models.Domain, opts Options) (Parser, error) {
	builder := processors.NewRecordBuilder(opts.Strict)
	switch domain {
	case models.DomainWorkLog:
		p, err := worklog.NewParser(worklog.Options{
			NoiseMarkers: opts.WorkLogNoiseMarkers,
			Strict:       opts.Strict,
			Classifier:   opts.Classifier,
			Builder:      builder,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case models.DomainLedger:
		return ledger.NewParser(ledger.Options{
			NoiseMarkers: opts.LedgerNoiseMarkers,
			Strict:       opts.Strict,
			Builder:      builder,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
}
