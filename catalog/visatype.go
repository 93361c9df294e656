package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no active visa type matches a lookup.
var ErrNotFound = errors.New("visa type not found")

// VisaType is a single immigration category. Only active entries take part
// in interview filtering.
type VisaType struct {
	ID     int    `json:"id" yaml:"id"`
	Code   string `json:"code" yaml:"code"`
	Name   string `json:"name" yaml:"name"`
	Active bool   `json:"active" yaml:"active"`
}

// Catalog is read-only access to the visa types currently offered.
// ListActive returns active entries ordered by ID; an empty result is not an error.
type Catalog interface {
	ListActive(ctx context.Context) ([]VisaType, error)
}

// GetByCode finds an active visa type by code, ignoring case.
func GetByCode(ctx context.Context, c Catalog, code string) (VisaType, error) {
	visas, err := c.ListActive(ctx)
	if err != nil {
		return VisaType{}, err
	}
	return Find(visas, code)
}

// Find returns the visa type in visas with the given code, ignoring case.
func Find(visas []VisaType, code string) (VisaType, error) {
	code = strings.TrimSpace(code)
	for _, v := range visas {
		if strings.EqualFold(v.Code, code) {
			return v, nil
		}
	}
	return VisaType{}, fmt.Errorf("%w: %s", ErrNotFound, code)
}

// Codes returns the codes of visas in order.
func Codes(visas []VisaType) []string {
	codes := make([]string, len(visas))
	for i, v := range visas {
		codes[i] = v.Code
	}
	return codes
}
