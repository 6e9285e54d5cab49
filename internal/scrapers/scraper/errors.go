package scraper

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is a missing or invalid configuration value or external-store variable.
	ErrConfiguration = errors.New("configuration error")
	// ErrExtraction is an expected page element that is absent.
	ErrExtraction = errors.New("extraction error")
	// ErrNetwork is a failed page navigation or resource fetch.
	ErrNetwork = errors.New("network error")
	// ErrPersist is a failed write to the external store.
	ErrPersist = errors.New("persist error")
)

// MissingElement is the extraction error for a selector that matched nothing.
func MissingElement(selector string, block BlockType) error {
	if block != BlockNone {
		return fmt.Errorf("%w: no element matches %q (page looks blocked: %s)", ErrExtraction, selector, block)
	}
	return fmt.Errorf("%w: no element matches %q", ErrExtraction, selector)
}
