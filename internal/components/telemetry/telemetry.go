package telemetry

import (
	"fmt"
)

// API is what every component reports through instead of calling the logger
// directly, so tests can swap in a Recorder and check what was reported.
type API interface {
	// ReportBroken reports a component that failed and needs attention.
	//
	// The id names the component, not the line that failed: a failed request
	// for the reviews page is `reviews.scrape`, the transport detail goes into
	// the wrapped error or a param.
	//
	// ids are lowercase, underscores separate words of a component and a dot
	// separates the component from its method. ScopedAPI already carries the
	// site or package, so `<type>.<method>` is usually enough.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that still produced output but may be
	// wrong, like a rating widget without any rating. ids follow ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug reports detail that is only useful while developing selectors.
	ReportDebug(msg string, params ...any)

	// ReportCount reports a point-in-time count (reviews extracted, cookies
	// applied), values are not meant to be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, usually the target name.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}
