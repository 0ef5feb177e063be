// Package finding defines the vocabulary shared by every stage of a scan:
// the Finding record reported for a vulnerable URL, its Severity, and the
// error taxonomy the loaders, dispatcher and session agree on.
//
// Usage:
//
//	if errors.Is(err, finding.ErrDefinitionLoad) {
//	    // the scan could not start
//	}
package finding
