package core

// LookupStatus tags the outcome of a store lookup.
type LookupStatus int

const (
	LookupFailed LookupStatus = iota
	LookupNotFound
	LookupFound
)

func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// LookupResult is what a credential store returns for a token lookup.
// Record is only meaningful when Status is LookupFound and Err only when it
// is LookupFailed. The zero value is a failure so that an unset result
// never authenticates anybody.
type LookupResult struct {
	Status LookupStatus
	Record SessionRecord
	Err    error
}

// Found wraps a record that exists in the store
func Found(record SessionRecord) LookupResult {
	return LookupResult{Status: LookupFound, Record: record}
}

// NotFound reports that no record matches the token
func NotFound() LookupResult {
	return LookupResult{Status: LookupNotFound}
}

// Failed reports an infrastructure failure while looking up a token
func Failed(err error) LookupResult {
	if err == nil {
		err = ErrStoreOperationFailed
	}
	return LookupResult{Status: LookupFailed, Err: err}
}
