package domain

// FetchStatus is the settlement state of one source fetch.
type FetchStatus string

const (
	FetchStatusPending   FetchStatus = "pending"
	FetchStatusFulfilled FetchStatus = "fulfilled"
	FetchStatusRejected  FetchStatus = "rejected"
)

// Terminal reports whether the fetch has settled.
func (s FetchStatus) Terminal() bool {
	return s == FetchStatusFulfilled || s == FetchStatusRejected
}

// LoadState is the state of an asynchronous load that can be refreshed.
type LoadState string

const (
	LoadStateLoading LoadState = "loading"
	LoadStateError   LoadState = "error"
	LoadStateSuccess LoadState = "success"
)

// SourceList is the outcome of loading one source id list.
type SourceList struct {
	State    LoadState
	Locators map[string]string
	Err      error
}

// LoadingSourceList returns a list still being loaded.
func LoadingSourceList() SourceList {
	return SourceList{State: LoadStateLoading}
}

// Settled reports whether the list load has finished, successfully or not.
func (l SourceList) Settled() bool {
	return l.State == LoadStateSuccess || l.State == LoadStateError
}

// CurrentLocators returns the locators to reconcile against. Anything but a
// successful load yields an empty set.
func (l SourceList) CurrentLocators() map[string]string {
	if l.State != LoadStateSuccess || l.Locators == nil {
		return map[string]string{}
	}
	return l.Locators
}
