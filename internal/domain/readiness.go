package domain

// IsReady reports whether every source list has loaded successfully and no
// fetch for any current source id is still pending. A failed list counts as
// not ready.
func IsReady(lists []SourceList, statuses ...map[string]FetchStatus) bool {
	for _, list := range lists {
		if list.State != LoadStateSuccess {
			return false
		}
	}
	for _, byID := range statuses {
		for _, status := range byID {
			if !status.Terminal() {
				return false
			}
		}
	}
	return true
}
