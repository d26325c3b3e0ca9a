package models

// AllocationStatus tells whether a shorten request minted a new code or reused one
type AllocationStatus string

const (
	// StatusCreated marks a freshly minted code
	StatusCreated AllocationStatus = "created"

	// StatusReused marks a dedup hit on an existing live code
	StatusReused AllocationStatus = "reused"
)

// String returns the string representation of the status
func (s AllocationStatus) String() string {
	return string(s)
}

// Allocation is the result of a successful shorten request
type Allocation struct {
	Code   string
	Path   string
	Status AllocationStatus
}

// Created reports whether the allocation minted a new code
func (a Allocation) Created() bool {
	return a.Status == StatusCreated
}

// RedirectPrefix is the route under which codes are resolved
const RedirectPrefix = "/s/"

// ShortURL returns the same-origin short link for code
func ShortURL(code string) string {
	return RedirectPrefix + code
}
