// Package session holds the per-admin view state of the orders table.
package session

// State is the view state of one admin session. At most one order is
// expanded at a time; an empty ExpandedOrderID means every row is collapsed.
type State struct {
	ExpandedOrderID string `json:"expanded_order_id,omitempty"`
	Loading         bool   `json:"loading"`
	Error           string `json:"error,omitempty"`
}

// NewState returns the initial state: nothing expanded, not loading.
func NewState() *State {
	return &State{}
}

// Toggle expands orderID, collapsing any other row, or collapses it if it is
// already the expanded one.
func (s *State) Toggle(orderID string) {
	if s.ExpandedOrderID == orderID {
		s.ExpandedOrderID = ""
		return
	}

	s.ExpandedOrderID = orderID
}

// IsExpanded reports whether orderID is the expanded row
func (s *State) IsExpanded(orderID string) bool {
	return orderID != "" && s.ExpandedOrderID == orderID
}

// BeginFetch starts a fetch cycle, clearing the previous cycle's error.
func (s *State) BeginFetch() {
	s.Loading = true
	s.Error = ""
}

// FinishFetch ends a fetch cycle. On failure errMsg is kept for display. On
// success the expanded row is dropped if that order is no longer listed.
func (s *State) FinishFetch(errMsg string, orderIDs []string) {
	s.Loading = false
	s.Error = errMsg

	if errMsg != "" || s.ExpandedOrderID == "" {
		return
	}

	for _, id := range orderIDs {
		if id == s.ExpandedOrderID {
			return
		}
	}

	s.ExpandedOrderID = ""
}
