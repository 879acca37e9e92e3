// Package overlay owns everything a single embedded widget needs: the
// per-ticker session (fetcher + price history), the presentation state
// machine, and the three layout renderers.
package overlay

import (
	"github.com/oddsboard/oddsboard/internal/domain"
	"github.com/oddsboard/oddsboard/internal/feed"
)

// ViewState is the fully derived presentation state handed to a renderer or
// serialized for the state endpoint and WebSocket push.
//
// The machine has three phases: loading (no snapshot, request in flight),
// error (no snapshot, last poll failed), and ready (snapshot present). Stale
// is a flag orthogonal to ready, not a fourth phase: stale data renders
// through the ready path with a badge. Once ready has been reached the phase
// never regresses to error; later failures only set Stale.
type ViewState struct {
	Phase    feed.Phase               `json:"phase"`
	Stale    bool                     `json:"stale"`
	Error    string                   `json:"error,omitempty"`
	Snapshot *domain.CombinedSnapshot `json:"snapshot"`
	YesDelta *int                     `json:"yesDelta"`
	NoDelta  *int                     `json:"noDelta"`
}

// BuildViewState merges the fetcher's state with the history's deltas.
func BuildViewState(st feed.State, hist *feed.History) ViewState {
	view := ViewState{
		Phase:    st.Phase,
		Stale:    st.Stale,
		Error:    st.Error,
		Snapshot: st.Snapshot,
	}
	if hist != nil {
		view.YesDelta, view.NoDelta = hist.Deltas()
	}
	return view
}

// Settled reports whether the snapshot shows a settled market, which the
// renderers surface as a result badge instead of live prices.
func (v ViewState) Settled() bool {
	return v.Snapshot != nil && v.Snapshot.Market.Status == domain.MarketStatusSettled
}
