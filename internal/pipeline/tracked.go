package pipeline

import "nsiwatch/internal/notify"

// Tracked is one dictionary the update pipeline watches. Suppressed
// entries (Notify false) still get their versions persisted, they just
// never produce a notification.
type Tracked struct {
	OID    string
	Name   string
	Style  notify.Style
	Notify bool
}

// trackedDictionaries is the static watch list. Order is the check
// order on every scheduled cycle.
var trackedDictionaries = []Tracked{
	{OID: "1.2.643.5.1.13.13.11.1520", Name: "Electronic document catalog", Style: notify.StyleImportant, Notify: true},
	{OID: "1.2.643.5.1.13.13.99.2.654", Name: "Document exchange rules", Style: notify.StyleImportant, Notify: true},
	{OID: "1.2.643.5.1.13.13.11.1522", Name: "Structured document sections", Style: notify.StyleDefault, Notify: true},
	{OID: "1.2.643.5.1.13.13.11.1380", Name: "Medical organization registry", Style: notify.StyleMinor, Notify: true},
	{OID: "1.2.643.5.1.13.13.11.1118", Name: "Position classifier", Style: notify.StyleDefault, Notify: true},
	{OID: "1.2.643.5.1.13.13.99.2.826", Name: "Internal validation codes", Style: notify.StyleDefault, Notify: false},
}

// TrackedDictionaries returns the watch list in check order.
func TrackedDictionaries() []Tracked {
	out := make([]Tracked, len(trackedDictionaries))
	copy(out, trackedDictionaries)
	return out
}

// LookupTracked finds a watch-list entry by dictionary OID.
func LookupTracked(oid string) (Tracked, bool) {
	for _, t := range trackedDictionaries {
		if t.OID == oid {
			return t, true
		}
	}
	return Tracked{}, false
}
