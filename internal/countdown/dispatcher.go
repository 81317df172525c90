package countdown

// Edge identifies an edge-triggered callback.
type Edge int

const (
	EdgeStart Edge = iota
	EdgeUrgent
	EdgeCritical
	EdgeExpire
)

var edgeOrder = [...]Edge{EdgeStart, EdgeUrgent, EdgeCritical, EdgeExpire}

var edgeNames = [...]string{
	EdgeStart:    "start",
	EdgeUrgent:   "urgent",
	EdgeCritical: "critical",
	EdgeExpire:   "expire",
}

// String implements fmt.Stringer.
func (e Edge) String() string {
	if e < EdgeStart || e > EdgeExpire {
		return "unknown"
	}
	return edgeNames[e]
}

// Threshold returns the state whose arrival fires the edge.
func (e Edge) Threshold() CountdownState {
	switch e {
	case EdgeStart:
		return Running
	case EdgeUrgent:
		return Urgent
	case EdgeCritical:
		return Critical
	default:
		return Expired
	}
}

// CallbackDispatcher remembers the highest severity observed for one
// subscription and which edges have fired. It fires each edge at most once
// and catches up on every edge skipped by a coarse poll, in severity order.
type CallbackDispatcher struct {
	highest          CountdownState
	observed         bool
	fired            [len(edgeOrder)]bool
	retroactiveStart bool
}

// NewCallbackDispatcher returns a dispatcher with no prior observation. With
// retroactiveStart set, a first observation past NotStarted still fires Start.
func NewCallbackDispatcher(retroactiveStart bool) *CallbackDispatcher {
	return &CallbackDispatcher{retroactiveStart: retroactiveStart}
}

// Observe records state and returns the edges to fire now, in order.
func (d *CallbackDispatcher) Observe(state CountdownState) []Edge {
	if !d.observed {
		d.observed = true
		d.highest = state
		if state > NotStarted && !d.retroactiveStart {
			// the window opened before anyone was watching
			d.fired[EdgeStart] = true
		}
	} else if state > d.highest {
		d.highest = state
	}

	var edges []Edge
	for _, edge := range edgeOrder {
		if d.fired[edge] || d.highest < edge.Threshold() {
			continue
		}
		d.fired[edge] = true
		edges = append(edges, edge)
	}
	return edges
}

// Highest returns the most severe state observed so far.
func (d *CallbackDispatcher) Highest() CountdownState { return d.highest }

// Fired reports whether edge has already fired.
func (d *CallbackDispatcher) Fired(edge Edge) bool {
	if edge < EdgeStart || edge > EdgeExpire {
		return false
	}
	return d.fired[edge]
}

// Terminal reports whether Expire has fired.
func (d *CallbackDispatcher) Terminal() bool {
	return d.fired[EdgeExpire]
}
