package matching

// DefaultInteractionWindow is how many recent engagement events are kept per
// session.
const DefaultInteractionWindow = 11

// InteractionLog is an ordered list of destination IDs the user engaged with,
// oldest first.
type InteractionLog []string

// Append returns a new log with id added at the end, dropping the oldest
// entries so the result holds at most window events. The receiver is left
// untouched. A non-positive window means DefaultInteractionWindow.
func (l InteractionLog) Append(id string, window int) InteractionLog {
	if window <= 0 {
		window = DefaultInteractionWindow
	}
	start := 0
	if len(l) >= window {
		start = len(l) - window + 1
	}
	out := make(InteractionLog, 0, len(l)-start+1)
	out = append(out, l[start:]...)
	return append(out, id)
}

// Count returns how many times id occurs in the log.
func (l InteractionLog) Count(id string) int {
	n := 0
	for _, v := range l {
		if v == id {
			n++
		}
	}
	return n
}

func (l InteractionLog) counts() map[string]int {
	m := make(map[string]int, len(l))
	for _, v := range l {
		m[v]++
	}
	return m
}
