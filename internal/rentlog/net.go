package rentlog

import "sort"

// Anomaly marks an event that drove an ISBN's running net count below zero,
// i.e. a RETURN without a matching earlier RENT.
type Anomaly struct {
	ISBN  string `json:"isbn"`
	Index int    `json:"index"`
	Net   int    `json:"net"`
}

// Net counts RENT as +1 and RETURN as -1 per ISBN.
func Net(events []Event) map[string]int {
	net := make(map[string]int)

	for _, e := range events {
		switch e.Kind {
		case Rent:
			net[e.ISBN]++
		case Return:
			net[e.ISBN]--
		}
	}

	return net
}

// Holdings returns the sorted ISBNs with a positive net count together with
// every point where a running count went negative.
func Holdings(events []Event) ([]string, []Anomaly) {
	var anomalies []Anomaly

	running := make(map[string]int)

	for i, e := range events {
		switch e.Kind {
		case Rent:
			running[e.ISBN]++
		case Return:
			running[e.ISBN]--
		}

		if n := running[e.ISBN]; n < 0 {
			anomalies = append(anomalies, Anomaly{ISBN: e.ISBN, Index: i, Net: n})
		}
	}

	held := make([]string, 0, len(running))

	for isbn, n := range running {
		if n > 0 {
			held = append(held, isbn)
		}
	}

	sort.Strings(held)

	return held, anomalies
}
