package sim

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// TurnaroundStats describes completed cycle lengths in time units.
type TurnaroundStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
	Max    float64 `json:"max"`
}

// DroneSummary aggregates the work of one drone.
type DroneSummary struct {
	ID         string `json:"id"`
	Fleet      string `json:"fleet"`
	Tasks      int    `json:"tasks"`
	Faults     int    `json:"faults"`
	TravelLegs int    `json:"travel_legs"`
	BusyUnits  int    `json:"busy_units"`
}

// Summary is the end-of-run report. Dropped counts incidents submitted after
// shutdown, claimed incidents that could not be handed back, and incidents
// left in the backlog or dispatcher slot when the run ended. Outstanding
// counts the rest that never reached a final response, including incidents
// the feed had not delivered yet.
type Summary struct {
	ClusterID      string          `json:"cluster_id"`
	Incidents      int             `json:"incidents"`
	Submitted      int             `json:"submitted"`
	Resolved       int             `json:"resolved"`
	Failed         int             `json:"failed"`
	Retried        int             `json:"retried"`
	RefillRequired int             `json:"refill_required"`
	Dropped        int             `json:"dropped"`
	Outstanding    int             `json:"outstanding"`
	Faults         int             `json:"faults"`
	Elapsed        time.Duration   `json:"elapsed"`
	Turnaround     TurnaroundStats `json:"turnaround"`
	Drones         []DroneSummary  `json:"drones"`
}

// Summary reports counters, per-drone work and turnaround statistics.
func (s *Simulator) Summary() Summary {
	snaps := s.Drones()
	s.mu.Lock()
	sum := Summary{
		ClusterID:      s.clusterID,
		Incidents:      len(s.incidents),
		Submitted:      s.submitted,
		Resolved:       s.resolved,
		Failed:         s.failed,
		Retried:        s.retried,
		RefillRequired: s.refills,
		Dropped:        s.dropped,
		Outstanding:    s.outstanding,
		Turnaround:     turnaroundStats(s.turnaround),
	}
	switch {
	case s.startedAt.IsZero():
	case s.finishedAt.IsZero():
		sum.Elapsed = s.now().Sub(s.startedAt)
	default:
		sum.Elapsed = s.finishedAt.Sub(s.startedAt)
	}
	s.mu.Unlock()

	for _, snap := range snaps {
		sum.Faults += snap.Faults
		sum.Drones = append(sum.Drones, DroneSummary{
			ID:         snap.ID,
			Fleet:      snap.Fleet,
			Tasks:      snap.Tasks,
			Faults:     snap.Faults,
			TravelLegs: snap.TravelLegs,
			BusyUnits:  snap.BusyUnits,
		})
	}
	return sum
}

func turnaroundStats(samples []float64) TurnaroundStats {
	if len(samples) == 0 {
		return TurnaroundStats{}
	}
	xs := append([]float64(nil), samples...)
	sort.Float64s(xs)
	st := TurnaroundStats{
		Count: len(xs),
		Mean:  stat.Mean(xs, nil),
		P50:   stat.Quantile(0.5, stat.Empirical, xs, nil),
		P90:   stat.Quantile(0.9, stat.Empirical, xs, nil),
		Max:   xs[len(xs)-1],
	}
	if len(xs) > 1 {
		st.StdDev = stat.StdDev(xs, nil)
	}
	if math.IsNaN(st.StdDev) {
		st.StdDev = 0
	}
	return st
}
