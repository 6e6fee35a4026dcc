package incident

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType classifies what raised an incident.
type EventType string

const (
	FireDetected EventType = "FIRE_DETECTED"
	DroneRequest EventType = "DRONE_REQUEST"
)

// Severity is the urgency of an incident. OUT marks a resolved fire.
type Severity string

const (
	SeverityHigh     Severity = "HIGH"
	SeverityModerate Severity = "MODERATE"
	SeverityLow      Severity = "LOW"
	SeverityOut      Severity = "OUT"
)

// RequiredVolume returns the extinguishing volume a severity needs.
func (s Severity) RequiredVolume() float64 {
	switch s {
	case SeverityHigh:
		return 15
	case SeverityModerate:
		return 10
	case SeverityLow:
		return 5
	default:
		return 0
	}
}

// ParseSeverity accepts the feed spellings (High, moderate, OUT...).
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HIGH":
		return SeverityHigh, nil
	case "MODERATE", "MEDIUM":
		return SeverityModerate, nil
	case "LOW":
		return SeverityLow, nil
	case "OUT", "RESOLVED":
		return SeverityOut, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// ParseEventType accepts FIRE_DETECTED and DRONE_REQUEST in any case.
func ParseEventType(s string) (EventType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(FireDetected):
		return FireDetected, nil
	case string(DroneRequest):
		return DroneRequest, nil
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// Point is a coordinate in the simulation plane (meters).
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Zone is a rectangular area an incident can be reported in.
type Zone struct {
	ID    int   `json:"id" yaml:"id"`
	Start Point `json:"start" yaml:"start"`
	End   Point `json:"end" yaml:"end"`
}

// Center returns the midpoint of the zone.
func (z Zone) Center() Point {
	return Point{X: (z.Start.X + z.End.X) / 2, Y: (z.Start.Y + z.End.Y) / 2}
}

// Distance estimates the flight distance from the base at the origin.
// It is a straight-line estimate over the zone's (Start.X, End.Y) corner, not a path.
func (z Zone) Distance() float64 {
	return math.Hypot(z.Start.X, z.End.Y)
}

// Incident is one detected event requiring a drone.
type Incident struct {
	ID       string        `json:"id"`
	Time     time.Duration `json:"time"` // offset since midnight
	ZoneID   int           `json:"zone_id"`
	Zone     Zone          `json:"zone"`
	Type     EventType     `json:"type"`
	Severity Severity      `json:"severity"`
}

// New builds an incident with a fresh ID.
func New(at time.Duration, zone Zone, typ EventType, sev Severity) Incident {
	return Incident{
		ID:       uuid.New().String(),
		Time:     at,
		ZoneID:   zone.ID,
		Zone:     zone,
		Type:     typ,
		Severity: sev,
	}
}

// Resolve returns a copy marked as put out.
func (i Incident) Resolve() Incident {
	i.Severity = SeverityOut
	return i
}

// Resolved reports whether the incident has been handled.
func (i Incident) Resolved() bool { return i.Severity == SeverityOut }

// Clock formats the detection time as HH:MM:SS.
func (i Incident) Clock() string {
	t := time.Time{}.Add(i.Time)
	return t.Format("15:04:05")
}

func (i Incident) String() string {
	return fmt.Sprintf("%s zone=%d %s %s", i.Clock(), i.ZoneID, i.Type, i.Severity)
}

// ResponseKind tags the outcome an agent reports.
type ResponseKind string

const (
	ResponseSuccess        ResponseKind = "success"
	ResponseFailure        ResponseKind = "failure"
	ResponseRefillRequired ResponseKind = "refill_required"
)

// Response is emitted by a drone when a cycle completes or faults.
type Response struct {
	ClusterID string       `json:"cluster_id,omitempty"`
	Incident  Incident     `json:"incident"`
	DroneID   string       `json:"drone_id"`
	Kind      ResponseKind `json:"kind"`
	Timestamp time.Time    `json:"ts"`
}

// FaultKind names a simulated drone malfunction.
type FaultKind string

const (
	FaultStuckInFlight     FaultKind = "stuck_in_flight"
	FaultMechanismJam      FaultKind = "mechanism_jam"
	FaultCommunicationLoss FaultKind = "communication_loss"
)

// FaultKinds lists every supported fault kind.
var FaultKinds = []FaultKind{FaultStuckInFlight, FaultMechanismJam, FaultCommunicationLoss}

// ParseFaultKind validates a configured fault kind.
func ParseFaultKind(s string) (FaultKind, error) {
	for _, k := range FaultKinds {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown fault kind %q", s)
}

// FaultRecord is a diagnostic record of a fault; it never drives control flow.
type FaultRecord struct {
	ClusterID string    `json:"cluster_id,omitempty"`
	Timestamp time.Time `json:"ts"`
	Kind      FaultKind `json:"kind"`
	DroneID   string    `json:"drone_id"`
	Incident  Incident  `json:"incident"`
}

// Marshal encodes the record into its transport form.
func (f FaultRecord) Marshal() ([]byte, error) {
	return json.Marshal(f)
}

// UnmarshalFault rebuilds a fault record from Marshal output.
func UnmarshalFault(b []byte) (FaultRecord, error) {
	var f FaultRecord
	if err := json.Unmarshal(b, &f); err != nil {
		return FaultRecord{}, fmt.Errorf("decode fault record: %w", err)
	}
	return f, nil
}
