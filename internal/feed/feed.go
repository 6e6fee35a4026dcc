// Package feed reads zone definitions and incident feeds and replays them
// into a backlog queue.
package feed

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"fireops-sim/internal/incident"
	"fireops-sim/internal/logging"
	"fireops-sim/internal/queue"
)

// ErrNoZones is returned when a zone file holds no zone rows.
var ErrNoZones = errors.New("no zones defined")

// ParseZones reads CSV rows of the form ZoneID,ZoneStart,ZoneEnd where the
// points are written as (x;y). A header row is skipped.
func ParseZones(r io.Reader) ([]incident.Zone, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	var zones []incident.Zone
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read zones: %w", err)
		}
		line++
		if len(rec) < 3 {
			return nil, fmt.Errorf("zone row %d: expected 3 fields, got %d", line, len(rec))
		}
		id, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("zone row %d: bad id %q", line, rec[0])
		}
		start, err := ParsePoint(rec[1])
		if err != nil {
			return nil, fmt.Errorf("zone %d start: %w", id, err)
		}
		end, err := ParsePoint(rec[2])
		if err != nil {
			return nil, fmt.Errorf("zone %d end: %w", id, err)
		}
		zones = append(zones, incident.Zone{ID: id, Start: start, End: end})
	}
	if len(zones) == 0 {
		return nil, ErrNoZones
	}
	return zones, nil
}

// LoadZones parses the zone file at path.
func LoadZones(path string) ([]incident.Zone, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseZones(f)
}

// ParsePoint parses "(x;y)".
func ParsePoint(s string) (incident.Point, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	xs, ys, ok := strings.Cut(s, ";")
	if !ok {
		return incident.Point{}, fmt.Errorf("bad point %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return incident.Point{}, fmt.Errorf("bad x in %q", s)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return incident.Point{}, fmt.Errorf("bad y in %q", s)
	}
	return incident.Point{X: x, Y: y}, nil
}

// ParseClock parses HH:MM:SS into an offset since midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, fmt.Errorf("bad time %q", s)
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

// ParseIncidents reads lines "HH:MM:SS <zone> <type> <severity>". Header and
// malformed lines, and lines naming an unknown zone, are skipped with a
// warning on the context logger. skipped counts them.
func ParseIncidents(ctx context.Context, r io.Reader, zones []incident.Zone) (incs []incident.Incident, skipped int, err error) {
	log := logging.FromContext(ctx)
	byID := make(map[int]incident.Zone, len(zones))
	for _, z := range zones {
		byID[z.ID] = z
	}
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		inc, perr := parseIncident(text, byID)
		if perr != nil {
			if n == 1 && strings.HasPrefix(strings.ToLower(text), "time") {
				continue
			}
			log.Warn("skipping incident line", "line", n, "text", text, "err", perr)
			skipped++
			continue
		}
		incs = append(incs, inc)
	}
	if err := sc.Err(); err != nil {
		return incs, skipped, fmt.Errorf("read incidents: %w", err)
	}
	return incs, skipped, nil
}

func parseIncident(text string, zones map[int]incident.Zone) (incident.Incident, error) {
	f := strings.Fields(text)
	if len(f) != 4 {
		return incident.Incident{}, fmt.Errorf("expected 4 fields, got %d", len(f))
	}
	at, err := ParseClock(f[0])
	if err != nil {
		return incident.Incident{}, err
	}
	zid, err := strconv.Atoi(f[1])
	if err != nil {
		return incident.Incident{}, fmt.Errorf("bad zone %q", f[1])
	}
	zone, ok := zones[zid]
	if !ok {
		return incident.Incident{}, fmt.Errorf("unknown zone %d", zid)
	}
	typ, err := incident.ParseEventType(f[2])
	if err != nil {
		return incident.Incident{}, err
	}
	sev, err := incident.ParseSeverity(f[3])
	if err != nil {
		return incident.Incident{}, err
	}
	return incident.New(at, zone, typ, sev), nil
}

// LoadIncidents parses the incident file at path.
func LoadIncidents(ctx context.Context, path string, zones []incident.Zone) ([]incident.Incident, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return ParseIncidents(ctx, f, zones)
}

// Replay pushes incidents onto backlog in order. With speed > 0 it waits
// between incidents for the gap in detection time divided by speed.
// It returns the number pushed and ctx's error if interrupted.
func Replay(ctx context.Context, incs []incident.Incident, backlog *queue.Queue[incident.Incident], speed float64) (int, error) {
	var prev time.Duration
	for i, inc := range incs {
		if i > 0 && speed > 0 {
			gap := time.Duration(float64(inc.Time-prev) / speed)
			if gap > 0 {
				t := time.NewTimer(gap)
				select {
				case <-t.C:
				case <-ctx.Done():
					t.Stop()
					return i, ctx.Err()
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return i, err
		}
		backlog.Push(inc)
		prev = inc.Time
	}
	return len(incs), nil
}
