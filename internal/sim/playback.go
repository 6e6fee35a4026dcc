package sim

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"fireops-sim/internal/incident"
)

// ReplayLog replays responses from r to writer. A speed >0 accelerates playback.
// If speed <= 0, no artificial delay is inserted. It returns the number of
// responses replayed.
func ReplayLog(ctx context.Context, r io.Reader, writer ResponseWriter, speed float64) (int, error) {
	dec := json.NewDecoder(r)
	var prev time.Time
	n := 0
	for {
		var resp incident.Response
		if err := dec.Decode(&resp); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err
		}
		if !prev.IsZero() && speed > 0 {
			diff := resp.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				t := time.NewTimer(diff)
				select {
				case <-t.C:
				case <-ctx.Done():
					t.Stop()
					return n, ctx.Err()
				}
			}
		}
		if err := writer.WriteResponse(resp); err != nil {
			return n, err
		}
		n++
		prev = resp.Timestamp
	}
}

// ReplayLogFile opens a file and replays its responses.
func ReplayLogFile(ctx context.Context, path string, writer ResponseWriter, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReplayLog(ctx, f, writer, speed)
}
