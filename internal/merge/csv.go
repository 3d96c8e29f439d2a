package merge

import (
	"encoding/csv"
	"fmt"
	"os"
)

// StatsRow is one worker's per-tick statistics history, written
// alongside its image tile (§4.7).
type StatsRow struct {
	Tick     int
	Produced uint64
	Killed   uint64
	Queued   uint64
	Progress float32
}

// WriteStatsCSV writes a worker's statistics history to path, mirroring
// the corpus's own encoding/csv usage (sudorandom-bgp-stream's engine).
func WriteStatsCSV(path string, rows []StatsRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"tick", "produced", "killed", "queued", "progress"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			fmt.Sprintf("%d", row.Tick),
			fmt.Sprintf("%d", row.Produced),
			fmt.Sprintf("%d", row.Killed),
			fmt.Sprintf("%d", row.Queued),
			fmt.Sprintf("%g", row.Progress),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
