// Package universe loads the tradable symbol universe from a reference CSV.
package universe

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/nicholaslpollard/ChartMonitor/internal/domain"
)

// Load reads instruments from a CSV file with a header row and symbol,name
// columns. Symbols are uppercased and deduplicated keeping first-seen order.
// The benchmark symbol is appended when the file does not already carry it,
// so every run covers it.
func Load(path, benchmark string) ([]domain.Instrument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening universe %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading universe %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(records))
	instruments := make([]domain.Instrument, 0, len(records))
	for i, row := range records {
		if i == 0 || len(row) == 0 {
			continue // header or blank
		}
		sym := strings.ToUpper(strings.TrimSpace(row[0]))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}

		name := ""
		if len(row) > 1 {
			name = strings.TrimSpace(row[1])
		}
		instruments = append(instruments, domain.Instrument{Symbol: sym, Name: name})
	}

	benchmark = strings.ToUpper(strings.TrimSpace(benchmark))
	if benchmark != "" {
		if _, ok := seen[benchmark]; !ok {
			instruments = append(instruments, domain.Instrument{Symbol: benchmark})
		}
	}
	return instruments, nil
}
