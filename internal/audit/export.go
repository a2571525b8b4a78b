package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// CSVExporter renders audit entries as a CSV download for the dashboard.
type CSVExporter struct{}

// WriteCSV encodes the entries, one row per entry.
func (CSVExporter) WriteCSV(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	header := []string{"occurred_at", "actor_id", "property_id", "action", "resource", "resource_id", "details"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("audit: write csv header: %w", err)
	}
	for _, entry := range entries {
		propertyID := ""
		if entry.PropertyID != nil {
			propertyID = strconv.FormatInt(*entry.PropertyID, 10)
		}
		details := ""
		if len(entry.Meta) > 0 {
			payload, err := json.Marshal(entry.Meta)
			if err != nil {
				return nil, fmt.Errorf("audit: encode details: %w", err)
			}
			details = string(payload)
		}
		row := []string{
			entry.At.UTC().Format(time.RFC3339),
			strconv.FormatInt(entry.ActorID, 10),
			propertyID,
			entry.Action,
			entry.Resource,
			entry.ResourceID,
			details,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("audit: write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("audit: flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
