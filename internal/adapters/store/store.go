// Package store persists risk records and the user profiles they belong to.
package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/mikey/llm-mail-triage/internal/core"
)

// Store is a record store that also holds profiles
type Store interface {
	core.RecordStore
	core.ProfileStore
	Close() error
}

// now returns the creation timestamp for new rows, at the precision every backend keeps
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func encodeIndicators(indicators []string) ([]byte, error) {
	if indicators == nil {
		indicators = []string{}
	}
	data, err := json.Marshal(indicators)
	if err != nil {
		return nil, fmt.Errorf("failed to encode threat indicators: %w", err)
	}
	return data, nil
}

func decodeIndicators(data []byte) ([]string, error) {
	indicators := []string{}
	if len(data) == 0 {
		return indicators, nil
	}
	if err := json.Unmarshal(data, &indicators); err != nil {
		return nil, fmt.Errorf("failed to decode threat indicators: %w", err)
	}
	if indicators == nil {
		indicators = []string{}
	}
	return indicators, nil
}

// sortNewestFirst orders records by received date, then creation time, descending
func sortNewestFirst(records []*core.RiskRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].ReceivedDate.Equal(records[j].ReceivedDate) {
			return records[i].ReceivedDate.After(records[j].ReceivedDate)
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
