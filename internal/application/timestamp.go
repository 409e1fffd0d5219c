package application

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the fixed timestamp format both webhook sources use.
const TimeLayout = "2006-01-02T15:04:05Z"

// Timestamp is a webhook timestamp that only accepts the exact TimeLayout
// format. A malformed value fails decoding, which surfaces as a validation
// error rather than a silently defaulted time.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := time.Parse(TimeLayout, s)
	if err != nil {
		return fmt.Errorf("timestamp %q does not match %s", s, TimeLayout)
	}
	t.Time = parsed
	return nil
}

// NullableTimestamp distinguishes a key that is absent from one that is
// explicitly null. Travis requires finished_at to be present even while a
// build is still running, in which case its value is null.
type NullableTimestamp struct {
	Present bool
	Valid   bool
	Time    time.Time
}

func (t *NullableTimestamp) UnmarshalJSON(data []byte) error {
	t.Present = true
	if string(data) == "null" {
		return nil
	}

	var ts Timestamp
	if err := json.Unmarshal(data, &ts); err != nil {
		return err
	}
	t.Valid = true
	t.Time = ts.Time
	return nil
}

// Ptr returns the time as a *time.Time, nil when the value was null.
func (t NullableTimestamp) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	out := t.Time
	return &out
}
