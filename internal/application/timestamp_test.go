package application

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_Unmarshal(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2015-05-05T23:40:27Z"`), &ts))
	assert.Equal(t, time.Date(2015, 5, 5, 23, 40, 27, 0, time.UTC), ts.Time)
}

func TestTimestamp_RejectsOtherLayouts(t *testing.T) {
	malformed := []string{
		`"2015-05-05 23:40:27"`,
		`"2015-05-05T23:40:27+02:00"`,
		`"2015-05-05"`,
		`1430869227`,
		`null`,
	}
	for _, raw := range malformed {
		var ts Timestamp
		assert.Error(t, json.Unmarshal([]byte(raw), &ts), "input %s", raw)
	}
}

func TestNullableTimestamp(t *testing.T) {
	type wrapper struct {
		FinishedAt NullableTimestamp `json:"finished_at"`
	}

	var absent wrapper
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	assert.False(t, absent.FinishedAt.Present)
	assert.Nil(t, absent.FinishedAt.Ptr())

	var null wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"finished_at": null}`), &null))
	assert.True(t, null.FinishedAt.Present)
	assert.False(t, null.FinishedAt.Valid)
	assert.Nil(t, null.FinishedAt.Ptr())

	var set wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"finished_at": "2015-05-06T00:20:00Z"}`), &set))
	assert.True(t, set.FinishedAt.Present)
	assert.True(t, set.FinishedAt.Valid)
	require.NotNil(t, set.FinishedAt.Ptr())
	assert.Equal(t, time.Date(2015, 5, 6, 0, 20, 0, 0, time.UTC), *set.FinishedAt.Ptr())

	var bad wrapper
	assert.Error(t, json.Unmarshal([]byte(`{"finished_at": "yesterday"}`), &bad))
}
