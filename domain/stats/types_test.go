package stats

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegressionStatisticsJSON_ErrorRate(t *testing.T) {
	zero := 0.0
	tests := []struct {
		name    string
		rate    *float64
		present bool
	}{
		{"absent without theoretical slope", nil, false},
		{"zero rate still reported", &zero, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(RegressionStatistics{Slope: 2, DataPoints: 5, ErrorRatePercent: tt.rate})
			require.NoError(t, err)

			var fields map[string]any
			require.NoError(t, json.Unmarshal(raw, &fields))
			_, ok := fields["error_rate_percent"]
			assert.Equal(t, tt.present, ok, string(raw))
		})
	}
}

func TestRangeJSON(t *testing.T) {
	raw, err := json.Marshal(Range{Min: 1.5, Max: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5, 3]`, string(raw))

	var r Range
	require.NoError(t, json.Unmarshal(raw, &r))
	assert.Equal(t, Range{Min: 1.5, Max: 3}, r)
	assert.Error(t, json.Unmarshal([]byte(`{"min":1}`), &r))
}
