package fields_test

import (
	"testing"
	"time"

	"sidecar-sync/core/luatable"
	"sidecar-sync/feature/sidecar/fields"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFractionToPercent(t *testing.T) {
	cases := []struct {
		name string
		in   luatable.Value
		want int64
	}{
		{"simple", luatable.Float(0.73), 73},
		{"rounds up", luatable.Float(0.456), 46},
		{"rounds down", luatable.Float(0.4549), 45},
		{"zero", luatable.Float(0), 0},
		{"done", luatable.Float(1.0), 100},
		{"integer input", luatable.Int(1), 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := fields.FractionToPercent(tc.in)
			require.NoError(t, err)
			assert.Equal(t, fields.KindInteger, got.Kind)
			assert.Equal(t, tc.want, got.Int)
		})
	}

	_, err := fields.FractionToPercent(luatable.String("0.5"))
	assert.Error(t, err)
}

func TestRatingScale(t *testing.T) {
	got, err := fields.RatingScale(luatable.Int(4))
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.Int)

	got, err = fields.RatingScale(luatable.Float(2.5))
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Int)

	_, err = fields.RatingScale(luatable.String("four"))
	assert.Error(t, err)
}

func TestStatusIsComplete(t *testing.T) {
	got, err := fields.StatusIsComplete(luatable.String("complete"))
	require.NoError(t, err)
	assert.True(t, got.Bool)

	got, err = fields.StatusIsComplete(luatable.String("reading"))
	require.NoError(t, err)
	assert.False(t, got.Bool)

	_, err = fields.StatusIsComplete(luatable.Int(1))
	assert.Error(t, err)
}

func TestDocumentToJSONDropsCalculated(t *testing.T) {
	root := luatable.NewTable()
	root.SetStr("percent_finished", luatable.Float(0.5))
	calc := luatable.NewTable()
	calc.SetStr("date_synced", luatable.String("2024-03-10 12:00:00"))
	root.SetStr("calculated", luatable.TableVal(calc))

	got, err := fields.DocumentToJSON(luatable.TableVal(root))
	require.NoError(t, err)
	assert.Contains(t, got.Text, "percent_finished")
	assert.NotContains(t, got.Text, "calculated")

	// The source table is not mutated.
	_, still := root.GetStr("calculated")
	assert.True(t, still)
}

func TestParseTime(t *testing.T) {
	got, err := fields.ParseTime("2024-03-08 21:14:05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 8, 21, 14, 5, 0, time.UTC), got)

	got, err = fields.ParseTime("2024-03-08T21:14:05Z")
	require.NoError(t, err)
	assert.Equal(t, 2024, got.Year())

	_, err = fields.ParseTime("last tuesday")
	assert.Error(t, err)
}
