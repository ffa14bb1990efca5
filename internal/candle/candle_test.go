package candle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(minOffset int) time.Time {
	return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).Add(time.Duration(minOffset) * time.Minute)
}

func TestNewRejectsInvalidOHLC(t *testing.T) {
	_, err := New(ts(0), 2000, 1990, 1995, 1998, 0, "15m")
	require.Error(t, err)

	_, err = New(ts(0), 2000, 2005, 1995, 1998, 0, "15m")
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := Candle{
		Timestamp: ts(0),
		Open:      2000, High: 2010, Low: 1990, Close: 2005,
		Volume: 100, Timeframe: "15m",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Candle)
	}{
		{"zero timestamp", func(c *Candle) { c.Timestamp = time.Time{} }},
		{"non-positive price", func(c *Candle) { c.Close = 0 }},
		{"high below low", func(c *Candle) { c.High = 1980 }},
		{"open above high", func(c *Candle) { c.Open = 2020 }},
		{"close below low", func(c *Candle) { c.Close = 1980 }},
		{"negative volume", func(c *Candle) { c.Volume = -1 }},
		{"empty timeframe", func(c *Candle) { c.Timeframe = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestDirection(t *testing.T) {
	up := Candle{Open: 2000, High: 2010, Low: 1995, Close: 2005}
	down := Candle{Open: 2005, High: 2010, Low: 1995, Close: 2000}
	doji := Candle{Open: 2000, High: 2010, Low: 1995, Close: 2000}

	assert.True(t, up.IsUp())
	assert.False(t, up.IsDown())
	assert.True(t, down.IsDown())
	assert.False(t, down.IsUp())
	assert.False(t, doji.IsUp())
	assert.False(t, doji.IsDown())
}

func TestBodyHelpers(t *testing.T) {
	down := Candle{Open: 2005, High: 2010, Low: 1995, Close: 2000}

	assert.InDelta(t, 5.0, down.BodyRange(), 1e-9)
	assert.InDelta(t, 2005.0, down.BodyTop(), 1e-9)
	assert.InDelta(t, 2000.0, down.BodyBottom(), 1e-9)
}

func TestAmplitudePct(t *testing.T) {
	c := Candle{Open: 2000, High: 2010, Low: 1995, Close: 2004}
	assert.InDelta(t, 0.2, c.AmplitudePct(), 1e-9)

	zero := Candle{}
	assert.Zero(t, zero.AmplitudePct())
}
