package bias

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNiell_DecreasesWithElevation(t *testing.T) {
	n := Niell{}
	rtmLow := RuntimeParam{ElevationDeg: 5}
	rtmHigh := RuntimeParam{ElevationDeg: 85}

	low, ok := n.Bias(rtmLow)
	assert.True(t, ok)
	high, ok := n.Bias(rtmHigh)
	assert.True(t, ok)

	assert.Greater(t, low, high, "tropo delay should be largest near the horizon")
	assert.Greater(t, low, 0.0)
}

func TestKlobuchar_Bias(t *testing.T) {
	k := Klobuchar{Parameters: KlobucharParameters{
		Alpha: [4]float64{3.82e-8, 1.49e-8, -1.79e-7, 0},
		Beta:  [4]float64{1.43e5, 0, -3.28e5, 1.13e5},
	}}

	rtm := RuntimeParam{
		T:             time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		ElevationDeg:  45,
		AzimuthDeg:    90,
		FrequencyHz:   1575.42e6,
		AprioriLatDeg: 40,
		AprioriLonDeg: 8,
	}

	delay, ok := k.Bias(rtm)
	assert.True(t, ok)
	assert.Greater(t, delay, 0.0)
	assert.Less(t, delay, 50.0, "L1 ionospheric delay should be within a plausible range")
}

func TestMeasuredBias(t *testing.T) {
	m := MeasuredBias{MetersDelay: 2.3, Valid: true}
	assert.False(t, m.NeedsModeling())
	v, ok := m.Bias(RuntimeParam{})
	assert.True(t, ok)
	assert.Equal(t, 2.3, v)

	invalid := MeasuredBias{}
	_, ok = invalid.Bias(RuntimeParam{})
	assert.False(t, ok)
}
