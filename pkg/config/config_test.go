package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticPreset_SPP(t *testing.T) {
	cfg := StaticPreset(SPP)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, SPP, cfg.Method)
	assert.Equal(t, FilterLSQ, cfg.Filter)
	assert.NotNil(t, cfg.Thresholds.MinSVElevationDeg)
	assert.Equal(t, 15.0, *cfg.Thresholds.MinSVElevationDeg)
}

func TestStaticPreset_PPP_KeepsSPPElevationAndAddsSunlightGate(t *testing.T) {
	cfg := StaticPreset(PPP)
	require.NoError(t, cfg.Validate())

	require.NotNil(t, cfg.Thresholds.MinSVElevationDeg)
	assert.Equal(t, 15.0, *cfg.Thresholds.MinSVElevationDeg)
	require.NotNil(t, cfg.Thresholds.MinSVSunlightRate)
	assert.Equal(t, 0.75, *cfg.Thresholds.MinSVSunlightRate)
}

func TestStaticPreset_CPP_RelaxesElevation(t *testing.T) {
	cfg := StaticPreset(CPP)
	require.NoError(t, cfg.Validate())

	require.NotNil(t, cfg.Thresholds.MinSVElevationDeg)
	assert.Equal(t, 10.0, *cfg.Thresholds.MinSVElevationDeg)
}

func TestValidate_RejectsFewerThanFourSVsWithoutFixedAltitude(t *testing.T) {
	cfg := StaticPreset(SPP)
	cfg.MaxSV = 3

	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidate_AllowsThreeSVsWithFixedAltitude(t *testing.T) {
	cfg := StaticPreset(SPP)
	cfg.MaxSV = 3
	alt := 150.0
	cfg.FixedAltitudeM = &alt

	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsZeroInterpolationOrder(t *testing.T) {
	cfg := StaticPreset(SPP)
	cfg.InterpolationOrder = 0

	assert.Error(t, cfg.Validate())
}
