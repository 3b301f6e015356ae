package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tzneal/coordconv"
)

func TestHemisphereRuneToCoordconvHemisphere(t *testing.T) {
	assert.Equal(t, coordconv.HemisphereNorth, HemisphereRuneToCoordconvHemisphere('N'))
	assert.Equal(t, coordconv.HemisphereSouth, HemisphereRuneToCoordconvHemisphere('S'))
	assert.Equal(t, coordconv.HemisphereInvalid, HemisphereRuneToCoordconvHemisphere('X'))
}

func TestHemisphereToRune_RoundTrips(t *testing.T) {
	for _, hemi := range []rune{'N', 'S'} {
		got := HemisphereToRune(HemisphereRuneToCoordconvHemisphere(hemi))
		assert.Equal(t, hemi, got)
	}
	assert.Equal(t, '!', HemisphereToRune(coordconv.HemisphereInvalid))
}

func TestProjectSiteUTM_OklahomaSiteLandsInZone14North(t *testing.T) {
	desc := DefaultRadarDesc()
	desc.LatitudeDegrees = 35.25
	desc.LongitudeDegrees = -97.5

	utm, err := ProjectSiteUTM(desc)
	require.NoError(t, err)
	assert.Equal(t, 14, utm.Zone)
	assert.Equal(t, 'N', utm.Hemisphere)
	assert.Greater(t, utm.Easting, 0.0)
	assert.Greater(t, utm.Northing, 0.0)
}

func TestProjectSiteUTM_SouthernHemisphere(t *testing.T) {
	desc := DefaultRadarDesc()
	desc.LatitudeDegrees = -33.86
	desc.LongitudeDegrees = 151.2

	utm, err := ProjectSiteUTM(desc)
	require.NoError(t, err)
	assert.Equal(t, 'S', utm.Hemisphere)
}
