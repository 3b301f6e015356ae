package core

/*------------------------------------------------------------------
 *
 * Purpose:	Project a radar site's geodetic position to UTM, for a
 *		sweep file's optional projected-coordinate globals: a
 *		convenience some downstream consumers expect beyond the
 *		mandatory Latitude/Longitude/Height.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/tzneal/coordconv"
)

// HemisphereRuneToCoordconvHemisphere maps 'N'/'S' to coordconv's
// Hemisphere enum.
func HemisphereRuneToCoordconvHemisphere(hemi rune) coordconv.Hemisphere {
	switch hemi {
	case 'N':
		return coordconv.HemisphereNorth
	case 'S':
		return coordconv.HemisphereSouth
	default:
		return coordconv.HemisphereInvalid
	}
}

// HemisphereToRune is the inverse of HemisphereRuneToCoordconvHemisphere.
func HemisphereToRune(h coordconv.Hemisphere) rune {
	switch h {
	case coordconv.HemisphereNorth:
		return 'N'
	case coordconv.HemisphereSouth:
		return 'S'
	case coordconv.HemisphereInvalid:
		return '!'
	default:
		return '?'
	}
}

// SiteUTM is a radar site's location projected to the Universal Transverse
// Mercator grid.
type SiteUTM struct {
	Zone       int
	Hemisphere rune
	Easting    float64
	Northing   float64
}

// ProjectSiteUTM converts a RadarDesc's geodetic position to UTM.
func ProjectSiteUTM(desc RadarDesc) (SiteUTM, error) {
	latlng := s2.LatLng{
		Lat: s1.Angle(desc.LatitudeDegrees * (s1.Degree)),
		Lng: s1.Angle(desc.LongitudeDegrees * (s1.Degree)),
	}
	coord, err := coordconv.DefaultUTMConverter.ConvertFromGeodetic(latlng, 0)
	if err != nil {
		return SiteUTM{}, fmt.Errorf("radarkit: geo: convert %s to UTM: %w", desc.Name, err)
	}
	return SiteUTM{
		Zone:       coord.Zone,
		Hemisphere: HemisphereToRune(coord.Hemisphere),
		Easting:    coord.Easting,
		Northing:   coord.Northing,
	}, nil
}
