package geo

import "math"

// MaxLat is the latitude limit of the Web Mercator projection.
const MaxLat = 85.05112878

// Tile identifies a single slippy map tile.
type Tile struct {
	Z, X, Y int
}

// Valid reports whether the tile lies inside the grid of its zoom level.
func (t Tile) Valid() bool {
	if t.Z < 0 || t.Z > 30 {
		return false
	}
	n := 1 << t.Z
	return t.X >= 0 && t.X < n && t.Y >= 0 && t.Y < n
}

// TileAt returns the tile containing p at zoom z.
//
// Longitude maps linearly to x; latitude goes through the forward Mercator
// projection and is clamped to MaxLat first.
func TileAt(p Position, z int) Tile {
	lat := p.Latitude
	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}

	n := float64(int(1) << z)
	latRad := lat * math.Pi / 180.0

	x := int(math.Floor((p.Longitude + 180.0) / 360.0 * n))
	y := int(math.Floor((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n))

	return Tile{Z: z, X: clampIndex(x, int(n)), Y: clampIndex(y, int(n))}
}

// TilesAround returns the square of tiles within radius of the tile
// containing center, for every zoom level in [minZoom, maxZoom].
// Tiles outside the grid are skipped; x does not wrap around the antimeridian.
func TilesAround(center Position, minZoom, maxZoom, radius int) []Tile {
	if radius < 0 {
		radius = 0
	}

	var tiles []Tile
	for z := minZoom; z <= maxZoom; z++ {
		c := TileAt(center, z)
		for x := c.X - radius; x <= c.X+radius; x++ {
			for y := c.Y - radius; y <= c.Y+radius; y++ {
				t := Tile{Z: z, X: x, Y: y}
				if t.Valid() {
					tiles = append(tiles, t)
				}
			}
		}
	}

	return tiles
}

func clampIndex(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
