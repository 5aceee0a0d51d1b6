package geo

import "testing"

func TestTileAt(t *testing.T) {
	cases := []struct {
		name string
		pos  Position
		z    int
		want Tile
	}{
		{"origin zoom 0", Position{}, 0, Tile{0, 0, 0}},
		{"origin zoom 1", Position{}, 1, Tile{1, 1, 1}},
		{"sao paulo", Position{Latitude: -23.5, Longitude: -46.6}, 10, Tile{10, 379, 580}},
		{"north clamp", Position{Latitude: 89, Longitude: 179.9}, 2, Tile{2, 3, 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TileAt(tc.pos, tc.z); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestTilesAround_SkipsOutOfGrid(t *testing.T) {
	tiles := TilesAround(Position{Latitude: MaxLat, Longitude: -180}, 1, 1, 1)
	// corner tile (0,0) at zoom 1 with radius 1 keeps only the 2x2 valid grid
	if len(tiles) != 4 {
		t.Fatalf("expected 4 tiles, got %d: %+v", len(tiles), tiles)
	}
	for _, tile := range tiles {
		if !tile.Valid() {
			t.Fatalf("invalid tile returned: %+v", tile)
		}
	}
}

func TestPointFeature_LonLatOrder(t *testing.T) {
	f := PointFeature(Position{Latitude: -23.5, Longitude: -46.6}, nil)
	if f.Geometry.Coordinates[0] != -46.6 || f.Geometry.Coordinates[1] != -23.5 {
		t.Fatalf("unexpected coordinates: %v", f.Geometry.Coordinates)
	}
	if f.Properties == nil {
		t.Fatalf("expected non-nil properties")
	}
}
