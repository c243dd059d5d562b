package vector

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

// GeoJSONToCells accepts a GeoJSON geometry, feature or feature collection.
func GeoJSONToCells(data []byte, res int, opts ToCellsOptions) ([]h3.Cell, error) {
	g, err := decodeGeoJSON(data)
	if err != nil {
		return nil, err
	}
	return GeometryToCells(g, res, opts)
}

func decodeGeoJSON(data []byte) (orb.Geometry, error) {
	var hdr struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &hdr); err != nil {
		return nil, fmt.Errorf("%w: parse geojson: %w", h3array.ErrInvalidGeometry, err)
	}
	switch hdr.Type {
	case "":
		return nil, fmt.Errorf("%w: %w", h3array.ErrInvalidGeometry, errEmptyGeoJSON)
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%w: parse feature collection: %w", h3array.ErrInvalidGeometry, err)
		}
		out := make(orb.Collection, 0, len(fc.Features))
		for _, f := range fc.Features {
			if f.Geometry != nil {
				out = append(out, f.Geometry)
			}
		}
		return out, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("%w: parse feature: %w", h3array.ErrInvalidGeometry, err)
		}
		return f.Geometry, nil
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("%w: parse geometry: %w", h3array.ErrInvalidGeometry, err)
		}
		return g.Geometry(), nil
	}
}
