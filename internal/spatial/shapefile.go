package spatial

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"

	"github.com/cobrasdm/sightings-etl/internal/domain"
)

// Attribute columns every boundary shapefile must carry.
const (
	FieldCode         = "adm4_psgc"
	FieldName         = "adm4_en"
	FieldCityCode     = "adm3_psgc"
	FieldProvinceCode = "adm2_psgc"
	FieldRegionCode   = "adm1_psgc"
	FieldArea         = "area_km2"
)

var requiredFields = []string{FieldCode, FieldName, FieldCityCode, FieldProvinceCode, FieldRegionCode, FieldArea}

// LoadShapefile reads administrative polygons from path and reprojects them
// to WGS84. Every feature must be polygonal and carry the PSGC attribute
// columns. Records with a null shape are skipped with a warning.
func LoadShapefile(path string, logger *slog.Logger) ([]Unit, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	defer dec.Close()

	srcSR, err := dec.SR()
	if err != nil {
		return nil, fmt.Errorf("read shapefile projection: %w", err)
	}
	dstSR, err := proj.Parse(WGS84)
	if err != nil {
		return nil, fmt.Errorf("parse WGS84: %w", err)
	}
	trans, err := srcSR.NewTransform(dstSR)
	if err != nil {
		return nil, fmt.Errorf("create shapefile transform: %w", err)
	}

	var units []Unit
	checked := false
	for row := 0; ; row++ {
		g, fields, more := dec.DecodeRowFields(requiredFields...)
		if err := dec.Error(); err != nil {
			return nil, fmt.Errorf("decode shapefile row %d: %w", row, err)
		}
		if !more {
			break
		}
		if !checked {
			if err := checkFields(path, fields); err != nil {
				return nil, err
			}
			checked = true
		}

		u, ok, err := toUnit(g, fields, trans)
		if err != nil {
			return nil, fmt.Errorf("shapefile row %d: %w", row, err)
		}
		if !ok {
			logger.Warn("skipping shapefile record without geometry", "row", row, FieldCode, fields[FieldCode])
			continue
		}
		units = append(units, u)
	}
	return units, nil
}

// toUnit converts one decoded record. ok is false for a null shape.
func toUnit(g geom.Geom, fields map[string]string, trans proj.Transformer) (Unit, bool, error) {
	if g == nil {
		return Unit{}, false, nil
	}
	attrs, err := parseAttributes(fields)
	if err != nil {
		return Unit{}, false, err
	}
	gg, err := g.Transform(trans)
	if err != nil {
		return Unit{}, false, fmt.Errorf("reproject: %w", err)
	}
	poly, ok := gg.(geom.Polygonal)
	if !ok {
		return Unit{}, false, fmt.Errorf("%T is not polygonal", gg)
	}
	return Unit{AdminAttributes: attrs, Geometry: poly}, true, nil
}

func checkFields(path string, fields map[string]string) error {
	header := make([]string, 0, len(fields))
	for k := range fields {
		header = append(header, k)
	}
	return domain.RequireColumns(path, header, requiredFields)
}

func parseAttributes(fields map[string]string) (domain.AdminAttributes, error) {
	var a domain.AdminAttributes
	var err error
	if a.Code, err = domain.ParseAdminCode(fields[FieldCode]); err != nil {
		return a, fmt.Errorf("%s: %w", FieldCode, err)
	}
	if a.CityCode, err = domain.ParseAdminCode(fields[FieldCityCode]); err != nil {
		return a, fmt.Errorf("%s: %w", FieldCityCode, err)
	}
	if a.ProvinceCode, err = domain.ParseAdminCode(fields[FieldProvinceCode]); err != nil {
		return a, fmt.Errorf("%s: %w", FieldProvinceCode, err)
	}
	if a.RegionCode, err = domain.ParseAdminCode(fields[FieldRegionCode]); err != nil {
		return a, fmt.Errorf("%s: %w", FieldRegionCode, err)
	}
	a.Name = strings.TrimSpace(fields[FieldName])
	if a.AreaKm2, err = strconv.ParseFloat(strings.TrimSpace(fields[FieldArea]), 64); err != nil {
		return a, fmt.Errorf("%s: %w", FieldArea, err)
	}
	return a, nil
}
