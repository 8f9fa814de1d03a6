// Package spatial assigns sighting coordinates to administrative polygons.
package spatial

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"

	"github.com/cobrasdm/sightings-etl/internal/domain"
)

// Spatial references. Matching and storage use WGS84; UTM zone 51N is used
// only to measure nearest-polygon distances in meters.
const (
	WGS84  = "+proj=longlat +datum=WGS84 +no_defs"
	UTM51N = "+proj=utm +zone=51 +datum=WGS84 +units=m +no_defs"
)

// searchEpsilon pads point queries against the index, in degrees.
const searchEpsilon = 1e-9

// Unit is one administrative polygon in WGS84 with its attributes.
type Unit struct {
	domain.AdminAttributes
	Geometry geom.Polygonal
}

type indexedUnit struct {
	geom.Polygonal
	index int
}

// Report summarizes an assignment pass.
type Report struct {
	Within       int
	Nearest      int
	Overlaps     int // points inside more than one polygon
	MaxDistanceM float64
}

// Assigner matches points to units. It is safe for concurrent use once built.
type Assigner struct {
	units        []Unit
	tree         *rtree.Rtree
	metric       []geom.Polygonal
	metricBounds []*geom.Bounds
	toMetric     proj.Transformer
	logger       *slog.Logger
}

// NewAssigner indexes units and precomputes their metric geometry.
func NewAssigner(units []Unit, logger *slog.Logger) (*Assigner, error) {
	if len(units) == 0 {
		return nil, errors.New("spatial: no administrative units")
	}

	src, err := proj.Parse(WGS84)
	if err != nil {
		return nil, fmt.Errorf("spatial: parse WGS84: %w", err)
	}
	dst, err := proj.Parse(UTM51N)
	if err != nil {
		return nil, fmt.Errorf("spatial: parse UTM51N: %w", err)
	}
	toMetric, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("spatial: create metric transform: %w", err)
	}

	a := &Assigner{
		units:        units,
		tree:         rtree.NewTree(25, 50),
		metric:       make([]geom.Polygonal, len(units)),
		metricBounds: make([]*geom.Bounds, len(units)),
		toMetric:     toMetric,
		logger:       logger,
	}
	for i, u := range units {
		a.tree.Insert(&indexedUnit{Polygonal: u.Geometry, index: i})

		g, err := u.Geometry.Transform(toMetric)
		if err != nil {
			return nil, fmt.Errorf("spatial: project unit %d: %w", u.Code, err)
		}
		mp, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("spatial: unit %d is not polygonal after projection", u.Code)
		}
		a.metric[i] = mp
		a.metricBounds[i] = mp.Bounds()
	}
	return a, nil
}

// Assign gives every sighting exactly one unit. Points strictly inside a
// polygon are assigned "within"; when several polygons contain the point the
// first unit in reference order wins and the overlap is logged. Every other
// point, including points on a shared boundary, goes to the nearest polygon
// measured in UTM 51N. Every row must carry coordinates.
func (a *Assigner) Assign(rows []domain.Sighting) ([]domain.AssignedSighting, Report, error) {
	var report Report
	out := make([]domain.AssignedSighting, len(rows))

	for i, r := range rows {
		if r.Coords == nil {
			return nil, Report{}, &domain.IntegrityError{
				Stage:  "assign",
				Detail: fmt.Sprintf("row %d has no coordinates", i),
			}
		}
		pt := geom.Point{X: r.Coords.Lon, Y: r.Coords.Lat}
		out[i].Sighting = r

		matches := a.within(pt)
		if len(matches) > 0 {
			if len(matches) > 1 {
				report.Overlaps++
				codes := make([]int64, len(matches))
				for j, m := range matches {
					codes[j] = a.units[m].Code
				}
				a.logger.Warn("point inside overlapping polygons, using first",
					"lat", r.Coords.Lat, "lon", r.Coords.Lon, "candidates", codes)
			}
			out[i].Admin = a.units[matches[0]].AdminAttributes
			out[i].Method = domain.AssignedWithin
			report.Within++
			continue
		}

		idx, dist, err := a.nearest(pt)
		if err != nil {
			return nil, Report{}, &domain.IntegrityError{
				Stage:  "assign",
				Detail: fmt.Sprintf("no nearest polygon for (%f, %f): %v", r.Coords.Lat, r.Coords.Lon, err),
			}
		}
		d := dist
		out[i].Admin = a.units[idx].AdminAttributes
		out[i].Method = domain.AssignedNearest
		out[i].DistanceM = &d
		report.Nearest++
		report.MaxDistanceM = math.Max(report.MaxDistanceM, dist)
		a.logger.Debug("nearest polygon fallback",
			"lat", r.Coords.Lat, "lon", r.Coords.Lon, "admin_code", a.units[idx].Code, "distance_m", dist)
	}
	return out, report, nil
}

// within returns the indexes of units strictly containing pt, ascending.
func (a *Assigner) within(pt geom.Point) []int {
	box := &geom.Bounds{
		Min: geom.Point{X: pt.X - searchEpsilon, Y: pt.Y - searchEpsilon},
		Max: geom.Point{X: pt.X + searchEpsilon, Y: pt.Y + searchEpsilon},
	}
	var matches []int
	for _, c := range a.tree.SearchIntersect(box) {
		u := c.(*indexedUnit)
		if pt.Within(u.Polygonal) == geom.Inside {
			matches = append(matches, u.index)
		}
	}
	slices.Sort(matches)
	return matches
}

// nearest returns the unit closest to pt in meters. Ties go to the lower index.
func (a *Assigner) nearest(pt geom.Point) (int, float64, error) {
	x, y, err := a.toMetric(pt.X, pt.Y)
	if err != nil {
		return 0, 0, fmt.Errorf("project point: %w", err)
	}
	mp := geom.Point{X: x, Y: y}

	best, bestDist := -1, math.Inf(1)
	for i, poly := range a.metric {
		if boundsDistance(mp, a.metricBounds[i]) >= bestDist {
			continue
		}
		d := polygonDistance(mp, poly)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || math.IsNaN(bestDist) || math.IsInf(bestDist, 0) {
		return 0, 0, errors.New("no finite distance to any polygon")
	}
	return best, bestDist, nil
}

// polygonDistance is 0 for a point inside or on poly, else the distance to
// its closest edge.
func polygonDistance(pt geom.Point, poly geom.Polygonal) float64 {
	if pt.Within(poly) != geom.Outside {
		return 0
	}
	best := math.Inf(1)
	for _, p := range poly.Polygons() {
		for _, ring := range p {
			n := len(ring)
			for j := range n {
				best = math.Min(best, segmentDistance(pt, ring[j], ring[(j+1)%n]))
			}
		}
	}
	return best
}

func segmentDistance(p, a, b geom.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

// boundsDistance is a lower bound on the distance from p to anything inside b.
func boundsDistance(p geom.Point, b *geom.Bounds) float64 {
	dx := math.Max(0, math.Max(b.Min.X-p.X, p.X-b.Max.X))
	dy := math.Max(0, math.Max(b.Min.Y-p.Y, p.Y-b.Max.Y))
	return math.Hypot(dx, dy)
}
