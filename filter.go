package glottoguess

import (
	"github.com/golang/geo/s2"
)

// coverer settings for the spatial prefilter. Level 12 cells are ~3km wide,
// small enough that coverings stay tight around typical buffer radii while
// MaxCells keeps coverings of continent-sized regions coarse and cheap.
var filterCoverer = s2.RegionCoverer{MaxLevel: 12, MaxCells: 64}

// FilterOptions configures candidate filtering.
type FilterOptions struct {
	// IncludeRelatives adds the parents and children of every spatial hit
	// before the level filter is applied. Relatives are included even when
	// they carry no coordinates themselves, so the default containment
	// contract (location-bearing entries only) no longer holds when set.
	IncludeRelatives bool
}

// FilterCandidates returns the glottocodes of every entry whose level matches
// the filter and whose location intersects the region buffered outward by
// bufferKm kilometers. Results are in catalog order. An empty result is a
// valid outcome, not an error.
//
// Entries without a location never match, regardless of filter; that is the
// documented exclusion policy, not an error.
func (c *Catalog) FilterCandidates(region *Region, bufferKm float64, level Level, opts ...FilterOptions) ([]string, error) {
	if region == nil || region.empty() {
		return nil, &InvalidGeometryError{Reason: "nil or empty region"}
	}
	if bufferKm < 0 {
		return nil, &InvalidGeometryError{Reason: "negative buffer distance"}
	}
	if _, err := ParseLevel(string(level)); err != nil {
		return nil, err
	}

	options := FilterOptions{}
	if len(opts) > 0 {
		options = opts[0]
	}

	buffered := region.buffered(bufferKm)

	// Cell covering of the buffered bounds prunes the scan; every covering
	// is a superset of the buffered region, so no candidate is lost before
	// the exact distance test.
	var covering s2.CellUnion
	for _, bound := range buffered.bounds {
		covering = s2.CellUnionFromUnion(covering, filterCoverer.Covering(bound))
	}

	hits := make(map[int]bool)
	for i := range c.entries {
		e := &c.entries[i]
		if !e.HasLocation {
			continue
		}
		if !covering.ContainsCellID(c.cells[i]) {
			continue
		}
		p := s2.PointFromLatLng(s2.LatLngFromDegrees(e.Latitude, e.Longitude))
		if buffered.intersects(p) {
			hits[i] = true
		}
	}

	if options.IncludeRelatives {
		c.expandRelatives(hits)
	}

	ids := make([]string, 0, len(hits))
	for i, e := range c.entries {
		if !hits[i] {
			continue
		}
		if level == LevelAll || e.Level == level {
			ids = append(ids, e.ID)
		}
	}
	return ids, nil
}

// expandRelatives adds the direct parents and children of the current hits.
func (c *Catalog) expandRelatives(hits map[int]bool) {
	seed := make([]int, 0, len(hits))
	for i := range hits {
		seed = append(seed, i)
	}
	for _, i := range seed {
		e := c.entries[i]
		if e.ParentID != "" {
			if pi, ok := c.byID[e.ParentID]; ok {
				hits[pi] = true
			}
		}
		for _, ci := range c.children[e.ID] {
			hits[ci] = true
		}
	}
}
