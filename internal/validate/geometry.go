// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"fmt"
	"regexp"

	"github.com/internetofwater/ldsync/internal/graph"
	"github.com/internetofwater/ldsync/pkg"
	"github.com/peterstace/simplefeatures/geom"
)

// The constraint component reported for unparseable geometries
const WKTGeometryConstraint = "ldsync:WKTGeometryConstraint"

// a geo:wktLiteral may start with the IRI of its coordinate reference system
var crsPrefix = regexp.MustCompile(`^\s*<([^>]*)>\s*`)

// ParseWKT parses a geo:wktLiteral and returns the geometry and its CRS IRI, if any
func ParseWKT(literal string) (geom.Geometry, string, error) {
	crs := ""
	wkt := literal
	if match := crsPrefix.FindStringSubmatch(literal); match != nil {
		crs = match[1]
		wkt = literal[len(match[0]):]
	}
	geometry, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return geom.Geometry{}, crs, err
	}
	return geometry, crs, nil
}

// checkGeometries returns an error level message for every geo:asWKT
// value that is not a literal or does not parse as a geometry
func checkGeometries(g *graph.Graph) []pkg.ValidationMessage {
	var messages []pkg.ValidationMessage
	asWKT := graph.NewIRI(graph.GeoAsWKT)
	for _, t := range g.Match(nil, &asWKT, nil) {
		var problem error
		if !t.Object.IsLiteral() {
			problem = fmt.Errorf("geo:asWKT must be a literal")
		} else if _, _, err := ParseWKT(t.Object.Value); err != nil {
			problem = err
		}
		if problem == nil {
			continue
		}
		messages = append(messages, pkg.ValidationMessage{
			FocusNode:  renderNode(t.Subject),
			Path:       asWKT.Compact(),
			Value:      t.Object.Compact(),
			Constraint: WKTGeometryConstraint,
			Severity:   pkg.SeverityViolation,
			Message:    fmt.Sprintf("Invalid WKT geometry: %v", problem),
		})
	}
	return messages
}
