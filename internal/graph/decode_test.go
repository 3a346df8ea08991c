// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const datasetTurtle = `
@prefix ex: <http://example.org/> .
@prefix dcat: <http://www.w3.org/ns/dcat#> .
@prefix geo: <http://www.opengis.net/ont/geosparql#> .

ex:ds a dcat:Dataset ;
    ex:title "Gages"@EN ;
    ex:count 3 ;
    geo:hasGeometry [ geo:asWKT "POINT (1 2)"^^geo:wktLiteral ] .
`

func TestParseTurtle(t *testing.T) {
	g, err := ParseTurtle(strings.NewReader(datasetTurtle))
	require.NoError(t, err)
	require.Equal(t, 5, g.Len())

	ds := exIRI("ds")
	require.True(t, g.HasType(ds, DCATDataset))
	require.True(t, g.Has(NewTriple(ds, exIRI("title"), NewLangLiteral("Gages", "en"))))

	count, ok := g.Object(ds, exIRI("count"))
	require.True(t, ok)
	require.Equal(t, XSDInteger, count.Datatype)

	geom, ok := g.Object(ds, NewIRI(GeoHasGeometry))
	require.True(t, ok)
	require.True(t, geom.IsBlank())
	wkt, ok := g.Object(geom, NewIRI(GeoAsWKT))
	require.True(t, ok)
	require.Equal(t, GeoWKTLiteral, wkt.Datatype)
}

func TestParseTurtleRejectsMalformedInput(t *testing.T) {
	_, err := ParseTurtle(strings.NewReader(`@prefix ex: <http://example.org/> . ex:a ex:b `))
	require.Error(t, err)
}

func TestParseNQuads(t *testing.T) {
	const nq = `<http://example.org/a> <http://example.org/p> "1" <http://example.org/g1> .
<http://example.org/b> <http://example.org/p> "2" <http://example.org/g2> .
<http://example.org/c> <http://example.org/p> "3" <http://example.org/g2> .
`
	graphs, err := ParseNQuads(strings.NewReader(nq))
	require.NoError(t, err)
	require.Len(t, graphs, 2)
	require.Equal(t, 1, graphs["http://example.org/g1"].Len())
	require.Equal(t, 2, graphs["http://example.org/g2"].Len())
}

func TestParseJSONLD(t *testing.T) {
	const doc = `{
		"@context": {"ex": "http://example.org/", "dcat": "http://www.w3.org/ns/dcat#"},
		"@id": "ex:ds",
		"@type": "dcat:Dataset",
		"ex:title": "Gages"
	}`
	g, err := ParseJSONLD(strings.NewReader(doc), nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())
	require.True(t, g.HasType(exIRI("ds"), DCATDataset))
	require.True(t, g.Has(NewTriple(exIRI("ds"), exIRI("title"), NewLiteral("Gages"))))

	_, err = ParseJSONLD(strings.NewReader(`{"@id": `), nil, nil)
	require.Error(t, err)
}

func TestBlankNodesAreScopedToTheirDocument(t *testing.T) {
	const doc = `<http://example.org/s> <http://example.org/p> [ <http://example.org/q> "1" ] .`
	first, err := ParseTurtle(strings.NewReader(doc))
	require.NoError(t, err)
	second, err := ParseTurtle(strings.NewReader(doc))
	require.NoError(t, err)

	// both documents label their anonymous node the same way
	merged := Union(first, second)
	require.Equal(t, 4, merged.Len())
	require.Len(t, merged.Objects(exIRI("s"), exIRI("p")), 2)
	require.True(t, Isomorphic(first, second))
}

func TestParseRejectsInvalidIRIs(t *testing.T) {
	for name, doc := range map[string]string{
		"relative":  `<gage1> <http://example.org/p> "x" .`,
		"backslash": `<http://example.org/a\u005Cb> <http://example.org/p> "x" .`,
		"datatype":  `<http://example.org/a> <http://example.org/p> "x"^^<decimal> .`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTurtle(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}

func TestCheckIRI(t *testing.T) {
	require.NoError(t, checkIRI("https://example.org/gages/1?f=json#geometry"))
	require.NoError(t, checkIRI("urn:uuid:6e8bc430-9c3a-11d9-9669-0800200c9a66"))
	require.ErrorContains(t, checkIRI("https://example.org/a b"), "invalid character")
	require.ErrorContains(t, checkIRI("https://example.org/{id}"), "invalid character")
	require.ErrorContains(t, checkIRI("gage1"), "not absolute")
	require.ErrorContains(t, checkIRI(":gage1"), "not absolute")
	require.Error(t, checkIRI(""))
}
