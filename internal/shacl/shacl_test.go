// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package shacl

import (
	"os"
	"strings"
	"testing"

	"github.com/internetofwater/ldsync/internal/common/projectpath"
	"github.com/internetofwater/ldsync/internal/graph"
	"github.com/stretchr/testify/require"
)

const prefixes = `
@prefix ex: <http://example.org/> .
@prefix sh: <http://www.w3.org/ns/shacl#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
@prefix rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix dcterms: <http://purl.org/dc/terms/> .
@prefix geo: <http://www.opengis.net/ont/geosparql#> .
`

func parse(t *testing.T, turtle string) *graph.Graph {
	g, err := graph.ParseTurtle(strings.NewReader(prefixes + turtle))
	require.NoError(t, err)
	return g
}

func parseFile(t *testing.T, path string) *graph.Graph {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	g, err := graph.ParseTurtle(f)
	require.NoError(t, err)
	return g
}

func compile(t *testing.T, turtle string) *Shapes {
	shapes, err := Compile(parse(t, turtle))
	require.NoError(t, err)
	return shapes
}

func components(report *Report) []string {
	out := make([]string, 0, len(report.Results))
	for _, r := range report.Results {
		out = append(out, strings.TrimPrefix(r.Component, graph.SHNamespace))
	}
	return out
}

func TestSharedFixturesConform(t *testing.T) {
	shapes, err := Compile(parseFile(t, projectpath.Testdata("profile.ttl")))
	require.NoError(t, err)
	ontologies := parseFile(t, projectpath.Testdata("ontologies", "geosparql.ttl"))

	for _, file := range []string{"gages.ttl", "hydrology/wells.ttl"} {
		data := parseFile(t, projectpath.Testdata("data", file))
		report := shapes.Validate(graph.Union(data, ontologies))
		require.True(t, report.Conforms, report.Text())
		require.Equal(t, "Validation Report\nConforms: True\n", report.Text())
	}
}

func TestProfileSeverities(t *testing.T) {
	shapes, err := Compile(parseFile(t, projectpath.Testdata("profile.ttl")))
	require.NoError(t, err)

	data := parse(t, `
@prefix dcat: <http://www.w3.org/ns/dcat#> .
ex:dataset a dcat:Dataset .
ex:f a geo:Feature ;
    dcterms:title "one", "two" ;
    geo:hasGeometry [ geo:asWKT "POINT (1 2)" ] .
`)
	report := shapes.Validate(data)
	require.False(t, report.Conforms)

	var violations, warnings []Result
	for _, r := range report.Results {
		if r.IsViolation() {
			violations = append(violations, r)
		} else {
			warnings = append(warnings, r)
		}
	}
	require.Len(t, warnings, 1)
	require.Equal(t, "A dataset should have a description", warnings[0].Message)
	require.Equal(t, sh("Warning"), warnings[0].Severity)

	require.Len(t, violations, 3)
	messages := []string{violations[0].Message, violations[1].Message, violations[2].Message}
	require.ElementsMatch(t, []string{
		"A dataset must have a title",
		"A feature must have exactly one title",
		"Geometries must be serialized as geo:wktLiteral",
	}, messages)

	for _, v := range violations {
		if v.Component == graph.SHNamespace+"DatatypeConstraintComponent" {
			require.Equal(t, "(geo:hasGeometry / geo:asWKT)", v.Path)
			require.Equal(t, graph.NewLiteral("POINT (1 2)"), v.Value)
			require.Equal(t, graph.NewIRI("http://example.org/f"), v.FocusNode)
		}
	}

	text := report.Text()
	require.Contains(t, text, "Conforms: False")
	require.Contains(t, text, "Severity: sh:Violation")
	require.Contains(t, text, "Severity: sh:Warning")
	require.Contains(t, text, "Result Path: dcterms:title")
}

func TestTargetClassFollowsSubclasses(t *testing.T) {
	shapes := compile(t, `
ex:SpatialShape a sh:NodeShape ;
    sh:targetClass geo:SpatialObject ;
    sh:property [ sh:path rdfs:label ; sh:minCount 1 ] .
`)
	data := parse(t, `ex:f a geo:Feature .`)
	require.True(t, shapes.Validate(data).Conforms)

	ontology := parse(t, `
geo:Feature rdfs:subClassOf geo:SpatialObject .
`)
	report := shapes.Validate(graph.Union(data, ontology))
	require.Equal(t, []string{"MinCountConstraintComponent"}, components(report))
	require.Equal(t, graph.NewIRI("http://example.org/f"), report.Results[0].FocusNode)
}

func TestConstraintComponents(t *testing.T) {
	testCases := []struct {
		name     string
		shape    string
		data     string
		expected []string
	}{
		{
			name:     "datatype rejects ill formed literals",
			shape:    `sh:property [ sh:path ex:age ; sh:datatype xsd:integer ]`,
			data:     `ex:a ex:age "12"^^xsd:integer, "abc"^^xsd:integer, "7" .`,
			expected: []string{"DatatypeConstraintComponent", "DatatypeConstraintComponent"},
		},
		{
			name:     "class",
			shape:    `sh:property [ sh:path ex:knows ; sh:class ex:Person ]`,
			data:     `ex:a ex:knows ex:b, ex:c . ex:b a ex:Person .`,
			expected: []string{"ClassConstraintComponent"},
		},
		{
			name:     "node kind",
			shape:    `sh:property [ sh:path ex:link ; sh:nodeKind sh:IRI ]`,
			data:     `ex:a ex:link ex:b, "not an iri" .`,
			expected: []string{"NodeKindConstraintComponent"},
		},
		{
			name:     "pattern with flags",
			shape:    `sh:property [ sh:path ex:code ; sh:pattern "^ab" ; sh:flags "i" ]`,
			data:     `ex:a ex:code "AB1", "xyz" .`,
			expected: []string{"PatternConstraintComponent"},
		},
		{
			name:     "string length",
			shape:    `sh:property [ sh:path ex:code ; sh:minLength 2 ; sh:maxLength 3 ]`,
			data:     `ex:a ex:code "a", "ab", "abcd" .`,
			expected: []string{"MinLengthConstraintComponent", "MaxLengthConstraintComponent"},
		},
		{
			name:     "in",
			shape:    `sh:property [ sh:path ex:status ; sh:in ( "active" "retired" ) ]`,
			data:     `ex:a ex:status "active", "unknown" .`,
			expected: []string{"InConstraintComponent"},
		},
		{
			name:     "has value",
			shape:    `sh:property [ sh:path ex:tag ; sh:hasValue ex:required ]`,
			data:     `ex:a ex:tag ex:other .`,
			expected: []string{"HasValueConstraintComponent"},
		},
		{
			name:     "language in",
			shape:    `sh:property [ sh:path ex:label ; sh:languageIn ( "en" ) ]`,
			data:     `ex:a ex:label "x"@en-US, "y"@fr, "z" .`,
			expected: []string{"LanguageInConstraintComponent", "LanguageInConstraintComponent"},
		},
		{
			name:     "unique lang",
			shape:    `sh:property [ sh:path ex:label ; sh:uniqueLang "true"^^xsd:boolean ]`,
			data:     `ex:a ex:label "x"@en, "y"@en, "z"@fr .`,
			expected: []string{"UniqueLangConstraintComponent"},
		},
		{
			name:     "equals",
			shape:    `sh:property [ sh:path ex:p ; sh:equals ex:q ]`,
			data:     `ex:a ex:p "1", "2" ; ex:q "2", "3" .`,
			expected: []string{"EqualsConstraintComponent", "EqualsConstraintComponent"},
		},
		{
			name:     "disjoint",
			shape:    `sh:property [ sh:path ex:p ; sh:disjoint ex:q ]`,
			data:     `ex:a ex:p "1", "2" ; ex:q "2" .`,
			expected: []string{"DisjointConstraintComponent"},
		},
		{
			name:     "value ranges",
			shape:    `sh:property [ sh:path ex:n ; sh:minInclusive 0 ; sh:maxExclusive 10 ]`,
			data:     `ex:a ex:n "-1"^^xsd:integer, "0"^^xsd:integer, "9.5"^^xsd:decimal, "10"^^xsd:integer, "x" .`,
			expected: []string{
				"MinInclusiveConstraintComponent",
				"MaxExclusiveConstraintComponent",
				"MinInclusiveConstraintComponent",
				"MaxExclusiveConstraintComponent",
			},
		},
		{
			name: "date ranges",
			shape: `sh:property [ sh:path ex:when ;
				sh:minInclusive "2020-01-01T00:00:00Z"^^xsd:dateTime ]`,
			data:     `ex:a ex:when "2019-12-31T23:59:59Z"^^xsd:dateTime, "2021-06-01T00:00:00Z"^^xsd:dateTime .`,
			expected: []string{"MinInclusiveConstraintComponent"},
		},
		{
			name:     "closed",
			shape:    `sh:closed "true"^^xsd:boolean ; sh:ignoredProperties ( rdf:type ) ; sh:property [ sh:path ex:p ]`,
			data:     `ex:a ex:p "1" ; ex:extra "2" .`,
			expected: []string{"ClosedConstraintComponent"},
		},
		{
			name:     "node",
			shape:    `sh:property [ sh:path ex:knows ; sh:node ex:NamedShape ]`,
			data:     `ex:a ex:knows ex:b, ex:c . ex:b ex:name "b" .`,
			expected: []string{"NodeConstraintComponent"},
		},
		{
			name:     "not",
			shape:    `sh:property [ sh:path ex:knows ; sh:not ex:NamedShape ]`,
			data:     `ex:a ex:knows ex:b, ex:c . ex:b ex:name "b" .`,
			expected: []string{"NotConstraintComponent"},
		},
		{
			name:     "and",
			shape:    `sh:and ( ex:NamedShape ex:AgedShape )`,
			data:     `ex:a ex:name "a" .`,
			expected: []string{"AndConstraintComponent"},
		},
		{
			name:     "or",
			shape:    `sh:or ( ex:NamedShape ex:AgedShape )`,
			data:     `ex:a ex:other "a" .`,
			expected: []string{"OrConstraintComponent"},
		},
		{
			name:     "xone",
			shape:    `sh:xone ( ex:NamedShape ex:AgedShape )`,
			data:     `ex:a ex:name "a" ; ex:age "1"^^xsd:integer .`,
			expected: []string{"XoneConstraintComponent"},
		},
		{
			name:     "inverse path",
			shape:    `sh:property [ sh:path [ sh:inversePath ex:memberOf ] ; sh:minCount 1 ]`,
			data:     `ex:b ex:memberOf ex:other .`,
			expected: []string{"MinCountConstraintComponent"},
		},
		{
			name:     "alternative path",
			shape:    `sh:property [ sh:path [ sh:alternativePath ( ex:label ex:name ) ] ; sh:maxCount 1 ]`,
			data:     `ex:a ex:label "x" ; ex:name "y" .`,
			expected: []string{"MaxCountConstraintComponent"},
		},
		{
			name:     "zero or more path",
			shape:    `sh:property [ sh:path [ sh:zeroOrMorePath ex:next ] ; sh:nodeKind sh:IRI ]`,
			data:     `ex:a ex:next ex:b . ex:b ex:next ex:c . ex:c ex:next "end" .`,
			expected: []string{"NodeKindConstraintComponent"},
		},
		{
			name:     "one or more path",
			shape:    `sh:property [ sh:path [ sh:oneOrMorePath ex:next ] ; sh:maxCount 2 ]`,
			data:     `ex:a ex:next ex:b . ex:b ex:next ex:c . ex:c ex:next ex:a .`,
			expected: []string{"MaxCountConstraintComponent"},
		},
		{
			name:     "zero or one path",
			shape:    `sh:property [ sh:path [ sh:zeroOrOnePath ex:next ] ; sh:maxCount 2 ]`,
			data:     `ex:a ex:next ex:b . ex:b ex:next ex:c .`,
			expected: nil,
		},
		{
			name:     "deactivated",
			shape:    `sh:property [ sh:path ex:p ; sh:minCount 1 ; sh:deactivated "true"^^xsd:boolean ]`,
			data:     `ex:a ex:q "1" .`,
			expected: nil,
		},
	}

	helpers := `
ex:NamedShape a sh:NodeShape ; sh:property [ sh:path ex:name ; sh:minCount 1 ] .
ex:AgedShape a sh:NodeShape ; sh:property [ sh:path ex:age ; sh:minCount 1 ] .
`
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			shapes := compile(t, helpers+"ex:Shape a sh:NodeShape ; sh:targetNode ex:a ; "+tc.shape+" .")
			report := shapes.Validate(parse(t, tc.data))
			require.ElementsMatch(t, tc.expected, components(report), report.Text())
			require.Equal(t, len(tc.expected) == 0, report.Conforms)
		})
	}
}

func TestOtherTargets(t *testing.T) {
	shapes := compile(t, `
ex:SubjectShape a sh:NodeShape ;
    sh:targetSubjectsOf ex:memberOf ;
    sh:property [ sh:path ex:name ; sh:minCount 1 ] .
ex:ObjectShape a sh:NodeShape ;
    sh:targetObjectsOf ex:memberOf ;
    sh:nodeKind sh:IRI .
`)
	report := shapes.Validate(parse(t, `
ex:a ex:memberOf ex:group ; ex:name "a" .
ex:b ex:memberOf _:anonymous .
`))
	require.ElementsMatch(t, []string{"MinCountConstraintComponent", "NodeKindConstraintComponent"}, components(report))
}

func TestImplicitClassTarget(t *testing.T) {
	shapes := compile(t, `
ex:Person a rdfs:Class, sh:NodeShape ;
    sh:property [ sh:path ex:name ; sh:minCount 1 ] .
`)
	report := shapes.Validate(parse(t, `ex:a a ex:Person .`))
	require.Equal(t, []string{"MinCountConstraintComponent"}, components(report))
}

func TestRecursiveShapesTerminate(t *testing.T) {
	shapes := compile(t, `
ex:PersonShape a sh:NodeShape ;
    sh:targetNode ex:a ;
    sh:property [ sh:path ex:knows ; sh:node ex:PersonShape ] .
`)
	report := shapes.Validate(parse(t, `ex:a ex:knows ex:b . ex:b ex:knows ex:a .`))
	require.True(t, report.Conforms)
}

func TestUnsupportedConstraintsAreSkipped(t *testing.T) {
	shapes := compile(t, `
ex:Shape a sh:NodeShape ;
    sh:targetNode ex:a ;
    sh:sparql [ sh:select "SELECT $this WHERE { }" ] .
`)
	require.Equal(t, []string{"<http://example.org/Shape> sh:sparql"}, shapes.Unsupported)
	require.True(t, shapes.Validate(parse(t, `ex:a ex:p "1" .`)).Conforms)
}

func TestMalformedShapes(t *testing.T) {
	for _, shape := range []string{
		`ex:S sh:targetNode ex:a ; sh:property [ sh:path ex:p ; sh:minCount "many" ] .`,
		`ex:S sh:targetNode ex:a ; sh:property [ sh:minCount 1 ] .`,
		`ex:S sh:targetNode ex:a ; sh:property [ sh:path ex:p ; sh:pattern "([" ] .`,
		`ex:S sh:targetNode ex:a ; sh:nodeKind sh:Something .`,
	} {
		_, err := Compile(parse(t, shape))
		require.Error(t, err, shape)
	}
}

func TestWellFormed(t *testing.T) {
	require.True(t, WellFormed(graph.NewTypedLiteral("-12", graph.XSDInteger)))
	require.False(t, WellFormed(graph.NewTypedLiteral("1.5", graph.XSDInteger)))
	require.True(t, WellFormed(graph.NewTypedLiteral(".5", graph.XSDDecimal)))
	require.True(t, WellFormed(graph.NewTypedLiteral("1e10", graph.XSDDouble)))
	require.False(t, WellFormed(graph.NewTypedLiteral("yes", graph.XSDBoolean)))
	require.True(t, WellFormed(graph.NewTypedLiteral("2024-02-29", graph.XSDDate)))
	require.False(t, WellFormed(graph.NewTypedLiteral("2023-02-29", graph.XSDDate)))
	require.True(t, WellFormed(graph.NewTypedLiteral("2024-01-01T10:00:00", graph.XSDDateTime)))
	require.True(t, WellFormed(graph.NewTypedLiteral("anything", "http://example.org/custom")))
	require.False(t, WellFormed(graph.NewIRI("http://example.org/a")))
}
