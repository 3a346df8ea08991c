// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package graph

import "strings"

const (
	RDFNamespace     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace    = "http://www.w3.org/2000/01/rdf-schema#"
	OWLNamespace     = "http://www.w3.org/2002/07/owl#"
	XSDNamespace     = "http://www.w3.org/2001/XMLSchema#"
	DCTermsNamespace = "http://purl.org/dc/terms/"
	DCATNamespace    = "http://www.w3.org/ns/dcat#"
	GeoNamespace     = "http://www.opengis.net/ont/geosparql#"
	SHNamespace      = "http://www.w3.org/ns/shacl#"
)

const (
	RDFType       = RDFNamespace + "type"
	RDFFirst      = RDFNamespace + "first"
	RDFRest       = RDFNamespace + "rest"
	RDFNil        = RDFNamespace + "nil"
	RDFLangString = RDFNamespace + "langString"

	RDFSClass      = RDFSNamespace + "Class"
	RDFSSubClassOf = RDFSNamespace + "subClassOf"
	RDFSMember     = RDFSNamespace + "member"
	RDFSSeeAlso    = RDFSNamespace + "seeAlso"
	RDFSLabel      = RDFSNamespace + "label"

	OWLClass = OWLNamespace + "Class"

	XSDString   = XSDNamespace + "string"
	XSDBoolean  = XSDNamespace + "boolean"
	XSDInteger  = XSDNamespace + "integer"
	XSDDecimal  = XSDNamespace + "decimal"
	XSDDouble   = XSDNamespace + "double"
	XSDFloat    = XSDNamespace + "float"
	XSDDate     = XSDNamespace + "date"
	XSDDateTime = XSDNamespace + "dateTime"

	DCTermsIdentifier = DCTermsNamespace + "identifier"
	DCTermsIsPartOf   = DCTermsNamespace + "isPartOf"
	DCTermsTitle      = DCTermsNamespace + "title"

	DCATDataset = DCATNamespace + "Dataset"

	GeoFeature           = GeoNamespace + "Feature"
	GeoFeatureCollection = GeoNamespace + "FeatureCollection"
	GeoHasGeometry       = GeoNamespace + "hasGeometry"
	GeoAsWKT             = GeoNamespace + "asWKT"
	GeoWKTLiteral        = GeoNamespace + "wktLiteral"
)

var prefixes = []struct{ prefix, namespace string }{
	{"rdf", RDFNamespace},
	{"rdfs", RDFSNamespace},
	{"owl", OWLNamespace},
	{"xsd", XSDNamespace},
	{"dcterms", DCTermsNamespace},
	{"dcat", DCATNamespace},
	{"geo", GeoNamespace},
	{"sh", SHNamespace},
}

func compactIRI(iri string) string {
	for _, p := range prefixes {
		if local, ok := strings.CutPrefix(iri, p.namespace); ok {
			return p.prefix + ":" + local
		}
	}
	return "<" + iri + ">"
}
