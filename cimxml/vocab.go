package cimxml

// RDF/XML vocabulary IRIs (W3C RDF/XML 2004), spec.md §4.I's grammar.
const (
	rdfNS = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

	rdfRDF         = rdfNS + "RDF"
	rdfDescription = rdfNS + "Description"
	rdfAbout       = "about"
	rdfID          = "ID"
	rdfNodeID      = "nodeID"
	rdfResource    = "resource"
	rdfDatatype    = "datatype"
	rdfParseType   = "parseType"
	rdfLI          = rdfNS + "li"
	rdfFirst       = rdfNS + "first"
	rdfRest        = rdfNS + "rest"
	rdfNil         = rdfNS + "nil"
	rdfValue       = rdfNS + "value"
	rdfStatement   = rdfNS + "Statement"
	rdfSubject     = rdfNS + "subject"
	rdfPredicate   = rdfNS + "predicate"
	rdfObject      = rdfNS + "object"
	rdfXMLLiteral  = rdfNS + "XMLLiteral"

	// Old RDF/XML 1999 terms spec.md §4.I rejects outright.
	rdfAboutEach       = "aboutEach"
	rdfAboutEachPrefix = "aboutEachPrefix"
	rdfBagID           = "bagID"

	xmlNS   = "http://www.w3.org/XML/1998/namespace"
	xmlBase = "base"
	xmlLang = "lang"

	xmlnsNS = "http://www.w3.org/2000/xmlns/"

	differenceForward  = "forwardDifferences"
	differenceReverse  = "reverseDifferences"
	differencePrecond  = "preconditions"

	typeNameFullModel       = "FullModel"
	typeNameDifferenceModel = "DifferenceModel"
)
