package cimxml

import (
	"github.com/iec61970/cimx/cimxdataset"
	"github.com/iec61970/cimx/cimxgraph"
)

// Sink is the interface the parser drives, spec.md §4.H, verbatim.
type Sink interface {
	Start()
	Triple(t cimxgraph.Triple)
	Prefix(prefix, namespace string)
	Base(uri string)
	Finish() error

	SetVersionOfCIMXML(version string)
	SetVersionOfIEC61970_552(version string)
	SetCurrentContext(ctx Context)
	CurrentContext() Context

	ModelHeader() *ModelHeader
	Dataset() *cimxdataset.Dataset
}
