package formats

import (
	"labtrace/internal/models"
	"labtrace/internal/orid"
	"labtrace/internal/rawfile"
	"labtrace/internal/util"
)

// registry is the dispatch order. First validator to match wins, so this
// order is a load-bearing contract: more specific signatures come before
// broader ones, and it must only ever be extended at the end unless a new
// format's signature is strictly narrower than an existing one.
var registry = []Format{
	beadStudio,
	thermalReport,
	fmGeneration,
	illuminaSampleSheet,
	fmAutoTilt,
	nanoDropQC,
	samplesReport,
	nanopore,
}

// Registry exposes the ordered format list, read-only after init.
func Registry() []Format {
	return registry
}

// Detect returns the first format whose validator accepts the content.
func Detect(c *rawfile.Content) (Format, bool) {
	for _, f := range registry {
		if f.Matches(c) {
			return f, true
		}
	}
	return Format{}, false
}

// Dispatch runs detection and extraction for one file. A content no
// validator claims yields util.ErrUnrecognizedFormat, which callers treat as
// a skip, not a failure. The record is enriched with its content hash and,
// when resolvable, the project identifier from the file path.
func Dispatch(c *rawfile.Content) (models.Record, error) {
	f, ok := Detect(c)
	if !ok {
		return models.Record{}, util.ErrUnrecognizedFormat
	}
	rec, err := f.Extract(c)
	if err != nil {
		return models.Record{}, err
	}
	rec.RecordID = util.SHA256Hex(c.Raw)
	if rec.ORID() == "" {
		if id, found := orid.Resolve(c.Path); found {
			if rec.Identifiers == nil {
				rec.Identifiers = map[string]string{}
			}
			rec.Identifiers["orid"] = id
		}
	}
	return rec, nil
}
