// CLAUDE:SUMMARY Page, Provenance and Format types produced by the hybrid extraction pipeline.
package docpipe

// Format identifies a source document type.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatTXT Format = "txt"
)

// Provenance records where a page's final text came from.
type Provenance string

const (
	// ProvenanceNative: the embedded text layer was good enough.
	ProvenanceNative Provenance = "native"
	// ProvenanceRecognized: the page was rendered and recognized.
	ProvenanceRecognized Provenance = "recognized"
	// ProvenanceFallback: recognition was needed but produced nothing, the
	// native text is kept.
	ProvenanceFallback Provenance = "recognized_fallback"
	// ProvenancePending marks pages queued for recognition. It never leaves
	// the pipeline.
	ProvenancePending Provenance = "pending"
)

// Page is one page of text in source order. Index is 0-based.
type Page struct {
	Index      int           `json:"index"`
	Text       string        `json:"text"`
	Provenance Provenance    `json:"provenance"`
	Quality    QualitySignal `json:"quality"`
	HasImages  bool          `json:"has_images,omitempty"`
}

// Counts tallies pages by provenance.
type Counts struct {
	Native     int `json:"native"`
	Recognized int `json:"recognized"`
	Fallback   int `json:"recognized_fallback"`
}

// Summarize counts pages per provenance.
func Summarize(pages []Page) Counts {
	var c Counts
	for _, p := range pages {
		switch p.Provenance {
		case ProvenanceNative:
			c.Native++
		case ProvenanceRecognized:
			c.Recognized++
		case ProvenanceFallback:
			c.Fallback++
		}
	}
	return c
}
