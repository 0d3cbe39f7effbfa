package extract

// Extractor turns a fetched page into a format index.
// Implementations must be deterministic, side-effect free and never fail.
type Extractor interface {
	Extract(input []byte, baseURL string) Index
}

// ImageExtractor classifies <img> elements with FromHTML.
type ImageExtractor struct{}

func (ImageExtractor) Extract(input []byte, baseURL string) Index {
	return FromHTML(input, baseURL)
}
