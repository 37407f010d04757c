// Package pdfplan extracts floor plan information from PDF drawings.
//
// Architectural PDFs usually carry a text layer alongside the drawing: room
// labels, dimension annotations, and a scale note. The Extractor molecule
// pulls that text out page by page (ledongthuc/pdf underneath) and the
// annotation parser turns it into structured hints that enrich a floor plan
// analysis.
package pdfplan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoPDFContent is returned when a PDF contains no extractable text.
var ErrNoPDFContent = errors.New("no text content found in PDF")

// ErrEmptyPath is returned when an empty file path is provided.
var ErrEmptyPath = errors.New("empty PDF path provided")

// PageResult is the extracted text of a single page.
type PageResult struct {
	// PageNumber is 1-indexed
	PageNumber int
	Text       string
	// Error is non-nil if extraction failed for this page
	Error error
}

// ExtractionResult is the outcome of extracting a whole document.
type ExtractionResult struct {
	// Text is the concatenated text of all pages that yielded content
	Text string
	// TotalPages is the page count of the PDF
	TotalPages int
	// ExtractedPages is how many pages yielded text
	ExtractedPages int
	// SkippedPages is how many pages were empty or failed
	SkippedPages int
	Pages        []PageResult
	Errors       []error
}

// ExtractorConfig controls text extraction.
type ExtractorConfig struct {
	// PageSeparator is inserted between page texts (default "\n\n")
	PageSeparator string
	// ContinueOnError keeps going when a page fails to extract
	ContinueOnError bool
	// MaxPages limits extraction to the first N pages (0 for all). Floor
	// plan sets can run to hundreds of sheets; usually only the first few
	// matter.
	MaxPages int
}

// DefaultExtractorConfig returns sensible defaults for plan documents.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		PageSeparator:   "\n\n",
		ContinueOnError: true,
		MaxPages:        10,
	}
}

// Extractor extracts the text layer from PDF files.
type Extractor struct {
	config ExtractorConfig
}

// NewExtractor creates an Extractor with the given configuration.
func NewExtractor(config ExtractorConfig) *Extractor {
	if config.PageSeparator == "" {
		config.PageSeparator = "\n\n"
	}
	return &Extractor{config: config}
}

// NewDefaultExtractor creates an Extractor with default configuration.
func NewDefaultExtractor() *Extractor {
	return NewExtractor(DefaultExtractorConfig())
}

// Extract reads the text layer of the PDF at path.
func (e *Extractor) Extract(pdfPath string) (*ExtractionResult, error) {
	if pdfPath == "" {
		return nil, ErrEmptyPath
	}

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	return e.extractFromReader(r)
}

// ExtractFromReader extracts from an already-open PDF reader.
func (e *Extractor) ExtractFromReader(r *pdf.Reader) (*ExtractionResult, error) {
	if r == nil {
		return nil, errors.New("nil PDF reader provided")
	}
	return e.extractFromReader(r)
}

func (e *Extractor) extractFromReader(r *pdf.Reader) (*ExtractionResult, error) {
	totalPages := r.NumPage()

	result := &ExtractionResult{
		TotalPages: totalPages,
		Pages:      make([]PageResult, 0, totalPages),
	}

	pagesToProcess := totalPages
	if e.config.MaxPages > 0 && e.config.MaxPages < totalPages {
		pagesToProcess = e.config.MaxPages
	}

	var textBuilder strings.Builder
	for pageIndex := 1; pageIndex <= pagesToProcess; pageIndex++ {
		pageResult := e.extractPage(r, pageIndex)
		result.Pages = append(result.Pages, pageResult)

		if pageResult.Error != nil {
			result.Errors = append(result.Errors, fmt.Errorf("page %d: %w", pageIndex, pageResult.Error))
			result.SkippedPages++
			if !e.config.ContinueOnError {
				return result, pageResult.Error
			}
			continue
		}
		if pageResult.Text == "" {
			result.SkippedPages++
			continue
		}

		result.ExtractedPages++
		if textBuilder.Len() > 0 {
			textBuilder.WriteString(e.config.PageSeparator)
		}
		textBuilder.WriteString(pageResult.Text)
	}

	result.Text = textBuilder.String()
	if result.Text == "" {
		return result, ErrNoPDFContent
	}
	return result, nil
}

func (e *Extractor) extractPage(r *pdf.Reader, pageIndex int) PageResult {
	result := PageResult{PageNumber: pageIndex}

	p := r.Page(pageIndex)
	if p.V.IsNull() {
		// Empty page, not an error.
		return result
	}

	text, err := p.GetPlainText(nil)
	if err != nil {
		result.Error = fmt.Errorf("failed to extract text: %w", err)
		return result
	}
	result.Text = strings.TrimSpace(text)
	return result
}

// ExtractAnnotations is the package's main entry point: extract the text
// layer of the PDF at path and parse it into plan annotations.
func ExtractAnnotations(pdfPath string) (*Annotations, error) {
	result, err := NewDefaultExtractor().Extract(pdfPath)
	if err != nil {
		return nil, err
	}
	return ParseAnnotations(result.Text), nil
}
