package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// FetchError reports a non-success HTTP status while downloading a
// document. Status is 0 when the request never reached the server.
type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("failed to fetch document from %s", e.URL)
	}
	return fmt.Sprintf("failed to fetch document from %s: status %d", e.URL, e.Status)
}

// ParseError reports that fetched bytes could not be parsed as a PDF.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse document: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsAccessError reports whether err is a FetchError with a status that
// means the document is not accessible (401, 403, 404).
func IsAccessError(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// Extractor downloads documents and extracts plain text from them.
type Extractor struct {
	httpClient *http.Client
}

func NewExtractor() *Extractor {
	return &Extractor{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// ExtractText fetches the PDF at url, extracts its plain text with
// whitespace normalized to single spaces, and truncates the result to
// the first wordLimit words.
func (x *Extractor) ExtractText(ctx context.Context, url string, wordLimit int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{URL: url}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{URL: url, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: url}
	}

	text, err := extractPDFText(data)
	if err != nil {
		return "", &ParseError{Err: err}
	}

	return limitWords(text, wordLimit), nil
}

// extractPDFText pulls plain text from every page of a PDF document.
// Pages that fail to decode are skipped rather than failing the whole
// document.
func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// limitWords normalizes whitespace to single spaces and keeps the first
// wordLimit words.
func limitWords(text string, wordLimit int) string {
	words := strings.Fields(text)
	if wordLimit > 0 && len(words) > wordLimit {
		words = words[:wordLimit]
	}
	return strings.Join(words, " ")
}
