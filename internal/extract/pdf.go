package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dslipak/pdf"
	"github.com/rs/zerolog/log"
)

const pageTimeout = 10 * time.Second

var (
	ErrNotPDF      = errors.New("data is not a PDF document")
	errPageTimeout = errors.New("page extraction timed out")
)

// IsPDF reports whether data starts with the PDF magic bytes.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-"))
}

// PDFText returns the plain text of every readable page, pages separated by
// newlines. Pages that fail or time out are skipped.
func PDFText(data []byte) (string, error) {
	if !IsPDF(data) {
		return "", ErrNotPDF
	}

	r, err := openPDF(data)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := pageText(page)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("skipping unreadable pdf page")
			continue
		}
		if content = strings.TrimSpace(content); content != "" {
			pages = append(pages, content)
		}
	}

	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}

// PDF adapts PDFText to an injectable extractor.
type PDF struct{}

func (PDF) ExtractPDF(data []byte) (string, error) {
	return PDFText(data)
}

func openPDF(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func pageText(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resChan <- result{err: fmt.Errorf("malformed page: %v", rec)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(pageTimeout):
		return "", errPageTimeout
	}
}
