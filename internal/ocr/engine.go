package ocr

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/otiai10/gosseract/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Engine turns an uploaded document (PDF or image) into raw text. PDFs with
// an embedded text layer are read directly; scanned PDFs fall back to
// rasterized-image OCR via Tesseract.
type Engine struct {
	language       string
	tessdataPrefix string
	minTextLength  int
}

// NewEngine creates an OCR engine. minTextLength is the embedded-text size
// under which a PDF is treated as a scan.
func NewEngine(language, tessdataPrefix string, minTextLength int) *Engine {
	if language == "" {
		language = "por"
	}
	if minTextLength <= 0 {
		minTextLength = 30
	}
	return &Engine{
		language:       language,
		tessdataPrefix: tessdataPrefix,
		minTextLength:  minTextLength,
	}
}

// ExtractText returns the text of an uploaded file. PDF inputs try the
// embedded text layer first; images (and scanned PDFs) go through Tesseract.
func (e *Engine) ExtractText(data []byte, filename string) (string, error) {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return e.extractFromPDF(data)
	}
	return e.ocrImageBytes(data)
}

func (e *Engine) extractFromPDF(data []byte) (string, error) {
	text, err := embeddedText(data)
	if err == nil && len(strings.TrimSpace(text)) >= e.minTextLength {
		return text, nil
	}

	// Little or no text layer: the PDF is likely a scan. Pull out the page
	// images and OCR those instead.
	scanned, scanErr := e.ocrPDFImages(data)
	if scanErr != nil {
		if err != nil {
			return "", fmt.Errorf("pdf text extraction failed: %v; image OCR failed: %w", err, scanErr)
		}
		return text, nil
	}
	if len(strings.TrimSpace(scanned)) > len(strings.TrimSpace(text)) {
		return scanned, nil
	}
	return text, nil
}

// embeddedText reads the PDF's text layer row by row.
func embeddedText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			for i, word := range row.Content {
				if i > 0 {
					b.WriteString(" ")
				}
				b.WriteString(word.S)
			}
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// ocrPDFImages extracts the page images with pdfcpu and runs Tesseract over
// each one, concatenating the results in page order.
func (e *Engine) ocrPDFImages(data []byte) (string, error) {
	tempDir, err := os.MkdirTemp("", "saft-pdf-images")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	tempFile, err := os.CreateTemp("", "doc-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return "", fmt.Errorf("failed to write pdf data: %w", err)
	}
	tempFile.Close()

	pages, err := api.PageCountFile(tempFile.Name())
	if err != nil {
		return "", fmt.Errorf("unreadable PDF: %w", err)
	}
	if pages == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractImagesFile(tempFile.Name(), tempDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract images: %w", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return "", fmt.Errorf("failed to read temp dir: %w", err)
	}

	var b strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		text, err := e.ocrImageFile(filepath.Join(tempDir, entry.Name()))
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no readable page images in PDF")
	}
	return b.String(), nil
}

func (e *Engine) ocrImageBytes(data []byte) (string, error) {
	tempFile, err := os.CreateTemp("", "ocr-*.img")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return "", fmt.Errorf("failed to write image data: %w", err)
	}
	tempFile.Close()

	return e.ocrImageFile(tempFile.Name())
}

func (e *Engine) ocrImageFile(path string) (string, error) {
	enhanced := enhanceImage(path)
	if enhanced != path {
		defer os.Remove(enhanced)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if e.tessdataPrefix != "" {
		client.SetTessdataPrefix(e.tessdataPrefix)
	}
	if err := client.SetLanguage(e.language); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImage(enhanced); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	return text, nil
}

// Version probes the installed tesseract binary. Used by the health check.
func Version() (string, error) {
	out, err := exec.Command("tesseract", "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("tesseract not available: %w", err)
	}
	line := strings.SplitN(strings.TrimSpace(string(out)), "\n", 2)[0]
	return line, nil
}
