package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/verifatura/saft-validator-service/internal/extract"
	"github.com/verifatura/saft-validator-service/internal/models"
	"github.com/verifatura/saft-validator-service/internal/ocr"
	"github.com/verifatura/saft-validator-service/internal/saft"
)

const (
	MaxUploadSize = 50 * 1024 * 1024 // 50MB, SAF-T files get big
	Version       = "1.2.0"
)

// Check lists reported alongside every validation response, so clients know
// which passes ran.
var (
	ChecksXML = []string{
		"BASE",
		"Fiscal",
		"IVA",
		"SourceDocuments",
		"ATCUD/Hash",
		"Customers",
		"Products",
		"Payments",
	}
	ChecksPDF = []string{
		"OCR",
		"Documento",
		"Identificação",
		"Totais",
		"Sinais fiscais (best-effort)",
	}
)

const saftValidSummary = "SAF-T válido (BASE + Fiscal + IVA + SourceDocuments + ATCUD/Hash + Customers + Products + Payments)"
const purchaseValidSummary = "Documento analisado com sucesso (OCR assistido)."

// Handler handles HTTP requests for fiscal document validation
type Handler struct {
	config *models.Config
	engine *ocr.Engine
}

// NewHandler creates a new API handler
func NewHandler(config *models.Config) *Handler {
	return &Handler{
		config: config,
		engine: ocr.NewEngine(config.OCR.Language, config.OCR.TessdataPrefix, config.OCR.MinTextLength),
	}
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/validate-saft", h.ValidateSAFT).Methods("POST")
	router.HandleFunc("/api/validate-purchase", h.ValidatePurchase).Methods("POST")

	router.HandleFunc("/health", h.Health).Methods("GET")

	return router
}

// SAFTResponse is the JSON shape of a SAF-T validation run.
type SAFTResponse struct {
	Valid       bool              `json:"valid"`
	Summary     string            `json:"summary,omitempty"`
	Errors      []string          `json:"errors"`
	Checks      []string          `json:"checks"`
	RunID       string            `json:"run_id"`
	InvoiceView *saft.InvoiceView `json:"invoice_view"`
}

// ValidateSAFT runs the fiscal rule passes over an uploaded SAF-T PT XML
// file. `?extended=true` adds the suppliers and purchase-invoices passes.
// A file with findings comes back 422 with every finding listed.
func (h *Handler) ValidateSAFT(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	runID := uuid.New().String()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "File too large or invalid form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "No file provided (use 'file' field)")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".xml") {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(SAFTResponse{
			Errors: []string{"Ficheiro XML inválido."},
			Checks: ChecksXML,
			RunID:  runID,
		})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}

	audit, err := saft.Decode(data)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(SAFTResponse{
			Errors: []string{err.Error()},
			Checks: ChecksXML,
			RunID:  runID,
		})
		return
	}

	validator := saft.NewValidator()
	if r.URL.Query().Get("extended") == "true" {
		validator = saft.NewExtendedValidator()
	}
	acc := &saft.Accumulator{}
	validator.Validate(audit, acc)
	errors := acc.Messages()

	resp := SAFTResponse{
		Valid:  len(errors) == 0,
		Errors: errors,
		Checks: ChecksXML,
		RunID:  runID,
	}
	status := http.StatusOK
	if resp.Valid {
		resp.Summary = saftValidSummary
		resp.InvoiceView = saft.BuildInvoiceView(audit)
	} else {
		status = http.StatusUnprocessableEntity
	}

	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// PurchaseResponse is the JSON shape of a purchase-document analysis.
type PurchaseResponse struct {
	Valid     bool              `json:"valid"`
	Summary   string            `json:"summary,omitempty"`
	Errors    []string          `json:"errors"`
	Checks    []string          `json:"checks"`
	Extracted map[string]string `json:"extracted"`
	Invoice   extract.Fields    `json:"invoice"`
}

// ValidatePurchase analyses a purchase document. It accepts either an
// uploaded PDF/image (`file` field, goes through OCR) or pre-extracted text
// (`text` form field). Extraction is best-effort; the coherence checks
// decide validity.
func (h *Handler) ValidatePurchase(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "File too large or invalid form data")
		return
	}

	rawText, err := h.purchaseText(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	var errors []string
	if len(strings.TrimSpace(rawText)) < 30 {
		errors = append(errors, "OCR não conseguiu ler texto suficiente do PDF (scan fraco).")
	}

	report := extract.Analyze(rawText)
	errors = append(errors, report.Errors...)

	normText := strings.Join(strings.Fields(rawText), " ")
	sample := normText
	if runes := []rune(sample); len(runes) > 220 {
		sample = string(runes[:220])
	}
	extracted := map[string]string{
		"ocr_chars":  fmt.Sprintf("%d", len(rawText)),
		"ocr_sample": sample,
	}

	resp := PurchaseResponse{
		Valid:     len(errors) == 0,
		Errors:    errors,
		Checks:    ChecksPDF,
		Extracted: extracted,
		Invoice:   report.Fields,
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	status := http.StatusOK
	if resp.Valid {
		resp.Summary = purchaseValidSummary
	} else {
		status = http.StatusUnprocessableEntity
	}

	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// purchaseText obtains the raw text for a purchase analysis: the `text`
// form field as-is, or the uploaded file through the OCR engine.
func (h *Handler) purchaseText(r *http.Request) (string, error) {
	if text := r.FormValue("text"); text != "" {
		return text, nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", fmt.Errorf("no input provided (use 'file' upload or 'text' field)")
	}
	defer file.Close()

	name := strings.ToLower(header.Filename)
	ok := false
	for _, ext := range []string{".pdf", ".png", ".jpg", ".jpeg", ".tif", ".tiff"} {
		if strings.HasSuffix(name, ext) {
			ok = true
			break
		}
	}
	if !ok {
		return "", fmt.Errorf("Ficheiro PDF inválido.")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	text, err := h.engine.ExtractText(data, header.Filename)
	if err != nil {
		return "", fmt.Errorf("OCR failed: %v", err)
	}
	return text, nil
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status      string        `json:"status"`
	Version     string        `json:"version"`
	Timestamp   string        `json:"timestamp"`
	Uptime      string        `json:"uptime"`
	Memory      MemoryStats   `json:"memory"`
	Tesseract   ServiceStatus `json:"tesseract"`
	ImageMagick ServiceStatus `json:"imageMagick"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

var startTime = time.Now()

// Health endpoint. XML validation works without OCR, so a missing tesseract
// only degrades the service instead of failing it.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	tesseractStatus := h.checkTesseract()
	imageMagickStatus := h.checkImageMagick()

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		Tesseract:   tesseractStatus,
		ImageMagick: imageMagickStatus,
	}

	if !tesseractStatus.Available {
		response.Status = "degraded"
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// checkTesseract verifies Tesseract OCR is available
func (h *Handler) checkTesseract() ServiceStatus {
	version, err := ocr.Version()
	if err != nil {
		return ServiceStatus{
			Available: false,
			Error:     "tesseract not found or not executable",
		}
	}
	return ServiceStatus{
		Available: true,
		Version:   version,
	}
}

// checkImageMagick verifies ImageMagick is available
func (h *Handler) checkImageMagick() ServiceStatus {
	output, err := exec.Command("convert", "-version").CombinedOutput()
	if err != nil {
		return ServiceStatus{
			Available: false,
			Error:     "imagemagick not found or not executable",
		}
	}

	version := "unknown"
	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		version = strings.TrimSpace(lines[0])
	}
	return ServiceStatus{
		Available: true,
		Version:   version,
	}
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
