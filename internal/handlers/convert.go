package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/compare"
	"go-pdftools/internal/convert"
	"go-pdftools/internal/geometry"
	"go-pdftools/internal/pdf"
	"go-pdftools/internal/session"
)

// ConvertToPDF godoc
// @Summary      Convert a document to PDF
// @Description  Converts an uploaded office or HTML file with LibreOffice
// @Tags         convert
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Param        body       body  object  true  "{ source: string }"
// @Success      200  {object}  outputResponse
// @Failure      400  {string}  string  "Unsupported source"
// @Failure      404  {string}  string  "Session or file not found"
// @Router       /api/sessions/{sessionID}/convert/to-pdf [post]
func (h *APIHandler) ConvertToPDF(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Source string `json:"source"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	src, err := h.document(sess, req.Source)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// soffice names its output after the input; a private directory keeps
	// concurrent conversions apart.
	tmpDir, err := os.MkdirTemp(h.OutputDir, "convert-")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer os.RemoveAll(tmpDir)

	converted, err := h.Converter.ToPDF(r.Context(), src, tmpDir)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	name, out := h.newOutput("converted", ".pdf")
	if err := os.Rename(converted, out); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.finishOutput(w, r, sess, name, out)
}

// ConvertToJPG godoc
// @Summary      Convert a page to JPG
// @Tags         convert
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Param        body       body  object  true  "{ document: string, page: int (1-based) }"
// @Success      200  {object}  outputResponse
// @Failure      400  {string}  string  "Bad request"
// @Router       /api/sessions/{sessionID}/convert/to-jpg [post]
func (h *APIHandler) ConvertToJPG(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Document string `json:"document"`
		Page     int    `json:"page"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := h.document(sess, req.Document)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if _, err := selection(in, strconv.Itoa(req.Page)); err != nil {
		h.writeError(w, r, err)
		return
	}
	name, out := h.newOutput("page", ".jpg")
	img, err := h.Converter.ToJPG(r.Context(), in, req.Page-1, strings.TrimSuffix(out, ".jpg"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.finishOutput(w, r, sess, name, img)
}

// ConvertToExcel godoc
// @Summary      Convert a PDF to Excel
// @Description  Writes the text of the document to an xlsx workbook, one line per row
// @Tags         convert
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Param        body       body  object  true  "{ document: string }"
// @Success      200  {object}  outputResponse
// @Failure      400  {string}  string  "Bad request or no text"
// @Failure      404  {string}  string  "Session or document not found"
// @Router       /api/sessions/{sessionID}/convert/to-xlsx [post]
func (h *APIHandler) ConvertToExcel(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Document string `json:"document"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := h.document(sess, req.Document)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	name, out := h.newOutput("converted", ".xlsx")
	if err := convert.ToExcel(in, out); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.finishOutput(w, r, sess, name, out)
}

type previewResponse struct {
	outputResponse
	Metrics geometry.PageMetrics `json:"metrics"`
}

// RenderPreview godoc
// @Summary      Render a page preview
// @Description  Rasterizes a page (1-based) at the server's render scale. The returned metrics describe the image, so placements can be converted between the preview and the page.
// @Tags         documents
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Param        document   path  string  true  "Document filename"
// @Param        page       path  int     true  "Page number (1-based)"
// @Success      200  {object}  previewResponse
// @Failure      400  {string}  string  "Page does not exist"
// @Router       /api/sessions/{sessionID}/documents/{document}/pages/{page}/preview [get]
func (h *APIHandler) RenderPreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	in, err := h.document(sess, chi.URLParam(r, "document"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		h.writeError(w, r, apperr.Wrap(apperr.CodeInvalidInput, "invalid page number", err))
		return
	}
	name, out := h.newOutput("preview", ".png")
	img, m, err := h.Converter.RenderPreview(r.Context(), in, page-1, h.RenderScale, strings.TrimSuffix(out, ".png"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, previewResponse{outputResponse: h.recordOutput(r, sess, name, img), Metrics: m})
}

// ImagesToPDF godoc
// @Summary      Combine images into a PDF
// @Description  Creates a PDF with one page per uploaded JPG or PNG, in the given order
// @Tags         convert
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Param        body       body  object  true  "{ images: [string] }"
// @Success      200  {object}  outputResponse
// @Failure      400  {string}  string  "Bad request"
// @Router       /api/sessions/{sessionID}/convert/images [post]
func (h *APIHandler) ImagesToPDF(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Images []string `json:"images"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	paths := make([]string, 0, len(req.Images))
	for _, img := range req.Images {
		p, err := h.document(sess, img)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if !isImageExt(strings.ToLower(filepath.Ext(p))) {
			h.writeError(w, r, apperr.Newf(apperr.CodeInvalidInput, "%q is not an image", img))
			return
		}
		paths = append(paths, p)
	}
	name, out := h.newOutput("images", ".pdf")
	if err := pdf.ImagesToPDF(paths, out); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.finishOutput(w, r, sess, name, out)
}

// ComparePDFs godoc
// @Summary      Compare the text of two PDFs
// @Description  Returns the lines only found in the first document (removed) and only in the second (added)
// @Tags         compare
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Param        body       body  object  true  "{ first: string, second: string }"
// @Success      200  {object}  compare.Result
// @Failure      404  {string}  string  "Session or document not found"
// @Router       /api/sessions/{sessionID}/compare [post]
func (h *APIHandler) ComparePDFs(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		First  string `json:"first"`
		Second string `json:"second"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	var texts [2][]string
	for i, doc := range []string{req.First, req.Second} {
		p, err := h.document(sess, doc)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if texts[i], err = pdf.TextLines(p); err != nil {
			h.writeError(w, r, apperr.Wrap(apperr.CodeInvalidInput, "cannot read text of "+filepath.Base(p), err))
			return
		}
	}
	writeJSON(w, compare.Diff(texts[0], texts[1]))
}

// UploadScan godoc
// @Summary      Upload a scanned page
// @Description  Adds a captured page image (PNG/JPEG) to the session, typically from a phone
// @Tags         scan
// @Accept       multipart/form-data
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Param        image      formData  file    true  "Page image"
// @Success      200  {object}  session.Scan
// @Failure      400  {string}  string  "Bad request"
// @Router       /api/sessions/{sessionID}/scans [post]
func (h *APIHandler) UploadScan(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	path, name, _, err := h.saveUpload(w, r, uploadRule{
		field:     "image",
		prefix:    "scan-",
		maxBytes:  h.MaxUpload,
		allowed:   imageTypes,
		sniffSize: 512,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sc := sess.AppendScan(path, name)
	h.logger(r).WithField("seq", sc.Seq).Info("scan received")
	writeJSON(w, sc)
}

type scanPoll struct {
	Scans  []session.Scan `json:"scans"`
	Cursor int            `json:"cursor"`
}

// PollScans godoc
// @Summary      Poll for scanned pages
// @Description  Returns the pages captured after cursor and the cursor for the next poll. Resending an old cursor returns the same pages again.
// @Tags         scan
// @Produce      json
// @Param        sessionID  path   string  true   "Session ID"
// @Param        cursor     query  int     false  "Cursor from the previous poll"
// @Success      200  {object}  scanPoll
// @Failure      400  {string}  string  "Invalid cursor"
// @Router       /api/sessions/{sessionID}/scans [get]
func (h *APIHandler) PollScans(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	cursor := 0
	if c := r.URL.Query().Get("cursor"); c != "" {
		var err error
		if cursor, err = strconv.Atoi(c); err != nil || cursor < 0 {
			http.Error(w, "Invalid cursor", http.StatusBadRequest)
			return
		}
	}
	scans, next := sess.ScansSince(cursor)
	if scans == nil {
		scans = []session.Scan{}
	}
	writeJSON(w, scanPoll{Scans: scans, Cursor: next})
}

// AssembleScans godoc
// @Summary      Build a PDF from scanned pages
// @Description  Creates a PDF with one page per scan in capture order
// @Tags         scan
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Success      200  {object}  outputResponse
// @Failure      400  {string}  string  "No scans"
// @Router       /api/sessions/{sessionID}/scans/assemble [post]
func (h *APIHandler) AssembleScans(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	scans := sess.Scans()
	paths := make([]string, len(scans))
	for i, sc := range scans {
		paths[i] = sc.Path
	}
	name, out := h.newOutput("scan", ".pdf")
	if err := pdf.ImagesToPDF(paths, out); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.finishOutput(w, r, sess, name, out)
}
