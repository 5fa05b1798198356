package handlers

import (
	"net/http"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/crop"
	"go-pdftools/internal/geometry"
	"go-pdftools/internal/pdf"
	"go-pdftools/internal/redact"
	"go-pdftools/internal/utils"
	"go-pdftools/internal/watermark"
)

// selection parses a 1-based page selection such as "1,3-5" against the
// document. An empty selection means every page and yields nil.
func selection(path, sel string) ([]int, error) {
	if sel == "" {
		return nil, nil
	}
	n, err := pdf.PageCount(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidInput, "unreadable PDF", err)
	}
	return utils.ParsePages(sel, n)
}

type watermarkRequest struct {
	Document string         `json:"document"`
	Pages    string         `json:"pages"`
	Spec     watermark.Spec `json:"watermark"`
}

// AddWatermark godoc
// @Summary      Add a text watermark
// @Description  Draws the watermark on the selected pages (all pages when pages is empty)
// @Tags         edit
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string            true  "Session ID"
// @Param        body       body  watermarkRequest  true  "Document, pages and watermark"
// @Success      200  {object}  outputResponse
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Session or document not found"
// @Router       /api/sessions/{sessionID}/watermark [post]
func (h *APIHandler) AddWatermark(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req watermarkRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	path, err := h.document(sess, req.Document)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	pages, err := selection(path, req.Pages)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	name, out := h.newOutput("watermarked", ".pdf")
	if err := pdf.ApplyWatermark(path, out, req.Spec, pages); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.finishOutput(w, r, sess, name, out)
}

// cropRequest takes either explicit margins or a placement whose rectangle
// becomes the visible window.
type cropRequest struct {
	Document  string                  `json:"document"`
	Pages     string                  `json:"pages"`
	Margins   *crop.Spec              `json:"margins,omitempty"`
	Placement *geometry.PlacementRect `json:"placement,omitempty"`
}

func (c cropRequest) spec() (crop.Spec, error) {
	switch {
	case c.Margins != nil:
		return *c.Margins, nil
	case c.Placement != nil:
		return crop.FromPlacement(*c.Placement), nil
	}
	return crop.Spec{}, apperr.New(apperr.CodeInvalidInput, "margins or placement required")
}

type cropResponse struct {
	outputResponse
	Pages []crop.Result `json:"pages"`
}

// CropPDF godoc
// @Summary      Crop pages
// @Description  Sets the visible window of the selected pages from margins or from a placement rectangle
// @Tags         edit
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string       true  "Session ID"
// @Param        body       body  cropRequest  true  "Document, pages and crop"
// @Success      200  {object}  cropResponse
// @Failure      400  {string}  string  "Bad request or degenerate crop"
// @Failure      404  {string}  string  "Session or document not found"
// @Router       /api/sessions/{sessionID}/crop [post]
func (h *APIHandler) CropPDF(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req cropRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	spec, err := req.spec()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	path, err := h.document(sess, req.Document)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	pages, err := selection(path, req.Pages)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	name, out := h.newOutput("cropped", ".pdf")
	results, err := pdf.Crop(path, out, spec, pages)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, cropResponse{outputResponse: h.recordOutput(r, sess, name, out), Pages: results})
}

type searchRequest struct {
	Document string `json:"document"`
	Query    string `json:"query"`
}

type searchResponse struct {
	Matches []redact.MatchRect     `json:"matches"`
	Metrics []geometry.PageMetrics `json:"metrics"`
}

// SearchText godoc
// @Summary      Find text to redact
// @Description  Returns the preview rectangles (render space) of every case-insensitive occurrence of query
// @Tags         redact
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string         true  "Session ID"
// @Param        body       body  searchRequest  true  "Document and query"
// @Success      200  {object}  searchResponse
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Session or document not found"
// @Router       /api/sessions/{sessionID}/redact/search [post]
func (h *APIHandler) SearchText(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	path, err := h.document(sess, req.Document)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	metrics, err := h.metrics(sess, path)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	fragments, err := pdf.TextFragments(path, metrics)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	matches := redact.Search(fragments, req.Query)
	if matches == nil {
		matches = []redact.MatchRect{}
	}
	h.logger(r).WithField("matches", len(matches)).Debug("text searched")
	writeJSON(w, searchResponse{Matches: matches, Metrics: metrics})
}

type redactRequest struct {
	Document string             `json:"document"`
	Boxes    []redact.MatchRect `json:"boxes"`
}

// ApplyRedaction godoc
// @Summary      Black out boxes
// @Description  Covers every box (preview pixels, as returned by search and possibly moved or resized) with an opaque rectangle
// @Tags         redact
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string         true  "Session ID"
// @Param        body       body  redactRequest  true  "Document and boxes"
// @Success      200  {object}  outputResponse
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Session or document not found"
// @Router       /api/sessions/{sessionID}/redact/apply [post]
func (h *APIHandler) ApplyRedaction(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req redactRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(req.Boxes) == 0 {
		h.writeError(w, r, apperr.New(apperr.CodeInvalidInput, "no boxes to redact"))
		return
	}
	path, err := h.document(sess, req.Document)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	metrics, err := h.metrics(sess, path)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	boxes, err := redact.ToDocument(req.Boxes, metrics)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	name, out := h.newOutput("redacted", ".pdf")
	if err := pdf.Redact(path, boxes, out); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.finishOutput(w, r, sess, name, out)
}

type editRequest struct {
	Document string        `json:"document"`
	Pages    string        `json:"pages"`
	Metadata pdf.Metadata  `json:"metadata"`
	Text     *pdf.TextNote `json:"text,omitempty"`
}

// EditPDF godoc
// @Summary      Edit metadata and add text
// @Description  Sets the non-empty metadata fields and draws text at x,y (points from the lower left corner) on the selected pages
// @Tags         edit
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string       true  "Session ID"
// @Param        body       body  editRequest  true  "Document, pages, metadata and text"
// @Success      200  {object}  outputResponse
// @Failure      400  {string}  string  "Bad request or text outside the page"
// @Failure      404  {string}  string  "Session or document not found"
// @Router       /api/sessions/{sessionID}/edit [post]
func (h *APIHandler) EditPDF(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	path, err := h.document(sess, req.Document)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	pages, err := selection(path, req.Pages)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	name, out := h.newOutput("edited", ".pdf")
	if err := pdf.Edit(path, out, req.Metadata, req.Text, pages); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.finishOutput(w, r, sess, name, out)
}
