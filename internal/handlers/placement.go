package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/geometry"
	"go-pdftools/internal/pdf"
	"go-pdftools/internal/placement"
	"go-pdftools/internal/session"
)

// metrics returns the page metrics of a session document at the preview
// scale, reading the file only once per document.
func (h *APIHandler) metrics(sess *session.Session, path string) ([]geometry.PageMetrics, error) {
	key := filepath.Base(path)
	if m, ok := sess.Metrics(key); ok {
		return m, nil
	}
	m, err := pdf.PageMetrics(path, h.RenderScale)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidInput, "unreadable PDF", err)
	}
	sess.SetMetrics(key, m)
	return m, nil
}

func pageMetrics(metrics []geometry.PageMetrics, page int) (geometry.PageMetrics, error) {
	if page < 0 || page >= len(metrics) {
		return geometry.PageMetrics{}, apperr.Newf(apperr.CodeOutOfRange, "page %d does not exist", page+1).With("pages", len(metrics))
	}
	return metrics[page], nil
}

// PageMetrics godoc
// @Summary      Page metrics of a document
// @Description  Returns document and preview sizes of every page. Previews are rendered at the server's render scale.
// @Tags         documents
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Param        document   path  string  true  "Document filename"
// @Success      200  {array}   geometry.PageMetrics
// @Failure      404  {string}  string  "Session or document not found"
// @Router       /api/sessions/{sessionID}/documents/{document}/metrics [get]
func (h *APIHandler) PageMetrics(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	path, err := h.document(sess, chi.URLParam(r, "document"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.metrics(sess, path)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, m)
}

type selectRequest struct {
	Document string `json:"document"`
	Pages    []int  `json:"pages"` // 0-based
}

// SelectPages godoc
// @Summary      Select pages to sign
// @Description  Starts the placement workflow for document (if needed) and replaces the page selection. Pages are 0-based. Selecting pages of another document discards the current workflow.
// @Tags         signature
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string         true  "Session ID"
// @Param        body       body  selectRequest  true  "Document and pages"
// @Success      200  {object}  placement.Snapshot
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID}/placement/pages [put]
func (h *APIHandler) SelectPages(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(req.Pages) == 0 {
		h.writeError(w, r, apperr.New(apperr.CodeInvalidInput, "no pages selected"))
		return
	}
	path, err := h.document(sess, req.Document)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.metrics(sess, path)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	for _, p := range req.Pages {
		if _, err := pageMetrics(m, p); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	doc := filepath.Base(path)
	h.placement(w, r, sess, func(p *placement.Session) error {
		if p.Document() != doc {
			h.logger(r).WithField("document", doc).Debug("placement workflow bound to document")
		}
		p.Bind(doc)
		if p.State() == placement.Idle {
			p.Begin()
		}
		return p.SelectPages(req.Pages)
	})
}

// GoToPage godoc
// @Summary      Navigate to a selected page
// @Tags         signature
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Param        body       body  object  true  "{ page: int }"
// @Success      200  {object}  placement.Snapshot
// @Failure      409  {string}  string  "Page not selected or locked"
// @Router       /api/sessions/{sessionID}/placement/goto [post]
func (h *APIHandler) GoToPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Page int `json:"page"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.placement(w, r, sess, func(p *placement.Session) error {
		return p.GoTo(req.Page)
	})
}

// dragRequest carries the dragged position either as page fractions or as
// a render space rectangle of the document's preview. Document defaults to
// the one the workflow is bound to.
type dragRequest struct {
	Page      int                     `json:"page"`
	Placement *geometry.PlacementRect `json:"placement,omitempty"`
	Rect      *geometry.Rect          `json:"rect,omitempty"`
	Document  string                  `json:"document,omitempty"`
}

// RecordDrag godoc
// @Summary      Record a dragged signature position
// @Description  Records the position for a page without committing it. Send either placement (page fractions) or rect (preview pixels) together with document.
// @Tags         signature
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string       true  "Session ID"
// @Param        body       body  dragRequest  true  "Position"
// @Success      200  {object}  placement.Snapshot
// @Failure      400  {string}  string  "Bad request"
// @Failure      409  {string}  string  "Page not active or locked"
// @Router       /api/sessions/{sessionID}/placement/drag [post]
func (h *APIHandler) RecordDrag(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req dragRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	bound := boundDocument(sess)
	if req.Document == "" {
		req.Document = bound
	} else if filepath.Base(req.Document) != bound {
		h.writeError(w, r, otherDocument(bound, req.Document))
		return
	}

	var pos geometry.PlacementRect
	switch {
	case req.Placement != nil:
		pos = *req.Placement
	case req.Rect != nil:
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
		m, err := pageMetrics(metrics, req.Page)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if pos, err = geometry.ToDocumentSpace(*req.Rect, m); err != nil {
			h.writeError(w, r, err)
			return
		}
	default:
		h.writeError(w, r, apperr.New(apperr.CodeInvalidInput, "placement or rect required"))
		return
	}

	h.placement(w, r, sess, func(p *placement.Session) error {
		return p.RecordDrag(req.Page, pos)
	})
}

// LockPlacement godoc
// @Summary      Lock the current page
// @Description  Commits the dragged position of the current page and moves to the next pending page
// @Tags         signature
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Success      200  {object}  placement.Snapshot
// @Failure      409  {string}  string  "No position recorded"
// @Failure      400  {string}  string  "Position out of range"
// @Router       /api/sessions/{sessionID}/placement/lock [post]
func (h *APIHandler) LockPlacement(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.placement(w, r, sess, func(p *placement.Session) error {
		return p.LockCurrent()
	})
}

// PlacementState godoc
// @Summary      Placement workflow state
// @Tags         signature
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Success      200  {object}  placement.Snapshot
// @Router       /api/sessions/{sessionID}/placement [get]
func (h *APIHandler) PlacementState(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.placement(w, r, sess, func(*placement.Session) error { return nil })
}

// ResetPlacement godoc
// @Summary      Discard the placement workflow
// @Tags         signature
// @Param        sessionID  path  string  true  "Session ID"
// @Success      204
// @Router       /api/sessions/{sessionID}/placement [delete]
func (h *APIHandler) ResetPlacement(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.ResetPlacement()
	w.WriteHeader(http.StatusNoContent)
}

func boundDocument(sess *session.Session) string {
	var doc string
	_ = sess.Placement(func(p *placement.Session) error {
		doc = p.Document()
		return nil
	})
	return doc
}

func otherDocument(bound, doc string) error {
	if bound == "" {
		return apperr.New(apperr.CodeNoPlacement, "no placement workflow started")
	}
	return apperr.Newf(apperr.CodeNoPlacement, "placement workflow belongs to %q, not %q", bound, filepath.Base(doc)).
		With("document", bound)
}

// placement runs fn on the session's workflow and answers with the
// resulting snapshot.
func (h *APIHandler) placement(w http.ResponseWriter, r *http.Request, sess *session.Session, fn func(p *placement.Session) error) {
	var snap placement.Snapshot
	err := sess.Placement(func(p *placement.Session) error {
		if err := fn(p); err != nil {
			return err
		}
		snap = p.Snapshot()
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, snap)
}

type signRequest struct {
	Document  string `json:"document"`
	Signature string `json:"signature"`
}

// SignPDF godoc
// @Summary      Sign a PDF
// @Description  Stamps the signature image into every locked placement of the document and returns a download URL. The placement workflow ends with a successful signature.
// @Tags         signature
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string       true  "Session ID"
// @Param        body       body  signRequest  true  "Document and signature filenames"
// @Success      200  {object}  outputResponse
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Session or file not found"
// @Failure      409  {string}  string  "No locked placement for the document"
// @Router       /api/sessions/{sessionID}/sign [post]
func (h *APIHandler) SignPDF(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req signRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	pdfPath, err := h.document(sess, req.Document)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sigPath, err := h.document(sess, req.Signature)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var placements []geometry.PlacementRect
	err = sess.Placement(func(p *placement.Session) error {
		if doc := filepath.Base(pdfPath); p.Document() != doc {
			return otherDocument(p.Document(), doc)
		}
		placements = p.Placements()
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	name, outputPath := h.newOutput("signed", ".pdf")
	if err := pdf.SignPDF(pdfPath, sigPath, placements, outputPath); err != nil {
		h.writeError(w, r, err)
		return
	}
	sess.ResetPlacement()
	h.finishOutput(w, r, sess, name, outputPath)
}
