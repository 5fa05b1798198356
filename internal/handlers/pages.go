package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/pdf"
	"go-pdftools/internal/session"
	"go-pdftools/internal/utils"
)

// pageRequest is shared by the page tools. Pages is a 1-based selection
// such as "1,3-5"; Order lists pages in their new order and may repeat.
type pageRequest struct {
	Document string `json:"document"`
	Pages    string `json:"pages"`
	Order    string `json:"order,omitempty"`
	Degrees  int    `json:"degrees,omitempty"`
}

// pageTool decodes a pageRequest, resolves its document and runs op, which
// writes to a fresh output path.
func (h *APIHandler) pageTool(w http.ResponseWriter, r *http.Request, prefix string, op func(sess *session.Session, req pageRequest, in, out string) error) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req pageRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := h.document(sess, req.Document)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	name, out := h.newOutput(prefix, ".pdf")
	if err := op(sess, req, in, out); err != nil {
		os.Remove(out)
		h.writeError(w, r, err)
		return
	}
	h.finishOutput(w, r, sess, name, out)
}

// RotatePages godoc
// @Summary      Rotate pages
// @Description  Rotates the selected pages (all when pages is empty) clockwise by a multiple of 90 degrees
// @Tags         pages
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string       true  "Session ID"
// @Param        body       body  pageRequest  true  "{ document, pages, degrees }"
// @Success      200  {object}  outputResponse
// @Failure      400  {string}  string  "Bad request"
// @Router       /api/sessions/{sessionID}/pages/rotate [post]
func (h *APIHandler) RotatePages(w http.ResponseWriter, r *http.Request) {
	h.pageTool(w, r, "rotated", func(_ *session.Session, req pageRequest, in, out string) error {
		pages, err := selection(in, req.Pages)
		if err != nil {
			return err
		}
		return pdf.Rotate(in, out, req.Degrees, pages)
	})
}

// RemovePages godoc
// @Summary      Remove pages
// @Tags         pages
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string       true  "Session ID"
// @Param        body       body  pageRequest  true  "{ document, pages }"
// @Success      200  {object}  outputResponse
// @Failure      400  {string}  string  "Bad request"
// @Router       /api/sessions/{sessionID}/pages/remove [post]
func (h *APIHandler) RemovePages(w http.ResponseWriter, r *http.Request) {
	h.pageTool(w, r, "removed", func(_ *session.Session, req pageRequest, in, out string) error {
		pages, err := requiredSelection(in, req.Pages)
		if err != nil {
			return err
		}
		return pdf.RemovePages(in, out, pages)
	})
}

// ExtractPages godoc
// @Summary      Extract pages
// @Description  Writes the selected pages, in document order, to a new PDF
// @Tags         pages
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string       true  "Session ID"
// @Param        body       body  pageRequest  true  "{ document, pages }"
// @Success      200  {object}  outputResponse
// @Failure      400  {string}  string  "Bad request"
// @Router       /api/sessions/{sessionID}/pages/extract [post]
func (h *APIHandler) ExtractPages(w http.ResponseWriter, r *http.Request) {
	h.pageTool(w, r, "extracted", func(_ *session.Session, req pageRequest, in, out string) error {
		pages, err := requiredSelection(in, req.Pages)
		if err != nil {
			return err
		}
		return pdf.ExtractPages(in, out, pages)
	})
}

// OrganizePages godoc
// @Summary      Reorder pages
// @Description  Builds a PDF from the pages listed in order, e.g. "3,1,2"; pages may repeat
// @Tags         pages
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string       true  "Session ID"
// @Param        body       body  pageRequest  true  "{ document, order }"
// @Success      200  {object}  outputResponse
// @Failure      400  {string}  string  "Bad request"
// @Router       /api/sessions/{sessionID}/pages/organize [post]
func (h *APIHandler) OrganizePages(w http.ResponseWriter, r *http.Request) {
	h.pageTool(w, r, "organized", func(_ *session.Session, req pageRequest, in, out string) error {
		n, err := pdf.PageCount(in)
		if err != nil {
			return apperr.Wrap(apperr.CodeInvalidInput, "unreadable PDF", err)
		}
		order, err := utils.ParseOrder(req.Order, n)
		if err != nil {
			return err
		}
		return pdf.Organize(in, out, order)
	})
}

// CompressPDF godoc
// @Summary      Compress a PDF
// @Tags         pages
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string       true  "Session ID"
// @Param        body       body  pageRequest  true  "{ document }"
// @Success      200  {object}  outputResponse
// @Router       /api/sessions/{sessionID}/compress [post]
func (h *APIHandler) CompressPDF(w http.ResponseWriter, r *http.Request) {
	h.pageTool(w, r, "compressed", func(_ *session.Session, _ pageRequest, in, out string) error {
		return pdf.Compress(in, out)
	})
}

func requiredSelection(path, sel string) ([]int, error) {
	if sel == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "no pages selected")
	}
	return selection(path, sel)
}

// SplitPDF godoc
// @Summary      Split a PDF
// @Description  Writes every page to its own PDF and returns their download URLs in page order
// @Tags         pages
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string       true  "Session ID"
// @Param        body       body  pageRequest  true  "{ document }"
// @Success      200  {array}   outputResponse
// @Failure      400  {string}  string  "Bad request"
// @Router       /api/sessions/{sessionID}/pages/split [post]
func (h *APIHandler) SplitPDF(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req pageRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := h.document(sess, req.Document)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// Split names its files after the input, so give every split its own
	// input name.
	name, splitIn := h.newOutput("split", ".pdf")
	if err := utils.CopyFile(in, splitIn); err != nil {
		h.writeError(w, r, err)
		return
	}
	defer os.Remove(splitIn)

	files, err := pdf.Split(splitIn, h.OutputDir)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := make([]outputResponse, len(files))
	for i, f := range files {
		resp[i] = h.recordOutput(r, sess, filepath.Base(f), f)
	}
	h.logger(r).WithField("base", name).Debug("split finished")
	writeJSON(w, resp)
}

type passwordRequest struct {
	Document      string `json:"document"`
	Password      string `json:"password"`
	OwnerPassword string `json:"ownerPassword,omitempty"`
}

// ProtectPDF godoc
// @Summary      Password protect a PDF
// @Description  Encrypts the document with AES-256. The owner password defaults to the password.
// @Tags         security
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string           true  "Session ID"
// @Param        body       body  passwordRequest  true  "Document and passwords"
// @Success      200  {object}  outputResponse
// @Failure      400  {string}  string  "Bad request"
// @Router       /api/sessions/{sessionID}/protect [post]
func (h *APIHandler) ProtectPDF(w http.ResponseWriter, r *http.Request) {
	h.passwordTool(w, r, "protected", func(req passwordRequest, in, out string) error {
		return pdf.Protect(in, out, req.Password, req.OwnerPassword)
	})
}

// UnlockPDF godoc
// @Summary      Remove a PDF password
// @Tags         security
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string           true  "Session ID"
// @Param        body       body  passwordRequest  true  "Document and password"
// @Success      200  {object}  outputResponse
// @Failure      403  {string}  string  "Wrong password"
// @Router       /api/sessions/{sessionID}/unlock [post]
func (h *APIHandler) UnlockPDF(w http.ResponseWriter, r *http.Request) {
	h.passwordTool(w, r, "unlocked", func(req passwordRequest, in, out string) error {
		return pdf.Unlock(in, out, req.Password)
	})
}

func (h *APIHandler) passwordTool(w http.ResponseWriter, r *http.Request, prefix string, op func(req passwordRequest, in, out string) error) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := h.document(sess, req.Document)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	name, out := h.newOutput(prefix, ".pdf")
	if err := op(req, in, out); err != nil {
		os.Remove(out)
		h.writeError(w, r, err)
		return
	}
	h.finishOutput(w, r, sess, name, out)
}
