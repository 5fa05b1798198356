package handlers

import (
	"net/http"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/crop"
	"go-pdftools/internal/geometry"
	"go-pdftools/internal/pdf"
	"go-pdftools/internal/watermark"
)

type watermarkLayoutRequest struct {
	Watermark  watermark.Spec `json:"watermark"`
	PageWidth  float64        `json:"pageWidth"`
	PageHeight float64        `json:"pageHeight"`
}

type drawCommandResponse struct {
	watermark.DrawCommand
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
}

// LayoutWatermark godoc
// @Summary      Preview a watermark layout
// @Description  Returns the draw commands (page points, bottom-left origin) the watermark produces on a page of the given size
// @Tags         layout
// @Accept       json
// @Produce      json
// @Param        body  body  watermarkLayoutRequest  true  "Watermark and page size"
// @Success      200  {array}   drawCommandResponse
// @Failure      400  {string}  string  "Bad request"
// @Router       /api/layout/watermark [post]
func (h *APIHandler) LayoutWatermark(w http.ResponseWriter, r *http.Request) {
	var req watermarkLayoutRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	cmds, err := watermark.Layout(req.Watermark, req.PageWidth, req.PageHeight, pdf.FontMetrics{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]drawCommandResponse, len(cmds))
	for i, c := range cmds {
		center := c.Center()
		out[i] = drawCommandResponse{DrawCommand: c, CenterX: center.X, CenterY: center.Y}
	}
	writeJSON(w, out)
}

type cropLayoutRequest struct {
	PageWidth  float64                 `json:"pageWidth"`
	PageHeight float64                 `json:"pageHeight"`
	Margins    *crop.Spec              `json:"margins,omitempty"`
	Placement  *geometry.PlacementRect `json:"placement,omitempty"`
}

// LayoutCrop godoc
// @Summary      Preview a crop
// @Description  Computes the new page size and source rectangle of a crop without touching a document
// @Tags         layout
// @Accept       json
// @Produce      json
// @Param        body  body  cropLayoutRequest  true  "Page size and margins or placement"
// @Success      200  {object}  crop.Result
// @Failure      400  {string}  string  "Bad request or degenerate crop"
// @Router       /api/layout/crop [post]
func (h *APIHandler) LayoutCrop(w http.ResponseWriter, r *http.Request) {
	var req cropLayoutRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	spec, err := cropRequest{Margins: req.Margins, Placement: req.Placement}.spec()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := crop.Compute(req.PageWidth, req.PageHeight, spec)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, res)
}

type placementLayoutRequest struct {
	Metrics   geometry.PageMetrics    `json:"metrics"`
	Placement *geometry.PlacementRect `json:"placement,omitempty"`
	Rect      *geometry.Rect          `json:"rect,omitempty"`
}

type placementLayoutResponse struct {
	Placement geometry.PlacementRect `json:"placement"`
	Render    geometry.Rect          `json:"render"`
	Document  geometry.Rect          `json:"document"`
}

// LayoutPlacement godoc
// @Summary      Convert a placement
// @Description  Converts a preview rectangle or a placement into all three coordinate forms for the given page metrics
// @Tags         layout
// @Accept       json
// @Produce      json
// @Param        body  body  placementLayoutRequest  true  "Page metrics and rect or placement"
// @Success      200  {object}  placementLayoutResponse
// @Failure      400  {string}  string  "Bad request"
// @Router       /api/layout/placement [post]
func (h *APIHandler) LayoutPlacement(w http.ResponseWriter, r *http.Request) {
	var req placementLayoutRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	var (
		p   geometry.PlacementRect
		err error
	)
	switch {
	case req.Placement != nil:
		p = *req.Placement
	case req.Rect != nil:
		p, err = geometry.ToDocumentSpace(*req.Rect, req.Metrics)
	default:
		err = apperr.New(apperr.CodeInvalidInput, "placement or rect required")
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := placementLayoutResponse{Placement: p}
	if resp.Render, err = geometry.ToRenderSpace(p, req.Metrics); err != nil {
		h.writeError(w, r, err)
		return
	}
	if resp.Document, err = geometry.ToRenderTarget(p, req.Metrics); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, resp)
}
