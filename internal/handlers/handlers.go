// Package handlers provides the HTTP handlers of the PDF tools API.
//
// This package contains the endpoints for session management, uploads and
// downloads, the signature placement workflow, watermark, crop and
// redaction, page tools, conversions, compare and multi-device scanning,
// plus stateless layout previews.
//
// Example usage:
//
//	h := handlers.NewAPIHandler(store, cfg, log)
//	r := chi.NewRouter()
//	r.Post("/api/sessions/", h.CreateSession)
//
// All handlers are designed to be used with the chi router.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/config"
	"go-pdftools/internal/convert"
	"go-pdftools/internal/pdf"
	"go-pdftools/internal/session"
	"go-pdftools/internal/utils"
)

type APIHandler struct {
	Sessions  *session.Store
	UploadDir string
	OutputDir string
	// MaxUpload is the request body limit for document uploads in bytes.
	MaxUpload   int64
	RenderScale float64
	Converter   *convert.Converter
	Log         logrus.FieldLogger
}

func NewAPIHandler(store *session.Store, cfg *config.Config, log logrus.FieldLogger) *APIHandler {
	return &APIHandler{
		Sessions:    store,
		UploadDir:   cfg.UploadDir,
		OutputDir:   cfg.OutputDir,
		MaxUpload:   cfg.MaxUploadBytes(),
		RenderScale: cfg.RenderScale,
		Converter: &convert.Converter{
			SofficeBin:  cfg.SofficeBin,
			PdftoppmBin: cfg.PdftoppmBin,
			Timeout:     cfg.ConvertTimeout,
			Log:         log,
		},
		Log: log,
	}
}

func (h *APIHandler) logger(r *http.Request) logrus.FieldLogger {
	fields := logrus.Fields{"path": r.URL.Path}
	if id := middleware.GetReqID(r.Context()); id != "" {
		fields["request"] = id
	}
	if id := chi.URLParam(r, "sessionID"); id != "" {
		fields["session"] = id
	}
	return h.Log.WithFields(fields)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code. Internal failures are logged and
// reported without detail.
func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger(r).WithError(err).Error("request failed")
		http.Error(w, "Internal error", status)
		return
	}
	h.logger(r).WithError(err).WithField("code", apperr.CodeOf(err)).Debug("request rejected")
	http.Error(w, err.Error(), status)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.CodeInvalidInput, "invalid JSON body", err)
	}
	return nil
}

// session fetches the session named in the URL, answering 404 itself when
// it does not exist.
func (h *APIHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := h.Sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
	}
	return sess, ok
}

// document resolves a file name sent by the client to a path owned by the
// session, either an upload or a produced output.
func (h *APIHandler) document(sess *session.Session, name string) (string, error) {
	if name == "" {
		return "", apperr.New(apperr.CodeInvalidInput, "document not specified")
	}
	base := filepath.Base(name)
	if p := filepath.Join(h.UploadDir, base); sess.HasFile(p) {
		return p, nil
	}
	if p := filepath.Join(h.OutputDir, base); sess.HasOutput(p) {
		return p, nil
	}
	return "", apperr.Newf(apperr.CodeNotFound, "document %q not found in session", base)
}

type outputResponse struct {
	Filename    string `json:"filename"`
	DownloadURL string `json:"downloadUrl"`
}

// newOutput reserves a path in the output directory for a produced file.
func (h *APIHandler) newOutput(prefix, ext string) (string, string) {
	name := fmt.Sprintf("%s-%s%s", prefix, utils.GenerateUUID(), ext)
	return name, filepath.Join(h.OutputDir, name)
}

// recordOutput hands a produced file to the session, which owns it from now
// on.
func (h *APIHandler) recordOutput(r *http.Request, sess *session.Session, name, path string) outputResponse {
	sess.AddOutput(path)
	h.logger(r).WithField("output", name).Info("output written")
	return outputResponse{
		Filename:    name,
		DownloadURL: fmt.Sprintf("/api/sessions/%s/files/%s", sess.ID, name),
	}
}

func (h *APIHandler) finishOutput(w http.ResponseWriter, r *http.Request, sess *session.Session, name, path string) {
	writeJSON(w, h.recordOutput(r, sess, name, path))
}

// CreateSession godoc
// @Summary      Create a new session
// @Description  Creates a new working session and returns its ID
// @Tags         sessions
// @Produce      json
// @Success      200  {object}  map[string]string  "{ sessionId: string }"
// @Router       /api/sessions/ [post]
func (h *APIHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Create()
	writeJSON(w, map[string]string{"sessionId": sess.ID})
}

// DeleteSession godoc
// @Summary      Delete a session
// @Description  Deletes the session and every file it owns
// @Tags         sessions
// @Param        sessionID  path  string  true  "Session ID"
// @Success      204
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID} [delete]
func (h *APIHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	h.Sessions.Delete(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

type uploadRule struct {
	field     string
	prefix    string
	maxBytes  int64
	allowed   map[string][]string // content type -> extensions
	sniffSize int
}

var (
	pdfUpload = uploadRule{
		field:     "pdf",
		allowed:   map[string][]string{"application/pdf": {".pdf"}},
		sniffSize: 512,
	}
	imageTypes = map[string][]string{
		"image/jpeg": {".jpg", ".jpeg"},
		"image/png":  {".png"},
	}
)

func isImageExt(ext string) bool {
	for _, exts := range imageTypes {
		if slices.Contains(exts, ext) {
			return true
		}
	}
	return false
}

// saveUpload stores the multipart file of rule.field after checking its
// extension against the sniffed content type. It returns the stored path and
// the name clients use to refer to it.
func (h *APIHandler) saveUpload(w http.ResponseWriter, r *http.Request, rule uploadRule) (string, string, int64, error) {
	r.Body = http.MaxBytesReader(w, r.Body, rule.maxBytes)
	if err := r.ParseMultipartForm(rule.maxBytes); err != nil {
		return "", "", 0, apperr.Wrap(apperr.CodeInvalidInput, "file too large", err)
	}

	file, header, err := r.FormFile(rule.field)
	if err != nil {
		return "", "", 0, apperr.Wrap(apperr.CodeInvalidInput, "error retrieving file", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if rule.allowed != nil {
		sniff := make([]byte, rule.sniffSize)
		n, err := io.ReadFull(file, sniff)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return "", "", 0, apperr.Wrap(apperr.CodeInvalidInput, "failed to read file", err)
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return "", "", 0, err
		}
		contentType := http.DetectContentType(sniff[:n])
		exts, ok := rule.allowed[contentType]
		if !ok {
			return "", "", 0, apperr.Newf(apperr.CodeInvalidInput, "unsupported file content %s", contentType)
		}
		if !slices.Contains(exts, ext) {
			return "", "", 0, apperr.New(apperr.CodeInvalidInput, "file extension doesn't match content type")
		}
	}

	name := fmt.Sprintf("%s%s-%s", rule.prefix, utils.GenerateUUID(), utils.SanitizeFilename(header.Filename))
	path := filepath.Join(h.UploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", "", 0, fmt.Errorf("failed to save file: %w", err)
	}
	return path, name, header.Size, nil
}

type uploadResponse struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// UploadFile godoc
// @Summary      Upload a PDF file
// @Description  Uploads a PDF file to the session
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Param        pdf        formData  file    true  "PDF file"
// @Success      200  {object}  uploadResponse
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID}/files [post]
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	rule := pdfUpload
	rule.maxBytes = h.MaxUpload
	path, name, size, err := h.saveUpload(w, r, rule)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sess.AddFile(path)
	h.logger(r).WithFields(logrus.Fields{"document": name, "size": size}).Info("pdf uploaded")
	writeJSON(w, uploadResponse{Filename: name, Size: size})
}

// UploadSource godoc
// @Summary      Upload a file for conversion
// @Description  Uploads an office, HTML or image file that is converted to PDF later
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Param        file       formData  file    true  "Source file"
// @Success      200  {object}  uploadResponse
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID}/sources [post]
func (h *APIHandler) UploadSource(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	path, name, size, err := h.saveUpload(w, r, uploadRule{field: "file", maxBytes: h.MaxUpload})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !convert.OfficeExtensions[ext] && !isImageExt(ext) {
		os.Remove(path)
		h.writeError(w, r, apperr.Newf(apperr.CodeInvalidInput, "unsupported source type %q", ext))
		return
	}
	sess.AddFile(path)
	writeJSON(w, uploadResponse{Filename: name, Size: size})
}

// UploadSignature godoc
// @Summary      Upload a signature image
// @Description  Uploads a signature image (PNG/JPEG) to the session
// @Tags         signature
// @Accept       multipart/form-data
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Param        signature  formData  file    true  "Signature image file (PNG/JPEG)"
// @Success      200  {object}  uploadResponse
// @Failure      400  {string}  string  "Bad request - invalid image format"
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID}/signature [post]
func (h *APIHandler) UploadSignature(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	path, name, size, err := h.saveUpload(w, r, uploadRule{
		field:     "signature",
		prefix:    "sig-",
		maxBytes:  5 << 20,
		allowed:   imageTypes,
		sniffSize: 512,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sess.AddFile(path)
	writeJSON(w, uploadResponse{Filename: name, Size: size})
}

// UpdateOrder godoc
// @Summary      Set file order
// @Description  Sets the order of uploaded files for merging
// @Tags         files
// @Accept       json
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Param        files      body      object  true  "{ files: [string] }"
// @Success      200  {object}  map[string]bool  "{ success: true }"
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID}/order [put]
func (h *APIHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var fileOrder struct {
		Files []string `json:"files"`
	}
	if err := decodeJSON(r, &fileOrder); err != nil {
		h.writeError(w, r, err)
		return
	}
	ordered := make([]string, 0, len(fileOrder.Files))
	for _, name := range fileOrder.Files {
		p := filepath.Join(h.UploadDir, filepath.Base(name))
		if !sess.HasFile(p) {
			http.Error(w, "Invalid file in order list", http.StatusBadRequest)
			return
		}
		ordered = append(ordered, p)
	}
	// Files not named keep their relative order after the named ones.
	for _, p := range sess.Files() {
		if !slices.Contains(ordered, p) {
			ordered = append(ordered, p)
		}
	}
	if len(fileOrder.Files) > 0 {
		sess.SetFiles(ordered)
	}
	writeJSON(w, map[string]bool{"success": true})
}

// MergeFiles godoc
// @Summary      Merge uploaded files
// @Description  Merges all uploaded PDFs of the session in order and returns a download URL
// @Tags         files
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200  {object}  outputResponse
// @Failure      400  {string}  string  "No files to merge"
// @Failure      404  {string}  string  "Session not found"
// @Failure      409  {string}  string  "Merge already in progress"
// @Router       /api/sessions/{sessionID}/actions/merge [post]
func (h *APIHandler) MergeFiles(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if !sess.BeginJob() {
		http.Error(w, "Merge already in progress", http.StatusConflict)
		return
	}

	var files []string
	for _, f := range sess.Files() {
		if strings.EqualFold(filepath.Ext(f), ".pdf") {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		sess.EndJob(false)
		http.Error(w, "No files to merge", http.StatusBadRequest)
		return
	}

	name, outputPath := h.newOutput("merged", ".pdf")
	if err := pdf.MergePDFs(files, outputPath); err != nil {
		sess.EndJob(false)
		h.writeError(w, r, err)
		return
	}
	if err := pdf.RemoveBookmarks(outputPath); err != nil {
		h.logger(r).WithError(err).Warn("bookmarks kept in merged PDF")
	}
	sess.EndJob(true)
	h.finishOutput(w, r, sess, name, outputPath)
}

// DownloadFile godoc
// @Summary      Download a produced file
// @Description  Downloads a file produced in the session
// @Tags         files
// @Produce      application/pdf
// @Param        sessionID  path      string  true  "Session ID"
// @Param        filename   path      string  true  "Output filename"
// @Success      200  {file}  file  "File download"
// @Failure      403  {string}  string  "Unauthorized access to file"
// @Failure      404  {string}  string  "Session or file not found"
// @Router       /api/sessions/{sessionID}/files/{filename} [get]
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	filename := filepath.Base(chi.URLParam(r, "filename"))
	path := filepath.Join(h.OutputDir, filename)
	if !sess.HasOutput(path) {
		http.Error(w, "Unauthorized access to file", http.StatusForbidden)
		return
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, path)
}
