package server

import (
	"errors"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"markdown-editor/consent"
	"markdown-editor/content/domain"
	"markdown-editor/export"
	"markdown-editor/render"
)

type documentRequest struct {
	Content *string `json:"content"`
}

func (req documentRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Content, validation.NotNil),
	)
}

type localeRequest struct {
	Locale string `json:"locale"`
}

func (req localeRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Locale, validation.Required, validation.By(func(value any) error {
			if _, err := domain.ParseLocale(value.(string)); err != nil {
				return validation.NewError("validation_locale_unsupported", "must be en or es")
			}
			return nil
		})),
	)
}

type previewRequest struct {
	Content *string `json:"content"`
}

type importRequest struct {
	HTML   string `json:"html"`
	Domain string `json:"domain"`
}

func (req importRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.HTML, validation.Required),
	)
}

type localeResponse struct {
	Locale   domain.Locale   `json:"locale"`
	Replaced bool            `json:"replaced"`
	Document domain.Snapshot `json:"document"`
}

type previewResponse struct {
	HTML string `json:"html"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) getDocument(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Pipeline.Snapshot())
}

// putDocument é uma edição: atualiza o conteúdo e reinicia o autosave.
func (h *handlers) putDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := decodeJSON(w, r, h.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.applyEdit(w, *req.Content) {
		return
	}
	writeJSON(w, http.StatusOK, h.Pipeline.Snapshot())
}

func (h *handlers) applyEdit(w http.ResponseWriter, text string) bool {
	if err := h.Pipeline.Edit(text); err != nil {
		if domain.IsTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *handlers) saveDocument(w http.ResponseWriter, r *http.Request) {
	if !h.Pipeline.SaveNow(r.Context()) {
		writeJSON(w, http.StatusInternalServerError, h.Pipeline.Status())
		return
	}
	writeJSON(w, http.StatusOK, h.Pipeline.Status())
}

func (h *handlers) clearDocument(w http.ResponseWriter, r *http.Request) {
	h.Pipeline.Clear(r.Context())
	writeJSON(w, http.StatusOK, h.Pipeline.Snapshot())
}

func (h *handlers) documentStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Pipeline.Status())
}

func (h *handlers) putLocale(w http.ResponseWriter, r *http.Request) {
	var req localeRequest
	if err := decodeJSON(w, r, h.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	locale, _ := domain.ParseLocale(req.Locale)

	replaced := h.Pipeline.SwitchLocale(locale)
	if replaced {
		// o template novo também é conteúdo e segue o caminho do autosave
		h.Pipeline.ScheduleSave(h.Pipeline.Content())
	}
	writeJSON(w, http.StatusOK, localeResponse{
		Locale:   locale,
		Replaced: replaced,
		Document: h.Pipeline.Snapshot(),
	})
}

// preview renderiza o texto enviado ou, sem "content", o documento atual.
func (h *handlers) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(w, r, h.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	src := h.Pipeline.Content()
	if req.Content != nil {
		src = *req.Content
		if err := domain.ValidateSize(src, h.Pipeline.MaxBytes()); err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
	}

	out, err := h.Renderer.Render(src)
	if err != nil {
		h.Logger.Error("preview render failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not render preview")
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{HTML: out})
}

func (h *handlers) exportDocument(w http.ResponseWriter, _ *http.Request) {
	f, err := h.Exporter.Build(h.Pipeline.Content())
	switch {
	case errors.Is(err, export.ErrNothingToExport):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, export.ErrExportTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		h.Logger.Error("export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not export document")
		return
	}

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+f.Name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := f.Reader().WriteTo(w); err != nil {
		h.Logger.Debug("export write interrupted", zap.Error(err))
	}
}

func (h *handlers) importHTML(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(w, r, h.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	md, err := h.Importer.Convert(req.HTML, req.Domain)
	if err != nil {
		if errors.Is(err, render.ErrEmptyImport) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Warn("html import failed", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, "could not convert html")
		return
	}

	if !h.applyEdit(w, md) {
		return
	}
	writeJSON(w, http.StatusOK, h.Pipeline.Snapshot())
}

func (h *handlers) getConsent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Consent.Get(r.Context()))
}

func (h *handlers) putConsent(w http.ResponseWriter, r *http.Request) {
	var choice consent.Choice
	if err := decodeJSON(w, r, h.MaxBodyBytes, &choice); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := choice.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prefs, err := h.Consent.Apply(r.Context(), choice)
	if err != nil {
		h.Logger.Error("consent not saved", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not save consent")
		return
	}
	writeJSON(w, http.StatusOK, consent.State{Preferences: prefs, Decided: true})
}
