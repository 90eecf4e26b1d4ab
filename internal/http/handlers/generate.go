package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"studioshot/internal/domain"
	"studioshot/internal/middleware"
	"studioshot/internal/pipeline"
	"studioshot/internal/stream"
)

// multipartOverhead covers field boundaries and the text fields alongside
// the image part.
const multipartOverhead = 1 << 20

// Generate runs one generation session and streams its events. The stream
// opens before any work so every failure reaches the caller as a single
// terminal error event instead of a bare status code.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	sink, err := stream.NewWriter(w)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	req, perr := a.parseGenerateRequest(w, r)
	if perr != "" {
		_ = sink.Emit(pipeline.EventError, pipeline.ErrorPayload{Error: perr})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.Config.GenerateTimeout)
	defer cancel()

	userID := a.currentUserID(r)
	if err := a.Pipeline.Run(ctx, userID, *req, sink); err != nil {
		a.Logger.Warn().Err(err).Str("user_id", userID).Msg("generation failed")
	}
}

// parseGenerateRequest reads the multipart form. A non-empty string return
// is a user-facing validation message.
func (a *App) parseGenerateRequest(w http.ResponseWriter, r *http.Request) (*pipeline.Request, string) {
	r.Body = http.MaxBytesReader(w, r.Body, a.Config.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(a.Config.MaxUploadBytes + multipartOverhead); err != nil {
		return nil, "Image is too large or the upload is malformed."
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, "Missing image"
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "Failed to read uploaded image."
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	quantity := 0
	if v := r.FormValue("quantity"); v != "" {
		quantity, err = strconv.Atoi(v)
		if err != nil {
			return nil, "Quantity must be a number"
		}
	}

	return &pipeline.Request{
		Image:    data,
		MIME:     mimeType,
		Prompt:   r.FormValue("prompt"),
		Quality:  domain.QualityTier(r.FormValue("quality")),
		Quantity: quantity,
		Locale:   middleware.LocaleFromContext(r.Context()),
	}, ""
}
