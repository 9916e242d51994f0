package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/giftree-kr/giftree-backend/api/middleware"
	pkgerrors "github.com/giftree-kr/giftree-backend/pkg/errors"
)

func holderIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.HolderIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	return id, nil
}

func sessionIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "sessionID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "session id must be a uuid")
	}
	return id, nil
}
