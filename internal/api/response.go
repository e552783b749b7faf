// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

// Package api serves the HTTP API: ports, vessels, positions, port
// calls, signals, and the realtime websocket endpoint.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/portwatch/portwatch/internal/logging"
	"github.com/portwatch/portwatch/internal/models"
)

// Error codes used in API responses.
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeDatabase     = "DATABASE_ERROR"
	ErrCodeRateLimited  = "RATE_LIMIT_EXCEEDED"
	ErrCodeUnauthorized = "AUTHENTICATION_ERROR"
)

// listPayload pairs list items with their pagination state.
type listPayload struct {
	Items interface{}     `json:"items"`
	Meta  models.ListMeta `json:"meta"`
}

// responseWriter builds the standard envelope around handler output.
type responseWriter struct {
	w         http.ResponseWriter
	startTime time.Time
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w: w, startTime: time.Now()}
}

// Success writes a 200 with the data payload.
func (rw *responseWriter) Success(data interface{}) {
	rw.writeJSON(http.StatusOK, models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: rw.metadata(),
	})
}

// SuccessList writes a 200 with items and pagination metadata.
func (rw *responseWriter) SuccessList(items interface{}, meta models.ListMeta) {
	rw.Success(listPayload{Items: items, Meta: meta})
}

// Error writes an error envelope with the given status.
func (rw *responseWriter) Error(statusCode int, code, message string) {
	rw.ErrorWithDetails(statusCode, code, message, nil)
}

// ErrorWithDetails writes an error envelope with structured details.
func (rw *responseWriter) ErrorWithDetails(statusCode int, code, message string, details map[string]interface{}) {
	rw.writeJSON(statusCode, models.APIResponse{
		Status:   "error",
		Metadata: rw.metadata(),
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// ValidationError writes a 400 with the VALIDATION_ERROR code.
func (rw *responseWriter) ValidationError(message string, details map[string]interface{}) {
	rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidation, message, details)
}

// NotFound writes a 404.
func (rw *responseWriter) NotFound(message string) {
	rw.Error(http.StatusNotFound, ErrCodeNotFound, message)
}

// DatabaseError logs the cause and writes a generic 500.
func (rw *responseWriter) DatabaseError(err error) {
	logging.Error().Err(err).Msg("database error")
	rw.Error(http.StatusInternalServerError, ErrCodeDatabase, "a database error occurred")
}

// InternalError writes a 500.
func (rw *responseWriter) InternalError(message string) {
	rw.Error(http.StatusInternalServerError, ErrCodeInternal, message)
}

func (rw *responseWriter) metadata() models.Metadata {
	return models.Metadata{
		Timestamp:   time.Now().UTC(),
		QueryTimeMS: time.Since(rw.startTime).Milliseconds(),
	}
}

func (rw *responseWriter) writeJSON(statusCode int, data interface{}) {
	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.WriteHeader(statusCode)

	if err := json.NewEncoder(rw.w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("failed to encode JSON response")
	}
}
