// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ListRequest holds the common pagination parameters.
type ListRequest struct {
	Limit  int `validate:"min=1,max=500"`
	Offset int `validate:"min=0,max=1000000"`
}

// BBoxRequest is a parsed bounding box query.
type BBoxRequest struct {
	MinLon float64 `validate:"min=-180,max=180"`
	MinLat float64 `validate:"min=-90,max=90"`
	MaxLon float64 `validate:"min=-180,max=180"`
	MaxLat float64 `validate:"min=-90,max=90"`
}

// SignalsRequest filters the signals listing.
type SignalsRequest struct {
	Severity string `validate:"omitempty,oneof=MEDIUM HIGH"`
	Type     string `validate:"omitempty,oneof=port_arrivals_anomaly port_dwell_spike"`
	ListRequest
}

// parseListRequest reads limit/offset with defaults and caps.
func (h *Handler) parseListRequest(r *http.Request) ListRequest {
	limit := getIntParam(r, "limit", h.cfg.DefaultPageSize)
	if limit > h.cfg.MaxPageSize {
		limit = h.cfg.MaxPageSize
	}
	return ListRequest{
		Limit:  limit,
		Offset: getIntParam(r, "offset", 0),
	}
}

// parseBBox parses a "minLon,minLat,maxLon,maxLat" query value.
func parseBBox(value string) (*BBoxRequest, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox needs 4 comma-separated values, got %d", len(parts))
	}

	coords := make([]float64, 4)
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("bbox value %q is not a number", part)
		}
		coords[i] = f
	}

	bbox := &BBoxRequest{
		MinLon: coords[0],
		MinLat: coords[1],
		MaxLon: coords[2],
		MaxLat: coords[3],
	}
	if err := validate.Struct(bbox); err != nil {
		return nil, fmt.Errorf("bbox coordinates out of range")
	}
	if bbox.MinLon > bbox.MaxLon || bbox.MinLat > bbox.MaxLat {
		return nil, fmt.Errorf("bbox min must not exceed max")
	}
	return bbox, nil
}

// validateRequest runs validator tags and maps failures to field detail
// entries for the error envelope.
func validateRequest(v interface{}) map[string]interface{} {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	details := map[string]interface{}{}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldErr := range validationErrors {
			details[strings.ToLower(fieldErr.Field())] = fmt.Sprintf(
				"failed %s validation", fieldErr.Tag())
		}
	} else {
		details["request"] = err.Error()
	}
	return details
}

// getIntParam extracts an integer query parameter with a default.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}
