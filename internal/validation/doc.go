// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

// Package validation validates HTTP request structs with
// go-playground/validator.
//
// Field names in messages come from the json tag, so errors refer to what
// the client actually sent:
//
//	type SalesRequest struct {
//	    DateFrom string `json:"date_from" validate:"omitempty,ymd"`
//	    Limit    int    `json:"limit" validate:"min=0,max=10000"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError() // code VALIDATION_ERROR
//	}
//
// Custom tags: ymd (YYYY-MM-DD date).
package validation
