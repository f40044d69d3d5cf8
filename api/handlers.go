// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/solidbase/hierarchy"
	"github.com/AleutianAI/solidbase/solid"
)

// Handlers contains the HTTP handlers for the analyzer service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleHealth reports service status and hierarchy shape.
//
// GET /v1/solid/health
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"version":    ServiceVersion,
		"session_id": h.svc.SessionID(),
		"classes":    h.svc.Hierarchy().Len(),
		"root":       h.svc.Hierarchy().Root(),
		"generation": h.svc.Hierarchy().Generation(),
	})
}

// HandleResolve resolves the solid base of a class.
//
// GET /v1/solid/resolve/:class
func (h *Handlers) HandleResolve(c *gin.Context) {
	key := c.Param("class")

	res, err := h.svc.Resolve(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, solid.ErrUnknownClass) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		slog.Error("resolve failed", slog.String("class", key), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolution failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// HandleOverlap answers whether two classes can share a common instance.
//
// GET /v1/solid/overlap?a=<class>&b=<class>
func (h *Handlers) HandleOverlap(c *gin.Context) {
	a := c.Query("a")
	b := c.Query("b")
	if a == "" || b == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameters a and b are required"})
		return
	}

	overlaps, err := h.svc.Overlaps(c.Request.Context(), a, b)
	if err != nil {
		if errors.Is(err, solid.ErrUnknownClass) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		slog.Error("overlap query failed",
			slog.String("a", a), slog.String("b", b), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "overlap query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"a":        a,
		"b":        b,
		"overlaps": overlaps,
		"disjoint": !overlaps,
	})
}

// HandleValidate validates every declared class.
//
// GET /v1/solid/validate
func (h *Handlers) HandleValidate(c *gin.Context) {
	diagnostics := h.svc.ValidateAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"diagnostics": diagnostics,
		"count":       len(diagnostics),
	})
}

// amendSolidRequest is the body for POST /v1/solid/amend/solid.
type amendSolidRequest struct {
	Class  string `json:"class" binding:"required"`
	Marked bool   `json:"marked"`
}

// HandleAmendSolid amends a class's explicit solid marking.
//
// POST /v1/solid/amend/solid
func (h *Handlers) HandleAmendSolid(c *gin.Context) {
	var req amendSolidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	affected, evicted, err := h.svc.SetMarkedSolid(req.Class, req.Marked)
	if err != nil {
		h.amendError(c, req.Class, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"class":    req.Class,
		"affected": affected,
		"evicted":  evicted,
	})
}

// amendBasesRequest is the body for POST /v1/solid/amend/bases.
type amendBasesRequest struct {
	Class string   `json:"class" binding:"required"`
	Bases []string `json:"bases" binding:"required"`
}

// HandleAmendBases amends a class's declared bases.
//
// POST /v1/solid/amend/bases
func (h *Handlers) HandleAmendBases(c *gin.Context) {
	var req amendBasesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	affected, evicted, err := h.svc.AmendBases(req.Class, req.Bases)
	if err != nil {
		h.amendError(c, req.Class, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"class":    req.Class,
		"affected": affected,
		"evicted":  evicted,
	})
}

// amendError maps amendment failures to HTTP status codes.
func (h *Handlers) amendError(c *gin.Context, class string, err error) {
	switch {
	case errors.Is(err, hierarchy.ErrClassNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, hierarchy.ErrBaseNotFound),
		errors.Is(err, hierarchy.ErrCycleDetected),
		errors.Is(err, hierarchy.ErrInvalidClass):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		slog.Error("amendment failed",
			slog.String("class", class), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "amendment failed"})
	}
}
