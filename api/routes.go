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

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the analyzer endpoints under the given group.
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	sb := rg.Group("/solid")
	{
		sb.GET("/health", handlers.HandleHealth)

		// Resolution and overlap queries
		sb.GET("/resolve/:class", handlers.HandleResolve)
		sb.GET("/overlap", handlers.HandleOverlap)

		// Declaration validation
		sb.GET("/validate", handlers.HandleValidate)

		// Amendments (drive cache invalidation)
		sb.POST("/amend/solid", handlers.HandleAmendSolid)
		sb.POST("/amend/bases", handlers.HandleAmendBases)
	}
}
