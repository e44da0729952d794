package router

import (
	"fmt"
	"os"
	"path/filepath"

	"conversation-webhook/backend/pkg/validator"
)

// AddOpenAPIValidation serves the OpenAPI document under /api/docs and, when
// validate is set, checks webhook requests against it. Call before SetupRoutes.
func (r *Router) AddOpenAPIValidation(schemaPath string, validate bool) error {
	if _, err := os.Stat(schemaPath); err != nil {
		return fmt.Errorf("OpenAPI schema file not found: %w", err)
	}

	if validate {
		v, err := validator.NewOpenAPIValidator(schemaPath)
		if err != nil {
			return fmt.Errorf("failed to initialize OpenAPI validator: %w", err)
		}
		r.validator = v
		r.Logger.Info("OpenAPI validation enabled", "schema", schemaPath)
	}

	schemaFile := filepath.Base(schemaPath)
	r.Engine.StaticFile("/api/docs/"+schemaFile, schemaPath)
	r.Logger.Info("OpenAPI schema available at", "url", "/api/docs/"+schemaFile)

	return nil
}
