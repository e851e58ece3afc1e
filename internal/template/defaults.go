// Built-in wishlist templates every Wishful deployment starts with.

package template

import (
	"Wishful/internal/entity"
	"Wishful/pkg/log"
	"context"
	_ "embed"
	"encoding/json"
	"time"
)

//go:embed defaults.json
var defaultsJSON []byte

// Defaults returns the built-in templates, they have no creator.
func Defaults() ([]entity.Template, error) {
	var templates []entity.Template
	if err := json.Unmarshal(defaultsJSON, &templates); err != nil {
		return nil, err
	}
	now := time.Now().UnixMilli()
	for i := range templates {
		templates[i].Created = now
		templates[i].Updated = now
	}
	return templates, nil
}

// Seed saves the built-in templates the first time any instance starts against the DB.
func Seed(ctx context.Context, templateRepo Repository, logger log.Logger) error {
	templates, err := Defaults()
	if err != nil {
		logger.Error().Err(err).Msg("Couldn't parse built-in templates")
		return err
	}
	seeded, err := templateRepo.SeedTemplates(ctx, logger, templates)
	if err != nil {
		return err
	}
	if seeded {
		logger.Info().Int("Templates", len(templates)).Msg("Seeded built-in templates")
	}
	return nil
}
