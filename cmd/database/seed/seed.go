package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"foodgram/domain"
	"foodgram/internal/utils"
	"foodgram/internal/utils/logger"
	"foodgram/pkg/catalog"

	"go.uber.org/zap"
)

// ImportIngredients loads a JSON array of {"name", "measurement_unit"}.
// Rows that already exist are skipped.
func ImportIngredients(ctx context.Context, service catalog.CatalogService, path string) (int, error) {
	var rows []domain.CreateIngredientRequest
	if err := readJSON(path, &rows); err != nil {
		return 0, err
	}
	utils.InitValidator()
	for i, row := range rows {
		if err := utils.Validate.Struct(row); err != nil {
			return 0, fmt.Errorf("ingredient #%d: %w", i, err)
		}
	}

	created, err := service.CreateIngredients(ctx, rows)
	if err != nil {
		return created, err
	}
	logger.Info("ingredients imported", zap.Int("created", created), zap.Int("total", len(rows)))
	return created, nil
}

// ImportTags loads a JSON array of {"name", "color", "slug"}.
// Rows that already exist are skipped.
func ImportTags(ctx context.Context, service catalog.CatalogService, path string) (int, error) {
	var rows []domain.CreateTagRequest
	if err := readJSON(path, &rows); err != nil {
		return 0, err
	}
	utils.InitValidator()

	created := 0
	for i, row := range rows {
		if err := utils.Validate.Struct(row); err != nil {
			return created, fmt.Errorf("tag #%d: %w", i, err)
		}
		if _, err := service.CreateTag(ctx, row); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return created, err
		}
		created++
	}
	logger.Info("tags imported", zap.Int("created", created), zap.Int("total", len(rows)))
	return created, nil
}

func readJSON(path string, v any) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(file, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
