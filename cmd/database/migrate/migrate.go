package migration

import (
	"fmt"

	"foodgram/entities"
	"foodgram/internal/utils/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return err
	}

	// recipe_tags has its own model with a composite key
	if err := db.SetupJoinTable(&entities.Recipe{}, "Tags", &entities.RecipeTag{}); err != nil {
		return err
	}

	models := []any{
		&entities.User{},
		&entities.Tag{},
		&entities.Ingredient{},
		&entities.Recipe{},
		&entities.RecipeTag{},
		&entities.RecipeIngredient{},
		&entities.Favorite{},
		&entities.ShoppingCart{},
		&entities.Follow{},
	}
	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			logger.Error("migration failed", zap.String("model", fmt.Sprintf("%T", model)), zap.Error(err))
			return err
		}
	}

	logger.Info("database migration complete")
	return nil
}
