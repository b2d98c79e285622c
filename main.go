package main

import (
	"context"
	"fmt"
	"os"

	"foodgram/cmd/config"
	migration "foodgram/cmd/database/migrate"
	"foodgram/cmd/database/seed"
	"foodgram/internal/utils"
	"foodgram/internal/utils/logger"
	"foodgram/pkg/catalog"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	utils.LoadConfig()
	logger.Init(logger.Config{
		Level:      utils.GetConfig("LOG_LEVEL"),
		Filename:   utils.GetConfig("LOG_FILE"),
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     30,
		Stdout:     true,
	})
	defer logger.Sync()

	app := cli.NewApp()
	app.Name = "foodgram"
	app.Usage = "recipe sharing backend"
	app.Action = serve
	app.Commands = []*cli.Command{
		{
			Name:   "serve",
			Usage:  "migrate the database and start the HTTP server",
			Action: serve,
		},
		{
			Name:   "migrate",
			Usage:  "run database migrations",
			Action: migrate,
		},
		{
			Name:   "import-ingredients",
			Usage:  "load ingredients from a JSON file",
			Action: importIngredients,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "file",
					Aliases:  []string{"f"},
					Usage:    "path to ingredients.json",
					Required: true,
				},
			},
		},
		{
			Name:   "import-tags",
			Usage:  "load tags from a JSON file",
			Action: importTags,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "file",
					Aliases:  []string{"f"},
					Usage:    "path to tags.json",
					Required: true,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

func serve(_ *cli.Context) error {
	db, err := config.ConnectDB()
	if err != nil {
		return err
	}
	if err := migration.Migrate(db); err != nil {
		return err
	}

	app, err := config.NewApp(db)
	if err != nil {
		return err
	}

	port := utils.GetConfig("APP_PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info("starting server", zap.String("port", port))
	return app.Listen(fmt.Sprintf(":%s", port))
}

func migrate(_ *cli.Context) error {
	db, err := config.ConnectDB()
	if err != nil {
		return err
	}
	return migration.Migrate(db)
}

func importIngredients(c *cli.Context) error {
	service, err := catalogService()
	if err != nil {
		return err
	}
	_, err = seed.ImportIngredients(context.Background(), service, c.String("file"))
	return err
}

func importTags(c *cli.Context) error {
	service, err := catalogService()
	if err != nil {
		return err
	}
	_, err = seed.ImportTags(context.Background(), service, c.String("file"))
	return err
}

func catalogService() (catalog.CatalogService, error) {
	db, err := config.ConnectDB()
	if err != nil {
		return nil, err
	}
	if err := migration.Migrate(db); err != nil {
		return nil, err
	}
	return catalog.NewCatalogService(catalog.NewCatalogRepository(db)), nil
}
