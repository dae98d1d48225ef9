package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/userservice/internal/admin"
	"github.com/dmitrijs2005/userservice/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := admin.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.Printf("%v", err)
		app.Close()
		os.Exit(1)
	}

}
