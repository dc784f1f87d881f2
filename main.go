package main

import (
	"context"
	"log"

	"lab_borrow_portal/app"
	"lab_borrow_portal/config"
	"lab_borrow_portal/routes"
)

func main() {
	config.LoadEnv()
	application := app.MustNew()
	defer application.Close()

	app.BootstrapFirstAdmin(context.Background(), application.Config, application.Repo)

	r := application.Router
	routes.RegisterRoutes(r, application)

	port := application.Config.Port
	log.Printf("listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
