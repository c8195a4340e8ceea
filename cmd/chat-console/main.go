package main

import (
	"log"

	"github.com/finestate/hub-backend/internal/builder"
)

func main() {
	app, err := builder.BuildConsole()
	if err != nil {
		log.Fatal("Failed to build chat console:", err)
	}

	if err := app.Run(); err != nil {
		log.Fatal("Chat console error:", err)
	}
}
