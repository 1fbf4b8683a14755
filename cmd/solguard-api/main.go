package main

import (
	"github.com/joho/godotenv"

	"github.com/solguard/solguard-api/pkg/app"
)

func main() {
	_ = godotenv.Load() // .env is optional, used for local development

	a := app.NewApp()
	a.RunForever()
}
