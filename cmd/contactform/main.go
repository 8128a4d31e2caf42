// cmd/contactform/main.go
package main

import (
	"context"
	"log"

	"github.com/dalemusser/contactform/app"
	"github.com/dalemusser/contactform/internal/app/bootstrap"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		log.Fatal(err)
	}
}
