package main

import (
	"fmt"
	"os"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Run(); err != nil {
		application.Log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
