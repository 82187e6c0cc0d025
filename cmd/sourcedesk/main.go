package main

import (
	"os"

	"github.com/innovatopia-jp/sourcedesk/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
