// cmd/rnadiff/main.go
package main

import (
	"rnadiff/internal/app"
	"rnadiff/internal/appshell"
)

func main() {
	appshell.Main(app.RunContext)
}
