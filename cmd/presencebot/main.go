package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"presencebot/internal/presencecli"
)

func main() {
	if err := presencecli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, presencecli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr)
			presencecli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
