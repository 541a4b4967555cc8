package presencecli

import (
	"fmt"
	"io"
)

func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: presencebot setup --bot-token <token> [--env-file .env] [--force]")
	fmt.Fprintln(w, "       presencebot run")
	fmt.Fprintln(w, "       presencebot zones import <file.xls|file.xlsx>")
	fmt.Fprintln(w, "       presencebot snapshot [-o out.xz]")
}
