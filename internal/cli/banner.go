package cli

import (
	"fmt"
	"io"
)

const prompt = "coresim> "

const banner = `
   ____ ___  ____  _____ ____ ___ __  __
  / ___/ _ \|  _ \| ____/ ___|_ _|  \/  |
 | |  | | | | |_) |  _| \___ \| || |\/| |
 | |__| |_| |  _ <| |___ ___) | || |  | |
  \____\___/|_| \_\_____|____/___|_|  |_|
`

// printBanner writes the startup header.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
	fmt.Fprintln(w, "\nType 'initialize' to load the configuration, 'exit' to quit.")
}

// clearScreen resets the terminal using ANSI escapes.
func clearScreen(w io.Writer) {
	fmt.Fprint(w, "\033[2J\033[H")
}
