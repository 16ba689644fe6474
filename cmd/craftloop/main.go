// Command craftloop runs the crafting discovery loop.
package main

import "github.com/roach88/craftloop/internal/cli"

func main() {
	cli.Main()
}
