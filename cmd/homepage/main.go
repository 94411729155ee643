// Command homepage manages the storage of a new-tab bookmark dashboard.
package main

import "github.com/mesh-intelligence/homepage/internal/cli"

func main() {
	cli.Execute()
}
