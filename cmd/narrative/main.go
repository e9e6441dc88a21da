// Command narrative records narrative shifts and manages paid subscriptions
// against a local snapshot store.
package main

import "github.com/xraph/narrative/internal/cli"

func main() {
	cli.Execute()
}
