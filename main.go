// Command issueflow moves tracker issues through their workflow based on the
// outcome of the tests that reference them.
//
// Usage:
//
//	go test -json ./... | issueflow run
//	issueflow resolve <status> <success|failure>
//	issueflow rules
//	issueflow status <issue-key>...
package main

import "issueflow/internal/cli"

func main() {
	cli.Execute()
}
