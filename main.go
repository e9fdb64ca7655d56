package main

import "github.com/naka-gawa/lp-bug-report/cmd"

func main() {
	cmd.Execute()
}
