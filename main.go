package main

import "github.com/xiaot623/gogo/relay/cmd"

func main() {
	cmd.Execute()
}
