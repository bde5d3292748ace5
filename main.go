package main

import "github.com/jmehdipour/contact-desk/cmd"

func main() {
	cmd.Execute()
}
