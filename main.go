package main

import "github.com/andresmejia3/moodring/cmd"

func main() {
	cmd.Execute()
}
