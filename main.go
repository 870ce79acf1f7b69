package main

import (
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/cmd"
)

func main() {
	cmd.Execute()
}
