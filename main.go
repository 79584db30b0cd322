// The main package for the jobvago scraper executable.
package main

import (
	"github.com/jobvago/scraper/cmd"
)

func main() {
	cmd.Execute()
}
