package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/pawel-modine/AsanaBot/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
