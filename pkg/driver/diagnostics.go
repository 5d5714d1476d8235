package driver

import (
	"github.com/pterm/pterm"
)

var (
	errorStyleBG = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	errorColorFG = pterm.FgRed
	infoStyleBG  = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	infoColorFG  = pterm.FgLightGreen
)

// printFatal renders a fatal interpreter error the way a failed
// invocation is reported: a tagged banner followed by the error text.
func printFatal(tag string, err error) {
	errorStyleBG.Print(" " + tag + " ")
	errorColorFG.Println(" " + err.Error())
}

// printResult renders the successful return value of the entry function.
func printResult(rendered string) {
	infoStyleBG.Print(" result ")
	infoColorFG.Println(" " + rendered)
}
