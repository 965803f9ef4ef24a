package main

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var useColors = true

func setColors(on bool) {
	useColors = on
	color.NoColor = !on || color.NoColor
}

func printSuccess(message string, args ...interface{}) {
	if useColors {
		color.Green(message, args...)
		return
	}
	fmt.Printf(message+"\n", args...)
}

func printError(message string, args ...interface{}) {
	if useColors {
		color.New(color.FgRed).Fprintf(os.Stderr, message+"\n", args...)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: "+message+"\n", args...)
}

func printWarning(message string, args ...interface{}) {
	if useColors {
		color.Yellow(message, args...)
		return
	}
	fmt.Printf("Warning: "+message+"\n", args...)
}

// dump prints v with its full structure when --debug is set.
func dump(v ...interface{}) {
	if !debug {
		return
	}
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
	cfg.Fdump(os.Stderr, v...)
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("No data to display")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	if useColors {
		colors := make([]tablewriter.Colors, len(headers))
		for i := range colors {
			colors[i] = tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiBlueColor}
		}
		table.SetHeaderColor(colors...)
	}
	table.AppendBulk(rows)
	table.Render()
}

func stateColor(state string) string {
	if !useColors {
		return state
	}
	switch state {
	case "suspended", "error":
		return color.RedString(state)
	case "stopped":
		return color.YellowString(state)
	default:
		return color.GreenString(state)
	}
}
