// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package commandline contains convenience UI tools to run programs from the command line: a progress bar
// attached to a runner.Runner, run settings given as flags and a summary of the results.
package commandline

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/hlorunner/pkg/runner"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

func newPlainTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == lgtable.HeaderRow {
				return headerRowStyle
			}
			if row%2 == 0 {
				s = oddRowStyle
			} else {
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

// RunReport holds what is reported about one run.
type RunReport struct {
	Executable string
	NumDevices int
	Config     runner.RunConfig
	Stats      runner.Stats
	Elapsed    time.Duration
	Outputs    runner.PerDeviceLiterals
}

// SprintSummary pretty-prints the report as tables: one for the run and one with the outputs of each device.
func SprintSummary(report *RunReport) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Summary"))
	sb.WriteString("\n")
	table := newPlainTable(false)
	table.Row("executable", report.Executable)
	table.Row("devices", humanize.Comma(int64(report.NumDevices)))
	table.Row("argument mode", report.Config.ArgumentMode.String())
	table.Row("output mode", report.Config.OutputMode.String())
	table.Row("repeats", humanize.Comma(int64(report.Config.NumRepeats)))
	table.Row("argument creations", humanize.Comma(report.Stats.ArgumentCreations))
	if report.Stats.LayoutFallbacks > 0 {
		table.Row("layout fallbacks", humanize.Comma(report.Stats.LayoutFallbacks))
	}
	if report.Stats.SlowProvisioningAlarms > 0 {
		table.Row("slow provisioning alarms", humanize.Comma(report.Stats.SlowProvisioningAlarms))
	}
	table.Row("elapsed", FormatDuration(report.Elapsed))
	if report.Config.NumRepeats > 0 {
		table.Row("per repeat", FormatDuration(report.Elapsed/time.Duration(report.Config.NumRepeats)))
	}
	sb.WriteString(table.Render())
	sb.WriteString("\n")

	if len(report.Outputs) == 0 {
		return sb.String()
	}
	sb.WriteString(titleStyle.Render("Outputs"))
	sb.WriteString("\n")
	table = newPlainTable(true)
	table.Headers("Device", "#", "Shape", "Bytes", "Value")
	deviceIDs := make([]int, 0, len(report.Outputs))
	for deviceID := range report.Outputs {
		deviceIDs = append(deviceIDs, deviceID)
	}
	slices.Sort(deviceIDs)
	for _, deviceID := range deviceIDs {
		for ii, lit := range report.Outputs[deviceID] {
			table.Row(fmt.Sprintf("%d", deviceID), fmt.Sprintf("%d", ii), lit.Shape().String(),
				humanize.Bytes(uint64(lit.Shape().Memory())), lit.String())
		}
	}
	sb.WriteString(table.Render())
	sb.WriteString("\n")
	return sb.String()
}
