package commandline

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/hlorunner/pkg/runner"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// ExtraMetricFn is any function that will give extra values to display along the progress bar.
// It is called at each time the progress bar is updated, and it should return a name and the current value when it is called.
type ExtraMetricFn func() (name, value string)

// progressBar holds a progressbar being displayed.
type progressBar struct {
	numRepeats  int
	bar         *progressbar.ProgressBar
	suffix      string
	inNotebook  bool
	totalAmount int

	iterationStart     time.Time
	iterationDurations []time.Duration

	// lipgloss-based rich and asynchronous display for the command-line.
	termenv          *termenv.Output
	statsStyle       lipgloss.Style
	statsTable       *lgtable.Table
	isFirstOutput    bool
	updates          chan progressBarUpdate
	asyncUpdatesDone sync.WaitGroup

	extraMetricFns []ExtraMetricFn
}

// ProgressbarStyle to use. Defaults to the ASCII version.
// Consider "progressbar.ThemeUnicode" for a prettier version.
// But it requires some of the graphical symbols to be supported.
var ProgressbarStyle = progressbar.ThemeASCII

// ProgressBarName is the name of the hooks installed by AttachProgressBar.
const ProgressBarName = "hlorunner.ui.commandline.progressBar"

// Write implements io.Writer, and appends the current suffix to each line.
// It is meant to be used as the default writer for the enclosed progressbar.ProgressBar.
// This ensures that the progress bar and its suffix are written in the same write operation;
// otherwise Jupyter Notebook may display things in different lines.
func (pBar *progressBar) Write(data []byte) (n int, err error) {
	n, err = os.Stdout.Write(data)
	if err != nil {
		return n, err
	}
	_, err = os.Stdout.Write([]byte(pBar.suffix))
	if err != nil {
		return 0, err
	}
	return
}

func (pBar *progressBar) onIterationStart(info *runner.IterationInfo) error {
	if info.Repeat == 0 {
		pBar.numRepeats = info.NumRepeats
		pBar.totalAmount = 0
		pBar.iterationDurations = pBar.iterationDurations[:0]
		pBar.bar = progressbar.NewOptions(pBar.numRepeats,
			progressbar.OptionSetDescription(fmt.Sprintf("      [bold]%s", info.Executable)),
			progressbar.OptionUseANSICodes(true),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("repeats"),
			progressbar.OptionSetTheme(ProgressbarStyle),
			progressbar.OptionSetWriter(pBar), // Required to work with Jupyter notebook.
		)
	}
	pBar.iterationStart = time.Now()
	return nil
}

func (pBar *progressBar) onIterationEnd(info *runner.IterationInfo) error {
	pBar.iterationDurations = append(pBar.iterationDurations, time.Since(pBar.iterationStart))
	if pBar.bar == nil || pBar.bar.IsFinished() {
		return nil
	}
	progress := fmt.Sprintf("%s of %s", humanize.Comma(int64(info.Repeat+1)), humanize.Comma(int64(info.NumRepeats)))
	if pBar.inNotebook {
		// Erase to an end-of-line escape sequence ("\033[J") not supported in Jupyter notebooks:
		pBar.suffix = fmt.Sprintf(" [repeat=%s]        ", progress)
		_ = pBar.bar.Add(1) // Triggers print, see [pBar.Write] method.
	} else {
		pBar.suffix = "\033[J"
		pBar.updates <- progressBarUpdate{
			amount:   1,
			progress: progress,
			median:   medianDuration(pBar.iterationDurations),
		}
	}
	pBar.totalAmount++
	return nil
}

// finish waits for the pending updates to be displayed and restores the cursor. It is a no-op if no
// progress bar is being displayed.
func (pBar *progressBar) finish() {
	if pBar.bar == nil {
		return
	}
	if pBar.updates != nil {
		close(pBar.updates)
		pBar.asyncUpdatesDone.Wait()
		pBar.updates = nil
	}
	pBar.bar = nil
	if pBar.termenv != nil {
		pBar.termenv.ShowCursor()
	}
	fmt.Println()
}

var (
	normalStyle       = lipgloss.NewStyle().Padding(0, 1)
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	tableBorderColor  = "#705090"
)

type progressBarUpdate struct {
	amount   int
	progress string
	median   time.Duration
}

// maxUpdateFrequency is the time between updates to the commandline display of stats.
const maxUpdateFrequency = time.Millisecond * 200

// AttachProgressBar creates a commandline progress bar and attaches it to the Runner, so that
// every time the Runner is run, it will display a progress bar with the repeats executed.
//
// Optionally, one can provide extraMetrics: functions that are called at every update of
// the progress bar and should return a name (title) and a value to be included in the
// updated print-out.
//
// The display is finished when the run returns, also if it fails.
func AttachProgressBar(r *runner.Runner, extraMetrics ...ExtraMetricFn) {
	attachProgressBar(r, extraMetrics...)
}

func attachProgressBar(r *runner.Runner, extraMetrics ...ExtraMetricFn) *progressBar {
	pBar := &progressBar{
		inNotebook:     isNotebook(),
		extraMetricFns: extraMetrics,
	}
	r.OnIterationStart(ProgressBarName, 0, func(info *runner.IterationInfo) error {
		if info.Repeat == 0 && !pBar.inNotebook {
			pBar.startAsyncUpdates()
		}
		return pBar.onIterationStart(info)
	})
	// Run last, so the other hooks time is included in the repeat duration.
	r.OnIterationEnd(ProgressBarName, 1000, pBar.onIterationEnd)
	r.OnRunEnd(ProgressBarName, 0, func(string, error) error {
		pBar.finish()
		return nil
	})
	return pBar
}

// startAsyncUpdates starts the goroutine drawing the command-line updates.
func (pBar *progressBar) startAsyncUpdates() {
	pBar.isFirstOutput = true
	pBar.termenv = termenv.NewOutput(os.Stdout)
	pBar.statsStyle = lipgloss.NewStyle().PaddingLeft(8)
	pBar.statsTable = lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return rightAlignedStyle
			}
			return normalStyle
		})
	updates := make(chan progressBarUpdate, 100) // Large buffer so things are not blocked.
	pBar.updates = updates
	pBar.asyncUpdatesDone.Add(1)
	go func() {
		defer pBar.asyncUpdatesDone.Done()
		// Asynchronously draw updates: this is handy if the repeats are faster than the terminal.
		for update := range updates {
			// Exhaust the updates in the buffer:
			amount := update.amount
		exhaust:
			for {
				select {
				case newUpdate, ok := <-updates:
					if !ok {
						break exhaust
					}
					amount += newUpdate.amount
					update = newUpdate
				default:
					break exhaust
				}
			}

			pBar.statsTable.Data(lgtable.NewStringData())
			pBar.statsTable.Row("Repeat", update.progress)
			pBar.statsTable.Row("Median repeat duration", FormatDuration(update.median))
			for _, extraMetric := range pBar.extraMetricFns {
				name, value := extraMetric()
				pBar.statsTable.Row(name, value)
			}

			// For command-line, we clear the previous lines that will be overwritten.
			pBar.termenv.HideCursor()
			if !pBar.isFirstOutput {
				numLinesToBackup := 2 + 2 + 2 + len(pBar.extraMetricFns)
				pBar.termenv.CursorPrevLine(numLinesToBackup)
			}
			pBar.isFirstOutput = false

			fmt.Println(pBar.statsStyle.Render(pBar.statsTable.String()))
			_ = pBar.bar.Add(amount) // Prints progress bar line.
			fmt.Println()
			pBar.termenv.ShowCursor()
			time.Sleep(maxUpdateFrequency)
		}
	}()
}

// isNotebook returns whether running inside a Jupyter notebook, with a bash_kernel or a GoNB kernel.
func isNotebook() bool {
	for _, env := range []string{"NOTEBOOK_BASH_KERNEL_CAPABILITIES", "GONB_PIPE"} {
		if _, found := os.LookupEnv(env); found {
			return true
		}
	}
	return false
}

