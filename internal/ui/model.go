package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/sheetpix/internal/config"
	"github.com/nconklindev/sheetpix/internal/extractor"
	"github.com/nconklindev/sheetpix/internal/job"
	"github.com/nconklindev/sheetpix/internal/types"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

type state int

const (
	stateFilePicker state = iota
	statePreview
	stateProcessing
	stateComplete
	stateError
)

type Model struct {
	state        state
	filepicker   filepicker.Model
	selectedFile string
	preview      *types.Preview
	config       *config.Config
	runner       *job.Runner
	result       *types.RunResult
	err          error
	width        int
	height       int
	progress     progress.Model
	progressChan chan float64
	resultChan   chan runResultMsg
}

type runResultMsg struct {
	result *types.RunResult
	err    error
}

type previewLoadedMsg struct {
	preview *types.Preview
	err     error
}

type runCompleteMsg struct {
	result *types.RunResult
	err    error
}

type progressMsg float64

type waitForProgressMsg struct{}

// InitialModel builds the TUI around a runner. cfg must be the config the
// runner was built from so the zip toggle reaches the run.
func InitialModel(cfg *config.Config, runner *job.Runner) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".xlsx", ".xlsm"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Set filepicker colors to match theme
	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C42"))
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB84D"))
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB84D"))
	fp.Styles.File = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C42")).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	prog := progress.New(progress.WithGradient("#FF8C42", "#FF9F5A"))

	return Model{
		state:      stateFilePicker,
		filepicker: fp,
		config:     cfg,
		runner:     runner,
		progress:   prog,
	}
}

func (m Model) Init() tea.Cmd {
	return m.filepicker.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Leave room for title, subtitle and help text
		height := msg.Height - 14
		if height < 5 {
			height = 5
		}

		m.filepicker.SetHeight(height)

		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateFilePicker:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			}

		case statePreview:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "esc":
				m.state = stateFilePicker
				m.preview = nil
				return m, nil
			case "z":
				// Uploading needs the archive, so packaging stays on
				if !m.runner.Publishes() {
					m.config.Package.Enabled = !m.config.Package.Enabled
				}
				return m, nil
			case "enter":
				m.state = stateProcessing
				return m.runJob()
			}

		case stateProcessing:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case stateComplete, stateError:
			switch msg.String() {
			case "ctrl+c", "q", "enter", "esc":
				return m, tea.Quit
			}
		}

	case previewLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.preview = msg.preview
		m.state = statePreview
		return m, nil

	case runCompleteMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.result = msg.result
		m.state = stateComplete
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		if m.state == stateProcessing {
			cmd := m.progress.SetPercent(float64(msg))
			return m, tea.Batch(cmd, waitForProgress(m.progressChan, m.resultChan))
		}
		return m, nil

	case waitForProgressMsg:
		return m, waitForProgress(m.progressChan, m.resultChan)
	}

	if m.state == stateFilePicker {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			return m, m.loadPreview(path)
		}

		return m, cmd
	}

	return m, nil
}

func (m Model) loadPreview(path string) tea.Cmd {
	opts := m.runner.Options()
	return func() tea.Msg {
		preview, err := extractor.Inspect(path, opts)
		return previewLoadedMsg{preview: preview, err: err}
	}
}

func (m Model) runJob() (Model, tea.Cmd) {
	m.progressChan = make(chan float64, 100)
	m.resultChan = make(chan runResultMsg, 1)

	progressChan := m.progressChan
	resultChan := m.resultChan
	selectedFile := m.selectedFile
	runner := m.runner

	cmd := tea.Batch(
		func() tea.Msg {
			go func() {
				result, err := runner.Run(context.Background(), selectedFile, progressChan)

				resultChan <- runResultMsg{result: result, err: err}

				close(progressChan)
				close(resultChan)
			}()

			return waitForProgressMsg{}
		},
		m.progress.Init(),
	)

	return m, cmd
}

func waitForProgress(progressChan chan float64, resultChan chan runResultMsg) tea.Cmd {
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}

		p, ok := <-progressChan
		if !ok {
			// Progress channel closed, check result
			res, ok := <-resultChan
			if ok {
				return runCompleteMsg(res)
			}
			return nil
		}

		return progressMsg(p)
	}
}

func (m Model) View() string {
	switch m.state {
	case stateFilePicker:
		return m.viewFilePicker()
	case statePreview:
		return m.viewPreview()
	case stateProcessing:
		return m.viewProcessing()
	case stateComplete:
		return m.viewComplete()
	case stateError:
		return m.viewError()
	}
	return ""
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	title := TitleStyle.Render("🖼  Sheetpix - Spreadsheet Image Extractor")

	authorSpan := SubtitleStyle.Render("by Nick Conklin • ")
	githubSpan := LinkStyle.Render("https://github.com/nconklindev/sheetpix")
	byLine := lipgloss.JoinHorizontal(lipgloss.Top, authorSpan, githubSpan)

	s.WriteString(lipgloss.JoinVertical(lipgloss.Left, title, byLine))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Select an XLSX workbook to extract images from"))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press q to quit"))

	return s.String()
}

func (m Model) viewPreview() string {
	var s strings.Builder
	p := m.preview

	s.WriteString(TitleStyle.Render("🖼  Ready to Extract"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("File: %s", filepath.Base(m.selectedFile))))
	s.WriteString("\n\n")

	s.WriteString(fmt.Sprintf("Sheet:           %s\n", p.SheetName))
	s.WriteString(fmt.Sprintf("Embedded images: %d\n", p.MediaEntries))
	s.WriteString(fmt.Sprintf("Data rows:       %d\n", p.DataRows))
	s.WriteString("\n")

	column := m.config.Extract.NameColumn
	if p.HasNameColumn {
		s.WriteString(SuccessStyle.Render(fmt.Sprintf("✓ Found %q column", column)))
		s.WriteString("\n")
		for _, name := range p.SampleNames {
			s.WriteString(TextStyle.Render("  • " + name))
			s.WriteString("\n")
		}
	} else {
		s.WriteString(WarningStyle.Render(fmt.Sprintf("! No %q column, images keep numbered names", column)))
		s.WriteString("\n")
	}

	if p.MediaEntries != p.DataRows {
		s.WriteString(WarningStyle.Render(fmt.Sprintf("! %d images for %d rows, extra entries stay unmatched", p.MediaEntries, p.DataRows)))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	zipStatus := "[ ]"
	if m.config.Package.Enabled {
		zipStatus = "[x]"
	}
	s.WriteString(fmt.Sprintf("Create %s: %s\n", m.config.Package.ArchiveName, zipStatus))
	if m.runner.Publishes() {
		s.WriteString(fmt.Sprintf("Upload to OSS bucket %s\n", m.config.OSS.Bucket))
	}
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("enter: extract • z: toggle zip • esc: back • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewProcessing() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("🖼  Processing..."))
	s.WriteString("\n\n")
	s.WriteString("Extracting and renaming images...")
	s.WriteString("\n\n")
	s.WriteString(m.progress.View())

	return BoxStyle.Render(s.String())
}

func (m Model) viewComplete() string {
	var s strings.Builder
	r := m.result

	s.WriteString(TitleStyle.Render("✓ Extraction Complete!"))
	s.WriteString("\n\n")

	maxPathLen := m.width - 20
	if maxPathLen < 30 {
		maxPathLen = 30
	}

	s.WriteString(fmt.Sprintf("Input:  %s\n", truncatePath(r.Document, maxPathLen)))
	s.WriteString(SuccessStyle.Render(fmt.Sprintf("Output: %s", truncatePath(r.OutputDir, maxPathLen))))
	s.WriteString("\n\n")

	s.WriteString(fmt.Sprintf("Images extracted: %d • renamed: %d • skipped rows: %d\n",
		len(r.Match.Images), len(r.Match.Renamed), len(r.Match.Skipped)))
	s.WriteString("\n")

	if len(r.Files) == 0 {
		s.WriteString(TextStyle.Render("No images found in this workbook"))
		s.WriteString("\n")
	} else {
		s.WriteString(fileColumns(r.Files))
		s.WriteString("\n")
	}

	if r.Archive != nil {
		s.WriteString("\n")
		s.WriteString(SuccessStyle.Render(fmt.Sprintf("Archive: %s (%s)",
			truncatePath(r.Archive.Path, maxPathLen), humanize.Bytes(uint64(r.Archive.Size)))))
		s.WriteString("\n")
	}
	if r.Upload != nil {
		s.WriteString(LinkStyle.Render(r.Upload.SignedURL))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("Press any key to exit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewError() string {
	var s strings.Builder

	s.WriteString(ErrorStyle.Render("✗ Error"))
	s.WriteString("\n\n")
	s.WriteString(m.err.Error())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press any key to exit"))

	return BoxStyle.Render(s.String())
}

// fileColumns lays files out in two columns, alternating left and right.
func fileColumns(files []types.OutputFile) string {
	var left, right []string
	for i, f := range files {
		line := fmt.Sprintf("%s %s", f.Name, FileSizeStyle.Render(humanize.Bytes(uint64(f.Size))))
		if i%2 == 0 {
			left = append(left, line)
		} else {
			right = append(right, line)
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		ColumnStyle.Render(strings.Join(left, "\n")),
		ColumnStyle.Render(strings.Join(right, "\n")),
	)
}

func truncatePath(path string, max int) string {
	if len(path) > max {
		return "..." + path[len(path)-max+3:]
	}
	return path
}
