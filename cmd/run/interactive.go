package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/wasm-engine/engine"
	"github.com/wippyai/wasm-engine/runtime"
	"github.com/wippyai/wasm-engine/stack"
	"github.com/wippyai/wasm-engine/wasm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err       error
	prog      program
	cfg       runtime.Config
	inst      *runtime.Instance
	result    string
	funcs     []funcInfo
	inputs    []textinput.Model
	selected  int
	focusIdx  int
	state     modelState
	stepCount int
	startFuel int64
}

type funcInfo struct {
	name string
	ft   *wasm.FuncType
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateStepping
	stateShowResult
)

func newInteractiveModel(prog program, cfg runtime.Config) *interactiveModel {
	return &interactiveModel{
		prog:  prog,
		cfg:   cfg,
		state: stateSelectFunc,
	}
}

type loadedMsg struct {
	err   error
	inst  *runtime.Instance
	funcs []funcInfo
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadProgram
}

func (m *interactiveModel) loadProgram() tea.Msg {
	prepared, err := runtime.Load(m.prog.module, nil, m.cfg).Prepare()
	if err != nil {
		return loadedMsg{err: err}
	}
	inst, err := prepared.Instantiate()
	if err != nil {
		return loadedMsg{err: err}
	}

	var funcs []funcInfo
	for _, name := range inst.Exports() {
		ft, _ := inst.Signature(name)
		funcs = append(funcs, funcInfo{name: name, ft: ft})
	}
	return loadedMsg{inst: inst, funcs: funcs}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "s":
			switch m.state {
			case stateSelectFunc:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					m.startStepping()
				} else {
					m.state = stateInputArgs
				}
			case stateInputArgs:
				m.startStepping()
			case stateStepping:
				m.step()
			}

		case " ":
			if m.state == stateStepping {
				m.step()
			}

		case "c":
			if m.state == stateStepping {
				m.finish(m.inst.Resume())
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateStepping:
				m.finish(m.inst.Resume())
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.funcs = msg.funcs
		m.inst = msg.inst

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	f := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(f.ft.Params))
	for i, p := range f.ft.Params {
		ti := textinput.New()
		ti.Placeholder = p.String()
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) collectArgs() ([]stack.Value, error) {
	f := m.funcs[m.selected]
	args := make([]stack.Value, len(m.inputs))
	for i, input := range m.inputs {
		v, err := parseValue(strings.TrimSpace(input.Value()), f.ft.Params[i])
		if err != nil {
			return nil, fmt.Errorf("arg%d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

func (m *interactiveModel) callFunction() tea.Msg {
	args, err := m.collectArgs()
	if err != nil {
		return callResultMsg{err: err}
	}
	if m.inst.State() != engine.StateIdle {
		if err := m.inst.Reset(); err != nil {
			return callResultMsg{err: err}
		}
	}

	result, err := m.inst.Execute(m.funcs[m.selected].name, args...)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: result.String()}
}

// startStepping arms a yield before the call, so execution suspends at
// the first instruction boundary and single stepping takes over.
func (m *interactiveModel) startStepping() {
	args, err := m.collectArgs()
	if err != nil {
		m.err = err
		m.state = stateShowResult
		return
	}
	if m.inst.State() != engine.StateIdle {
		if err := m.inst.Reset(); err != nil {
			m.err = err
			m.state = stateShowResult
			return
		}
	}

	m.stepCount = 0
	m.startFuel = m.inst.Fuel()
	m.inst.RequestYield()
	result, err := m.inst.Execute(m.funcs[m.selected].name, args...)
	if stderrors.Is(err, engine.ErrSuspended) {
		m.state = stateStepping
		return
	}
	m.finish(result, err)
}

func (m *interactiveModel) step() {
	result, err := m.inst.Step()
	if stderrors.Is(err, engine.ErrSuspended) {
		m.stepCount++
		return
	}
	m.finish(result, err)
}

func (m *interactiveModel) finish(result stack.Value, err error) {
	if err != nil {
		m.err = err
	} else {
		m.result = result.String()
	}
	m.state = stateShowResult
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.funcs) == 0 {
		return "Loading program..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("WASM Engine"))
	b.WriteString(" ")
	b.WriteString(m.prog.name)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function:\n\n")
		for i, f := range m.funcs {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + m.formatFunc(f)))
			} else {
				b.WriteString(cursor + m.formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • s step • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(f.ft.Params[i].String()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • s step • esc back"))

	case stateStepping:
		b.WriteString(m.steppingView())

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) steppingView() string {
	var b strings.Builder
	f := m.funcs[m.selected]
	s := m.inst.Stack()

	b.WriteString(fmt.Sprintf("Stepping %s\n\n", funcStyle.Render(f.name)))
	b.WriteString(fmt.Sprintf("  step:   %d\n", m.stepCount))
	b.WriteString(fmt.Sprintf("  state:  %s\n", m.inst.State()))
	b.WriteString(fmt.Sprintf("  fuel:   %d (%d burned)\n", m.inst.Fuel(), m.startFuel-m.inst.Fuel()))
	b.WriteString(fmt.Sprintf("  frames: %d\n", s.FrameDepth()))
	if frame, ok := s.Frame(); ok {
		b.WriteString(fmt.Sprintf("  func:   #%d pc=%d\n", frame.Func, frame.PC))
	}

	operands := s.Operands()
	b.WriteString(fmt.Sprintf("\n  operand stack (%d):\n", len(operands)))
	shown := operands
	if len(shown) > 8 {
		shown = shown[len(shown)-8:]
	}
	for i := len(shown) - 1; i >= 0; i-- {
		marker := "   "
		if i == len(shown)-1 {
			marker = " > "
		}
		b.WriteString(marker + typeStyle.Render(shown[i].String()) + "\n")
	}
	if len(operands) > len(shown) {
		b.WriteString(helpStyle.Render(fmt.Sprintf("   ... %d more\n", len(operands)-len(shown))))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("s/space step • c run to end • esc abort • q quit"))
	return b.String()
}

func (m *interactiveModel) formatFunc(f funcInfo) string {
	return funcStyle.Render(f.name) + " " + typeStyle.Render(f.ft.String())
}

func runInteractive(progName string, cfg runtime.Config) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal")
	}
	prog, ok := findProgram(progName)
	if !ok {
		return fmt.Errorf("unknown program %q, see -list", progName)
	}
	p := tea.NewProgram(newInteractiveModel(prog, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
