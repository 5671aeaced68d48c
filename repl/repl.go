// Package repl implements the Read-Eval-Print Loop for the AST wire format.
//
// The REPL provides an interactive interface for typing tagged-S-expression
// AST listings, lowering them through the compiler package, and seeing the
// disassembled instruction stream immediately. It uses the Charm libraries
// (Bubbletea, Bubbles, and Lipgloss) to create a modern, user-friendly
// terminal interface with syntax highlighting and command history.
//
// Key features:
//   - Interactive listing input and lowering
//   - Command history tracking
//   - Styled output distinguishing parse errors from lowering errors
//   - Token-level syntax highlighting for the wire format
//
// The main entry point is the Start function, which initializes and runs
// the REPL with the given username.
package repl

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dr8co/loom/ast"
	"github.com/dr8co/loom/compiler"
	"github.com/dr8co/loom/ir"
	"github.com/dr8co/loom/lexer"
	"github.com/dr8co/loom/parser"
	"github.com/dr8co/loom/token"
)

const (
	// Prompt is the default prompt for the REPL
	Prompt = ">> "

	// ContPrompt is the continuation prompt used in multiline input mode within the REPL.
	ContPrompt = ".. "
)

// Options contains configuration options for the REPL
type Options struct {
	NoColor bool // Disable syntax highlighting and colored output
	Debug   bool // Print the simulated stack height alongside each disassembly
}

// Start initializes and runs the REPL with the given username and options.
// It creates a new bubbletea program with an initial model and runs it.
// The username is displayed in the welcome message of the REPL.
// If an error occurs while running the program, it is printed to the console.
func Start(username string, options Options) {
	p := tea.NewProgram(initialModel(username, options))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running program:", err)
	}
}

// Styling
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	// Error styles
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	parseErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	loweringErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF8700")).
				Bold(true)

	errorTipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAF00"))

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	heightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8BE9FD"))

	// Syntax highlighting styles
	tagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF79C6")).
			Bold(true)

	identifierStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8F8F2"))

	literalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	symbolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BD93F9"))

	parenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	stringStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))
)

// ErrorType represents the type of error that occurred
type ErrorType int

const (
	// NoError indicates that no error occurred, typically used as a default or initial value for error handling.
	NoError ErrorType = iota

	// ParseErrorKind indicates an error that occurred while parsing the AST listing.
	ParseErrorKind

	// LoweringErrorKind signifies an error reported by the lowering pass.
	LoweringErrorKind
)

// Custom messages for async lowering
type lowerResultMsg struct {
	output    string
	isError   bool
	errorType ErrorType
	elapsed   time.Duration
}

// The model represents the state of the application
type model struct {
	textInput       textinput.Model
	history         []historyEntry
	username        string
	lowering        bool
	currentInput    string
	multilineBuffer string // Buffer for multiline input
	isMultiline     bool   // Flag to indicate if we're in multiline mode
	spinner         spinner.Model
	options         Options
}

// applyStyle applies a lipgloss style to a string, respecting the NoColor option
func (m model) applyStyle(style lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return style.Render(text)
}

// historyEntry represents a single entry in the REPL history
type historyEntry struct {
	input        string
	output       string
	isError      bool
	errorType    ErrorType
	loweringTime time.Duration // Time taken to parse and lower
}

// initialModel creates a new model with default values
func initialModel(username string, options Options) model {
	ti := textinput.New()
	ti.Placeholder = "Enter an AST listing, e.g. (block (lit 1))"
	ti.Focus()
	ti.Width = 80
	ti.Prompt = promptStyle.Render(Prompt)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		textInput:       ti,
		history:         []historyEntry{},
		username:        username,
		lowering:        false,
		multilineBuffer: "",
		isMultiline:     false,
		spinner:         s,
		options:         options,
	}
}

// Init is the first function that will be called
func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// isBalanced checks if parentheses are balanced in the input
func isBalanced(input string) bool {
	depth := 0
	inString := false
	escaped := false
	for _, char := range input {
		if inString {
			switch {
			case escaped:
				escaped = false
			case char == '\\':
				escaped = true
			case char == '"':
				inString = false
			}
			continue
		}
		switch char {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0 && !inString
}

// lowerCmd is a command that parses and lowers an AST listing asynchronously
func lowerCmd(input string, debug bool) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()

		root, err := parser.Parse(input)
		if err != nil {
			return lowerResultMsg{
				output:    formatParseError(err),
				isError:   true,
				errorType: ParseErrorKind,
				elapsed:   time.Since(start),
			}
		}

		block, ok := root.(*ast.Block)
		if !ok {
			block = &ast.Block{Body: []ast.Node{root}}
		}

		seq, err := compiler.Lower(block, true)
		if err != nil {
			return lowerResultMsg{
				output:    formatLoweringError(err),
				isError:   true,
				errorType: LoweringErrorKind,
				elapsed:   time.Since(start),
			}
		}

		output := seq.String()
		if debug {
			if height, simErr := ir.Simulate(seq); simErr == nil {
				output += fmt.Sprintf("\nstack height: %d\n", height)
			} else {
				output += fmt.Sprintf("\nsimulation error: %s\n", simErr)
			}
		}

		return lowerResultMsg{
			output:  output,
			elapsed: time.Since(start),
		}
	}
}

// formatError formats error messages.
func (m model) formatError(errorStyle *lipgloss.Style, entry *historyEntry, s *strings.Builder) {
	// Split the output to separate the error message from the tips
	parts := strings.Split(entry.output, "\nTips:")
	if len(parts) > 1 {
		if m.options.NoColor {
			s.WriteString(parts[0])
			s.WriteString("\n")
			s.WriteString("Tips:" + parts[1])
		} else {
			s.WriteString(errorStyle.Render(parts[0]))
			s.WriteString("\n")
			s.WriteString(errorTipStyle.Render("Tips:" + parts[1]))
		}
	} else {
		if m.options.NoColor {
			s.WriteString(entry.output)
		} else {
			s.WriteString(errorStyle.Render(entry.output))
		}
	}
}

// Update handles all the updates to our model
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.lowering {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case lowerResultMsg:
		m.lowering = false

		m.history = append(m.history, historyEntry{
			input:        m.currentInput,
			output:       msg.output,
			isError:      msg.isError,
			errorType:    msg.errorType,
			loweringTime: msg.elapsed,
		})

		m.currentInput = ""
		return m, nil

	case tea.KeyMsg:
		if m.lowering && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" {
				if m.isMultiline {
					if m.multilineBuffer == "" {
						m.isMultiline = false
						return m, nil
					}

					m.lowering = true
					m.currentInput = m.multilineBuffer
					m.textInput.SetValue("")
					m.isMultiline = false

					buffer := m.multilineBuffer
					m.multilineBuffer = ""

					return m, lowerCmd(buffer, m.options.Debug)
				}
				return m, nil
			}

			if m.isMultiline {
				m.multilineBuffer += "\n" + input
				m.textInput.SetValue("")

				if isBalanced(m.multilineBuffer) {
					m.lowering = true
					m.currentInput = m.multilineBuffer
					m.isMultiline = false

					buffer := m.multilineBuffer
					m.multilineBuffer = ""

					return m, lowerCmd(buffer, m.options.Debug)
				}

				return m, nil
			}

			if !isBalanced(input) {
				m.isMultiline = true
				m.multilineBuffer = input
				m.textInput.SetValue("")
				return m, nil
			}

			m.lowering = true
			m.currentInput = input
			m.textInput.SetValue("")

			return m, lowerCmd(input, m.options.Debug)
		}
	}

	if !m.lowering {
		m.textInput, cmd = m.textInput.Update(msg)
	}

	if m.lowering {
		return m, m.spinner.Tick
	}

	return m, cmd
}

// View renders the current UI
func (m model) View() string {
	var s strings.Builder

	// Title
	s.WriteString(m.applyStyle(titleStyle, " AST Lowering REPL "))
	s.WriteString("\n")

	// Welcome message
	if m.username != "" {
		s.WriteString(fmt.Sprintf("\nHello %s! Type in an AST listing to lower\n", m.username))
	}
	s.WriteString("\n")

	// History
	for _, entry := range m.history {
		lines := strings.Split(entry.input, "\n")
		for i, line := range lines {
			if i == 0 {
				s.WriteString(m.applyStyle(promptStyle, Prompt))
			} else {
				s.WriteString(m.applyStyle(promptStyle, ContPrompt))
			}
			s.WriteString(m.highlightListing(line))
			s.WriteString("\n")
		}

		if entry.isError {
			switch entry.errorType {
			case ParseErrorKind:
				m.formatError(&parseErrorStyle, &entry, &s)
			case LoweringErrorKind:
				m.formatError(&loweringErrorStyle, &entry, &s)
			default:
				if m.options.NoColor {
					s.WriteString(entry.output)
				} else {
					s.WriteString(errorStyle.Render(entry.output))
				}
			}
		} else {
			if m.options.NoColor {
				s.WriteString(entry.output)
			} else {
				s.WriteString(resultStyle.Render(entry.output))
			}
		}

		if entry.loweringTime > 10*time.Millisecond {
			timeStr := fmt.Sprintf(" (%.2fs)", entry.loweringTime.Seconds())
			if m.options.NoColor {
				s.WriteString(timeStr)
			} else {
				s.WriteString(historyStyle.Render(timeStr))
			}
		}

		s.WriteString("\n\n")
	}

	// Current lowering
	if m.lowering {
		if m.options.NoColor {
			s.WriteString(Prompt)
		} else {
			s.WriteString(promptStyle.Render(Prompt))
		}
		s.WriteString(m.highlightListing(m.currentInput))
		s.WriteString("\n")
		s.WriteString(m.spinner.View())
		s.WriteString(" Lowering...")
		s.WriteString("\n\n")
	}

	// Show multiline buffer if in multiline mode
	if m.isMultiline && !m.lowering {
		if m.options.NoColor {
			s.WriteString("Current multiline input:\n")
		} else {
			s.WriteString(historyStyle.Render("Current multiline input:\n"))
		}
		s.WriteString(m.highlightListing(m.multilineBuffer))
		s.WriteString("\n")
	}

	// Input
	if !m.lowering {
		if m.isMultiline {
			if m.options.NoColor {
				m.textInput.Prompt = ContPrompt
			} else {
				m.textInput.Prompt = promptStyle.Render(ContPrompt)
			}
		} else {
			if m.options.NoColor {
				m.textInput.Prompt = Prompt
			} else {
				m.textInput.Prompt = promptStyle.Render(Prompt)
			}
		}
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	// Help text
	helpText := "\nPress Esc or Ctrl+C/D to exit"
	if m.isMultiline {
		helpText += " | Multiline mode: Enter empty line to lower or continue typing"
	} else {
		helpText += " | Multiline input supported for unbalanced parens"
	}
	if m.options.NoColor {
		s.WriteString(helpText)
	} else {
		s.WriteString(historyStyle.Render(helpText))
	}

	return s.String()
}

// formatParseError formats a parser error into a string with improved readability
func formatParseError(err error) string {
	var s strings.Builder
	s.WriteString("Parse Error:\n")
	s.WriteString("  " + err.Error() + "\n")

	s.WriteString("\nTips:\n")
	s.WriteString("  • Check for missing or unbalanced parentheses\n")
	s.WriteString("  • Every compound form is `(tag child...)`\n")
	s.WriteString("  • Use `_` for a structurally absent child\n")

	return s.String()
}

// formatLoweringError formats a lowering error into a string with improved readability
func formatLoweringError(err error) string {
	var s strings.Builder
	s.WriteString("Lowering Error:\n")
	s.WriteString("  " + err.Error() + "\n")

	s.WriteString("\nTips:\n")

	msg := err.Error()
	//nolint:gocritic
	if strings.Contains(msg, "unexpected_root") {
		s.WriteString("  • The top-level listing must be a (block ...) form\n")
	} else if strings.Contains(msg, "unknown_construct") {
		s.WriteString("  • Check the tag is spelled correctly and is supported\n")
	} else if strings.Contains(msg, "odd_hash_items") {
		s.WriteString("  • A hash literal needs matching key/value pairs\n")
	} else if strings.Contains(msg, "unexpected_iter_call") {
		s.WriteString("  • An (iter ...) form's first child must be a (call ...)\n")
	} else {
		s.WriteString("  • Review the listing's shape against the wire format\n")
	}

	return s.String()
}

// highlightListing applies syntax highlighting to an AST wire-format listing
func (m model) highlightListing(code string) string {
	l := lexer.New(code)
	var s strings.Builder

	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}

	isTagPosition := func(i int) bool {
		return i > 0 && tokens[i-1].Type == token.LPAREN
	}

	for i, tok := range tokens {
		if tok.Type == token.EOF {
			continue
		}
		switch tok.Type {
		case token.LPAREN, token.RPAREN:
			s.WriteString(m.applyStyle(parenStyle, tok.Literal))
		case token.STRING:
			s.WriteString(m.applyStyle(stringStyle, "\""+tok.Literal+"\""))
		case token.INT, token.FLOAT:
			s.WriteString(m.applyStyle(literalStyle, tok.Literal))
		case token.SYMBOL:
			s.WriteString(m.applyStyle(symbolStyle, ":"+tok.Literal))
		case token.IDENT:
			if isTagPosition(i) {
				s.WriteString(m.applyStyle(tagStyle, tok.Literal))
			} else {
				s.WriteString(m.applyStyle(identifierStyle, tok.Literal))
			}
		default:
			s.WriteString(tok.Literal)
		}
		if i < len(tokens)-1 && tok.Type != token.LPAREN && tokens[i+1].Type != token.RPAREN && tokens[i+1].Type != token.EOF {
			s.WriteString(" ")
		}
	}

	return s.String()
}
