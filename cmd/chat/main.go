// Command chat is a terminal client for the MediSense API. It keeps a
// session-local transcript and talks to POST /api/rag.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MediSenseAI/medisense-mvp/engine/domain"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func main() {
	apiURL := envOr("MEDISENSE_API_URL", "http://localhost:8080")
	client := &apiClient{baseURL: strings.TrimRight(apiURL, "/"), http: &http.Client{Timeout: 90 * time.Second}}

	p := tea.NewProgram(newModel(client), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "chat error:", err)
		os.Exit(1)
	}
}

// --- API client ---

type ragResult struct {
	PatientQuestion string `json:"patient_question"`
	DoctorResponse  string `json:"doctor_response"`
}

type ragResponse struct {
	Results []ragResult `json:"results"`
	Answer  string      `json:"answer"`
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

// Ask posts a question to the API. Error-shaped bodies still carry a
// displayable answer, so non-200 statuses are not treated as failures as
// long as the body decodes.
func (c *apiClient) Ask(ctx context.Context, question string) (*ragResponse, error) {
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/rag", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var resp ragResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", res.StatusCode, err)
	}
	return &resp, nil
}

// botText decides what the transcript shows for one API response: the answer
// if present, otherwise the raw matched Q&A pairs, otherwise a stock line.
func botText(resp *ragResponse) string {
	if strings.TrimSpace(resp.Answer) != "" {
		return resp.Answer
	}
	if len(resp.Results) > 0 {
		var b strings.Builder
		for i, r := range resp.Results {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "Q: %s\nA: %s", r.PatientQuestion, r.DoctorResponse)
		}
		return b.String()
	}
	return "No relevant answer found."
}

// --- Bubble Tea model ---

type answerMsg struct{ resp *ragResponse }
type errMsg struct{ err error }

type chatModel struct {
	client   *apiClient
	input    textinput.Model
	viewport viewport.Model
	history  []domain.ChatMessage
	waiting  bool
	ready    bool
}

func newModel(client *apiClient) chatModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a medical question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return chatModel{client: client, input: ti, viewport: viewport.New(0, 0)}
}

func (m chatModel) Init() tea.Cmd { return textinput.Blink }

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := transcriptStyle.GetFrameSize()
		vh := msg.Height - fh - 4 // header, input, status, spacer
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderTranscript())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.waiting {
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			m.history = append(m.history, domain.ChatMessage{Role: domain.RoleUser, Text: q})
			m.input.Reset()
			m.waiting = true
			m.viewport.SetContent(m.renderTranscript())
			m.viewport.GotoBottom()
			return m, ask(m.client, q)
		}

	case answerMsg:
		m.history = append(m.history, domain.ChatMessage{Role: domain.RoleBot, Text: botText(msg.resp)})
		m.waiting = false
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case errMsg:
		m.history = append(m.history, domain.ChatMessage{Role: domain.RoleBot, Text: "Error: " + msg.err.Error()})
		m.waiting = false
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func ask(client *apiClient, question string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()
		resp, err := client.Ask(ctx, question)
		if err != nil {
			return errMsg{err: err}
		}
		return answerMsg{resp: resp}
	}
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func (m chatModel) renderTranscript() string {
	if len(m.history) == 0 {
		return "Ask anything about your health. Answers are grounded in a medical Q&A forum."
	}
	var b strings.Builder
	for i, msg := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.Role {
		case domain.RoleUser:
			b.WriteString(userStyle.Render("You: ") + msg.Text)
		default:
			b.WriteString(botStyle.Render("MediSense: ") + msg.Text)
		}
	}
	if m.waiting {
		b.WriteString("\n\n" + botStyle.Render("MediSense: ") + "Thinking...")
	}
	return b.String()
}

func (m chatModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("MediSense Chat")
	status := statusStyle.Render("Enter to send · Ctrl+C to quit")
	return header + "\n" + transcriptStyle.Render(m.viewport.View()) + "\n" + m.input.View() + "\n" + status
}
