package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mixgraph/pkg/config"
	"github.com/matzehuels/mixgraph/pkg/scene"
	"github.com/matzehuels/mixgraph/pkg/session"
)

// cameraStep is how far one key press moves the camera.
const cameraStep = 0.25

var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
	headerStyle  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// watch command
// =============================================================================

func (c *CLI) watchCommand() *cobra.Command {
	var (
		scenePath string
		fps       int
	)

	cmd := &cobra.Command{
		Use:   "watch <graph.json>",
		Short: "Step a graph interactively and inspect its draw calls",
		Long: `Evaluate a graph continuously and show the draw calls of the latest
frame. The camera can be moved with the arrow keys to see how draw
layers that invert inside stencil volumes react.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fps < 1 {
				return fmt.Errorf("--fps must be positive, got %d", fps)
			}
			g, err := c.readGraph(args[0])
			if err != nil {
				return err
			}
			sc := &config.Scene{Surface: 1, Frames: 1}
			if scenePath != "" {
				if sc, err = loadScene(scenePath); err != nil {
					return err
				}
			}
			sess, err := session.New(g, sc, session.Options{MaxIterations: c.settings().Engine.MaxIterations})
			if err != nil {
				return err
			}
			defer sess.Close()

			m := NewWatchModel(cmd.Context(), args[0], sess, sc.Camera, time.Second/time.Duration(fps))
			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context()), tea.WithAltScreen()).Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&scenePath, "scene", "s", "", "scene file (TOML)")
	cmd.Flags().IntVar(&fps, "fps", 10, "frames evaluated per second")

	return cmd
}

// =============================================================================
// WatchModel - Interactive frame stepping
// =============================================================================

type tickMsg time.Time

// WatchModel is the bubbletea model of the watch command.
type WatchModel struct {
	Path     string
	Camera   scene.Vec3
	Paused   bool
	Frame    session.Frame
	Stepped  int
	Failed   int
	Err      error
	ctx      context.Context
	sess     *session.Session
	interval time.Duration
}

// NewWatchModel creates a watch model stepping sess every interval.
func NewWatchModel(ctx context.Context, path string, sess *session.Session, camera scene.Vec3, interval time.Duration) WatchModel {
	sess.SetCamera(camera)
	return WatchModel{
		Path:     path,
		Camera:   camera,
		ctx:      ctx,
		sess:     sess,
		interval: interval,
	}
}

func (m WatchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m WatchModel) Init() tea.Cmd {
	return m.tick()
}

// step evaluates one frame.
func (m WatchModel) step() WatchModel {
	f, err := m.sess.Step(m.ctx)
	if err != nil {
		m.Err = err
		return m
	}
	m.Frame = f
	m.Stepped++
	if len(f.Errors) > 0 {
		m.Failed++
	}
	return m
}

func (m WatchModel) move(axis int, delta float64) WatchModel {
	m.Camera[axis] += delta
	m.sess.SetCamera(m.Camera)
	return m
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.Paused = !m.Paused
		case "n":
			if m.Paused {
				m = m.step()
			}
		case "left", "h":
			m = m.move(0, -cameraStep)
		case "right", "l":
			m = m.move(0, cameraStep)
		case "up", "k":
			m = m.move(2, -cameraStep)
		case "down", "j":
			m = m.move(2, cameraStep)
		case "pgup", "u":
			m = m.move(1, cameraStep)
		case "pgdown", "d":
			m = m.move(1, -cameraStep)
		}
	case tickMsg:
		if !m.Paused {
			m = m.step()
		}
		if m.Err != nil {
			return m, tea.Quit
		}
		return m, m.tick()
	}
	return m, nil
}

func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Watching " + m.Path))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("←/→/↑/↓ move camera  u/d up/down  space pause  n step  q quit"))
	b.WriteString("\n\n")

	state := StyleSuccess.Render("running")
	if m.Paused {
		state = StyleWarning.Render("paused")
	}
	b.WriteString(fmt.Sprintf("%s  frame %s  elapsed %s  camera (%.2f, %.2f, %.2f)\n",
		state,
		StyleHighlight.Render(strconv.Itoa(m.Frame.Index)),
		StyleValue.Render(m.Frame.Elapsed.Round(time.Millisecond).String()),
		m.Camera[0], m.Camera[1], m.Camera[2]))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("%s stepped · %d with errors · %s last frame",
		plural(m.Stepped, "frame"), m.Failed, plural(m.Frame.Evaluations, "evaluation"))))
	b.WriteString("\n\n")

	b.WriteString(drawTable(m.Frame.Draws))
	b.WriteString("\n")

	for _, e := range m.Frame.Errors {
		b.WriteString(StyleError.Render(iconError + " " + e.Error()))
		b.WriteString("\n")
	}
	if m.Err != nil {
		b.WriteString(StyleError.Render(m.Err.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

// drawTable renders the draw calls of a frame.
func drawTable(draws []session.Draw) string {
	if len(draws) == 0 {
		return listDimStyle.Render("  no draw calls")
	}
	rows := make([][]string, len(draws))
	for i, d := range draws {
		stencil := "—"
		if d.StencilKind != "" {
			stencil = fmt.Sprintf("%s #%d", d.StencilKind, d.StencilID)
		}
		rows[i] = []string{strconv.FormatUint(d.Material, 10), d.Test, stencil, d.Blend, d.Winding, uniformSummary(d.Uniforms)}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Material", "Test", "Stencil", "Blend", "Winding", "Uniforms").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 1 && row < len(draws) {
				switch draws[row].Test {
				case "inside":
					return StyleSuccess
				case "outside":
					return StyleWarning
				}
			}
			return StyleValue
		})
	return t.Render()
}

func uniformSummary(u map[string][]float32) string {
	if len(u) == 0 {
		return "—"
	}
	names := make([]string, 0, len(u))
	for name := range u {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%v", name, u[name])
	}
	return strings.Join(parts, " ")
}
