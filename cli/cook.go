package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/santiagomed/chef/core"
	"github.com/santiagomed/chef/logger"
	"github.com/santiagomed/chef/recipe"
)

type state int

const (
	Generating state = iota
	Fetching
	Finished
	Failed
)

type cookFlags struct {
	ingredients []string
	reveal      string
	out         string
	config      string
}

type recipeGenerator interface {
	Generate(ctx context.Context, ingredients []string) (*recipe.Recipe, error)
}

type recipeMsg struct{ recipe *recipe.Recipe }

type recipeErrMsg struct{ err error }

type cookCmdModel struct {
	state       state
	ingredients []string
	recipes     recipeGenerator
	engine      *core.Engine
	ctx         context.Context
	cancel      context.CancelFunc
	publisher   *CliProgressPublisher
	recipe      *recipe.Recipe
	snapshot    core.Snapshot
	runErr      error
	err         error
	interrupted bool
	placeholder string
	spinner     spinner.Model
	progress    progress.Model
	logger      logger.Logger
}

func newCookModel(ctx context.Context, cancel context.CancelFunc, ingredients []string, recipes recipeGenerator, engine *core.Engine, pub *CliProgressPublisher, placeholder string, l logger.Logger) cookCmdModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("202"))

	return cookCmdModel{
		state:       Generating,
		ingredients: ingredients,
		recipes:     recipes,
		engine:      engine,
		ctx:         ctx,
		cancel:      cancel,
		publisher:   pub,
		placeholder: placeholder,
		spinner:     s,
		progress:    progress.New(progress.WithGradient("#FFBA08", "#F48C06")),
		logger:      l,
	}
}

func (m cookCmdModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.generateRecipe)
}

func (m cookCmdModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleQuit(msg)
	case tea.WindowSizeMsg:
		m.progress.Width = msg.Width - padding*2 - 4
		if m.progress.Width > maxWidth {
			m.progress.Width = maxWidth
		}
		return m, nil
	case recipeMsg:
		return m.handleRecipe(msg.recipe)
	case recipeErrMsg:
		m.logger.Error(fmt.Sprintf("Recipe generation failed: %v", msg.err))
		m.state = Failed
		m.err = msg.err
		message := errorStyle.Render(fmt.Sprintf("Could not generate a recipe: %v", msg.err))
		return m, tea.Sequence(tea.Printf("%s", message), tea.Quit)
	case core.Progress:
		return m.handleProgress(msg)
	case runDoneMsg:
		return m.handleRunDone(msg)
	case spinner.TickMsg:
		if m.state == Generating || m.state == Fetching {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m cookCmdModel) View() string {
	switch m.state {
	case Generating:
		return fmt.Sprintf("%s Cooking up a recipe with %s...\n", m.spinner.View(), strings.Join(m.ingredients, ", "))
	case Failed:
		return ""
	default:
		return m.recipeView()
	}
}

func (m cookCmdModel) recipeView() string {
	var b strings.Builder
	r := m.recipe

	b.WriteString("\n" + nameStyle.Render(r.Name) + "\n")
	if r.TotalTime != "" || r.Servings > 0 {
		b.WriteString(faintStyle.Render(fmt.Sprintf("Serves %d · %s", r.Servings, r.TotalTime)) + "\n")
	}
	b.WriteString("\n")

	for i, in := range r.Instructions {
		v := m.snapshot.View(i)
		var marker, image string
		switch {
		case v.Pending:
			marker = m.spinner.View()
			image = faintStyle.Render("fetching image...")
			if m.snapshot.Reveal == core.RevealBatch && i < m.snapshot.Completed {
				image = faintStyle.Render("ready, waiting for the remaining steps")
			}
		case v.Image.Ok():
			marker = check
			image = urlStyle.Render(v.ImageURL(m.placeholder))
		default:
			marker = faintStyle.Render("·")
			image = faintStyle.Render(v.ImageURL(m.placeholder))
		}
		fmt.Fprintf(&b, "%s %s\n    %s\n", marker, headerStyle.Render(fmt.Sprintf("Step %d: %s", in.Step, in.Title)), image)
	}

	pad := strings.Repeat(" ", padding)
	b.WriteString("\n" + pad + m.progress.View() + "\n\n")
	if m.runErr != nil {
		b.WriteString(pad + errorStyle.Render(fmt.Sprintf("Some images could not be fetched: %v", m.runErr)) + "\n")
	}
	b.WriteString(pad + helpStyle("Press q to quit") + "\n")
	return b.String()
}

func (m cookCmdModel) generateRecipe() tea.Msg {
	r, err := m.recipes.Generate(m.ctx, m.ingredients)
	if err != nil {
		return recipeErrMsg{err}
	}
	return recipeMsg{r}
}

func (m cookCmdModel) listenForProgress() tea.Msg {
	select {
	case p := <-m.publisher.progressChan:
		return p
	case done := <-m.publisher.doneChan:
		return done
	case <-m.ctx.Done():
		return nil
	}
}

func (m cookCmdModel) handleRecipe(r *recipe.Recipe) (tea.Model, tea.Cmd) {
	m.logger.Info(fmt.Sprintf("Recipe %q has %d steps", r.Name, len(r.Instructions)))
	m.recipe = r
	m.state = Fetching
	m.engine.Submit(r.Instructions)
	m.snapshot = m.engine.State().Snapshot()
	return m, tea.Batch(m.spinner.Tick, m.listenForProgress)
}

func (m cookCmdModel) handleProgress(p core.Progress) (tea.Model, tea.Cmd) {
	m.logger.Debug(fmt.Sprintf("Step %d/%d: %s", p.Completed, p.Total, p.Result))
	m.snapshot = m.engine.State().Snapshot()
	return m, tea.Batch(m.progress.SetPercent(ratio(m.snapshot)), m.listenForProgress)
}

func (m cookCmdModel) handleRunDone(done runDoneMsg) (tea.Model, tea.Cmd) {
	if done.err != nil {
		m.logger.Warn(fmt.Sprintf("Image run %s ended with error: %v", done.runID, done.err))
	}
	m.snapshot = m.engine.State().Snapshot()
	m.runErr = done.err
	m.state = Finished
	return m, tea.Batch(m.progress.SetPercent(ratio(m.snapshot)), tea.Sequence(finalPause(), tea.Quit))
}

// handleQuit stops the run and quits on q, esc or ctrl+c.
func (m cookCmdModel) handleQuit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc || msg.String() == "q" {
		m.logger.Debug("User exited the application")
		m.engine.Cancel()
		m.cancel()
		m.interrupted = m.state != Finished
		return m, tea.Quit
	}
	return m, nil
}

func ratio(s core.Snapshot) float64 {
	if s.Total() == 0 {
		return 1
	}
	return float64(s.Completed) / float64(s.Total())
}
