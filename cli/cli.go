package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/santiagomed/chef/backend"
	"github.com/santiagomed/chef/config"
	"github.com/santiagomed/chef/fs"
	"github.com/santiagomed/chef/logger"
	"github.com/santiagomed/chef/utils"
)

var rootCmd = &cobra.Command{
	Use:   "chef",
	Short: "Chef turns the ingredients you have into an illustrated recipe",
	Long:  `Chef is a CLI tool that uses AI to generate a recipe from your ingredients and fetches an illustrative image for every step.`,
}

var cookCmd = &cobra.Command{
	Use:   "cook [ingredients...]",
	Short: "Generate a recipe and illustrate its steps",
	Run: func(cmd *cobra.Command, args []string) {
		flags, err := parseCookFlags(cmd, args)
		if err != nil {
			fmt.Printf("Error parsing flags: %v\n", err)
			os.Exit(1)
		}

		ingredients := utils.SanitizeIngredients(flags.ingredients)
		if len(ingredients) == 0 {
			fmt.Println(faintStyle.Render("No ingredients entered. Exiting..."))
			os.Exit(1)
		}

		cfg, err := loadConfig(flags.config, flags.reveal)
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Error loading config: %v", err)))
			os.Exit(1)
		}

		logger.InitLogger()
		l := logger.GetLogger()
		l.Debug("Initializing Chef CLI")

		publisher := NewCliProgressPublisher(l)
		engine, err := newImageEngine(cfg, publisher, l)
		if err != nil {
			fmt.Printf("Error initializing engine: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		engine.Start(ctx)

		recipes := backend.NewRecipeClient(cfg.BackendURL, cfg.RequestTimeout, l)
		model := newCookModel(ctx, cancel, ingredients, recipes, engine, publisher, cfg.PlaceholderURL, l)

		final, err := tea.NewProgram(model).Run()
		cancel()
		engine.Shutdown(5 * time.Second)
		if err != nil {
			fmt.Printf("Error running program: %v\n", err)
			os.Exit(1)
		}

		m := final.(cookCmdModel)
		if m.err != nil {
			os.Exit(1)
		}
		if m.interrupted {
			fmt.Println(faintStyle.Render("Interrupted. Exiting application..."))
			return
		}
		if flags.out != "" && m.state == Finished {
			exportRecipe(m, flags.out, l)
		}
	},
}

var imageCmd = &cobra.Command{
	Use:   "image <step title>",
	Short: "Fetch the illustrative image for a single step",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := loadConfig(configPath, "")
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Error loading config: %v", err)))
			os.Exit(1)
		}

		l := logger.NewConsoleLogger(zerolog.WarnLevel)
		client := backend.NewImageClient(cfg.BackendURL, cfg.RequestTimeout, l)
		title := strings.Join(args, " ")

		res := client.FetchStepImage(context.Background(), title)
		if res.Ok() {
			fmt.Println(res.URL)
			return
		}
		fmt.Println(cfg.PlaceholderURL)
		fmt.Fprintln(os.Stderr, faintStyle.Render("No image available, showing the placeholder."))
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recipe and image generation service",
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := loadConfig(configPath, "")
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Error loading config: %v", err)))
			os.Exit(1)
		}
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}

		l := logger.NewConsoleLogger(zerolog.InfoLevel)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, cleanup, err := newServer(ctx, cfg, l)
		if err != nil {
			l.WithField("error", err.Error()).Error("failed to initialize server")
			os.Exit(1)
		}
		defer cleanup()

		if err := s.Run(ctx, fmt.Sprintf(":%d", cfg.Port)); err != nil {
			l.WithField("error", err.Error()).Error("server stopped")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(cookCmd)
	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(serveCmd)

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to custom configuration file")

	cookCmd.Flags().StringArrayP("ingredient", "i", nil, "An ingredient to cook with. Repeatable")
	cookCmd.Flags().StringP("reveal", "r", "", "How step images appear: incremental or batch")
	cookCmd.Flags().StringP("out", "o", "", "Export the finished recipe to this directory, or a .zip file")

	serveCmd.Flags().IntP("port", "p", 7860, "Port to listen on")
}

func parseCookFlags(cmd *cobra.Command, args []string) (cookFlags, error) {
	ingredients, err := cmd.Flags().GetStringArray("ingredient")
	if err != nil {
		return cookFlags{}, err
	}

	reveal, err := cmd.Flags().GetString("reveal")
	if err != nil {
		return cookFlags{}, err
	}

	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return cookFlags{}, err
	}

	config, err := cmd.Flags().GetString("config")
	if err != nil {
		return cookFlags{}, err
	}

	return cookFlags{
		ingredients: append(append([]string{}, args...), ingredients...),
		reveal:      reveal,
		out:         out,
		config:      config,
	}, nil
}

func loadConfig(path, reveal string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if reveal != "" {
		cfg.Reveal = reveal
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func exportRecipe(m cookCmdModel, out string, l logger.Logger) {
	if out == "." || strings.HasSuffix(out, "/") {
		out = filepath.Join(out, utils.FormatRecipeName(m.recipe.Name))
	}
	err := fs.NewOsFileSystem().Export(out, m.recipe, m.snapshot.Results, m.placeholder)
	if err != nil {
		l.Error(fmt.Sprintf("Failed to export recipe: %v", err))
		fmt.Println(errorStyle.Render(fmt.Sprintf("Could not export the recipe: %v", err)))
		os.Exit(1)
	}
	pathStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	fmt.Printf("%s Recipe saved to %s\n", check, pathStyle.Render(out))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
