package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/resource-rush/game/config"
	"github.com/wricardo/resource-rush/game/engine"
	"github.com/wricardo/resource-rush/game/scores"
	"github.com/wricardo/resource-rush/game/service"
	"github.com/wricardo/resource-rush/transport/tui"
	"github.com/wricardo/resource-rush/validate"
)

const defaultScoresLimit = 10

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
)

// renderTable renders rows under headers with a normal border
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}

// loadGameConfig returns the config with the given id, or the default
// config with its name as the id when id is empty
func loadGameConfig(configs *config.Manager, id string) (string, *engine.GameConfig, error) {
	if id == "" {
		cfg := configs.GetDefault()
		return cfg.Name, cfg, nil
	}
	cfg, err := configs.LoadConfig(id)
	if err != nil {
		return "", nil, err
	}
	return id, cfg, nil
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "play in the local terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config id; empty uses the default config",
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "board seed; 0 uses the config seed or a random one",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			configs, err := openConfigs(cmd.String("config-dir"))
			if err != nil {
				return err
			}
			configID, cfg, err := loadGameConfig(configs, cmd.String("config"))
			if err != nil {
				return err
			}

			var eng *engine.GameEngine
			if seed := int64(cmd.Int("seed")); seed != 0 {
				eng, err = engine.NewEngineWithSeed(cfg, seed)
			} else {
				eng, err = engine.NewEngine(cfg)
			}
			if err != nil {
				return fmt.Errorf("failed to create game engine: %w", err)
			}

			opts := tui.Options{
				ConfigID: configID,
				Player:   "local:" + os.Getenv("USER"),
			}
			if store := openScores(cmd.String("scores-db")); store != nil {
				defer store.Close()
				opts.Scores = store
			}

			return tui.Run(tui.NewModel(eng, opts))
		},
	}
}

func sshCommand() *cli.Command {
	defaults := tui.DefaultSSHServerConfig()
	return &cli.Command{
		Name:  "ssh",
		Usage: "serve the terminal game over SSH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "address",
				Usage:   "SSH listen address",
				Value:   defaults.Address,
				Sources: cli.EnvVars("SSH_ADDR"),
			},
			&cli.StringFlag{
				Name:    "host-key",
				Usage:   "SSH host key path; generated when missing",
				Sources: cli.EnvVars("SSH_HOST_KEY"),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config id of every SSH game; empty uses the default config",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			configs, err := openConfigs(cmd.String("config-dir"))
			if err != nil {
				return err
			}

			sshConfig := defaults
			sshConfig.Address = cmd.String("address")
			sshConfig.HostKeyPath = cmd.String("host-key")
			sshConfig.ConfigID = cmd.String("config")

			store := openScores(cmd.String("scores-db"))
			var srv *tui.SSHServer
			if store != nil {
				defer store.Close()
				srv, err = tui.NewSSHServer(sshConfig, configs, store)
			} else {
				srv, err = tui.NewSSHServer(sshConfig, configs, nil)
			}
			if err != nil {
				return err
			}

			log.Info("connect with", "cmd", "ssh -p "+portOf(sshConfig.Address)+" localhost")
			return srv.ListenAndServe(ctx)
		},
	}
}

// portOf returns the port of a host:port address
func portOf(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i+1:]
	}
	return addr
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check the config files of a directory",
		ArgsUsage: "[dir]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				dir = cmd.String("config-dir")
			}

			results, err := validate.ValidateDir(dir)
			if err != nil {
				return err
			}
			return printValidation(cmd.Root().Writer, dir, results)
		},
	}
}

// printValidation writes one table row per file and fails when any file
// is invalid
func printValidation(w io.Writer, dir string, results []validate.ValidationResult) error {
	if len(results) == 0 {
		fmt.Fprintf(w, "No config files found in %s\n", dir)
		return nil
	}

	rows := make([][]string, 0, len(results))
	invalid := 0
	for _, result := range results {
		status := "ok"
		if !result.Valid {
			status = "invalid"
			invalid++
		}
		var issues []string
		for _, e := range result.Errors {
			issues = append(issues, "error: "+e)
		}
		for _, warning := range result.Warnings {
			issues = append(issues, "warning: "+warning)
		}
		rows = append(rows, []string{filepath.Base(result.File), status, strings.Join(issues, "\n")})
	}

	fmt.Fprintln(w, table.New().
		Border(lipgloss.NormalBorder()).
		Headers("FILE", "STATUS", "ISSUES").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1 && rows[row][1] == "invalid":
				return errorStyle
			case col == 1:
				return okStyle
			}
			return cellStyle
		}).
		Render())

	if invalid > 0 {
		return fmt.Errorf("%d of %d config files are invalid", invalid, len(results))
	}
	fmt.Fprintf(w, "All %d config files are valid\n", len(results))
	return nil
}

func levelsCommand() *cli.Command {
	return &cli.Command{
		Name:      "levels",
		Usage:     "show the generated parameters of every level of a config",
		ArgsUsage: "[config]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			configs, err := openConfigs(cmd.String("config-dir"))
			if err != nil {
				return err
			}
			configID, cfg, err := loadGameConfig(configs, cmd.Args().First())
			if err != nil {
				return err
			}
			printLevels(cmd.Root().Writer, configID, cfg)
			return nil
		},
	}
}

// printLevels writes the level plan of cfg. Slack is the number of moves
// left after walking the shortest route from start to target.
func printLevels(w io.Writer, configID string, cfg *engine.GameConfig) {
	shortest := engine.ShortestRoute(cfg.GridSize)
	fmt.Fprintf(w, "%s (%s): %dx%d grid, %d lives, shortest route %d moves\n",
		cfg.Name, configID, cfg.GridSize, cfg.GridSize, cfg.StartingLives, shortest)

	plans := cfg.PlanLevels()
	rows := make([][]string, 0, len(plans))
	for _, plan := range plans {
		rows = append(rows, []string{
			strconv.Itoa(plan.Level),
			strconv.Itoa(plan.Moves),
			strconv.Itoa(plan.RequiredResources),
			strconv.Itoa(plan.ResourceCells),
			strconv.Itoa(plan.PenaltyCells),
			strconv.Itoa(plan.Moves - shortest),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"LEVEL", "MOVES", "REQUIRED", "RESOURCES", "PENALTIES", "SLACK"}, rows))
}

func scoresCommand() *cli.Command {
	return &cli.Command{
		Name:      "scores",
		Usage:     "show the best finished runs",
		ArgsUsage: "[config]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "number of runs to show",
				Value:   defaultScoresLimit,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.String("scores-db")
			if path == "" {
				return errors.New("score board disabled: --scores-db is empty")
			}
			store, err := scores.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			configID := cmd.Args().First()
			runs, err := store.TopRuns(ctx, configID, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			best, err := bestLevels(ctx, store, configID, runs)
			if err != nil {
				return err
			}
			printScores(cmd.Root().Writer, runs)
			printBestLevels(cmd.Root().Writer, best)
			return nil
		},
	}
}

// printScores writes the ranked runs
func printScores(w io.Writer, runs []*service.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet")
		return
	}

	rows := make([][]string, 0, len(runs))
	for i, run := range runs {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			run.SessionID,
			run.ConfigID,
			strings.ReplaceAll(run.Outcome, "_", " "),
			fmt.Sprintf("%d/%d", run.Level, run.MaxLevels),
			strconv.Itoa(run.Resources),
			strconv.Itoa(run.Moves),
			run.FinishedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"#", "PLAYER", "CONFIG", "OUTCOME", "LEVEL", "RESOURCES", "MOVES", "FINISHED"}, rows))
}

// configBest is the highest level reached on one config
type configBest struct {
	ConfigID string
	Level    int
}

// bestLevels looks up the best level of configID, or of every config in
// runs when configID is empty. Configs without runs are left out.
func bestLevels(ctx context.Context, store *scores.Store, configID string, runs []*service.RunRecord) ([]configBest, error) {
	var ids []string
	if configID != "" {
		ids = []string{configID}
	} else {
		seen := map[string]bool{}
		for _, run := range runs {
			if !seen[run.ConfigID] {
				seen[run.ConfigID] = true
				ids = append(ids, run.ConfigID)
			}
		}
		sort.Strings(ids)
	}

	best := make([]configBest, 0, len(ids))
	for _, id := range ids {
		level, err := store.BestLevel(ctx, id)
		if err != nil {
			return nil, err
		}
		if level > 0 {
			best = append(best, configBest{ConfigID: id, Level: level})
		}
	}
	return best, nil
}

// printBestLevels writes one line per config
func printBestLevels(w io.Writer, best []configBest) {
	for _, b := range best {
		fmt.Fprintf(w, "Best level on %s: %d\n", b.ConfigID, b.Level)
	}
}
