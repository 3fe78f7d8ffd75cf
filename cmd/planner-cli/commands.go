package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-scheduler-api/internal/dto"
	"github.com/noah-isme/smart-scheduler-api/internal/ingest"
	"github.com/noah-isme/smart-scheduler-api/internal/models"
	"github.com/noah-isme/smart-scheduler-api/internal/planner"
	"github.com/noah-isme/smart-scheduler-api/internal/repository"
	"github.com/noah-isme/smart-scheduler-api/internal/service"
	"github.com/noah-isme/smart-scheduler-api/pkg/config"
	"github.com/noah-isme/smart-scheduler-api/pkg/database"
	"github.com/noah-isme/smart-scheduler-api/pkg/export"
	"github.com/noah-isme/smart-scheduler-api/pkg/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "planner-cli",
		Short:         "Offline tools for the SmartScheduler catalog and schedule engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenerateCmd(), newImportCmd(), newMigrateCmd(), newTermsCmd())
	return root
}

type generateOptions struct {
	catalog string
	term    int
	delim   string
	courses []string
	pins    []int
	blocks  []string
	limit   int
	output  string
	export  string
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "List conflict-free schedules for courses in a catalog file",
		Long: `Reads a YAML or CSV catalog, builds every conflict-free schedule for the chosen
courses and prints them. Pinned sections and blocked times filter the result.`,
		Example: `  planner-cli generate --catalog courses.yaml --course "CS 101" --course "MATH 201" --block "Mon 8:00 AM"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.catalog, "catalog", "", "catalog file (.yaml, .yml or .csv)")
	flags.IntVar(&opts.term, "term", 0, "term code for CSV catalogs")
	flags.StringVar(&opts.delim, "delimiter", ",", "CSV field delimiter")
	flags.StringArrayVar(&opts.courses, "course", nil, "course id to include (repeatable, all courses when omitted)")
	flags.IntSliceVar(&opts.pins, "pin", nil, "section number every schedule must contain")
	flags.StringArrayVar(&opts.blocks, "block", nil, `blocked half hour as "<day> <time>", e.g. "Tue 1:30 PM"`)
	flags.IntVar(&opts.limit, "limit", 10, "maximum schedules to print")
	flags.StringVarP(&opts.output, "output", "o", "table", "output format: table or json")
	flags.StringVar(&opts.export, "export", "", "write the first schedule to this file (.pdf, .ics, .xlsx or .csv)")
	_ = cmd.MarkFlagRequired("catalog")
	return cmd
}

func loadCatalog(path string, term int, delim string) (*ingest.Catalog, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ingest.LoadYAMLFile(path)
	case ".csv":
		if term == 0 {
			return nil, fmt.Errorf("--term is required for CSV catalogs")
		}
		var comma rune
		if delim != "" {
			comma = []rune(delim)[0]
		}
		return ingest.LoadCSVFile(path, term, comma)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
	}
}

func parseBlock(value string) ([2]int, error) {
	day, clock, found := strings.Cut(strings.TrimSpace(value), " ")
	if !found {
		return [2]int{}, fmt.Errorf("block %q must look like \"Mon 9:00 AM\"", value)
	}
	d, err := ingest.ParseDay(day)
	if err != nil {
		return [2]int{}, err
	}
	tick, err := planner.ParseClock(clock)
	if err != nil {
		return [2]int{}, err
	}
	return [2]int{d, planner.StartSlot(tick)}, nil
}

func selectCourses(catalog *ingest.Catalog, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return catalog.Courses, nil
	}
	selected := make([]models.Course, 0, len(ids))
	for _, id := range ids {
		course, ok := catalog.Course(id)
		if !ok {
			return nil, fmt.Errorf("course %s is not in the catalog", id)
		}
		selected = append(selected, course)
	}
	return selected, nil
}

func runGenerate(ctx context.Context, out io.Writer, opts *generateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	catalog, err := loadCatalog(opts.catalog, opts.term, opts.delim)
	if err != nil {
		return err
	}
	courses, err := selectCourses(catalog, opts.courses)
	if err != nil {
		return err
	}
	if err := service.ValidateCourses(courses); err != nil {
		return err
	}
	used := make([]string, 0, len(courses))
	for i := range courses {
		courses[i].Color = planner.AssignColor(used)
		used = append(used, courses[i].Color)
	}

	req := dto.GenerateSchedulesRequest{Courses: courses, Pinned: opts.pins}
	for _, raw := range opts.blocks {
		cell, err := parseBlock(raw)
		if err != nil {
			return err
		}
		req.Blocked = append(req.Blocked, cell)
	}

	engine := service.NewPlannerService(nil, nil, nil, nil, nil, service.PlannerConfig{MaxCourses: len(courses)})
	result, err := engine.Generate(ctx, req)
	if err != nil {
		return err
	}

	if opts.export != "" && result.Count > 0 {
		if err := exportFirst(opts.export, catalog.Term, courses, result.Schedules[0]); err != nil {
			return err
		}
	}

	if opts.limit > 0 && len(result.Schedules) > opts.limit {
		result.Schedules = result.Schedules[:opts.limit]
	}
	if opts.output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printSchedules(out, result)
}

func printSchedules(out io.Writer, result *dto.GenerateSchedulesResponse) error {
	if result.Infeasible {
		_, err := fmt.Fprintln(out, service.NoticeNoCombinations)
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, view := range result.Schedules {
		fmt.Fprintf(w, "Schedule %d out of %d\tcredits %d-%d\n", view.Index+1, result.Count, view.MinCredits, view.MaxCredits)
		for _, section := range view.Sections {
			for _, t := range section.Times {
				fmt.Fprintf(w, "  %s\t%s\t#%d\t%s\t%s-%s\t%s\n", section.ClassID, section.Type, section.SectionNumber,
					time.Weekday(t.Day).String()[:3], planner.FormatClock(t.StartTime), planner.FormatClock(t.EndTime), section.Instructor)
			}
		}
		for _, section := range view.Unscheduled {
			fmt.Fprintf(w, "  %s\t%s\t#%d\t%s\t\t%s\n", section.ClassID, section.Type, section.SectionNumber, section.Location, section.Instructor)
		}
	}
	return w.Flush()
}

func exportFirst(path string, term int, courses []models.Course, view dto.ScheduleView) error {
	renderers := map[string]export.Renderer{
		".pdf":  export.NewPDFExporter(),
		".ics":  export.NewICSExporter(),
		".xlsx": export.NewXLSXExporter(),
		".csv":  export.NewCSVExporter(),
	}
	renderer, ok := renderers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return fmt.Errorf("unsupported export format %q", filepath.Ext(path))
	}

	numbers := make([]int, 0, len(view.Sections)+len(view.Unscheduled))
	for _, section := range view.Sections {
		numbers = append(numbers, section.SectionNumber)
	}
	for _, section := range view.Unscheduled {
		numbers = append(numbers, section.SectionNumber)
	}
	active, ok := planner.FromSectionNumbers(numbers, courses)
	if !ok {
		return fmt.Errorf("schedule references unknown sections")
	}
	doc, err := service.BuildDocument(&service.SessionSnapshot{Term: term, Courses: courses, Active: active},
		dto.CreateExportRequest{Format: renderer.Extension()})
	if err != nil {
		return err
	}
	data, err := renderer.Render(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func newImportCmd() *cobra.Command {
	var (
		file  string
		term  int
		delim string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a catalog file into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(file, term, delim)
			if err != nil {
				return err
			}
			if term != 0 {
				catalog.Term = term
			}
			return withDatabase(cmd.Context(), func(ctx context.Context, env *cliEnv) error {
				svc := service.NewCatalogService(repository.NewCourseRepository(env.db), nil, nil, env.logger)
				resp, err := svc.Import(ctx, dto.ImportCoursesRequest{Term: catalog.Term, Courses: catalog.Courses})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d courses for term %d\n", resp.Imported, resp.Term)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "catalog file (.yaml, .yml or .csv)")
	cmd.Flags().IntVar(&term, "term", 0, "term code (required for CSV, overrides YAML)")
	cmd.Flags().StringVar(&delim, "delimiter", ",", "CSV field delimiter")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back catalog schema migrations",
	}
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, env *cliEnv) error {
				return database.RunMigrations(env.db.DB, env.logger)
			})
		},
	}
	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, env *cliEnv) error {
				return database.RollbackMigrations(env.db.DB, steps, env.logger)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(up, down)
	return cmd
}

func newTermsCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "terms",
		Short: "Print the selectable terms and their codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				parsed, err := time.Parse("2006-01-02", at)
				if err != nil {
					return fmt.Errorf("invalid --at date: %w", err)
				}
				now = parsed
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, term := range planner.DisplayTerms(now) {
				fmt.Fprintf(w, "%d\t%s\n", term.Code(), term.Label())
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "reference date (YYYY-MM-DD), defaults to today")
	return cmd
}

type cliEnv struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// withDatabase loads the service configuration and hands fn an open connection.
func withDatabase(ctx context.Context, fn func(context.Context, *cliEnv) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	return fn(ctx, &cliEnv{db: db, logger: logr})
}
