package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"laborline/internal/config"
	"laborline/internal/db"
	"laborline/internal/directory"
	"laborline/internal/domain"
	"laborline/internal/engine"
	"laborline/internal/geo"
	"laborline/internal/identity"
	"laborline/internal/migrate"
	"laborline/internal/repo"
	"laborline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "ll",
	Short: "Laborline CLI",
	Long: `Laborline runs an on-demand labor marketplace core.
Concepts:
- Workspace: the .laborline directory holding the database; laborline.yml holds the platform tariff.
- Actors: contractors who own worksites, laborers who work, consumers who request gigs.
- Projects: fixed worksites; check-ins are geofenced against the project position.
- Assignments: wage contracts (DAILY or HOURLY rate) binding a laborer to a project.
- Sessions: check-in/check-out attendance; checkout settles the wage, the contractor approves it.
- Gigs: single-visit jobs going REQUESTED -> ACCEPTED -> IN_PROGRESS -> PENDING_PAYMENT -> COMPLETED.
- Event log: diary of every lifecycle step, view with 'll log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("LABORLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "", "acting actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(actorCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(assignmentCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(gigCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func actorID() (string, error) {
	id := viper.GetString("actor-id")
	if id == "" {
		return "", fmt.Errorf("--actor-id required")
	}
	return id, nil
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Platform configuration"}
	cfg.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write default laborline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(c)
		},
	})
	return cfg
}

func actorCmd() *cobra.Command {
	actor := &cobra.Command{Use: "actor", Short: "Manage actors"}
	actor.AddCommand(actorRegisterCmd())
	actor.AddCommand(actorShowCmd())
	actor.AddCommand(actorProfileCmd())
	actor.AddCommand(actorStatusCmd())
	actor.AddCommand(actorPositionCmd())
	return actor
}

func actorRegisterCmd() *cobra.Command {
	var phone, password, role, first, last string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if phone == "" || password == "" || role == "" {
				return fmt.Errorf("--phone, --password and --role required")
			}
			return withIdentity(cmd.Context(), func(ctx context.Context, ids *identity.Service) error {
				a, err := ids.Register(ctx, phone, password, domain.Role(strings.ToUpper(role)), first, last)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&role, "role", "", "CONTRACTOR, LABOR or CONSUMER")
	cmd.Flags().StringVar(&first, "first-name", "", "first name")
	cmd.Flags().StringVar(&last, "last-name", "", "last name")
	return cmd
}

func actorShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the acting actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				a, err := e.GetActor(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	return cmd
}

func actorProfileCmd() *cobra.Command {
	var first, last string
	var skills []string
	cmd := &cobra.Command{
		Use:   "set-profile",
		Short: "Update name and skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				a, err := e.UpdateProfile(ctx, id, first, last, skills)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&first, "first-name", "", "first name")
	cmd.Flags().StringVar(&last, "last-name", "", "last name")
	cmd.Flags().StringSliceVar(&skills, "skill", nil, "skill tag (repeatable)")
	return cmd
}

func actorStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "set-status",
		Short: "Set laborer availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				a, err := e.UpdateAvailability(ctx, id, domain.Availability(strings.ToUpper(status)))
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "AVAILABLE or OFFLINE")
	return cmd
}

func actorPositionCmd() *cobra.Command {
	var lat, lon float64
	cmd := &cobra.Command{
		Use:   "set-position",
		Short: "Report current position",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				a, err := e.UpdatePosition(ctx, id, geo.Position{Lat: lat, Lon: lon})
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	return cmd
}

func workerCmd() *cobra.Command {
	worker := &cobra.Command{Use: "worker", Short: "Worker discovery"}
	worker.AddCommand(workerFindCmd())
	worker.AddCommand(workerNearbyCmd())
	return worker
}

func workerFindCmd() *cobra.Command {
	var skill string
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Available workers by skill",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirectory(cmd.Context(), func(ctx context.Context, dir *directory.Service) error {
				items, err := dir.FindBySkill(ctx, skill)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Phone", "Skills", "Rating"})
				for _, a := range items {
					rating := ""
					if a.Rating != nil {
						rating = fmt.Sprintf("%.1f", *a.Rating)
					}
					tw.AppendRow(table.Row{a.ID, a.FirstName + " " + a.LastName, a.Phone, strings.Join(a.Skills, ","), rating})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&skill, "skill", "", "skill tag")
	return cmd
}

func workerNearbyCmd() *cobra.Command {
	var lat, lon float64
	var skill string
	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "Available workers near a point",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirectory(cmd.Context(), func(ctx context.Context, dir *directory.Service) error {
				items, err := dir.FindNearby(ctx, geo.Position{Lat: lat, Lon: lon}, skill)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Distance (m)", "Skills"})
				for _, h := range items {
					tw.AppendRow(table.Row{h.ID, h.FirstName + " " + h.LastName, fmt.Sprintf("%.0f", h.DistanceMeters), strings.Join(h.Skills, ",")})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	cmd.Flags().StringVar(&skill, "skill", "", "skill tag")
	return cmd
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage worksites"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var name, address string
	var lat, lon float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create worksite",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				p, err := e.CreateProject(ctx, id, name, address, geo.Position{Lat: lat, Lon: lon})
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&address, "address", "", "street address")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	return cmd
}

func projectListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List own worksites",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.ListProjects(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func projectShowCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show worksite",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" {
				return fmt.Errorf("--project required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				p, err := e.GetProject(ctx, projectID)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	return cmd
}

func assignmentCmd() *cobra.Command {
	asg := &cobra.Command{Use: "assignment", Short: "Wage contracts"}
	asg.AddCommand(assignmentCreateCmd())
	asg.AddCommand(assignmentListCmd())
	return asg
}

func assignmentCreateCmd() *cobra.Command {
	var projectID, laborerID, rate, wageType string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Assign a laborer to a worksite",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := actorID()
			if err != nil {
				return err
			}
			if projectID == "" || laborerID == "" || rate == "" || wageType == "" {
				return fmt.Errorf("--project, --laborer, --rate and --wage-type required")
			}
			d, err := decimal.NewFromString(rate)
			if err != nil {
				return fmt.Errorf("--rate must be a decimal amount: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				a, err := e.CreateAssignment(ctx, id, projectID, laborerID, d, domain.WageType(strings.ToUpper(wageType)))
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&laborerID, "laborer", "", "laborer id")
	cmd.Flags().StringVar(&rate, "rate", "", "wage rate")
	cmd.Flags().StringVar(&wageType, "wage-type", "", "DAILY or HOURLY")
	return cmd
}

func assignmentListCmd() *cobra.Command {
	var projectID, laborerID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				var items []domain.Assignment
				var err error
				switch {
				case projectID != "":
					items, err = r.ListAssignmentsByProject(ctx, projectID)
				case laborerID != "":
					items, err = r.ListAssignmentsByLaborer(ctx, laborerID)
				default:
					return fmt.Errorf("--project or --laborer required")
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&laborerID, "laborer", "", "laborer id")
	return cmd
}

func sessionCmd() *cobra.Command {
	ses := &cobra.Command{Use: "session", Short: "Work sessions"}
	ses.AddCommand(sessionCheckInCmd())
	ses.AddCommand(sessionCheckOutCmd())
	ses.AddCommand(sessionApproveCmd())
	ses.AddCommand(sessionListCmd())
	return ses
}

func sessionCheckInCmd() *cobra.Command {
	var projectID string
	var lat, lon float64
	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Check in at a worksite",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := actorID()
			if err != nil {
				return err
			}
			if projectID == "" {
				return fmt.Errorf("--project required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				w, err := e.CheckIn(ctx, id, projectID, geo.Position{Lat: lat, Lon: lon})
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	return cmd
}

func sessionCheckOutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Check out and settle the wage",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				w, err := e.CheckOut(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	return cmd
}

func sessionApproveCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve a settled session",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := actorID()
			if err != nil {
				return err
			}
			if sessionID == "" {
				return fmt.Errorf("--session required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				w, err := e.ApproveSession(ctx, id, sessionID)
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	return cmd
}

func sessionListCmd() *cobra.Command {
	var projectID, laborerID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				var items []domain.WorkSession
				var err error
				switch {
				case projectID != "":
					items, err = r.ListSessionsByProject(ctx, projectID)
				case laborerID != "":
					items, err = r.ListSessionsByLaborer(ctx, laborerID)
				default:
					return fmt.Errorf("--project or --laborer required")
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&laborerID, "laborer", "", "laborer id")
	return cmd
}

func gigCmd() *cobra.Command {
	gig := &cobra.Command{Use: "gig", Short: "Gig lifecycle"}
	gig.AddCommand(gigRequestCmd())
	gig.AddCommand(gigAcceptCmd())
	gig.AddCommand(gigStartCmd())
	gig.AddCommand(gigInvoiceCmd())
	gig.AddCommand(gigPayCmd())
	gig.AddCommand(gigRateCmd())
	gig.AddCommand(gigShowCmd())
	return gig
}

func gigRequestCmd() *cobra.Command {
	var laborerID, skill, address string
	var lat, lon float64
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Request a gig from a laborer",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := actorID()
			if err != nil {
				return err
			}
			if laborerID == "" {
				return fmt.Errorf("--laborer required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				g, err := e.RequestGig(ctx, id, laborerID, skill, geo.Position{Lat: lat, Lon: lon}, address)
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&laborerID, "laborer", "", "laborer id")
	cmd.Flags().StringVar(&skill, "skill", "", "skill tag")
	cmd.Flags().StringVar(&address, "address", "", "visit address")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	return cmd
}

func gigLifecycleCmd(use, short string, run func(ctx context.Context, e *engine.Engine, actorID, gigID string) (domain.Gig, error)) *cobra.Command {
	var gigID string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := actorID()
			if err != nil {
				return err
			}
			if gigID == "" {
				return fmt.Errorf("--gig required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				g, err := run(ctx, e, id, gigID)
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&gigID, "gig", "", "gig id")
	return cmd
}

func gigAcceptCmd() *cobra.Command {
	return gigLifecycleCmd("accept", "Accept a requested gig",
		func(ctx context.Context, e *engine.Engine, actorID, gigID string) (domain.Gig, error) {
			return e.AcceptGig(ctx, actorID, gigID)
		})
}

func gigStartCmd() *cobra.Command {
	return gigLifecycleCmd("start", "Start work on an accepted gig",
		func(ctx context.Context, e *engine.Engine, actorID, gigID string) (domain.Gig, error) {
			return e.StartWork(ctx, actorID, gigID)
		})
}

func gigInvoiceCmd() *cobra.Command {
	var gigID, additional string
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Complete work and fix the bill",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := actorID()
			if err != nil {
				return err
			}
			if gigID == "" {
				return fmt.Errorf("--gig required")
			}
			amount := decimal.Zero
			if additional != "" {
				if amount, err = decimal.NewFromString(additional); err != nil {
					return fmt.Errorf("--additional must be a decimal amount: %w", err)
				}
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				g, err := e.CompleteAndInvoice(ctx, id, gigID, amount)
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&gigID, "gig", "", "gig id")
	cmd.Flags().StringVar(&additional, "additional", "", "additional amount")
	return cmd
}

func gigPayCmd() *cobra.Command {
	var gigID, method string
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Record payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := actorID()
			if err != nil {
				return err
			}
			if gigID == "" {
				return fmt.Errorf("--gig required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				g, err := e.MarkPaid(ctx, id, gigID, domain.PaymentMethod(strings.ToUpper(method)))
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&gigID, "gig", "", "gig id")
	cmd.Flags().StringVar(&method, "method", "", "CASH or ONLINE")
	return cmd
}

func gigRateCmd() *cobra.Command {
	var gigID string
	var rating int
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Rate a completed gig",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := actorID()
			if err != nil {
				return err
			}
			if gigID == "" {
				return fmt.Errorf("--gig required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				g, err := e.RateGig(ctx, id, gigID, rating)
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&gigID, "gig", "", "gig id")
	cmd.Flags().IntVar(&rating, "rating", 0, "rating 1..5")
	return cmd
}

func gigShowCmd() *cobra.Command {
	var gigID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show gig",
		RunE: func(cmd *cobra.Command, args []string) error {
			if gigID == "" {
				return fmt.Errorf("--gig required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				g, err := e.GetGig(ctx, gigID)
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&gigID, "gig", "", "gig id")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Event log"}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, entityID, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id filter")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			secret := cfg.Auth.Secret
			if env := os.Getenv("LABORLINE_AUTH_SECRET"); env != "" {
				secret = env
			}
			e := engine.New(conn, cfg)
			r := repo.Repo{DB: conn}
			ids := identity.New(r, secret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
			dir := directory.New(r, cfg)
			handler, err := server.New(server.Config{
				Engine:    e,
				Identity:  ids,
				Directory: dir,
				BasePath:  basePath,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Laborline API on http://%s%s (OpenAPI at /openapi.json)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	return fn(ctx, engine.New(conn, cfg))
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func withIdentity(ctx context.Context, fn func(context.Context, *identity.Service) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	ids := identity.New(repo.Repo{DB: conn}, cfg.Auth.Secret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	return fn(ctx, ids)
}

func withDirectory(ctx context.Context, fn func(context.Context, *directory.Service) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	return fn(ctx, directory.New(repo.Repo{DB: conn}, cfg))
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
