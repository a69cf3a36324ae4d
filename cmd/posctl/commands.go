package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/angelmondragon/posledger/internal/app"
	"github.com/angelmondragon/posledger/internal/credit"
	"github.com/angelmondragon/posledger/internal/cron"
	"github.com/angelmondragon/posledger/internal/loyalty"
	"github.com/angelmondragon/posledger/internal/users"
	"github.com/angelmondragon/posledger/pkg/enums"
	"github.com/angelmondragon/posledger/pkg/security"
)

const tempPasswordLength = 16

func loyaltyDecayCommand() *cli.Command {
	return &cli.Command{
		Name:  "loyalty-decay",
		Usage: "deduct a share of points from customers inactive for the window",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "hours", Usage: "inactivity window in hours (defaults to config)"},
			&cli.Int64Flag{Name: "percent", Usage: "share of points to deduct (defaults to config)"},
			&cli.BoolFlag{Name: "dry-run", Usage: "report deductions without writing them"},
		},
		Action: func(c *cli.Context) error {
			if c.Int("hours") < 0 {
				return errors.New("--hours must not be negative")
			}
			e, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer e.Close()

			report, err := e.services.Loyalty.ApplyInactivityDeductions(c.Context, loyalty.DecayInput{
				WindowHours: c.Int("hours"),
				Percent:     c.Int64("percent"),
				DryRun:      c.Bool("dry-run"),
			})
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, report)
		},
	}
}

type reconcileReport struct {
	Credit  *credit.Reconciliation  `json:"credit,omitempty"`
	Loyalty *loyalty.Reconciliation `json:"loyalty,omitempty"`
}

func reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "compare stored balances with the sum of their ledgers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "customer", Usage: "customer id (checks credit and loyalty)"},
			&cli.StringFlag{Name: "seller", Usage: "seller id (checks credit)"},
		},
		Action: func(c *cli.Context) error {
			customer, seller := strings.TrimSpace(c.String("customer")), strings.TrimSpace(c.String("seller"))
			if (customer == "") == (seller == "") {
				return errors.New("exactly one of --customer or --seller is required")
			}
			e, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer e.Close()

			var report reconcileReport
			if seller != "" {
				id, err := uuid.Parse(seller)
				if err != nil {
					return fmt.Errorf("invalid seller id: %w", err)
				}
				if report.Credit, err = e.services.Credit.Reconcile(c.Context, credit.Seller(id)); err != nil {
					return err
				}
			} else {
				id, err := uuid.Parse(customer)
				if err != nil {
					return fmt.Errorf("invalid customer id: %w", err)
				}
				if report.Credit, err = e.services.Credit.Reconcile(c.Context, credit.Customer(id)); err != nil {
					return err
				}
				if report.Loyalty, err = e.services.Loyalty.Reconcile(c.Context, id); err != nil {
					return err
				}
			}
			if err := printJSON(c.App.Writer, report); err != nil {
				return err
			}
			if (report.Credit != nil && !report.Credit.Consistent) || (report.Loyalty != nil && !report.Loyalty.Consistent) {
				return cli.Exit("ledger drift detected", 2)
			}
			return nil
		},
	}
}

func createStaffCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-staff",
		Usage: "create a staff, manager or admin login",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "phone"},
			&cli.StringFlag{Name: "role", Value: string(enums.UserRoleStaff), Usage: "staff, manager or admin"},
			&cli.StringFlag{Name: "password", Usage: "generated and printed when omitted", EnvVars: []string{"POSLEDGER_STAFF_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			role, err := enums.ParseUserRole(c.String("role"))
			if err != nil {
				return err
			}
			password := c.String("password")
			generated := password == ""
			if generated {
				if password, err = security.GenerateTempPassword(tempPasswordLength); err != nil {
					return fmt.Errorf("generate password: %w", err)
				}
			}

			e, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer e.Close()

			svc, err := users.NewService(users.NewRepository(e.db.DB()), e.cfg.Password)
			if err != nil {
				return err
			}
			input := users.CreateStaffInput{
				Name:     c.String("name"),
				Email:    c.String("email"),
				Password: password,
				Role:     role,
			}
			if phone := strings.TrimSpace(c.String("phone")); phone != "" {
				input.Phone = &phone
			}
			user, err := svc.CreateStaff(c.Context, input)
			if err != nil {
				return err
			}

			out := map[string]any{"user": users.FromModel(user)}
			if generated {
				out["temporary_password"] = password
			}
			return printJSON(c.App.Writer, out)
		},
	}
}

func cronCommand() *cli.Command {
	return &cli.Command{
		Name:  "cron",
		Usage: "inspect and run maintenance jobs",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "print the registered job names",
				Action: func(c *cli.Context) error {
					e, err := bootstrap(c)
					if err != nil {
						return err
					}
					defer e.Close()
					registry, err := app.CronRegistry(e.cfg, e.db, e.services, e.logg)
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, registry.Names())
				},
			},
			{
				Name:      "run",
				Usage:     "run one job now",
				ArgsUsage: "<job>",
				Action: func(c *cli.Context) error {
					name := strings.TrimSpace(c.Args().First())
					if name == "" {
						return errors.New("job name required")
					}
					e, err := bootstrap(c)
					if err != nil {
						return err
					}
					defer e.Close()

					registry, err := app.CronRegistry(e.cfg, e.db, e.services, e.logg)
					if err != nil {
						return err
					}
					service, err := cron.NewService(cron.ServiceParams{
						Logger:   e.logg,
						Registry: registry,
						Lock:     &cron.LocalLock{},
					})
					if err != nil {
						return err
					}
					return service.RunJob(c.Context, name)
				},
			},
		},
	}
}
