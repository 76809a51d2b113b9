// Package main provides safetyctl, an operator CLI for running checks and
// maintenance tasks without the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/internal/api/middleware"
	"github.com/mamasafe/go-mamasafe/internal/app"
	"github.com/mamasafe/go-mamasafe/internal/config"
	"github.com/mamasafe/go-mamasafe/internal/infrastructure/postgres"
	"github.com/mamasafe/go-mamasafe/internal/safety"
	"github.com/mamasafe/go-mamasafe/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "safetyctl",
		Short:        "MamaSafe operator tool",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(weekCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func checkCmd() *cobra.Command {
	var (
		req     safety.MedicationCheckRequest
		patient string
		week    int
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a medication safety check and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := safety.ParsePatientID(patient)
			if err != nil {
				return err
			}
			req.PatientID = id
			if cmd.Flags().Changed("week") {
				req.ManualGestationalWeek = &week
			}
			if err := req.Validate(); err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			w, err := a.Safety.ResolveGestationalWeek(ctx, req)
			if err != nil {
				return err
			}
			result := a.Safety.CheckMedication(ctx, safety.CheckInput{
				DrugName:        req.DrugName,
				GestationalWeek: w,
				Symptoms:        req.Symptoms,
				PatientID:       int(req.PatientID),
				Language:        req.Language,
				AdditionalDrugs: req.AdditionalDrugs,
			})
			return printJSON(map[string]any{
				"gestational_week": w,
				"result":           result,
			})
		},
	}
	cmd.Flags().StringVar(&req.DrugName, "drug", "", "drug name to check")
	cmd.Flags().StringSliceVar(&req.AdditionalDrugs, "also", nil, "additional drugs taken together")
	cmd.Flags().IntVar(&week, "week", 0, "gestational week")
	cmd.Flags().StringVar(&req.OverrideLMP, "lmp", "", "last menstrual period (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&req.Symptoms, "symptom", nil, "reported symptom (repeatable)")
	cmd.Flags().StringVar(&patient, "patient", "", "EMR patient id")
	cmd.Flags().StringVar(&req.Language, "lang", "", "response language code")
	_ = cmd.MarkFlagRequired("drug")
	return cmd
}

func normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <name>",
		Short: "Map a brand or misspelled drug name to its generic name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Println(a.Safety.Normalize(args[0]))
			return nil
		},
	}
}

func weekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "week <YYYY-MM-DD>",
		Short: "Compute the gestational week for a last menstrual period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lmp, err := safety.ParseLMP(args[0])
			if err != nil {
				return err
			}
			fmt.Println(safety.GestationalWeek(lmp, time.Now()))
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a provider bearer token signed with SECRET_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.SecretKey == "" {
				return fmt.Errorf("SECRET_KEY is not set")
			}
			now := time.Now()
			token, err := middleware.IssueToken(cfg.SecretKey, subject, jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			})
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "provider id")
	cmd.Flags().DurationVar(&ttl, "ttl", 8*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := databaseURL()
			if err != nil {
				return err
			}
			v, err := postgres.MigrateUp(url, migrations.FS)
			if err != nil {
				return err
			}
			fmt.Printf("Schema at version %d.\n", v)
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := databaseURL()
			if err != nil {
				return err
			}
			v, err := postgres.MigrateDown(url, migrations.FS, steps)
			if err != nil {
				return err
			}
			fmt.Printf("Schema at version %d.\n", v)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := databaseURL()
			if err != nil {
				return err
			}
			v, dirty, err := postgres.MigrationVersion(url, migrations.FS)
			if err != nil {
				return err
			}
			fmt.Printf("version=%d dirty=%t\n", v, dirty)
			return nil
		},
	})
	return cmd
}

func databaseURL() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if cfg.DatabaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL is not set")
	}
	return cfg.DatabaseURL, nil
}

// newApp wires the service with a no-op logger so stdout carries only results
func newApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, zap.NewNop(), nil)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
