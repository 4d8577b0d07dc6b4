package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-credit-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/profile"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/profile/entity"
	productrepo "github.com/ovaphlow/pitchfork/service-credit-go/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/scoring"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/subscriber"
	subscriberrepo "github.com/ovaphlow/pitchfork/service-credit-go/internal/subscriber/repo"
	"github.com/ovaphlow/pitchfork/service-credit-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-credit-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-credit-go/pkg/utilities"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func scoreCmd() *cobra.Command {
	var target int
	cmd := &cobra.Command{
		Use:   "score <customer-id>",
		Short: "Print the credit score and improvement plan of a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			rows := a.store.GetCustomerRows(args[0])
			products := make([]entity.CreditProduct, len(rows))
			for i, r := range rows {
				products[i] = r.CreditProduct
			}
			res, err := scoring.Score(products, a.store.Today())
			if errors.Is(err, scoring.ErrNoProducts) {
				return fmt.Errorf("no credit products for customer %s", args[0])
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				CustomerID string         `json:"customer_id"`
				Score      scoring.Result `json:"score"`
				Plan       scoring.Plan   `json:"plan"`
			}{args[0], res, scoring.BuildPlan(res.Components, target)})
		},
	}
	cmd.Flags().IntVar(&target, "target", scoring.DefaultTarget, "target score for the improvement plan")
	return cmd
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every credit profile row as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			t := a.store.Table()
			if err := profile.WriteCSV(w, t); err != nil {
				return err
			}
			a.sugar.Infow("profiles exported", "rows", len(t.Rows), "file", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout, e.g. "+profile.ExportFilename+")")
	return cmd
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage dashboard users in the credential file",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USERNAME\tROLE\tSUBSCRIBERS\tFULL NAME")
			for _, u := range a.users.List() {
				fmt.Fprintf(tw, "%s\t%s\t%v\t%s\n", u.Username, u.Role, u.SubscriberIDs, u.FullName)
			}
			return tw.Flush()
		},
	}

	var in user.NewUser
	var role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := access.ParseRole(role)
			if err != nil {
				return err
			}
			in.Role = r
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			u, err := a.users.Add(in)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), u.Public())
		},
	}
	add.Flags().StringVar(&in.Username, "username", "", "login name")
	add.Flags().StringVar(&in.Password, "password", "", "initial password")
	add.Flags().StringVar(&role, "role", string(access.RoleViewer), "admin, manager, analyst or viewer")
	add.Flags().StringSliceVar(&in.SubscriberIDs, "subscribers", nil, "comma separated subscriber ids")
	add.Flags().StringVar(&in.FullName, "full-name", "", "display name")
	add.Flags().StringVar(&in.Email, "email", "", "email address")
	_ = add.MarkFlagRequired("username")
	_ = add.MarkFlagRequired("password")

	del := &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			return a.users.Delete(args[0])
		},
	}

	cmd.AddCommand(list, add, del)
	return cmd
}

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Create the tables and load the sample subscribers and credit products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if !cfg.DB().Enabled() {
				return errors.New("database.url is not configured")
			}
			lg, err := utilities.Init(cfg.Logger())
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer lg.Sync()
			db, err := database.Connect(cfg.DB())
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer db.Close()

			subs := subscriberrepo.NewSubscriberRepo(db)
			if err := subs.EnsureTable(ctx); err != nil {
				return fmt.Errorf("create subscribers: %w", err)
			}
			if err := subs.Upsert(ctx, subscriber.DefaultCatalog().All()); err != nil {
				return err
			}
			products := productrepo.NewProductRepo(db)
			if err := products.EnsureTable(ctx); err != nil {
				return fmt.Errorf("create credit_products: %w", err)
			}
			rows := profile.SampleRows()
			if err := products.Replace(ctx, rows); err != nil {
				return err
			}
			lg.Sugar().Infow("database seeded", "subscribers", len(subscriber.DefaultCatalog().All()), "products", len(rows))
			return nil
		},
	}
	cmd.AddCommand(seed)
	return cmd
}
