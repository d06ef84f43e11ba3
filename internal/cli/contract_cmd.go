package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	wire "github.com/matic113/freelance-platform-sub003/internal/app"
	"github.com/matic113/freelance-platform-sub003/internal/cli/formatter"
	"github.com/matic113/freelance-platform-sub003/internal/client"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newContractCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Manage contracts",
	}

	cmd.AddCommand(
		newContractListCmd(app),
		newContractShowCmd(app),
		newContractCreateCmd(app),
		newContractTransitionCmd(app, "accept", "Accept a pending contract (freelancer)", (*client.Client).AcceptContract),
		newContractTransitionCmd(app, "reject", "Reject a pending contract (freelancer)", (*client.Client).RejectContract),
		newContractTransitionCmd(app, "cancel", "Cancel a contract (client)", (*client.Client).CancelContract),
		newContractExportCmd(app),
	)

	return cmd
}

func newContractListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your contracts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect()
			if err != nil {
				return err
			}
			contracts, err := c.ListContracts(cmd.Context())
			if err != nil {
				return err
			}
			if len(contracts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No contracts found.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatContractList(contracts))
			return nil
		},
	}
}

func newContractShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <contract>",
		Short: "Show a contract with its milestones and payment requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect()
			if err != nil {
				return err
			}
			d, err := loadContract(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatContractDetail(d))
			return nil
		},
	}
}

func newContractCreateCmd(app *App) *cobra.Command {
	var req wire.CreateContractRequest
	var total string
	var milestones []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a contract from an accepted proposal (client)",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(total)
			if err != nil {
				return fmt.Errorf("invalid total %q: %w", total, err)
			}
			req.TotalAmount = amount
			for _, raw := range milestones {
				m, err := parseMilestoneFlag(raw)
				if err != nil {
					return err
				}
				req.Milestones = append(req.Milestones, m)
			}

			c, err := app.connect()
			if err != nil {
				return err
			}
			d, err := c.CreateContract(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created contract %s\n\n", d.Contract.ID)
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatContractDetail(d))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.FreelancerID, "freelancer", "", "Freelancer user ID")
	cmd.Flags().StringVar(&req.ClientID, "client", "", "Client user ID (defaults to the token's user)")
	cmd.Flags().StringVar(&req.ProjectID, "project", "", "Project reference")
	cmd.Flags().StringVar(&req.ProposalID, "proposal", "", "Accepted proposal reference")
	cmd.Flags().StringVar(&req.Title, "title", "", "Contract title")
	cmd.Flags().StringVar(&req.Description, "description", "", "Contract description")
	cmd.Flags().StringVar(&total, "total", "", "Total amount")
	cmd.Flags().StringVar(&req.Currency, "currency", "USD", "ISO currency code")
	cmd.Flags().StringVar(&req.StartDate, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.EndDate, "end", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&milestones, "milestone", nil, `Initial milestone as "title=amount" (repeatable)`)
	_ = cmd.MarkFlagRequired("freelancer")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("total")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

// parseMilestoneFlag reads "title=amount".
func parseMilestoneFlag(raw string) (wire.CreateMilestoneRequest, error) {
	i := strings.LastIndex(raw, "=")
	if i <= 0 {
		return wire.CreateMilestoneRequest{}, fmt.Errorf("milestone %q must look like title=amount", raw)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(raw[i+1:]))
	if err != nil {
		return wire.CreateMilestoneRequest{}, fmt.Errorf("milestone %q: invalid amount: %w", raw, err)
	}
	return wire.CreateMilestoneRequest{Title: strings.TrimSpace(raw[:i]), Amount: amount}, nil
}

type contractTransition func(*client.Client, context.Context, string) (*wire.ContractView, error)

func newContractTransitionCmd(app *App, verb, short string, fn contractTransition) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <contract>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect()
			if err != nil {
				return err
			}
			id, err := resolveContractID(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			ct, err := fn(c, cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatContract(ct))
			return nil
		},
	}
}

func newContractExportCmd(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <contract>",
		Short: "Download the contract statement as an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect()
			if err != nil {
				return err
			}
			id, err := resolveContractID(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			data, err := c.Statement(cmd.Context(), id)
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("contract_%s.xlsx", id[:min(8, len(id))])
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing statement: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", output, len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default contract_<id>.xlsx)")
	return cmd
}
