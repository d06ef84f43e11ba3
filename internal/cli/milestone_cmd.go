package cli

import (
	"fmt"

	wire "github.com/matic113/freelance-platform-sub003/internal/app"
	"github.com/matic113/freelance-platform-sub003/internal/cli/formatter"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newMilestoneCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "milestone",
		Short: "Manage contract milestones",
	}

	cmd.AddCommand(
		newMilestoneListCmd(app),
		newMilestoneAddCmd(app),
		newMilestoneEditCmd(app),
		newMilestoneDeleteCmd(app),
		newMilestoneStatusCmd(app, "start", "Start work on a pending milestone (freelancer)", domain.MilestoneInProgress),
		newMilestoneStatusCmd(app, "complete", "Mark an in-progress milestone complete (freelancer)", domain.MilestoneCompleted),
	)

	return cmd
}

func newMilestoneListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <contract>",
		Short: "List a contract's milestones",
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
			if len(d.Milestones) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No milestones yet.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMilestoneList(d.Milestones, d.Contract.Currency))
			return nil
		},
	}
}

func newMilestoneAddCmd(app *App) *cobra.Command {
	var req wire.CreateMilestoneRequest
	var amount, due string
	var order int

	cmd := &cobra.Command{
		Use:   "add <contract>",
		Short: "Add a milestone to a contract (client)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			req.Amount = a
			if due != "" {
				req.DueDate = &due
			}
			if cmd.Flags().Changed("order") {
				req.OrderIndex = &order
			}

			c, err := app.connect()
			if err != nil {
				return err
			}
			id, err := resolveContractID(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			m, err := c.CreateMilestone(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatMilestone(m))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Title, "title", "", "Milestone title")
	cmd.Flags().StringVar(&req.Description, "description", "", "Milestone description")
	cmd.Flags().StringVar(&amount, "amount", "", "Milestone amount")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&order, "order", 0, "Position among the contract's milestones")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newMilestoneEditCmd(app *App) *cobra.Command {
	var title, description, amount, due string
	var order int

	cmd := &cobra.Command{
		Use:   "edit <contract> <milestone>",
		Short: "Edit a pending milestone (client)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req wire.UpdateMilestoneRequest
			flags := cmd.Flags()
			if flags.Changed("title") {
				req.Title = &title
			}
			if flags.Changed("description") {
				req.Description = &description
			}
			if flags.Changed("amount") {
				a, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("invalid amount %q: %w", amount, err)
				}
				req.Amount = &a
			}
			if flags.Changed("due") {
				req.DueDate = &due
			}
			if flags.Changed("order") {
				req.OrderIndex = &order
			}

			c, err := app.connect()
			if err != nil {
				return err
			}
			d, err := loadContract(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			id, err := resolveMilestoneID(d, args[1])
			if err != nil {
				return err
			}
			m, err := c.UpdateMilestone(cmd.Context(), d.Contract.ID, id, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatMilestone(m))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&amount, "amount", "", "New amount")
	cmd.Flags().StringVar(&due, "due", "", "New due date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&order, "order", 0, "New position")

	return cmd
}

func newMilestoneDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <contract> <milestone>",
		Short: "Delete a pending milestone (client)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect()
			if err != nil {
				return err
			}
			d, err := loadContract(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			id, err := resolveMilestoneID(d, args[1])
			if err != nil {
				return err
			}
			if err := c.DeleteMilestone(cmd.Context(), d.Contract.ID, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted milestone %s\n", formatter.TruncID(id))
			return nil
		},
	}
}

func newMilestoneStatusCmd(app *App, verb, short string, status domain.MilestoneStatus) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <contract> <milestone>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect()
			if err != nil {
				return err
			}
			d, err := loadContract(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			id, err := resolveMilestoneID(d, args[1])
			if err != nil {
				return err
			}
			m, err := c.UpdateMilestoneStatus(cmd.Context(), d.Contract.ID, id, status)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatMilestone(m))
			return nil
		},
	}
}
