package cli

import (
	"context"
	"fmt"

	wire "github.com/matic113/freelance-platform-sub003/internal/app"
	"github.com/matic113/freelance-platform-sub003/internal/cli/formatter"
	"github.com/matic113/freelance-platform-sub003/internal/client"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newPaymentCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "payment",
		Aliases: []string{"pay"},
		Short:   "Manage payment requests",
	}

	cmd.AddCommand(
		newPaymentListCmd(app),
		newPaymentRequestCmd(app),
		newPaymentApproveCmd(app),
		newPaymentRejectCmd(app),
		newPaymentWithdrawCmd(app),
		newPaymentPaidCmd(app),
	)

	return cmd
}

func newPaymentListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <contract>",
		Short: "List a contract's payment requests",
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
			requests, err := c.ListPaymentRequests(cmd.Context(), id)
			if err != nil {
				return err
			}
			if len(requests) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No payment requests yet.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPaymentList(requests))
			return nil
		},
	}
}

func newPaymentRequestCmd(app *App) *cobra.Command {
	var description, amount string

	cmd := &cobra.Command{
		Use:   "request <contract> <milestone>",
		Short: "Request payment for a completed milestone (freelancer)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := wire.CreatePaymentRequestRequest{Description: description}
			if amount != "" {
				a, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("invalid amount %q: %w", amount, err)
				}
				req.Amount = &a
			}

			c, err := app.connect()
			if err != nil {
				return err
			}
			d, err := loadContract(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			req.ContractID = d.Contract.ID
			if req.MilestoneID, err = resolveMilestoneID(d, args[1]); err != nil {
				return err
			}
			p, err := c.CreatePaymentRequest(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatPayment(p))
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Note for the client")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount (defaults to the milestone amount)")
	return cmd
}

// loadPayment resolves a payment request ID and caches its contract so the
// transition can be checked before it is sent.
func loadPayment(ctx context.Context, c *client.Client, contract, input string) (string, error) {
	if contract != "" {
		d, err := loadContract(ctx, c, contract)
		if err != nil {
			return "", err
		}
		return resolvePaymentID(d, input)
	}
	p, err := c.GetPaymentRequest(ctx, input)
	if err != nil {
		return "", err
	}
	if _, err := c.GetContract(ctx, p.ContractID); err != nil {
		return "", err
	}
	return p.ID, nil
}

type paymentAction func(ctx context.Context, c *client.Client, id string) (*wire.PaymentRequestView, error)

func newPaymentActionCmd(app *App, use, short string, contract *string, fn paymentAction) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect()
			if err != nil {
				return err
			}
			id, err := loadPayment(cmd.Context(), c, *contract, args[0])
			if err != nil {
				return err
			}
			p, err := fn(cmd.Context(), c, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatPayment(p))
			return nil
		},
	}
	cmd.Flags().StringVar(contract, "contract", "", "Contract ID, enables payment ID prefixes")
	return cmd
}

func newPaymentApproveCmd(app *App) *cobra.Command {
	var contract string
	return newPaymentActionCmd(app, "approve <payment>", "Approve a pending payment request (client)", &contract,
		func(ctx context.Context, c *client.Client, id string) (*wire.PaymentRequestView, error) {
			return c.ApprovePaymentRequest(ctx, id)
		})
}

func newPaymentWithdrawCmd(app *App) *cobra.Command {
	var contract string
	return newPaymentActionCmd(app, "withdraw <payment>", "Withdraw a pending payment request (freelancer)", &contract,
		func(ctx context.Context, c *client.Client, id string) (*wire.PaymentRequestView, error) {
			return c.WithdrawPaymentRequest(ctx, id)
		})
}

func newPaymentRejectCmd(app *App) *cobra.Command {
	var contract, reason string
	cmd := newPaymentActionCmd(app, "reject <payment>", "Reject a pending payment request (client)", &contract,
		func(ctx context.Context, c *client.Client, id string) (*wire.PaymentRequestView, error) {
			return c.RejectPaymentRequest(ctx, id, reason)
		})
	run := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		var err error
		if reason, err = promptRejectReason(app, reason); err != nil {
			return err
		}
		// A missing reason never reaches the server.
		if err := domain.ValidateRejectReason(reason); err != nil {
			return err
		}
		return run(cmd, args)
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Why the request is rejected")
	return cmd
}

func newPaymentPaidCmd(app *App) *cobra.Command {
	var contract, reference string
	cmd := newPaymentActionCmd(app, "paid <payment>", "Record settlement of an approved request (system token)", &contract,
		func(ctx context.Context, c *client.Client, id string) (*wire.PaymentRequestView, error) {
			return c.MarkPaid(ctx, id, reference)
		})
	cmd.Flags().StringVar(&reference, "reference", "", "Processor reference")
	return cmd
}
