package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	wire "github.com/matic113/freelance-platform-sub003/internal/app"
	"github.com/matic113/freelance-platform-sub003/internal/client"
)

// resolveContractID accepts a full contract ID or a unique prefix. Listing
// also fills the client cache, so later calls are pre-checked locally.
func resolveContractID(ctx context.Context, c *client.Client, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("contract ID is required")
	}
	contracts, err := c.ListContracts(ctx)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(contracts))
	for i, ct := range contracts {
		ids[i] = ct.ID
	}
	return matchID("contract", ids, input)
}

// loadContract resolves input and fetches the full contract detail.
func loadContract(ctx context.Context, c *client.Client, input string) (*wire.ContractDetail, error) {
	id, err := resolveContractID(ctx, c, input)
	if err != nil {
		return nil, err
	}
	return c.GetContract(ctx, id)
}

// resolveMilestoneID accepts a milestone ID, a unique prefix, or "#n" for
// the milestone with order index n.
func resolveMilestoneID(d *wire.ContractDetail, input string) (string, error) {
	if strings.HasPrefix(input, "#") {
		idx, err := strconv.Atoi(input[1:])
		if err != nil {
			return "", fmt.Errorf("invalid milestone index %q", input)
		}
		for _, m := range d.Milestones {
			if m.OrderIndex == idx {
				return m.ID, nil
			}
		}
		return "", fmt.Errorf("milestone %s not found on contract", input)
	}
	ids := make([]string, len(d.Milestones))
	for i, m := range d.Milestones {
		ids[i] = m.ID
	}
	return matchID("milestone", ids, input)
}

func resolvePaymentID(d *wire.ContractDetail, input string) (string, error) {
	ids := make([]string, len(d.PaymentRequests))
	for i, p := range d.PaymentRequests {
		ids[i] = p.ID
	}
	return matchID("payment request", ids, input)
}

func matchID(kind string, ids []string, input string) (string, error) {
	for _, id := range ids {
		if id == input {
			return id, nil
		}
	}
	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, input) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s not found: %q", kind, input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s ID prefix %q is ambiguous (%d matches)", kind, input, len(matches))
	}
}
