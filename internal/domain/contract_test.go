package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContract(status ContractStatus) *Contract {
	return &Contract{
		ID:           "c1",
		ClientID:     "client-1",
		FreelancerID: "free-1",
		Title:        "Website rebuild",
		TotalAmount:  dec("1000.00"),
		Currency:     "USD",
		StartDate:    testNow,
		EndDate:      testNow.Add(30 * 24 * time.Hour),
		Status:       status,
		Version:      1,
	}
}

func newActiveContract() *Contract { return newContract(ContractActive) }

func TestContractValidate(t *testing.T) {
	require.NoError(t, newContract(ContractPending).Validate())

	cases := map[string]func(c *Contract){
		"no title":        func(c *Contract) { c.Title = "" },
		"zero total":      func(c *Contract) { c.TotalAmount = decimal.Zero },
		"bad currency":    func(c *Contract) { c.Currency = "usd" },
		"end before":      func(c *Contract) { c.EndDate = c.StartDate.Add(-time.Hour) },
		"same parties":    func(c *Contract) { c.FreelancerID = c.ClientID },
		"missing parties": func(c *Contract) { c.FreelancerID = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := newContract(ContractPending)
			mutate(c)
			assert.ErrorIs(t, c.Validate(), ErrValidation)
		})
	}
}

func TestContract_AcceptAndComplete(t *testing.T) {
	c := newContract(ContractPending)
	require.NoError(t, c.Accept(testNow))
	assert.Equal(t, ContractActive, c.Status)
	require.NotNil(t, c.AcceptedAt)

	assert.ErrorIs(t, c.Accept(testNow), ErrInvalidState)
	assert.ErrorIs(t, c.Reject(testNow), ErrInvalidState)

	require.NoError(t, c.Complete(testNow))
	assert.Equal(t, ContractCompleted, c.Status)
	assert.True(t, c.IsTerminal())
	assert.ErrorIs(t, c.Cancel(testNow), ErrInvalidState)
}

func TestContract_RejectCancels(t *testing.T) {
	c := newContract(ContractPending)
	require.NoError(t, c.Reject(testNow))
	assert.Equal(t, ContractCancelled, c.Status)
	require.NotNil(t, c.CancelledAt)
	assert.True(t, c.IsTerminal())
}

func TestContract_CompleteRequiresActive(t *testing.T) {
	assert.ErrorIs(t, newContract(ContractPending).Complete(testNow), ErrInvalidState)
}

func TestContract_PartyRole(t *testing.T) {
	c := newContract(ContractPending)
	assert.Equal(t, RoleClient, c.PartyRole("client-1"))
	assert.Equal(t, RoleFreelancer, c.PartyRole("free-1"))
	assert.Equal(t, Role(""), c.PartyRole("stranger"))
}
