package domain

// Actor is the authenticated caller of a lifecycle operation.
type Actor struct {
	UserID string
	Role   Role
}

// SystemActor is used by the payment gateway and scheduled jobs.
var SystemActor = Actor{UserID: "system", Role: RoleSystem}

// Rule grants a role a set of actions while an entity is in one status.
type Rule struct {
	Role    Role
	Entity  Entity
	Status  string
	Actions []Action
}

// Rules is the single authorization table for every lifecycle operation.
// Entity-level rows gate the target entity; contract rows gate the owning
// contract, so terminal contracts (no rows) freeze everything beneath them.
var Rules = []Rule{
	{RoleClient, EntityMilestone, string(MilestonePending), []Action{ActionEditMilestone, ActionDeleteMilestone}},
	{RoleFreelancer, EntityMilestone, string(MilestonePending), []Action{ActionStartMilestone}},
	{RoleFreelancer, EntityMilestone, string(MilestoneInProgress), []Action{ActionCompleteMilestone}},
	{RoleFreelancer, EntityMilestone, string(MilestoneCompleted), []Action{ActionRequestPayment}},

	{RoleClient, EntityPaymentRequest, string(PaymentPending), []Action{ActionApprovePayment, ActionRejectPayment}},
	{RoleFreelancer, EntityPaymentRequest, string(PaymentPending), []Action{ActionWithdrawPayment}},
	{RoleSystem, EntityPaymentRequest, string(PaymentApproved), []Action{ActionSettlePayment}},

	{RoleFreelancer, EntityContract, string(ContractPending), []Action{ActionAcceptContract, ActionRejectContract}},
	{RoleClient, EntityContract, string(ContractPending), []Action{
		ActionAddMilestone, ActionEditMilestone, ActionDeleteMilestone, ActionCancelContract,
	}},
	{RoleClient, EntityContract, string(ContractActive), []Action{
		ActionAddMilestone, ActionEditMilestone, ActionDeleteMilestone,
		ActionApprovePayment, ActionRejectPayment, ActionCancelContract,
	}},
	{RoleFreelancer, EntityContract, string(ContractActive), []Action{
		ActionStartMilestone, ActionCompleteMilestone, ActionRequestPayment, ActionWithdrawPayment,
	}},
	{RoleSystem, EntityContract, string(ContractActive), []Action{ActionSettlePayment}},
}

// AllowedActions returns the actions role may take on entity in status.
// The result is empty, never nil-panicking, for unknown combinations.
func AllowedActions(role Role, entity Entity, status string) []Action {
	var out []Action
	for _, r := range Rules {
		if r.Role == role && r.Entity == entity && r.Status == status {
			out = append(out, r.Actions...)
		}
	}
	return out
}

// Can reports whether the table grants action to role on entity in status.
func Can(role Role, entity Entity, status string, action Action) bool {
	for _, a := range AllowedActions(role, entity, status) {
		if a == action {
			return true
		}
	}
	return false
}

// RoleEverAllowed reports whether any row grants action to role.
func RoleEverAllowed(role Role, action Action) bool {
	for _, r := range Rules {
		if r.Role != role {
			continue
		}
		for _, a := range r.Actions {
			if a == action {
				return true
			}
		}
	}
	return false
}

// Target identifies the entity (below the contract) an action operates on.
type Target struct {
	Entity Entity
	Status string
}

func MilestoneTarget(m *Milestone) Target {
	return Target{Entity: EntityMilestone, Status: string(m.Status)}
}

func PaymentTarget(p *PaymentRequest) Target {
	return Target{Entity: EntityPaymentRequest, Status: string(p.Status)}
}

// Permit decides whether actor may perform action on contract c and the
// optional targets. Checks run in order: role grant, contract party, then
// status of the contract and of each target.
//
// A role that no row ever grants the action gets ErrAuthorization, as does
// a user who is not the contract party for their role. A granted action
// attempted in the wrong status gets ErrInvalidState.
func Permit(actor Actor, c *Contract, action Action, targets ...Target) error {
	if !RoleEverAllowed(actor.Role, action) {
		return Errorf(ErrAuthorization, "role %q may never %s", actor.Role, action)
	}
	if actor.Role != RoleSystem && c.PartyRole(actor.UserID) != actor.Role {
		return Errorf(ErrAuthorization, "user %s is not the %s on contract %s", actor.UserID, actor.Role, c.ID)
	}
	if c.IsTerminal() {
		return Errorf(ErrInvalidState, "contract is %s; no further changes are allowed", c.Status)
	}
	if !Can(actor.Role, EntityContract, string(c.Status), action) {
		return Errorf(ErrInvalidState, "cannot %s while contract is %s", action, c.Status)
	}
	for _, t := range targets {
		if !Can(actor.Role, t.Entity, t.Status, action) {
			return Errorf(ErrInvalidState, "cannot %s while %s is %s", action, t.Entity, t.Status)
		}
	}
	return nil
}

// ContractActions lists what actor may do at contract level right now.
// Used to render controls; the server still runs Permit on every call.
func ContractActions(actor Actor, c *Contract) []Action {
	if c == nil {
		return nil
	}
	if actor.Role != RoleSystem && c.PartyRole(actor.UserID) != actor.Role {
		return nil
	}
	return AllowedActions(actor.Role, EntityContract, string(c.Status))
}
