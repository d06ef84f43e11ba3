package domain

type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
	RoleSystem     Role = "system"
)

// ValidRoles is the canonical set of accepted role strings.
var ValidRoles = map[string]bool{
	"client": true, "freelancer": true, "system": true,
}

type ContractStatus string

const (
	ContractPending   ContractStatus = "pending"
	ContractActive    ContractStatus = "active"
	ContractCompleted ContractStatus = "completed"
	ContractCancelled ContractStatus = "cancelled"
)

type MilestoneStatus string

const (
	MilestonePending    MilestoneStatus = "pending"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneCompleted  MilestoneStatus = "completed"
	MilestonePaid       MilestoneStatus = "paid"
)

type PaymentRequestStatus string

const (
	PaymentPending   PaymentRequestStatus = "pending"
	PaymentApproved  PaymentRequestStatus = "approved"
	PaymentRejected  PaymentRequestStatus = "rejected"
	PaymentWithdrawn PaymentRequestStatus = "withdrawn"
	PaymentPaid      PaymentRequestStatus = "paid"
)

// Entity names the aggregate a rule or event refers to.
type Entity string

const (
	EntityContract       Entity = "contract"
	EntityMilestone      Entity = "milestone"
	EntityPaymentRequest Entity = "payment_request"
)

// Action is a lifecycle operation an actor may attempt.
type Action string

const (
	ActionAcceptContract    Action = "accept_contract"
	ActionRejectContract    Action = "reject_contract"
	ActionCancelContract    Action = "cancel_contract"
	ActionAddMilestone      Action = "add_milestone"
	ActionEditMilestone     Action = "edit_milestone"
	ActionDeleteMilestone   Action = "delete_milestone"
	ActionStartMilestone    Action = "start_milestone"
	ActionCompleteMilestone Action = "complete_milestone"
	ActionRequestPayment    Action = "request_payment"
	ActionApprovePayment    Action = "approve_payment"
	ActionRejectPayment     Action = "reject_payment"
	ActionWithdrawPayment   Action = "withdraw_payment"
	ActionSettlePayment     Action = "settle_payment"
)

// ParseMilestoneStatus maps a wire string to a MilestoneStatus.
func ParseMilestoneStatus(s string) (MilestoneStatus, error) {
	switch MilestoneStatus(s) {
	case MilestonePending, MilestoneInProgress, MilestoneCompleted, MilestonePaid:
		return MilestoneStatus(s), nil
	}
	return "", Errorf(ErrValidation, "unknown milestone status %q", s)
}
