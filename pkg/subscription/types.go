package subscription

// ProviderName identifies a payment provider.
type ProviderName string

const (
	ProviderStripe ProviderName = "stripe"
	ProviderAsaas  ProviderName = "asaas"
)

func (p ProviderName) String() string { return string(p) }

// Providers lists every supported provider.
func Providers() []ProviderName {
	return []ProviderName{ProviderStripe, ProviderAsaas}
}

// Status is the internal subscription status. The zero value StatusNone
// stands for "no subscription row yet" inside the transition table and is
// never persisted.
type Status string

const (
	StatusNone     Status = ""
	StatusPending  Status = "PENDING"
	StatusActive   Status = "ACTIVE"
	StatusOverdue  Status = "OVERDUE"
	StatusCanceled Status = "CANCELED"
	StatusExpired  Status = "EXPIRED"
)

func (s Status) String() string {
	if s == StatusNone {
		return "NONE"
	}
	return string(s)
}

// IsTerminal reports whether no further event may change the status.
func (s Status) IsTerminal() bool {
	return s == StatusCanceled || s == StatusExpired
}

// EventClass is the provider independent meaning of a webhook event.
type EventClass string

const (
	ClassIgnored         EventClass = "ignored"
	ClassCreated         EventClass = "created"
	ClassPaymentReceived EventClass = "payment_received"
	ClassRenewed         EventClass = "renewed"
	ClassOverdue         EventClass = "overdue"
	ClassCanceled        EventClass = "canceled"
	ClassExpired         EventClass = "expired"
)

// BillingInterval is the billing cycle of a plan.
type BillingInterval string

const (
	BillingIntervalWeekly  BillingInterval = "weekly"
	BillingIntervalMonthly BillingInterval = "monthly"
	BillingIntervalAnnual  BillingInterval = "annual"
)

func (i BillingInterval) valid() bool {
	switch i {
	case BillingIntervalWeekly, BillingIntervalMonthly, BillingIntervalAnnual:
		return true
	}
	return false
}
