package decisions

import (
	"errors"
	"strings"
)

// Domain is the application category a record is evaluated under.
type Domain string

const (
	DomainLoan      Domain = "loan"
	DomainJob       Domain = "job"
	DomainInsurance Domain = "insurance"
	DomainCredit    Domain = "credit"

	// DomainGlobal only scopes policies; global policies apply to every domain.
	DomainGlobal Domain = "global"
)

// Domains lists the application domains in display order.
func Domains() []Domain {
	return []Domain{DomainLoan, DomainCredit, DomainInsurance, DomainJob}
}

func ParseDomain(raw string) (Domain, bool) {
	d := Domain(strings.ToLower(strings.TrimSpace(raw)))
	switch d {
	case DomainLoan, DomainJob, DomainInsurance, DomainCredit:
		return d, true
	default:
		return "", false
	}
}

// ParsePolicyDomain accepts the application domains plus global.
func ParsePolicyDomain(raw string) (Domain, bool) {
	if d, ok := ParseDomain(raw); ok {
		return d, true
	}
	if Domain(strings.ToLower(strings.TrimSpace(raw))) == DomainGlobal {
		return DomainGlobal, true
	}
	return "", false
}

// Status is the lifecycle state of an application record.
type Status string

const (
	StatusPendingAI    Status = "pending_ai"
	StatusPendingHuman Status = "pending_human"
	StatusCompleted    Status = "completed"
)

func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPendingAI, StatusPendingHuman, StatusCompleted:
		return s, true
	default:
		return "", false
	}
}

// Outcome is a categorical decision, from the model or from a reviewer.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

func ParseOutcome(raw string) (Outcome, bool) {
	o := Outcome(strings.ToLower(strings.TrimSpace(raw)))
	switch o {
	case OutcomeApproved, OutcomeRejected:
		return o, true
	default:
		return "", false
	}
}

func (o Outcome) Opposite() Outcome {
	if o == OutcomeApproved {
		return OutcomeRejected
	}
	return OutcomeApproved
}

// Upper renders the outcome the way prompts and customer text spell it.
func (o Outcome) Upper() string { return strings.ToUpper(string(o)) }

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrValidation   = errors.New("validation failed")
)

// Failure kinds recorded on a record whose AI stage did not produce a
// trustworthy result.
const (
	FailureModelUnavailable = "model_unavailable"
	FailureParse            = "parse_failure"
)

const (
	ModelUnavailableNote = "AI analysis unavailable — manual review required"
	ParseFailureNote     = "AI output could not be validated — manual review required"
)
