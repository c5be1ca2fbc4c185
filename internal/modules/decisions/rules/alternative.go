package rules

import "github.com/yungbote/xai-decision-backend/internal/domain/decisions"

type altText struct {
	reasoning string
	steps     []string
}

var approvedAlternatives = map[decisions.Domain]altText{
	decisions.DomainLoan: {
		reasoning: "Upon further review, the applicant demonstrates sufficient capacity to service the loan. Their overall financial profile, considered together with factors the automated scoring weighs conservatively, supports approval.",
		steps: []string{
			"Complete the loan agreement and provide identification documents",
			"Set up automatic repayments to maintain a good payment record",
			"Keep debt commitments within the agreed affordability limits",
		},
	},
	decisions.DomainCredit: {
		reasoning: "Upon further review, the applicant's employment and income history indicate they can manage a credit facility responsibly. A conservative initial limit addresses the residual risk.",
		steps: []string{
			"Activate the card and review the credit agreement",
			"Keep utilization below 30% of the approved limit",
			"Pay the full statement balance each month to build credit history",
		},
	},
	decisions.DomainInsurance: {
		reasoning: "Upon further review, the applicant's overall risk profile is acceptable for coverage. Individual risk factors are offset by the rest of the application and can be priced into the policy.",
		steps: []string{
			"Review the policy schedule and confirm the coverage details",
			"Set up premium payments to keep the policy in force",
			"Report any material changes in circumstances to the insurer",
		},
	},
	decisions.DomainJob: {
		reasoning: "Upon further review, the candidate shows potential that the automated screen does not fully capture. Their background and transferable skills justify moving forward.",
		steps: []string{
			"Schedule an interview with the hiring team",
			"Prepare examples of relevant projects and achievements",
			"Complete any required pre-employment checks",
		},
	},
}

var rejectedAlternatives = map[decisions.Domain]altText{
	decisions.DomainLoan: {
		reasoning: "Upon further review, the application carries more risk than the automated score suggests. Affordability and repayment capacity do not meet the standard required for this loan at this time.",
		steps: []string{
			"Reduce existing debt commitments to improve affordability",
			"Consider applying for a smaller loan amount",
			"Reapply once income or credit standing has improved",
		},
	},
	decisions.DomainCredit: {
		reasoning: "Upon further review, the applicant's current financial position does not support a new credit facility. The risk of missed repayments outweighs the positive factors identified.",
		steps: []string{
			"Build a longer record of on-time payments on existing accounts",
			"Reduce outstanding balances on current credit lines",
			"Reapply after six months of stable income",
		},
	},
	decisions.DomainInsurance: {
		reasoning: "Upon further review, the applicant's risk profile falls outside the underwriting guidelines for this product. Coverage cannot be offered on standard terms.",
		steps: []string{
			"Consider a product designed for your risk category",
			"Maintain a claim-free record to improve future eligibility",
			"Discuss alternative coverage levels with an agent",
		},
	},
	decisions.DomainJob: {
		reasoning: "Upon further review, the candidate's profile is not the right fit for the role requirements at this time. Other candidates more closely match the required experience and skills.",
		steps: []string{
			"Gain additional experience in the core skills for this role",
			"Pursue relevant certifications or training",
			"Apply for positions that match your current experience level",
		},
	},
}

// alternative prepares the explanation for the outcome opposite to
// recommended, so an override does not need a second evaluation.
func alternative(domain decisions.Domain, recommended decisions.Outcome) *decisions.Alternative {
	opp := recommended.Opposite()
	table := rejectedAlternatives
	if opp == decisions.OutcomeApproved {
		table = approvedAlternatives
	}
	text, ok := table[domain]
	if !ok {
		return nil
	}
	return &decisions.Alternative{
		Outcome:         opp,
		Reasoning:       text.reasoning,
		Counterfactuals: append([]string{}, text.steps...),
	}
}
