package rules

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
)

const (
	EngineName = "rules"

	baseScore        = 50
	approveThreshold = 55
	maxConfidence    = 0.95

	// Malaysian prudent-lending income bands, annual RM.
	minAnnualIncome       = 36000
	goodAnnualIncome      = 60000
	excellentAnnualIncome = 120000
	maxLoanToIncome       = 5
)

var printer = message.NewPrinter(language.English)

func rm(v float64) string { return printer.Sprintf("RM%.0f", v) }

// scorecard accumulates the outcome of each rule.
type scorecard struct {
	score           int
	factors         []string
	analysis        []string
	counterfactuals []string
}

func (s *scorecard) add(points int, factor, analysis string) {
	s.score += points
	if factor != "" {
		s.factors = append(s.factors, factor)
	}
	if analysis != "" {
		s.analysis = append(s.analysis, analysis)
	}
}

func (s *scorecard) suggest(cf string) { s.counterfactuals = append(s.counterfactuals, cf) }

// Evaluate scores an applicant deterministically. fields must be
// canonicalized by the domain schema. The result carries a prepared
// alternative for the opposite outcome.
func Evaluate(domain decisions.Domain, fields map[string]any) decisions.AIResult {
	sc := &scorecard{score: baseScore}
	switch domain {
	case decisions.DomainLoan:
		scoreLoan(sc, fields)
	case decisions.DomainCredit:
		scoreCredit(sc, fields)
	case decisions.DomainInsurance:
		scoreInsurance(sc, fields)
	case decisions.DomainJob:
		scoreJob(sc, fields)
	}

	score := sc.score
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	approved := score >= approveThreshold
	outcome := decisions.OutcomeRejected
	if approved {
		outcome = decisions.OutcomeApproved
	}

	cfs := make([]string, 0, len(sc.counterfactuals))
	for i, cf := range sc.counterfactuals {
		cfs = append(cfs, fmt.Sprintf("Step %d: %s", i+1, cf))
	}
	if len(cfs) == 0 && !approved {
		cfs = []string{
			"Step 1: Review and update your application details to ensure all information is accurate and complete",
			"Step 2: Provide additional supporting documentation such as pay stubs, tax returns, or employment verification",
			"Step 3: Contact our support team for a manual review of your application",
		}
	}
	if len(cfs) > 5 {
		cfs = cfs[:5]
	}

	top := sc.factors
	if len(top) > 3 {
		top = top[:3]
	}
	summary := "Standard evaluation criteria applied"
	if len(top) > 0 {
		summary = strings.Join(top, ", ")
	}
	detail := "Standard evaluation criteria were applied to assess your application."
	if len(sc.analysis) > 0 {
		detail = strings.Join(sc.analysis, " ")
	}

	risk := float64(100 - score)
	prob := round2(float64(score) / 100)
	return decisions.AIResult{
		Decision: decisions.Decision{
			Status:     outcome,
			Confidence: round2(math.Min(maxConfidence, float64(score)/100+0.1)),
			Reasoning:  fmt.Sprintf("Based on automated analysis: %s. Risk score: %d/100.\n\nDetailed Analysis:\n%s", summary, score, detail),
		},
		Counterfactuals: cfs,
		Fairness:        decisions.Fairness{Assessment: "Fair", Concerns: []string{"Automated rule-based evaluation"}},
		KeyMetrics: &decisions.KeyMetrics{
			RiskScore:           &risk,
			ApprovalProbability: &prob,
			CriticalFactors:     append([]string{}, top...),
		},
		Alternative: alternative(domain, outcome),
		Audit:       decisions.ResultAudit{Engine: EngineName},
	}
}

func scoreLoan(sc *scorecard, f map[string]any) {
	monthly := num(f, "monthly_income", 0)
	annual := monthly * 12
	period, shown := "monthly", monthly
	if monthly <= 0 {
		annual = num(f, "annual_income", 0)
		period, shown = "annual", annual
	}
	loan := num(f, "loan_amount", 10000)
	credit := num(f, "credit_score", 650)

	income := fmt.Sprintf("Your %s income of %s (%s/year)", period, rm(shown), rm(annual))
	switch {
	case annual >= excellentAnnualIncome:
		sc.add(20, "High income", income+" demonstrates strong financial capacity.")
	case annual >= goodAnnualIncome:
		sc.add(15, "Good income", income+" shows solid financial standing and meets our standard requirements.")
	case annual >= minAnnualIncome:
		sc.add(5, "Moderate income", income+" meets the minimum requirement, though higher income would improve your approval chances.")
	default:
		minMonthly := float64(minAnnualIncome) / 12
		sc.add(-15, "Low income", income+fmt.Sprintf(" is below the minimum threshold of %s/month, which limits your debt service capacity.", rm(minMonthly)))
		sc.suggest(fmt.Sprintf("Increase your monthly income to at least %s through additional employment, side income, or a co-applicant", rm(minMonthly)))
	}

	switch {
	case credit >= 700:
		sc.add(25, "Excellent credit", fmt.Sprintf("Your credit score of %.0f is excellent.", credit))
	case credit >= 600:
		sc.add(10, "Fair credit", fmt.Sprintf("Your credit score of %.0f is acceptable; above 700 would qualify for better rates.", credit))
	default:
		sc.add(-20, "Poor credit", fmt.Sprintf("Your credit score of %.0f is below our minimum threshold of 600.", credit))
		sc.suggest("Improve your credit score above 650 by paying down existing debts and making all payments on time")
	}

	switch {
	case annual > 0 && loan > annual*maxLoanToIncome:
		sc.add(-15, "High loan-to-income", fmt.Sprintf("The requested loan of %s is %.1fx your annual income, above the %dx limit.", rm(loan), loan/annual, maxLoanToIncome))
		sc.suggest(fmt.Sprintf("Request a smaller loan amount (max %s based on your income) or increase your income before reapplying", rm(annual*maxLoanToIncome)))
	case annual <= 0:
		sc.add(-20, "No verifiable income", "No verifiable income was provided, so debt service capacity cannot be assessed.")
		sc.suggest("Provide proof of income such as payslips, EPF statements, or income tax returns")
	}
}

func scoreCredit(sc *scorecard, f map[string]any) {
	age := num(f, "age", 30)
	monthly := num(f, "monthly_income", 0)
	annual := monthly * 12
	if monthly <= 0 {
		annual = num(f, "annual_income", 0)
	}
	credit := num(f, "credit_score", 0)

	switch {
	case annual > excellentAnnualIncome:
		sc.add(25, "High income", fmt.Sprintf("Your annual income of %s significantly exceeds our requirements.", rm(annual)))
	case annual > goodAnnualIncome:
		sc.add(15, "Good income", fmt.Sprintf("Your income of %s/year meets our credit requirements.", rm(annual)))
	default:
		sc.add(-10, "", fmt.Sprintf("Your reported income of %s/year is below our preferred threshold for credit approval.", rm(annual)))
		sc.suggest(fmt.Sprintf("Increase your annual income above %s to qualify for better credit terms", rm(goodAnnualIncome)))
	}

	if employed(f) {
		sc.add(15, "Employed", "Your current employment provides a stable income flow for meeting credit obligations.")
	} else {
		sc.add(-20, "Unemployed", "Being currently unemployed creates uncertainty about regular credit payments.")
		sc.suggest("Secure stable employment with verifiable income before reapplying for credit")
	}

	if credit > 0 {
		switch {
		case credit >= 700:
			sc.add(20, "Excellent credit score", fmt.Sprintf("Your credit score of %.0f demonstrates an excellent credit history.", credit))
		case credit >= 600:
			sc.add(10, "Good credit score", fmt.Sprintf("Your credit score of %.0f is within acceptable range.", credit))
		default:
			sc.add(-15, "Low credit score", fmt.Sprintf("Your credit score of %.0f is below our preferred threshold of 600.", credit))
			sc.suggest("Improve your credit score above 650 by paying down existing debts and making all payments on time")
		}
	}

	switch {
	case age >= 25 && age <= 60:
		sc.add(10, "Prime age", "")
	case age < 25:
		sc.add(0, "", fmt.Sprintf("At %.0f years old you have limited credit history.", age))
		sc.suggest("Build a longer credit history with a secured credit card or as an authorized user on an established account")
	}
}

func scoreInsurance(sc *scorecard, f map[string]any) {
	age := num(f, "age", 35)
	claims := int(num(f, "claims", 0))
	premium := num(f, "premium", 100)

	switch {
	case age < 30:
		sc.add(15, "Young age", fmt.Sprintf("At %.0f years old you fall into a lower-risk age bracket.", age))
	case age > 60:
		sc.add(-10, "Higher age risk", fmt.Sprintf("Your age of %.0f places you in a higher actuarial risk category.", age))
		sc.suggest("Consider senior-specific insurance plans designed for your age bracket")
	default:
		sc.add(0, "", fmt.Sprintf("Your age of %.0f is within standard risk parameters.", age))
	}

	switch {
	case claims == 0:
		sc.add(25, "No prior claims", "Your clean claims history qualifies you for preferred rates.")
	case claims <= 2:
		sc.add(5, "Few claims", fmt.Sprintf("Your history shows %d previous claim(s), within acceptable limits.", claims))
		sc.suggest("Maintain a claim-free record going forward to improve your risk profile")
	default:
		sc.add(-20, "Multiple claims", fmt.Sprintf("Your history of %d claims indicates higher-than-average risk.", claims))
		sc.suggest("Maintain a claim-free record for at least 2 years to qualify for better rates")
	}

	if premium > 500 {
		sc.add(0, "", fmt.Sprintf("Your current premium of %s/month reflects your risk profile and coverage level.", rm(premium)))
		sc.suggest("Consider adjusting your coverage level or increasing deductibles to reduce monthly premiums")
	}
}

func scoreJob(sc *scorecard, f map[string]any) {
	exp := num(f, "experience", 0)
	edu := strings.ToLower(str(f, "education"))
	skills := num(f, "skills_match", 70)

	switch {
	case exp >= 5:
		sc.add(25, "Experienced", fmt.Sprintf("Your %.0f years of experience strongly support your candidacy.", exp))
	case exp >= 2:
		sc.add(10, "Some experience", fmt.Sprintf("With %.0f years of experience you meet our minimum requirements.", exp))
	default:
		sc.add(-5, "", fmt.Sprintf("Your experience of %.0f years is below our preferred threshold of 2 years.", exp))
		sc.suggest("Gain more industry experience through internships, projects, or entry-level positions before reapplying")
	}

	switch {
	case strings.Contains(edu, "master"), strings.Contains(edu, "phd"):
		sc.add(15, "Advanced degree", "Your advanced degree demonstrates specialized knowledge in your field.")
	case strings.Contains(edu, "bachelor"):
		sc.add(10, "Bachelor's degree", "Your bachelor's degree meets our educational requirements.")
	default:
		sc.add(0, "", "Relevant certifications or a degree would strengthen your candidacy.")
	}

	if skills >= 80 {
		sc.add(20, "Strong skills match", fmt.Sprintf("Your skills alignment of %.0f%% is an excellent match.", skills))
	} else {
		sc.add(0, "", fmt.Sprintf("Your skills alignment of %.0f%% suggests some gaps with the job requirements.", skills))
	}
}

func employed(f map[string]any) bool {
	switch strings.ToLower(str(f, "employment_status")) {
	case "unemployed", "false", "no", "0":
		return false
	default:
		return true
	}
}

func num(f map[string]any, key string, def float64) float64 {
	if v, ok := f[key].(float64); ok && v != 0 {
		return v
	}
	return def
}

func str(f map[string]any, key string) string {
	s, _ := f[key].(string)
	return strings.TrimSpace(s)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
