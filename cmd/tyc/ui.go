package main

import (
	"bufio"
	"fmt"
	"iter"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"tycoon/internal/applicants"
	"tycoon/internal/bank"
	"tycoon/internal/finance"
	"tycoon/internal/risk"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func renderBanks(banks []bank.BankView, active int64) {
	if len(banks) == 0 {
		printInfo("No banks yet. Run `tyc bank create`.")
		return
	}
	accent.Println("\n== BANKS ==")
	for _, b := range banks {
		marker := " "
		if b.ID == active {
			marker = "*"
		}
		fmt.Printf("%s #%-5d %-28s lvl %-2d month %-4d cash %s\n",
			marker, b.ID, truncate(b.Name, 28), b.Level, b.Month, moneyDec(b.Cash))
	}
	fmt.Println()
}

func renderBank(b bank.BankView) {
	accent.Printf("\n== BANK #%d %s ==\n", b.ID, b.Name)
	fmt.Printf("Month:        %d\n", b.Month)
	fmt.Printf("Cash:         %s\n", moneyDec(b.Cash))
	fmt.Printf("Level:        %d", b.Level)
	if b.NextLevelCost.IsPositive() {
		fmt.Printf(" (next: %s)", moneyDec(b.NextLevelCost))
	}
	fmt.Println()
	fmt.Printf("Reputation:   %s\n", reputation(b.Reputation))
	fmt.Printf("Marketing:    %s / month\n", moneyDec(b.MarketingBudget))
	fmt.Printf("Applicants:   %d pending\n", b.PendingApplicants)
	fmt.Printf("Loan book:    %s across %d active loans\n", moneyDec(b.LoanBook), b.ActiveLoans)
	fmt.Printf("Interest:     %s\n", success.Sprint(moneyDec(b.InterestCollected)))
	if b.WrittenOff.IsPositive() {
		fmt.Printf("Written off:  %s (%d defaults)\n", danger.Sprint(moneyDec(b.WrittenOff)), b.DefaultedLoans)
	}
	fmt.Printf("Deposits:     %s from %d depositors\n\n", moneyDec(b.Deposits), b.Depositors)
}

func renderApplicants(rows []bank.ApplicantView) {
	if len(rows) == 0 {
		printInfo("No applicants. New ones arrive every month.")
		return
	}
	accent.Println("\n== APPLICANTS ==")
	for _, a := range rows {
		fmt.Printf("%s  %-22s score %3d  %-14s  %s over %dmo for %s\n",
			a.ID, truncate(a.FirstName+" "+a.LastName, 22), a.CreditScore, a.EmploymentType,
			moneyDec(a.RequestedAmount), a.TermMonths, a.Purpose)
		fmt.Printf("    income %s  tier %s  default %s  suggest %s  %s\n",
			moneyDec(a.AnnualIncome), a.RiskTier, pct(a.DefaultProbability),
			pct(a.RecommendedRate), recommendation(a.Recommendation))
	}
	fmt.Println()
}

func renderDecision(out bank.DecisionResult) {
	if out.Loan == nil {
		printWarn(fmt.Sprintf("Applicant %s %s.", out.ApplicantID, out.Status))
		return
	}
	l := out.Loan
	printSuccess(fmt.Sprintf("Loan #%d funded for %s.", l.ID, l.BorrowerName))
	fmt.Printf("Principal:    %s at %s over %d months\n", moneyDec(l.Principal), pct(l.AnnualRate), l.TermMonths)
	fmt.Printf("Payment:      %s / month\n", moneyDec(l.MonthlyPayment))
	if out.Evaluation != nil {
		fmt.Printf("Risk today:   %s (%s)\n", pct(out.Evaluation.AdjustedRate), recommendation(out.Evaluation.Recommendation))
	}
}

func renderLoans(rows []bank.LoanView) {
	if len(rows) == 0 {
		printInfo("No loans.")
		return
	}
	accent.Println("\n== LOANS ==")
	for _, l := range rows {
		fmt.Printf("#%-6d %-22s %-18s bal %-14s %s  %3d/%-3d  %s\n",
			l.ID, truncate(l.BorrowerName, 22), l.Purpose, moneyDec(l.Balance), pct(l.AnnualRate),
			l.MonthsPaid, l.TermMonths, loanStatus(l))
	}
	fmt.Println()
}

func renderDepositors(rows []bank.DepositorView) {
	if len(rows) == 0 {
		printInfo("No depositors yet.")
		return
	}
	accent.Println("\n== DEPOSITORS ==")
	total := decimal.Zero
	for _, d := range rows {
		total = total.Add(d.Balance)
		fmt.Printf("%-30s %-15s %-22s %14s  loyalty %3d\n",
			truncate(d.Name, 30), d.CustomerType, d.AccountType, moneyDec(d.Balance), d.Loyalty)
	}
	fmt.Printf("Total: %s\n\n", moneyDec(total))
}

func renderPortfolio(r bank.PortfolioReport) {
	accent.Printf("\n== PORTFOLIO RISK (bank #%d) ==\n", r.BankID)
	fmt.Printf("Active loans:  %d\n", r.ActiveLoans)
	fmt.Printf("Exposure:      %s\n", moneyDec(r.Exposure))
	fmt.Printf("Expected loss: %s\n", moneyDec(r.ExpectedLoss))
	renderSimulationBody(r.Simulation)
}

func renderSimulation(s risk.PortfolioSimulation, expected float64) {
	accent.Println("\n== PORTFOLIO SIMULATION ==")
	fmt.Printf("Exposure:      %s\n", money(s.TotalExposure))
	fmt.Printf("Expected loss: %s\n", money(expected))
	renderSimulationBody(s)
}

func renderSimulationBody(s risk.PortfolioSimulation) {
	fmt.Printf("Mean loss:     %s (%.2f%% of exposure)\n", money(s.MeanLoss), s.ExpectedLossRate)
	fmt.Printf("Std dev:       %s\n", money(s.StandardDeviation))
	fmt.Printf("1st pct:       %s\n", success.Sprint(money(s.BestCase)))
	fmt.Printf("99th pct:      %s\n", danger.Sprint(money(s.WorstCase)))
	fmt.Printf("Trials:        %d\n\n", s.Trials)
}

func renderSchedule(rows iter.Seq[finance.Row], term, every int) {
	if every <= 0 {
		every = 1
	}
	accent.Println("\n== SCHEDULE ==")
	fmt.Printf("%6s %14s %14s %14s %16s\n", "month", "payment", "principal", "interest", "balance")
	for row := range rows {
		if row.Month%every != 0 && row.Month != term && row.Month != 1 {
			continue
		}
		fmt.Printf("%6d %14s %14s %14s %16s\n",
			row.Month, money(row.Payment), money(row.Principal), money(row.Interest), money(row.Balance))
	}
	fmt.Println()
}

func renderScore(res risk.DefaultProbabilityResult, rate float64) {
	accent.Println("\n== DEFAULT RISK ==")
	fmt.Printf("Base rate:      %s\n", pct(res.BaseRate))
	fmt.Printf("Adjusted rate:  %s\n", pct(res.AdjustedRate))
	fmt.Printf("Risk tier:      %s\n", res.RiskTier)
	fmt.Printf("Recommendation: %s\n", recommendation(res.Recommendation))
	fmt.Printf("Suggested rate: %s\n", pct(rate))
	for _, f := range res.Factors {
		impact := neutral.Sprintf("%+.1f%%", f.Impact*100)
		switch {
		case f.Impact > 0:
			impact = danger.Sprintf("%+.1f%%", f.Impact*100)
		case f.Impact < 0:
			impact = success.Sprintf("%+.1f%%", f.Impact*100)
		}
		fmt.Printf("  %-24s %s  %s\n", f.Name, impact, f.Description)
	}
	fmt.Println()
}

func renderGenerated(rows []applicants.GeneratedApplicant) {
	accent.Printf("\n== %d APPLICANTS ==\n", len(rows))
	for _, a := range rows {
		fmt.Printf("%-22s %2d  score %3d  %-14s income %-12s wants %s over %dmo (%s)  %s %s\n",
			truncate(a.FirstName+" "+a.LastName, 22), a.Age, a.CreditScore, a.EmploymentType,
			money(a.AnnualIncome), money(a.Request.Amount), a.Request.TermMonths, a.Request.Purpose,
			pct(a.DefaultProbability), recommendation(a.Recommendation))
	}
	fmt.Println()
}

func renderGeneratedDepositors(rows []applicants.GeneratedDepositor) {
	accent.Printf("\n== %d DEPOSITORS ==\n", len(rows))
	for _, d := range rows {
		fmt.Printf("%-30s %-15s %-22s %14s  loyalty %3d\n",
			truncate(d.Name, 30), d.CustomerType, d.AccountType, money(d.InitialBalance), d.Loyalty)
	}
	fmt.Println()
}

func recommendation(r risk.Recommendation) string {
	switch r {
	case risk.Approve:
		return success.Sprint(string(r))
	case risk.Deny:
		return danger.Sprint(string(r))
	default:
		return warn.Sprint(string(r))
	}
}

func loanStatus(l bank.LoanView) string {
	switch {
	case l.Status == bank.LoanDefaulted:
		return danger.Sprint("defaulted")
	case l.Status == bank.LoanPaidOff:
		return success.Sprint("paid off")
	case l.MonthsDelinquent > 0:
		return warn.Sprintf("%d late", l.MonthsDelinquent)
	default:
		return neutral.Sprint("current")
	}
}

func reputation(v float64) string {
	text := fmt.Sprintf("%.2f", v)
	switch {
	case v >= 70:
		return success.Sprint(text)
	case v < 30:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func money(v float64) string {
	return moneyDec(decimal.NewFromFloat(v))
}

func moneyDec(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	s := d.StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	return sign + "$" + comma(whole) + "." + frac
}

func comma(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		b.WriteByte(',')
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
