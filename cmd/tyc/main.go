package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	cl "tycoon/internal/cli"
	"tycoon/internal/config"
	"tycoon/internal/syncq"
)

type app struct {
	apiBase  string
	sessions *cl.SessionStore
	outbox   *syncq.Queue
	bankID   int64
}

func main() {
	cfg := config.LoadCLIFromEnv()
	a := &app{
		apiBase:  cfg.APIBaseURL,
		sessions: cl.NewSessionStore(cfg.SessionDir),
		outbox:   syncq.New(cfg.SessionDir),
	}

	root := &cobra.Command{
		Use:          "tyc",
		Short:        "Bank tycoon client and offline loan toolkit",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.apiBase, "api", a.apiBase, "API base URL")

	root.AddCommand(
		newCalcCmd(),
		newRiskCmd(),
		newGenCmd(),
		newSimCmd(),
		newSignupCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newSyncCmd(a),
		newBankCmd(a),
		newApplicantsCmd(a),
		newLoansCmd(a),
		newDepositorsCmd(a),
		newPortfolioCmd(a),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) client() *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(a.apiBase), "/"))
}

func (a *app) session() (cl.Session, error) {
	sess, err := a.sessions.Load()
	if err != nil {
		return cl.Session{}, fmt.Errorf("login required: %w", err)
	}
	return sess, nil
}

// bank resolves the --bank flag, falling back to the bank picked with
// `tyc bank use`.
func (a *app) bank(sess cl.Session) (int64, error) {
	if a.bankID > 0 {
		return a.bankID, nil
	}
	if sess.ActiveBankID > 0 {
		return sess.ActiveBankID, nil
	}
	return 0, errors.New("no bank selected: pass --bank or run `tyc bank use ID`")
}

func (a *app) bankFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Int64Var(&a.bankID, "bank", 0, "bank id (defaults to the active bank)")
}

func timeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func newSignupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			session, err := a.client().Signup(ctx, email, password)
			if err != nil {
				return err
			}
			if strings.TrimSpace(session.AccessToken) == "" {
				printWarn("Signup created. Verify email, then run `tyc login`.")
				return nil
			}
			if err := a.sessions.Save(cl.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Signup complete. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			session, err := a.client().Login(ctx, email, password)
			if err != nil {
				return err
			}
			sess := cl.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}
			// Keep the active bank across re-logins of the same user.
			if prev, err := a.sessions.Load(); err == nil && prev.UserID == sess.UserID {
				sess.ActiveBankID = prev.ActiveBankID
			}
			if err := a.sessions.Save(sess); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sessions.Clear(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newBankCmd(a *app) *cobra.Command {
	bank := &cobra.Command{
		Use:   "bank",
		Short: "Create and manage your banks",
	}
	a.bankFlag(bank)

	bank.AddCommand(&cobra.Command{
		Use:   "create [NAME]",
		Short: "Open a new bank and make it active",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			name := strings.Join(args, " ")
			if name == "" {
				if name, err = promptRequired("Bank name"); err != nil {
					return err
				}
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			id, err := a.client().CreateBank(ctx, sess.AccessToken, name, uuid.NewString())
			if err != nil {
				return err
			}
			sess.ActiveBankID = id
			if err := a.sessions.Save(sess); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Bank created: #%d %s (now active)", id, name))
			return nil
		},
	})

	bank.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your banks",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			banks, err := a.client().ListBanks(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			renderBanks(banks, sess.ActiveBankID)
			return nil
		},
	})

	bank.AddCommand(&cobra.Command{
		Use:   "use ID",
		Short: "Set the active bank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid bank id %q", args[0])
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			view, err := a.client().BankState(ctx, sess.AccessToken, id)
			if err != nil {
				return err
			}
			sess.ActiveBankID = id
			if err := a.sessions.Save(sess); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Active bank: #%d %s", view.ID, view.Name))
			return nil
		},
	})

	bank.AddCommand(&cobra.Command{
		Use:   "state",
		Short: "Show the active bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			id, err := a.bank(sess)
			if err != nil {
				return err
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			view, err := a.client().BankState(ctx, sess.AccessToken, id)
			if err != nil {
				return err
			}
			renderBank(view)
			return nil
		},
	})

	var budget string
	var upgrade bool
	profile := &cobra.Command{
		Use:   "profile",
		Short: "Set the marketing budget or buy the next level",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			id, err := a.bank(sess)
			if err != nil {
				return err
			}
			var spend *decimal.Decimal
			if cmd.Flags().Changed("marketing") {
				d, err := decimal.NewFromString(strings.TrimSpace(budget))
				if err != nil {
					return fmt.Errorf("invalid marketing budget %q", budget)
				}
				spend = &d
			}
			if spend == nil && !upgrade {
				return errors.New("nothing to change: pass --marketing or --upgrade")
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			view, err := a.client().UpdateBankProfile(ctx, sess.AccessToken, id, spend, upgrade, uuid.NewString())
			if err != nil {
				return err
			}
			renderBank(view)
			return nil
		},
	}
	profile.Flags().StringVar(&budget, "marketing", "", "monthly marketing budget")
	profile.Flags().BoolVar(&upgrade, "upgrade", false, "buy the next bank level")
	bank.AddCommand(profile)

	return bank
}

func newApplicantsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "applicants",
		Short:   "Review loan applicants",
		Aliases: []string{"apps"},
	}
	a.bankFlag(cmd)

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List applicants (pending by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			id, err := a.bank(sess)
			if err != nil {
				return err
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			out, err := a.client().ListApplicants(ctx, sess.AccessToken, id, status)
			if err != nil {
				return err
			}
			renderApplicants(out)
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", "pending", "pending, approved, denied, expired or empty for all")
	cmd.AddCommand(list)

	var rate float64
	approve := &cobra.Command{
		Use:   "approve APPLICANT_ID",
		Short: "Approve an applicant and fund the loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.decide(cmd, args[0], "approve", rate)
		},
	}
	approve.Flags().Float64Var(&rate, "rate", 0, "annual rate override, e.g. 0.085 (defaults to the recommended rate)")
	cmd.AddCommand(approve)

	cmd.AddCommand(&cobra.Command{
		Use:   "deny APPLICANT_ID",
		Short: "Deny an applicant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.decide(cmd, args[0], "deny", 0)
		},
	})
	return cmd
}

func (a *app) decide(cmd *cobra.Command, applicantID, decision string, rate float64) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	id, err := a.bank(sess)
	if err != nil {
		return err
	}
	applicantID = strings.TrimSpace(applicantID)
	idem := uuid.NewString()
	ctx, cancel := timeout(cmd)
	defer cancel()
	out, err := a.client().Decide(ctx, sess.AccessToken, id, applicantID, decision, rate, idem)
	if err != nil {
		return a.queueOnNetworkError(err, func() syncq.Command {
			path, body := cl.DecisionRequest(id, applicantID, decision, rate)
			return syncq.Command{Method: http.MethodPost, Path: path, Body: body, IdempotencyKey: idem}
		})
	}
	renderDecision(out)
	return nil
}

// queueOnNetworkError parks the write in the outbox when the API could not be
// reached. Errors the API answered with are returned as is.
func (a *app) queueOnNetworkError(err error, command func() syncq.Command) error {
	var apiErr *cl.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	if qerr := a.outbox.Push(command()); qerr != nil {
		return fmt.Errorf("request failed and could not be queued: %w", errors.Join(err, qerr))
	}
	printWarn(fmt.Sprintf("API unreachable (%v). Queued; run `tyc sync` to replay.", err))
	return nil
}

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay writes queued while the API was unreachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			queue, err := a.outbox.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			client := a.client()
			remaining := make([]syncq.Command, 0, len(queue))
			replayed := 0
			for _, q := range queue {
				_, err := client.Do(ctx, q.Method, q.Path, sess.AccessToken, q.Body, q.IdempotencyKey)
				var apiErr *cl.APIError
				switch {
				case err == nil:
					replayed++
				case errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict:
					// Already applied under this idempotency key, or the applicant
					// was decided elsewhere.
					printInfo(fmt.Sprintf("Skipped %s %s: %s", q.Method, q.Path, apiErr.Message))
				case errors.As(err, &apiErr):
					printError(fmt.Sprintf("Dropped %s %s: %v", q.Method, q.Path, err))
				default:
					remaining = append(remaining, q)
					printError(fmt.Sprintf("Sync failed for %s %s: %v", q.Method, q.Path, err))
				}
			}
			if err := a.outbox.Save(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", replayed, len(remaining)))
			return nil
		},
	}
}

func newLoansCmd(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List the loan book",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			id, err := a.bank(sess)
			if err != nil {
				return err
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			out, err := a.client().ListLoans(ctx, sess.AccessToken, id, status)
			if err != nil {
				return err
			}
			renderLoans(out)
			return nil
		},
	}
	a.bankFlag(cmd)
	cmd.Flags().StringVar(&status, "status", "", "active, paid_off or defaulted")
	return cmd
}

func newDepositorsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "depositors",
		Short: "List depositors",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			id, err := a.bank(sess)
			if err != nil {
				return err
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			out, err := a.client().ListDepositors(ctx, sess.AccessToken, id)
			if err != nil {
				return err
			}
			renderDepositors(out)
			return nil
		},
	}
	a.bankFlag(cmd)
	return cmd
}

func newPortfolioCmd(a *app) *cobra.Command {
	var trials int
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Simulate losses on the active loan book",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			id, err := a.bank(sess)
			if err != nil {
				return err
			}
			ctx, cancel := timeout(cmd)
			defer cancel()
			out, err := a.client().PortfolioRisk(ctx, sess.AccessToken, id, trials)
			if err != nil {
				return err
			}
			renderPortfolio(out)
			return nil
		},
	}
	a.bankFlag(cmd)
	cmd.Flags().IntVar(&trials, "trials", 0, "simulation trials (server default when 0)")
	return cmd
}
