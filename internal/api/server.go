package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"tycoon/internal/auth"
	"tycoon/internal/bank"
	"tycoon/internal/cache"
	"tycoon/internal/config"
	"tycoon/internal/finance"
	"tycoon/internal/metrics"
	"tycoon/internal/rng"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	UserID string
	Email  string
	Token  string
}

type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (auth.Session, error)
	Login(ctx context.Context, email, password string) (auth.Session, error)
	VerifyAccessToken(ctx context.Context, accessToken string) (auth.SupabaseUser, error)
}

type BankService interface {
	CreateBank(ctx context.Context, in bank.CreateBankInput) (int64, error)
	ListBanks(ctx context.Context, userID string) ([]bank.BankView, error)
	BankState(ctx context.Context, userID string, bankID int64) (bank.BankView, error)
	UpdateBankProfile(ctx context.Context, in bank.BankProfileInput) (bank.BankView, error)
	ListApplicants(ctx context.Context, userID string, bankID int64, status string) ([]bank.ApplicantView, error)
	DecideApplicant(ctx context.Context, in bank.DecisionInput) (bank.DecisionResult, error)
	ListLoans(ctx context.Context, userID string, bankID int64, status string) ([]bank.LoanView, error)
	ListDepositors(ctx context.Context, userID string, bankID int64) ([]bank.DepositorView, error)
	PortfolioRisk(ctx context.Context, userID string, bankID int64, trials int) (bank.PortfolioReport, error)
}

// Deps are the collaborators a Server needs. Cache, Metrics and Source may
// be nil.
type Deps struct {
	Auth    Authenticator
	Bank    BankService
	Cache   cache.Store
	Metrics *metrics.Metrics
	Source  rng.Source
}

type Server struct {
	cfg     config.APIConfig
	log     *slog.Logger
	auth    Authenticator
	bank    BankService
	cache   cache.Store
	metrics *metrics.Metrics
	src     rng.Source
	limiter *clientLimiter
	mux     *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, deps Deps) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemory()
	}
	if deps.Source == nil {
		deps.Source = rng.NewEntropy()
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		auth:    deps.Auth,
		bank:    deps.Bank,
		cache:   deps.Cache,
		metrics: deps.Metrics,
		src:     deps.Source,
		limiter: newClientLimiter(cfg.RateLimitPerMinute),
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.middleware)
			r.Post("/calc/payment", s.handleCalcPayment)
			r.Post("/calc/schedule", s.handleCalcSchedule)
			r.Post("/calc/compound", s.handleCalcCompound)
			r.Post("/calc/apy", s.handleCalcAPY)
			r.Post("/calc/apr", s.handleCalcAPR)
			r.Post("/calc/effective-rate", s.handleCalcEffectiveRate)
			r.Post("/calc/max-loan", s.handleCalcMaxLoan)
			r.Post("/calc/affordability", s.handleCalcAffordability)

			r.Post("/risk/default-probability", s.handleDefaultProbability)
			r.Post("/risk/portfolio", s.handlePortfolioSimulation)
			r.Post("/generate/applicants", s.handleGenerateApplicants)
			r.Post("/generate/depositors", s.handleGenerateDepositors)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/banks", s.handleCreateBank)
			r.Get("/banks", s.handleListBanks)
			r.Get("/banks/{id}", s.handleBankState)
			r.Post("/banks/{id}/profile", s.handleBankProfile)
			r.Get("/banks/{id}/applicants", s.handleListApplicants)
			r.Post("/banks/{id}/applicants/{applicant_id}/decision", s.handleDecideApplicant)
			r.Get("/banks/{id}/loans", s.handleListLoans)
			r.Get("/banks/{id}/depositors", s.handleListDepositors)
			r.Get("/banks/{id}/portfolio-risk", s.handlePortfolioRisk)
		})
	})
}

// observe records the matched route pattern, so /banks/1 and /banks/2 share
// one series.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := ""
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		s.metrics.ObserveRequest(route, r.Method, status, time.Since(start))
		if status >= http.StatusInternalServerError {
			s.log.Warn("request failed",
				"method", r.Method,
				"route", route,
				"status", status,
				"request_id", middleware.GetReqID(r.Context()),
			)
		}
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := s.auth.VerifyAccessToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			UserID: user.ID,
			Email:  user.Email,
			Token:  token,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	v := ctx.Value(userContextKey)
	user, ok := v.(UserContext)
	if !ok || user.UserID == "" {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.SignUp(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.Login(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bank.ErrDuplicateIdempotency),
		errors.Is(err, bank.ErrTxConflict),
		errors.Is(err, bank.ErrApplicantClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, bank.ErrInsufficientFunds),
		errors.Is(err, bank.ErrInvalidName),
		errors.Is(err, bank.ErrInvalidInput),
		errors.Is(err, bank.ErrMaxLevel),
		errors.Is(err, finance.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, bank.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, bank.ErrBankNotFound), errors.Is(err, bank.ErrApplicantNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		s.log.Error("unhandled error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func bankIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid bank id")
	}
	return id, nil
}
