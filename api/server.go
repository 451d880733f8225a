package api

import (
	"context"
	"strconv"
	"strings"

	"dareledger/application"
	"dareledger/domain"
	"dareledger/domain/entities"
	"dareledger/domain/interfaces"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ChallengeService is the lifecycle side of the ledger
type ChallengeService interface {
	CreateChallenge(ctx context.Context, req interfaces.CreateChallengeRequest) (*entities.Challenge, error)
	PlaceBet(ctx context.Context, req interfaces.PlaceBetRequest) (*entities.Bet, error)
	SubmitProof(ctx context.Context, challengeID int64, submitterID, mediaRef string) (*entities.ProofRecord, error)
	AcceptProof(ctx context.Context, challengeID, proofID int64) (*entities.Challenge, error)
	GetChallenge(ctx context.Context, challengeID int64) (*application.ChallengeDetail, error)
}

// PayoutService moves funds out of custody
type PayoutService interface {
	CashOut(ctx context.Context, req application.PayoutRequest) (*entities.PayoutReceipt, error)
	ClaimWinnings(ctx context.Context, req application.PayoutRequest) (*entities.PayoutReceipt, error)
	ClaimCreatorFee(ctx context.Context, req application.PayoutRequest) (*entities.PayoutReceipt, error)
	ClaimCompleterReward(ctx context.Context, req application.PayoutRequest) (*entities.PayoutReceipt, error)
	ResolveIntent(ctx context.Context, claimID int64) (*entities.PayoutClaim, error)
}

// ReconciliationService produces reconciliation reports
type ReconciliationService interface {
	Reconcile(ctx context.Context) (*entities.ReconciliationReport, error)
}

// Server exposes the ledger over JSON/HTTP
type Server struct {
	app        *fiber.App
	validate   *validator.Validate
	challenges ChallengeService
	payouts    PayoutService
	reporter   ReconciliationService
	treasury   string
}

// NewServer builds the HTTP server and registers every route
func NewServer(
	challenges ChallengeService,
	payouts PayoutService,
	reporter ReconciliationService,
	treasuryAddress string,
	adminToken string,
) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "dare-ledger",
			ErrorHandler:          errorHandler,
			DisableStartupMessage: true,
		}),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		challenges: challenges,
		payouts:    payouts,
		reporter:   reporter,
		treasury:   treasuryAddress,
	}

	s.app.Use(requestLogger())
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	admin := adminAuth(adminToken)

	v1 := s.app.Group("/v1")
	v1.Get("/treasury", s.getTreasury)
	v1.Post("/challenges", admin, s.createChallenge)
	v1.Get("/challenges/:id", s.getChallenge)
	v1.Post("/challenges/:id/bets", s.placeBet)
	v1.Post("/challenges/:id/proofs", s.submitProof)
	v1.Post("/challenges/:id/proofs/:proofId/accept", admin, s.acceptProof)
	v1.Post("/challenges/:id/cashout", s.cashOut)
	v1.Post("/challenges/:id/claims/winnings", s.claim(s.payouts.ClaimWinnings))
	v1.Post("/challenges/:id/claims/creator-fee", s.claim(s.payouts.ClaimCreatorFee))
	v1.Post("/challenges/:id/claims/completer-reward", s.claim(s.payouts.ClaimCompleterReward))

	adminGroup := v1.Group("/admin", admin)
	adminGroup.Get("/reconcile", s.reconcile)
	adminGroup.Post("/claims/:claimId/resolve", s.resolveClaim)

	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on addr until Shutdown is called
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) getTreasury(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"address": s.treasury})
}

func (s *Server) createChallenge(c *fiber.Ctx) error {
	var req CreateChallengeRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}

	challenge, err := s.challenges.CreateChallenge(c.UserContext(), interfaces.CreateChallengeRequest{
		CreatorID: req.Creator,
		Title:     req.Title,
		Deadline:  req.Deadline,
		MinBet:    req.MinBet,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(challengeResponse(challenge))
}

func (s *Server) getChallenge(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	detail, err := s.challenges.GetChallenge(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(challengeDetailResponse(detail))
}

func (s *Server) placeBet(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req PlaceBetRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}

	betReq := interfaces.PlaceBetRequest{
		ChallengeID: id,
		BettorID:    req.Bettor,
		Side:        entities.BetSide(req.Side),
		Amount:      req.Amount,
	}
	if ref := strings.TrimSpace(req.FundingTxRef); ref != "" {
		betReq.FundingTxRef = &ref
	}

	bet, err := s.challenges.PlaceBet(c.UserContext(), betReq)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(betResponse(bet, nil))
}

func (s *Server) submitProof(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req SubmitProofRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}

	proof, err := s.challenges.SubmitProof(c.UserContext(), id, req.Submitter, req.MediaRef)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(proofResponse(proof))
}

func (s *Server) acceptProof(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	proofID, err := pathID(c, "proofId")
	if err != nil {
		return err
	}

	challenge, err := s.challenges.AcceptProof(c.UserContext(), id, proofID)
	if err != nil {
		return err
	}
	return c.JSON(challengeResponse(challenge))
}

func (s *Server) cashOut(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req CashOutRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}

	receipt, err := s.payouts.CashOut(c.UserContext(), application.PayoutRequest{
		ChallengeID: id,
		Participant: req.Bettor,
		Signature:   req.Signature,
		TimestampMs: req.Timestamp,
		BetID:       req.BetID,
	})
	if err != nil {
		return err
	}
	return c.JSON(receipt)
}

func (s *Server) claim(pay func(context.Context, application.PayoutRequest) (*entities.PayoutReceipt, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		var req ClaimRequest
		if err := s.parse(c, &req); err != nil {
			return err
		}

		receipt, err := pay(c.UserContext(), application.PayoutRequest{
			ChallengeID: id,
			Participant: req.Participant,
			Signature:   req.Signature,
			TimestampMs: req.Timestamp,
		})
		if err != nil {
			return err
		}
		return c.JSON(receipt)
	}
}

func (s *Server) reconcile(c *fiber.Ctx) error {
	report, err := s.reporter.Reconcile(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (s *Server) resolveClaim(c *fiber.Ctx) error {
	claimID, err := pathID(c, "claimId")
	if err != nil {
		return err
	}

	claim, err := s.payouts.ResolveIntent(c.UserContext(), claimID)
	if err != nil {
		return err
	}
	return c.JSON(claimResponse(claim))
}

func (s *Server) parse(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return domain.NewValidationError("invalid request body: %v", err)
	}
	return s.validate.Struct(dst)
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("invalid %s: %q", name, c.Params(name))
	}
	return id, nil
}
