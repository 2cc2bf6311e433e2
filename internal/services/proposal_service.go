// Package services – ProposalService
//
// This file implements the proposal registry and the curator quorum engine:
// duplicate-filtered submission, vote accounting with side exclusivity, and
// resolution into the catalog or the reject bin.
//
// Resolution ordering is deliberate and crash-tolerant without
// transactions: the phrase is admitted before any credit is given, and the
// proposal is closed last, so replaying an interrupted approval converges
// on the same final state (admission is idempotent per proposal, and the
// author credit is gated on the proposal still being open).
//
// Observability: the entry points are OpenTelemetry-instrumented; spans
// carry proposal and identity attributes.
package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
	"github.com/cunaobot/go-cunao-backend/internal/match"
	"github.com/cunaobot/go-cunao-backend/internal/repo"
)

// ApprovalPoints is the credit an author receives when their phrase enters
// the catalog.
const ApprovalPoints = 10

// SubmitOutcome classifies the result of a submission.
type SubmitOutcome string

// Submission outcomes. Only SubmitAccepted persists a new proposal.
const (
	SubmitAccepted         SubmitOutcome = "accepted"
	SubmitDuplicateCatalog SubmitOutcome = "duplicate_catalog"
	SubmitDuplicateOpen    SubmitOutcome = "duplicate_open"
	SubmitDuplicateClosed  SubmitOutcome = "duplicate_closed"
	SubmitEmptyText        SubmitOutcome = "empty_text"
)

// SubmitResult carries the outcome plus, for duplicates, the matching entity
// so the notifier can quote it back to the submitter.
type SubmitResult struct {
	Outcome    SubmitOutcome    `json:"outcome"`
	Proposal   *domain.Proposal `json:"proposal,omitempty"`
	MatchText  string           `json:"match_text,omitempty"`
	MatchID    uint             `json:"match_id,omitempty"`
	MatchRatio int              `json:"match_ratio,omitempty"`
}

// VoteStatus classifies the proposal state after a vote is applied.
type VoteStatus string

// Post-vote proposal states.
const (
	VoteOpen     VoteStatus = "open"
	VoteApproved VoteStatus = "approved"
	VoteRejected VoteStatus = "rejected"
)

// VoteResult is the observable state after a vote: current tallies and, on
// approval, the admitted phrase.
type VoteResult struct {
	Status   VoteStatus       `json:"status"`
	Likes    int              `json:"likes"`
	Dislikes int              `json:"dislikes"`
	Quorum   int              `json:"quorum"`
	Phrase   *domain.Phrase   `json:"phrase,omitempty"`
	Proposal *domain.Proposal `json:"proposal,omitempty"`
}

// Thresholds are the similarity cut-offs (0..100) above which a submission
// is rejected as a duplicate of, respectively, the approved catalog, an
// in-flight proposal, or a previously rejected one.
type Thresholds struct {
	Catalog        int
	OpenProposal   int
	ClosedProposal int
}

// DefaultThresholds matches the production configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{Catalog: 90, OpenProposal: 90, ClosedProposal: 90}
}

// ProposalService owns the proposal lifecycle. The curator set is fetched
// from the CuratorSource and cached with a bounded TTL; the cache is
// refreshed opportunistically on each resolve and tolerates being missing.
type ProposalService struct {
	DB       *gorm.DB
	Phrases  *PhraseService
	Users    *UserService
	Badges   *BadgeService
	Notifier Notifier
	Curators CuratorSource

	// CuratorGroup is the external group ref resolved to the curator set;
	// CuratorChannel is the notify target for curator-facing messages.
	CuratorGroup   string
	CuratorChannel string
	CuratorTTL     time.Duration

	Thresholds Thresholds
	Clock      Clock

	mu            sync.Mutex
	curatorCache  []string
	curatorsSince time.Time
}

func (s *ProposalService) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}

// ProposalID derives the stable proposal id from its origin chat and
// message, which makes retried submissions land on the same row.
func ProposalID(originChatID, originMessageID string) string {
	return fmt.Sprintf("%s:%s", originChatID, originMessageID)
}

// curators returns the current curator set, re-fetching when the cached
// copy is older than the TTL. On fetch failure a stale cache is served; with
// no cache at all the failure surfaces as external_unavailable.
func (s *ProposalService) curators(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	cached := s.curatorCache
	fresh := !s.curatorsSince.IsZero() && s.now().Sub(s.curatorsSince) < s.CuratorTTL
	s.mu.Unlock()

	if fresh && cached != nil {
		return cached, nil
	}

	set, err := s.Curators.Curators(ctx, s.CuratorGroup)
	if err != nil {
		if cached != nil {
			log.Warn().Err(err).Msg("curator refresh failed, serving stale set")
			return cached, nil
		}
		return nil, ErrExternalUnavailable
	}

	s.mu.Lock()
	s.curatorCache = set
	s.curatorsSince = s.now()
	s.mu.Unlock()
	return set, nil
}

// quorum computes the required votes for the given curator set size.
func quorum(curators int) int { return curators/2 + 1 }

// Submit runs the duplicate filters in order (approved catalog, open
// proposals, closed proposals) and persists the proposal only when all of
// them pass. On acceptance it records a propose event for the author,
// re-evaluates badges, and pings the curator channel.
func (s *ProposalService) Submit(ctx context.Context, authorID, platform, kind, text, originChatID, originMessageID string) (*SubmitResult, error) {
	tr := otel.Tracer("services/ProposalService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("author.id", authorID),
			attribute.String("phrase.kind", kind),
		),
	)
	defer span.End()

	if kind != domain.KindShort && kind != domain.KindLong {
		return nil, ErrInvalidInput
	}
	norm := match.Normalize(text)
	if norm == "" {
		return &SubmitResult{Outcome: SubmitEmptyText}, nil
	}

	// (a) approved catalog
	catalog, err := s.Phrases.Catalog(ctx, kind)
	if err != nil {
		return nil, err
	}
	cands := make([]match.Candidate, len(catalog))
	for i, p := range catalog {
		cands[i] = match.Candidate{ID: p.ID, Text: p.NormText, Score: p.Score}
	}
	if best, ratio, ok := match.Best(norm, cands); ok && ratio >= s.Thresholds.Catalog {
		return &SubmitResult{
			Outcome:    SubmitDuplicateCatalog,
			MatchText:  textOfPhrase(catalog, best.ID),
			MatchID:    best.ID,
			MatchRatio: ratio,
		}, nil
	}

	// (b) open proposals
	open, err := repo.ListOpenProposals(ctx, s.DB, kind)
	if err != nil {
		return nil, err
	}
	if p, ratio, ok := bestProposal(norm, open); ok && ratio >= s.Thresholds.OpenProposal {
		return &SubmitResult{Outcome: SubmitDuplicateOpen, MatchText: p.Text, MatchRatio: ratio}, nil
	}

	// (c) closed proposals
	closed, err := repo.ListClosedProposals(ctx, s.DB, kind)
	if err != nil {
		return nil, err
	}
	if p, ratio, ok := bestProposal(norm, closed); ok && ratio >= s.Thresholds.ClosedProposal {
		return &SubmitResult{Outcome: SubmitDuplicateClosed, MatchText: p.Text, MatchRatio: ratio}, nil
	}

	prop := &domain.Proposal{
		ID:              ProposalID(originChatID, originMessageID),
		Kind:            kind,
		Text:            text,
		NormText:        norm,
		AuthorID:        authorID,
		OriginChatID:    originChatID,
		OriginMessageID: originMessageID,
		CreatedAt:       s.now().UTC(),
	}
	if err := repo.CreateProposal(ctx, s.DB, prop); err != nil {
		if existing, gerr := repo.GetProposal(ctx, s.DB, prop.ID); gerr == nil {
			// retried submit of the same origin message
			return &SubmitResult{Outcome: SubmitAccepted, Proposal: existing}, nil
		}
		return nil, err
	}

	if _, err := repo.AppendEvent(ctx, s.DB, authorID, platform, domain.ActionPropose, nil, prop.ID); err != nil {
		return nil, err
	}
	if _, err := s.Badges.Evaluate(ctx, authorID); err != nil {
		log.Warn().Err(err).Str("user_id", authorID).Msg("badge evaluation failed after propose")
	}
	s.notify(ctx, s.CuratorChannel, fmt.Sprintf("Nueva propuesta (%s): «%s»", kind, text))

	return &SubmitResult{Outcome: SubmitAccepted, Proposal: prop}, nil
}

// Vote moves the voter onto the requested side (sign is +1 or -1) and then
// resolves the proposal against the current quorum. Voting on a resolved
// proposal fails with ErrAlreadyResolved and mutates nothing; voters must
// be in the current curator set, though votes already cast survive curator
// churn.
func (s *ProposalService) Vote(ctx context.Context, voterID, proposalID string, sign int) (*VoteResult, error) {
	tr := otel.Tracer("services/ProposalService")
	ctx, span := tr.Start(ctx, "Vote",
		trace.WithAttributes(
			attribute.String("proposal.id", proposalID),
			attribute.String("voter.id", voterID),
			attribute.Int("sign", sign),
		),
	)
	defer span.End()

	if sign != 1 && sign != -1 {
		return nil, ErrInvalidInput
	}

	prop, err := repo.GetProposal(ctx, s.DB, proposalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if closed, cerr := repo.GetProposalAny(ctx, s.DB, proposalID); cerr == nil && closed.VotingEnded {
				return nil, ErrAlreadyResolved
			}
			return nil, ErrNotFound
		}
		return nil, err
	}
	if prop.VotingEnded {
		return nil, ErrAlreadyResolved
	}

	set, err := s.curators(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(set, voterID) {
		return nil, ErrNotCurator
	}

	changed, err := repo.UpsertVote(ctx, s.DB, proposalID, voterID, sign)
	if err != nil {
		return nil, err
	}
	if changed {
		if _, err := repo.AppendEvent(ctx, s.DB, voterID, "", domain.ActionVote, nil, proposalID); err != nil {
			return nil, err
		}
	}

	return s.Resolve(ctx, proposalID)
}

// Resolve re-reads the proposal and tallies, refreshes the curator set, and
// applies a terminal transition when either side holds quorum. The like
// side is checked first; transitions are irreversible.
func (s *ProposalService) Resolve(ctx context.Context, proposalID string) (*VoteResult, error) {
	prop, err := repo.GetProposal(ctx, s.DB, proposalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlreadyResolved
		}
		return nil, err
	}
	if prop.VotingEnded {
		return nil, ErrAlreadyResolved
	}

	set, err := s.curators(ctx)
	if err != nil {
		return nil, err
	}
	q := quorum(len(set))

	likes, dislikes, err := repo.CountVotes(ctx, s.DB, proposalID)
	if err != nil {
		return nil, err
	}
	res := &VoteResult{
		Status:   VoteOpen,
		Likes:    int(likes),
		Dislikes: int(dislikes),
		Quorum:   q,
		Proposal: prop,
	}

	switch {
	case int(likes) >= q:
		phrase, err := s.approve(ctx, prop, int(likes), int(dislikes))
		if err != nil {
			return nil, err
		}
		res.Status = VoteApproved
		res.Phrase = phrase
	case int(dislikes) >= q:
		if err := s.reject(ctx, prop); err != nil {
			return nil, err
		}
		res.Status = VoteRejected
	}
	return res, nil
}

// approve admits the phrase, credits and badges the author, notifies, and
// closes the proposal last so an interrupted run stays replayable.
func (s *ProposalService) approve(ctx context.Context, prop *domain.Proposal, likes, dislikes int) (*domain.Phrase, error) {
	phrase, err := s.Phrases.Admit(ctx, prop, likes, dislikes)
	if err != nil {
		return nil, err
	}
	if err := s.Users.Credit(ctx, prop.AuthorID, ApprovalPoints); err != nil {
		return nil, err
	}
	if _, err := repo.AppendEvent(ctx, s.DB, prop.AuthorID, "", domain.ActionApprove, &phrase.ID, prop.ID); err != nil {
		return nil, err
	}
	if _, err := s.Badges.Evaluate(ctx, prop.AuthorID); err != nil {
		log.Warn().Err(err).Str("user_id", prop.AuthorID).Msg("badge evaluation failed after approve")
	}

	s.notify(ctx, prop.OriginChatID, fmt.Sprintf("¡Aprobada! «%s» ya está en el catálogo.", prop.Text))
	s.notify(ctx, s.CuratorChannel, fmt.Sprintf("Propuesta %s aprobada (%d a favor, %d en contra).", prop.ID, likes, dislikes))

	return phrase, repo.EndVoting(ctx, s.DB, prop.ID, s.now().UTC())
}

// reject closes the proposal, records the event, and tells the author.
func (s *ProposalService) reject(ctx context.Context, prop *domain.Proposal) error {
	if err := repo.EndVoting(ctx, s.DB, prop.ID, s.now().UTC()); err != nil {
		return err
	}
	if _, err := repo.AppendEvent(ctx, s.DB, prop.AuthorID, "", domain.ActionReject, nil, prop.ID); err != nil {
		return err
	}
	if _, err := s.Badges.Evaluate(ctx, prop.AuthorID); err != nil {
		log.Warn().Err(err).Str("user_id", prop.AuthorID).Msg("badge evaluation failed after reject")
	}
	s.notify(ctx, prop.OriginChatID, fmt.Sprintf("Los curadores han rechazado «%s». Otra vez será.", prop.Text))
	return nil
}

// notify sends best-effort; failures are logged and silenced so platform
// hiccups never poison a resolution.
func (s *ProposalService) notify(ctx context.Context, target, text string) {
	if s.Notifier == nil || target == "" {
		return
	}
	if err := s.Notifier.Message(ctx, target, text); err != nil {
		log.Warn().Err(err).Str("target", target).Msg("notify failed")
	}
}

// bestProposal scans proposals for the closest normalized text. Ties keep
// the earliest id, mirroring match.Best determinism.
func bestProposal(norm string, props []domain.Proposal) (domain.Proposal, int, bool) {
	best, ratio := domain.Proposal{}, -1
	for _, p := range props {
		nt := p.NormText
		if nt == "" {
			nt = match.Normalize(p.Text)
		}
		if r := match.Ratio(norm, nt); r > ratio {
			best, ratio = p, r
		}
	}
	if ratio < 0 {
		return domain.Proposal{}, 0, false
	}
	return best, ratio, true
}

// textOfPhrase resolves a phrase id back to its display text within an
// already-loaded catalog slice.
func textOfPhrase(catalog []domain.Phrase, id uint) string {
	for _, p := range catalog {
		if p.ID == id {
			return p.Text
		}
	}
	return ""
}
