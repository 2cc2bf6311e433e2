// Package services – PhraseService
//
// This file implements the PhraseService, which owns the approved phrase
// catalog: uniform random selection, normalized substring search, usage
// accounting, and admission of approved proposals. A per-kind in-memory
// cache backs the read paths; every write to a kind invalidates that kind's
// cache, and a missing cache is rebuilt from the store.
package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/cunaobot/go-cunao-backend/internal/domain"
	"github.com/cunaobot/go-cunao-backend/internal/match"
	"github.com/cunaobot/go-cunao-backend/internal/repo"
)

// Sentinel texts returned by Random on an empty catalog, one per kind, so
// downstream formatting never has to handle a missing phrase.
const (
	SentinelShortText = "maquina"
	SentinelLongText  = "Esto antes era todo campo."
)

// PointsPerLikeDelta is the score weight of the vote balance at admission:
// score = usages + 5*(likes - dislikes).
const PointsPerLikeDelta = 5

// stickerPackByKind maps a phrase kind to the pack template used when the
// sticker pipeline is wired. Long phrases render poorly on stickers and get
// no pack.
var stickerPackByKind = map[string]string{
	domain.KindShort: "cunao_apelativos_by_%s",
}

// PhraseService provides catalog-level operations. All methods are safe for
// concurrent use; the cache tolerates staleness between a store write and
// the matching invalidation.
type PhraseService struct {
	DB *gorm.DB

	// Optional sticker pipeline, exercised on admission of short phrases.
	Renderer StickerRenderer
	Uploader StickerUploader

	mu    sync.Mutex
	cache map[string][]domain.Phrase
}

// NewPhraseService constructs a PhraseService over the given handle.
func NewPhraseService(db *gorm.DB) *PhraseService {
	return &PhraseService{DB: db, cache: make(map[string][]domain.Phrase)}
}

// Catalog returns every approved phrase of a kind, from cache when warm.
// The returned slice must not be mutated by callers.
func (s *PhraseService) Catalog(ctx context.Context, kind string) ([]domain.Phrase, error) {
	if kind != domain.KindShort && kind != domain.KindLong {
		return nil, ErrInvalidInput
	}
	s.mu.Lock()
	cached, ok := s.cache[kind]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	phrases, err := repo.ListPhrases(ctx, s.DB, kind)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[kind] = phrases
	s.mu.Unlock()
	return phrases, nil
}

// invalidate drops the cached catalog for a kind. Called after every write.
func (s *PhraseService) invalidate(kind string) {
	s.mu.Lock()
	delete(s.cache, kind)
	s.mu.Unlock()
}

// Random returns a uniformly selected phrase of the kind. On an empty
// catalog it returns a sentinel phrase (id 0) with a known text, never an
// error, so callers can always reply with something.
func (s *PhraseService) Random(ctx context.Context, kind string) (*domain.Phrase, error) {
	phrases, err := s.Catalog(ctx, kind)
	if err != nil {
		return nil, err
	}
	if len(phrases) == 0 {
		text := SentinelShortText
		if kind == domain.KindLong {
			text = SentinelLongText
		}
		return &domain.Phrase{Kind: kind, Text: text, NormText: match.Normalize(text)}, nil
	}
	p := phrases[rand.IntN(len(phrases))]
	return &p, nil
}

// Search returns all phrases of the kind whose normalized text contains the
// normalized query as a substring. An empty normalized query matches
// nothing.
func (s *PhraseService) Search(ctx context.Context, kind, query string) ([]domain.Phrase, error) {
	norm := match.Normalize(query)
	if norm == "" {
		return []domain.Phrase{}, nil
	}
	phrases, err := s.Catalog(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Phrase, 0, 8)
	for _, p := range phrases {
		if strings.Contains(p.NormText, norm) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListPage returns a page of phrases for a kind ordered by score, plus the
// total, for the browse surface.
func (s *PhraseService) ListPage(ctx context.Context, kind string, page, pageSize int) ([]domain.Phrase, int64, error) {
	if kind != domain.KindShort && kind != domain.KindLong {
		return nil, 0, ErrInvalidInput
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountPhrases(ctx, s.DB, kind)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Phrase{}, 0, nil
	}
	items, err := repo.ListPhrasesPage(ctx, s.DB, kind, offset, pageSize)
	return items, total, err
}

// RegisterUse records one use of a phrase: usages and score always advance
// by one, audio and sticker uses also advance their kind-specific counter.
// The phrase is re-read from the store before mutation.
func (s *PhraseService) RegisterUse(ctx context.Context, phraseID uint, useKind string) (*domain.Phrase, error) {
	p, err := repo.GetPhrase(ctx, s.DB, phraseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	p.Usages++
	p.Score++
	switch useKind {
	case domain.ActionAudio:
		p.AudioUsages++
	case domain.ActionSticker:
		p.StickerUsages++
	case domain.ActionPhrase, "text", "":
		// plain text use, no extra counter
	default:
		return nil, ErrInvalidInput
	}

	if err := repo.SavePhrase(ctx, s.DB, p); err != nil {
		return nil, err
	}
	s.invalidate(p.Kind)
	return p, nil
}

// Admit turns an approved proposal into a catalog phrase with initial
// score 5*(likes-dislikes). Admission is idempotent per proposal: if a
// phrase already carries this proposal's id, that phrase is returned, which
// keeps a replayed approval from duplicating the entry.
//
// For short phrases the sticker pipeline runs best-effort after the phrase
// is persisted; its failures are logged and silenced.
func (s *PhraseService) Admit(ctx context.Context, prop *domain.Proposal, likes, dislikes int) (*domain.Phrase, error) {
	var existing domain.Phrase
	err := s.DB.WithContext(ctx).
		Where("origin_proposal_id = ?", prop.ID).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	score := PointsPerLikeDelta * (likes - dislikes)
	p := &domain.Phrase{
		Kind:             prop.Kind,
		Text:             prop.Text,
		NormText:         prop.NormText,
		AuthorID:         &prop.AuthorID,
		OriginChatID:     &prop.OriginChatID,
		OriginProposalID: &prop.ID,
		Score:            score,
		CreatedAt:        time.Now().UTC(),
	}
	if p.NormText == "" {
		p.NormText = match.Normalize(p.Text)
	}
	if err := repo.CreatePhrase(ctx, s.DB, p); err != nil {
		return nil, err
	}
	s.invalidate(p.Kind)

	s.publishSticker(ctx, p)
	return p, nil
}

// publishSticker renders and uploads a sticker for the phrase when the
// pipeline is wired and the kind has a pack template.
func (s *PhraseService) publishSticker(ctx context.Context, p *domain.Phrase) {
	pack, ok := stickerPackByKind[p.Kind]
	if !ok || s.Renderer == nil || s.Uploader == nil {
		return
	}
	img, err := s.Renderer.Generate(ctx, p.Text)
	if err != nil {
		log.Warn().Err(err).Uint("phrase_id", p.ID).Msg("sticker render failed")
		return
	}
	ref, err := s.Uploader.Publish(ctx, img, pack)
	if err != nil {
		log.Warn().Err(err).Uint("phrase_id", p.ID).Msg("sticker publish failed")
		return
	}
	log.Info().Uint("phrase_id", p.ID).Str("sticker", ref).Msg("sticker published")
}
