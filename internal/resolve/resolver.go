package resolve

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/documents"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/parties"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/pgutil"
)

// Tier names the cascade stage that produced a match.
type Tier string

const (
	TierIDExact     Tier = "id_exact"
	TierNameExact   Tier = "name_exact"
	TierNameFuzzy   Tier = "name_fuzzy"
	TierNameAddress Tier = "name_address"
	TierCreated     Tier = "created"
)

// Candidate is an extracted counterparty description. Name is required;
// everything else is best-effort extraction output.
type Candidate struct {
	Kind    string
	Name    string
	TaxID   *string
	Address *string
	Email   *string
	Phone   *string
}

// MatchResult carries the tier and confidence together with the party so a
// caller cannot observe a matched/confidence combination that never happened.
type MatchResult struct {
	Party      *domain.Party
	Tier       Tier
	Confidence float64
	// NeedsMergeReview is set when the party was created even though an
	// existing row scored just below the fuzzy threshold.
	NeedsMergeReview bool
}

func (m MatchResult) Matched() bool { return m.Tier != TierCreated }

type Resolver struct {
	log     *logger.Logger
	cfg     Config
	parties parties.PartyRepo
	links   documents.DocumentLinkRepo
}

func NewResolver(cfg Config, partyRepo parties.PartyRepo, linkRepo documents.DocumentLinkRepo, baseLog *logger.Logger) *Resolver {
	return &Resolver{
		log:     baseLog.With("service", "Resolver"),
		cfg:     cfg,
		parties: partyRepo,
		links:   linkRepo,
	}
}

// Resolve maps a candidate onto an existing party or creates a new one,
// walking the cascade strictly in tier order. It must run inside the caller's
// transaction (dbc.Tx set) so creation races collapse onto the storage-layer
// unique constraints.
func (r *Resolver) Resolve(dbc dbctx.Context, cand Candidate) (MatchResult, error) {
	if strings.TrimSpace(cand.Name) == "" {
		return MatchResult{}, fmt.Errorf("candidate name required")
	}
	kind := cand.Kind
	if kind == "" {
		kind = domain.PartyKindOrganization
	}
	normalized := NormalizeName(cand.Name)

	// Tier 1: exact identifier. Authoritative, short-circuits everything.
	if cand.TaxID != nil && strings.TrimSpace(*cand.TaxID) != "" {
		p, err := r.parties.GetByTaxID(dbc, strings.TrimSpace(*cand.TaxID))
		if err != nil {
			return MatchResult{}, err
		}
		if p != nil {
			return r.matched(dbc, p, TierIDExact, 1.0, cand)
		}
	}

	// Tier 2: exact normalized name within kind.
	p, err := r.parties.GetByNormalizedName(dbc, kind, normalized)
	if err != nil {
		return MatchResult{}, err
	}
	if p != nil {
		return r.matched(dbc, p, TierNameExact, r.cfg.ExactNameConfidence, cand)
	}

	// Tiers 3 and 4 share one scan of the kind's registry.
	peers, err := r.parties.ListByKind(dbc, kind)
	if err != nil {
		return MatchResult{}, err
	}

	best, fuzzyScore, err := r.bestFuzzy(dbc, normalized, peers)
	if err != nil {
		return MatchResult{}, err
	}
	if best != nil && fuzzyScore >= r.cfg.FuzzyThreshold {
		return r.matched(dbc, best, TierNameFuzzy, fuzzyScore, cand)
	}

	if cand.Address != nil {
		if best, score, err := r.bestCombined(dbc, normalized, *cand.Address, peers); err != nil {
			return MatchResult{}, err
		} else if best != nil && score >= r.cfg.CombinedThreshold {
			return r.matched(dbc, best, TierNameAddress, score, cand)
		}
	}

	nearMiss := best != nil && fuzzyScore >= r.cfg.FuzzyThreshold-r.cfg.ReviewMargin
	return r.create(dbc, kind, normalized, cand, nearMiss)
}

func (r *Resolver) matched(dbc dbctx.Context, p *domain.Party, tier Tier, confidence float64, cand Candidate) (MatchResult, error) {
	if err := r.parties.EnrichContact(dbc, p.ID, cand.Address, cand.Email, cand.Phone); err != nil {
		return MatchResult{}, err
	}
	return MatchResult{Party: p, Tier: tier, Confidence: confidence}, nil
}

func (r *Resolver) bestFuzzy(dbc dbctx.Context, normalized string, peers []*domain.Party) (*domain.Party, float64, error) {
	type scored struct {
		party *domain.Party
		score float64
	}
	var top []scored
	bestScore := 0.0
	for _, p := range peers {
		s := Similarity(r.cfg.Algorithm, normalized, p.NormalizedName)
		if s > bestScore {
			bestScore = s
			top = top[:0]
		}
		if s == bestScore && s > 0 {
			top = append(top, scored{party: p, score: s})
		}
	}
	if len(top) == 0 {
		return nil, 0, nil
	}
	if len(top) == 1 {
		return top[0].party, top[0].score, nil
	}

	// Exact tie: prefer the most established record, then lowest id.
	ids := make([]uuid.UUID, 0, len(top))
	for _, s := range top {
		ids = append(ids, s.party.ID)
	}
	counts, err := r.links.LinkCountByPartyIDs(dbc, ids)
	if err != nil {
		return nil, 0, err
	}
	winner := top[0]
	for _, s := range top[1:] {
		cw, cs := counts[winner.party.ID], counts[s.party.ID]
		if cs > cw || (cs == cw && s.party.ID.String() < winner.party.ID.String()) {
			winner = s
		}
	}
	return winner.party, winner.score, nil
}

func (r *Resolver) bestCombined(dbc dbctx.Context, normalized, address string, peers []*domain.Party) (*domain.Party, float64, error) {
	candTokens := AddressTokens(address)
	var best *domain.Party
	bestScore := 0.0
	for _, p := range peers {
		nameScore := Similarity(r.cfg.Algorithm, normalized, p.NormalizedName)
		addrScore := 0.0
		if p.Address != nil {
			addrScore = TokenOverlap(candTokens, AddressTokens(*p.Address))
		}
		combined := r.cfg.NameWeight*nameScore + r.cfg.AddressWeight*addrScore
		if combined > bestScore {
			best, bestScore = p, combined
		}
	}
	return best, bestScore, nil
}

// create is tier 5. Creation is serialized per (kind, normalized name) by an
// advisory lock; the unique constraints remain the source of truth, the lock
// only narrows the race window for heuristic near-misses. A nearMiss creation
// is flagged so the new row surfaces in merge review.
func (r *Resolver) create(dbc dbctx.Context, kind, normalized string, cand Candidate, nearMiss bool) (MatchResult, error) {
	if dbc.Tx != nil {
		if err := pgutil.AdvisoryXactLock(dbc.Tx, "party_create", kind+":"+normalized); err != nil {
			return MatchResult{}, err
		}
		// A concurrent creator may have committed while we waited.
		if p, err := r.parties.GetByNormalizedName(dbc, kind, normalized); err != nil {
			return MatchResult{}, err
		} else if p != nil {
			return r.matched(dbc, p, TierNameExact, r.cfg.ExactNameConfidence, cand)
		}
	}

	p := &domain.Party{
		Kind:           kind,
		Name:           strings.TrimSpace(cand.Name),
		NormalizedName: normalized,
		CreationSource: domain.PartySourceCreated,
		Address:        cand.Address,
		Email:          cand.Email,
		Phone:          cand.Phone,
	}
	if cand.TaxID != nil && strings.TrimSpace(*cand.TaxID) != "" {
		tid := strings.TrimSpace(*cand.TaxID)
		p.TaxID = &tid
	}

	// A failed insert poisons the enclosing transaction, so the conflict
	// re-reads below must run behind a savepoint.
	if dbc.Tx != nil {
		if err := dbc.Tx.SavePoint("resolve_party_create").Error; err != nil {
			return MatchResult{}, err
		}
	}

	err := r.parties.Create(dbc, p)
	if err == nil {
		if nearMiss {
			if flagErr := r.parties.FlagForMergeReview(dbc, p.ID); flagErr != nil {
				return MatchResult{}, flagErr
			}
			p.NeedsMergeReview = true
			r.log.Warn("party created near fuzzy threshold, flagged for merge review",
				"party_id", p.ID, "party_name", p.Name)
		}
		return MatchResult{Party: p, Tier: TierCreated, Confidence: 0, NeedsMergeReview: nearMiss}, nil
	}

	if dbc.Tx != nil {
		if rbErr := dbc.Tx.RollbackTo("resolve_party_create").Error; rbErr != nil {
			return MatchResult{}, rbErr
		}
	}

	switch {
	case pgutil.IsUniqueViolation(err, "uq_party_tax_id"):
		winner, readErr := r.parties.GetByTaxID(dbc, *p.TaxID)
		if readErr != nil || winner == nil {
			return MatchResult{}, fmt.Errorf("tax id conflict but winner unreadable: %w", err)
		}
		return r.matched(dbc, winner, TierIDExact, 1.0, cand)
	case pgutil.IsUniqueViolation(err, "uq_party_kind_normalized_name"):
		winner, readErr := r.parties.GetByNormalizedName(dbc, kind, normalized)
		if readErr != nil || winner == nil {
			return MatchResult{}, fmt.Errorf("name conflict but winner unreadable: %w", err)
		}
		return r.matched(dbc, winner, TierNameExact, r.cfg.ExactNameConfidence, cand)
	default:
		return MatchResult{}, err
	}
}
