package priority

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
)

// Fixed weights, summing to 100. Changing one means changing the scenario
// tests that pin computed scores.
const (
	weightTime       = 0.30
	weightSeverity   = 0.25
	weightAmount     = 0.15
	weightEffort     = 0.15
	weightDependency = 0.10
	weightBoost      = 0.05
)

// severityByDomain is a fixed lookup; finance and legal carry the highest
// risk, health next, personal and work the baseline.
var severityByDomain = map[string]float64{
	domain.DomainFinance:  90,
	domain.DomainLegal:    90,
	domain.DomainHealth:   70,
	domain.DomainPersonal: 50,
	domain.DomainWork:     50,
}

// Inputs are the priority computation inputs. Score is a pure function of
// this struct; Now is passed in rather than read from the clock so scoring
// stays deterministic and testable.
type Inputs struct {
	DueDate        *time.Time
	Domain         string
	AmountUSD      *float64
	EstimatedHours *float64
	Blocked        bool
	UserBoost      bool
	Now            time.Time
}

// Score returns the 0-100 integer priority and the regenerated human-readable
// reason. The reason is derived from the same sub-scores as the number, so the
// two cannot drift apart.
func Score(in Inputs) (int, string) {
	tp := timePressure(in.DueDate, in.Now)
	sev := severity(in.Domain)
	amt := amountScore(in.AmountUSD)
	eff := effortScore(in.EstimatedHours)
	dep := 100.0
	if in.Blocked {
		dep = 0
	}
	boost := 0.0
	if in.UserBoost {
		boost = 100
	}

	total := weightTime*tp +
		weightSeverity*sev +
		weightAmount*amt +
		weightEffort*eff +
		weightDependency*dep +
		weightBoost*boost
	score := int(math.Round(total))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return score, reason(in, tp, sev, eff, boost)
}

// timePressure decreases linearly with days until due; overdue saturates at
// 100 and missing due dates sit at a low default.
func timePressure(due *time.Time, now time.Time) float64 {
	if due == nil {
		return 20
	}
	days := due.Sub(now).Hours() / 24
	if days <= 0 {
		return 100
	}
	tp := 100 - 5*days
	if tp < 10 {
		return 10
	}
	return tp
}

func severity(d string) float64 {
	if s, ok := severityByDomain[d]; ok {
		return s
	}
	return 50
}

// amountScore maps absolute value onto decade buckets: log-scaled with
// diminishing returns, and exactly reproducible.
func amountScore(amount *float64) float64 {
	if amount == nil || *amount <= 0 {
		return 10
	}
	v := math.Abs(*amount)
	switch {
	case v < 10:
		return 20
	case v < 100:
		return 35
	case v < 1_000:
		return 50
	case v < 10_000:
		return 60
	case v < 100_000:
		return 70
	case v < 1_000_000:
		return 85
	default:
		return 100
	}
}

// effortScore is inverse-scaled: small tasks float up, long ones sink.
// Missing effort sits at the neutral midpoint.
func effortScore(hours *float64) float64 {
	if hours == nil || *hours <= 0 {
		return 50
	}
	eff := 100 - 10*(*hours)
	if eff < 0 {
		return 0
	}
	return eff
}

type factor struct {
	contribution float64
	order        int
	text         string
}

// reason names the top contributing factors, amount appended when present.
func reason(in Inputs, tp, sev, eff, boost float64) string {
	factors := []factor{
		{contribution: weightTime * tp, order: 0, text: dueText(in.DueDate, in.Now)},
		{contribution: weightSeverity * sev, order: 1, text: in.Domain + " risk"},
		{contribution: weightEffort * eff, order: 2, text: effortText(in.EstimatedHours)},
		{contribution: weightBoost * boost, order: 3, text: "manually boosted"},
	}
	sort.SliceStable(factors, func(i, j int) bool {
		if factors[i].contribution != factors[j].contribution {
			return factors[i].contribution > factors[j].contribution
		}
		return factors[i].order < factors[j].order
	})

	parts := make([]string, 0, 3)
	for _, f := range factors {
		if f.text == "" {
			continue
		}
		parts = append(parts, f.text)
		if len(parts) == 2 {
			break
		}
	}
	if in.AmountUSD != nil && *in.AmountUSD > 0 {
		parts = append(parts, formatUSD(*in.AmountUSD))
	}
	if in.Blocked {
		parts = append(parts, "blocked by another commitment")
	}
	if len(parts) == 0 {
		return "No strong signals"
	}
	s := strings.Join(parts, ", ")
	return strings.ToUpper(s[:1]) + s[1:]
}

func dueText(due *time.Time, now time.Time) string {
	if due == nil {
		return ""
	}
	days := int(math.Ceil(due.Sub(now).Hours() / 24))
	switch {
	case days < 0:
		return fmt.Sprintf("overdue by %d days", -days)
	case days == 0:
		return "due today"
	case days == 1:
		return "due in 1 day"
	default:
		return fmt.Sprintf("due in %d days", days)
	}
}

func effortText(hours *float64) string {
	if hours == nil || *hours <= 0 {
		return ""
	}
	if *hours <= 2 {
		return "quick to clear"
	}
	return ""
}

func formatUSD(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	dot := strings.Index(s, ".")
	intPart, frac := s[:dot], s[dot:]
	var b strings.Builder
	n := len(intPart)
	for i, r := range intPart {
		b.WriteRune(r)
		rem := n - i - 1
		if rem > 0 && rem%3 == 0 {
			b.WriteByte(',')
		}
	}
	return "$" + b.String() + frac
}
