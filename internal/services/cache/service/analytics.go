package service

import (
	"fmt"
	"sort"
	"time"

	perr "picktrack/internal/platform/errors"
	"picktrack/internal/platform/logger"
	ptime "picktrack/internal/platform/time"
	"picktrack/internal/services/cache/domain"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Bounds on per key history
const (
	accessWindow = 100
	fillWindow   = 32
)

// maxTrackedKeys caps per key stats; past it the least recently read key is dropped
var maxTrackedKeys = 4096

// ring keeps the last n values, oldest overwritten first
type ring[T any] struct {
	items []T
	head  int
	size  int
}

func newRing[T any](size int) ring[T] { return ring[T]{items: make([]T, 0, size), size: size} }

func (r *ring[T]) push(v T) {
	if len(r.items) < r.size {
		r.items = append(r.items, v)
		return
	}
	r.items[r.head] = v
	r.head = (r.head + 1) % r.size
}

func (r *ring[T]) len() int { return len(r.items) }

func (r *ring[T]) each(fn func(T)) {
	for _, v := range r.items {
		fn(v)
	}
}

type statKey struct {
	table string
	key   string
}

type keyStats struct {
	hits     int
	misses   int
	missAt   time.Time
	fills    ring[float64]
	accesses ring[time.Time]
	last     time.Time
}

// Rule is a named boolean expression over RuleEnv
type Rule struct {
	Name    string
	Expr    string
	Message string
}

// RuleEnv is what recommendation expressions can see for one key
type RuleEnv struct {
	Table     string  `expr:"table"`
	Key       string  `expr:"key"`
	Hits      int     `expr:"hits"`
	Misses    int     `expr:"misses"`
	Requests  int     `expr:"requests"`
	HitRate   float64 `expr:"hit_rate"`
	AvgFillMs float64 `expr:"avg_fill_ms"`
	Fills     int     `expr:"fills"`
	PerMin    float64 `expr:"per_min"`
	Freshness string  `expr:"freshness"`
}

// DefaultRules are the built in recommendations
var DefaultRules = []Rule{
	{Name: "low_hit_rate", Expr: `requests >= 10 && hit_rate < 0.70`, Message: "hit rate %.0f%% is below 70%%, prefetch this key earlier"},
	{Name: "slow_fill", Expr: `fills > 0 && avg_fill_ms > 2000`, Message: "misses take %.0fms to refill on average"},
	{Name: "hot_key", Expr: `per_min > 30`, Message: "read %.0f times in the last minute"},
	{Name: "stale_hot", Expr: `per_min > 5 && freshness in ["STALE", "EXPIRED"]`, Message: "busy key served %s data, refresh it"},
}

type compiledRule struct {
	Rule
	program *vm.Program
}

type analytics struct {
	keys   map[statKey]*keyStats
	hits   int
	misses int
	rules  []compiledRule
	log    *logger.Logger
}

// compileRules checks every rule once, a bad rule is an invalid argument
func compileRules(rules []Rule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		p, err := expr.Compile(r.Expr, expr.Env(RuleEnv{}), expr.AsBool())
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "compile rule %s", r.Name)
		}
		out = append(out, compiledRule{Rule: r, program: p})
	}
	return out, nil
}

func newAnalytics(rules []compiledRule, log *logger.Logger) *analytics {
	return &analytics{keys: map[statKey]*keyStats{}, rules: rules, log: log}
}

func (a *analytics) stats(table, key string) *keyStats {
	k := statKey{table, key}
	ks, ok := a.keys[k]
	if !ok {
		if len(a.keys) >= maxTrackedKeys {
			a.evictColdest()
		}
		ks = &keyStats{fills: newRing[float64](fillWindow), accesses: newRing[time.Time](accessWindow)}
		a.keys[k] = ks
	}
	return ks
}

func (a *analytics) evictColdest() {
	var (
		cold  statKey
		found bool
		at    time.Time
	)
	for k, ks := range a.keys {
		if !found || ks.last.Before(at) {
			cold, at, found = k, ks.last, true
		}
	}
	if found {
		delete(a.keys, cold)
	}
}

func (a *analytics) access(table, key string, hit bool, now time.Time) {
	ks := a.stats(table, key)
	ks.accesses.push(now)
	ks.last = now
	if hit {
		ks.hits++
		a.hits++
		return
	}
	ks.misses++
	a.misses++
	if ks.missAt.IsZero() {
		ks.missAt = now
	}
}

// filled closes a pending miss with the time it took the caller to write back
func (a *analytics) filled(table, key string, now time.Time) {
	ks, ok := a.keys[statKey{table, key}]
	if !ok || ks.missAt.IsZero() {
		return
	}
	ks.fills.push(float64(now.Sub(ks.missAt)) / float64(time.Millisecond))
	ks.missAt = time.Time{}
}

func (a *analytics) forget(table, key string) { delete(a.keys, statKey{table, key}) }

func (a *analytics) reset() {
	a.keys = map[statKey]*keyStats{}
	a.hits, a.misses = 0, 0
}

func rate(hits, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func (ks *keyStats) avgFill() float64 {
	if ks.fills.len() == 0 {
		return 0
	}
	var sum float64
	ks.fills.each(func(v float64) { sum += v })
	return sum / float64(ks.fills.len())
}

func (ks *keyStats) perMinute(now time.Time) float64 {
	cut := now.Add(-time.Minute)
	n := 0
	ks.accesses.each(func(t time.Time) {
		if t.After(cut) {
			n++
		}
	})
	return float64(n)
}

// report snapshots the counters, freshness names the live entry band
func (a *analytics) report(now time.Time, freshness func(table, key string) string) domain.Report {
	rep := domain.Report{
		GeneratedAt:     now,
		Hits:            a.hits,
		Misses:          a.misses,
		HitRate:         rate(a.hits, a.hits+a.misses),
		Keys:            make([]domain.KeyStats, 0, len(a.keys)),
		Recommendations: []domain.Recommendation{},
	}
	for k, ks := range a.keys {
		st := domain.KeyStats{
			Table:          k.table,
			Key:            k.key,
			Hits:           ks.hits,
			Misses:         ks.misses,
			HitRate:        rate(ks.hits, ks.hits+ks.misses),
			AvgFillMs:      ks.avgFill(),
			AccessesPerMin: ks.perMinute(now),
			LastAccess:     ptime.Ptr(ks.last),
			Freshness:      freshness(k.table, k.key),
		}
		rep.Keys = append(rep.Keys, st)
		rep.Recommendations = append(rep.Recommendations, a.recommend(st, ks.fills.len())...)
	}
	sort.Slice(rep.Keys, func(i, j int) bool {
		if rep.Keys[i].Table != rep.Keys[j].Table {
			return rep.Keys[i].Table < rep.Keys[j].Table
		}
		return rep.Keys[i].Key < rep.Keys[j].Key
	})
	sort.Slice(rep.Recommendations, func(i, j int) bool {
		ri, rj := rep.Recommendations[i], rep.Recommendations[j]
		if ri.Table != rj.Table {
			return ri.Table < rj.Table
		}
		if ri.Key != rj.Key {
			return ri.Key < rj.Key
		}
		return ri.Rule < rj.Rule
	})
	return rep
}

func (a *analytics) recommend(st domain.KeyStats, fills int) []domain.Recommendation {
	env := RuleEnv{
		Table:     st.Table,
		Key:       st.Key,
		Hits:      st.Hits,
		Misses:    st.Misses,
		Requests:  st.Requests(),
		HitRate:   st.HitRate,
		AvgFillMs: st.AvgFillMs,
		Fills:     fills,
		PerMin:    st.AccessesPerMin,
		Freshness: st.Freshness,
	}
	var out []domain.Recommendation
	for _, r := range a.rules {
		fired, err := evalRule(r, env)
		if err != nil {
			a.log.Warn().Err(err).Str("rule", r.Name).Str("table", st.Table).Str("key", st.Key).Msg("recommendation rule failed")
			continue
		}
		if !fired {
			continue
		}
		out = append(out, domain.Recommendation{
			Rule:    r.Name,
			Table:   st.Table,
			Key:     st.Key,
			Message: ruleMessage(r, env),
		})
	}
	return out
}

func evalRule(r compiledRule, env RuleEnv) (fired bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = perr.PanicErrf("rule %s panicked: %v", r.Name, rec)
		}
	}()
	v, err := expr.Run(r.program, env)
	if err != nil {
		return false, perr.Wrapf(err, perr.ErrorCodeUnknown, "run rule %s", r.Name)
	}
	b, _ := v.(bool)
	return b, nil
}

func ruleMessage(r compiledRule, env RuleEnv) string {
	switch r.Name {
	case "low_hit_rate":
		return fmt.Sprintf(r.Message, env.HitRate*100)
	case "slow_fill":
		return fmt.Sprintf(r.Message, env.AvgFillMs)
	case "hot_key":
		return fmt.Sprintf(r.Message, env.PerMin)
	case "stale_hot":
		return fmt.Sprintf(r.Message, env.Freshness)
	default:
		return r.Message
	}
}
