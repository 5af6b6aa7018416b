package runner

// Scheduler decides which rules are searched in each iteration and
// whether their matches are kept.
//
// The runner calls Plan for every rule before the search phase, Observe
// for every searched rule after it, and CanStop when an iteration changed
// nothing. All three calls happen on the runner's goroutine.
type Scheduler interface {
	// Plan reports whether rule should be searched in iteration and with
	// what limit (0 means unlimited).
	Plan(iteration int, rule string) (search bool, limit int)

	// Observe is told how many substitutions rule found and reports
	// whether the matches should be applied.
	Observe(iteration int, rule string, found int) bool

	// CanStop reports whether saturation may be declared. A scheduler
	// that is holding rules back returns false and may release them.
	CanStop(iteration int) bool
}

// SimpleScheduler searches and applies every rule in every iteration.
type SimpleScheduler struct{}

// Plan implements Scheduler.
func (SimpleScheduler) Plan(int, string) (bool, int) { return true, 0 }

// Observe implements Scheduler.
func (SimpleScheduler) Observe(int, string, int) bool { return true }

// CanStop implements Scheduler.
func (SimpleScheduler) CanStop(int) bool { return true }

const (
	// DefaultMatchLimit is the number of substitutions a rule may produce
	// in one iteration before BackoffScheduler bans it.
	DefaultMatchLimit = 1000

	// DefaultBanLength is the number of iterations of a first ban.
	DefaultBanLength = 5
)

// ruleStats tracks the backoff state of one rule.
type ruleStats struct {
	timesApplied int
	bannedUntil  int
	timesBanned  int
	matchLimit   int
	banLength    int
}

// BackoffScheduler keeps explosive rules such as associativity from
// dominating the graph.
//
// A rule whose matches exceed its threshold in an iteration is banned:
// its matches are dropped and it is not searched for the ban length. Both
// the threshold and the ban length double with every ban. Bans are never
// permanent; when nothing else changes, CanStop fast-forwards every ban
// instead of declaring saturation.
type BackoffScheduler struct {
	defaultMatchLimit int
	defaultBanLength  int
	stats             map[string]*ruleStats
}

// BackoffOption configures a BackoffScheduler.
type BackoffOption func(*BackoffScheduler)

// WithMatchLimit sets the default initial match limit.
// Default: DefaultMatchLimit.
func WithMatchLimit(n int) BackoffOption {
	return func(s *BackoffScheduler) {
		s.defaultMatchLimit = n
	}
}

// WithBanLength sets the default initial ban length.
// Default: DefaultBanLength.
func WithBanLength(n int) BackoffOption {
	return func(s *BackoffScheduler) {
		s.defaultBanLength = n
	}
}

// WithRuleLimits overrides the match limit and ban length of one rule.
func WithRuleLimits(rule string, matchLimit, banLength int) BackoffOption {
	return func(s *BackoffScheduler) {
		st := s.ruleStats(rule)
		st.matchLimit = matchLimit
		st.banLength = banLength
	}
}

// DoNotBan exempts rule from banning.
func DoNotBan(rule string) BackoffOption {
	return WithRuleLimits(rule, -1, 0)
}

// NewBackoffScheduler creates a backoff scheduler.
func NewBackoffScheduler(opts ...BackoffOption) *BackoffScheduler {
	s := &BackoffScheduler{
		defaultMatchLimit: DefaultMatchLimit,
		defaultBanLength:  DefaultBanLength,
		stats:             make(map[string]*ruleStats),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ruleStats returns the stats of rule, creating them with the current
// defaults. Overrides set through options keep their values.
func (s *BackoffScheduler) ruleStats(rule string) *ruleStats {
	st, ok := s.stats[rule]
	if !ok {
		st = &ruleStats{}
		s.stats[rule] = st
	}
	return st
}

func (s *BackoffScheduler) limits(st *ruleStats) (matchLimit, banLength int) {
	matchLimit, banLength = st.matchLimit, st.banLength
	if matchLimit == 0 {
		matchLimit = s.defaultMatchLimit
	}
	if banLength == 0 {
		banLength = s.defaultBanLength
	}
	return matchLimit, banLength
}

// threshold returns the current match threshold of rule, or -1 if the
// rule is never banned.
func (s *BackoffScheduler) threshold(st *ruleStats) int {
	matchLimit, _ := s.limits(st)
	if matchLimit < 0 {
		return -1
	}
	return matchLimit << st.timesBanned
}

// Plan implements Scheduler.
func (s *BackoffScheduler) Plan(iteration int, rule string) (bool, int) {
	st := s.ruleStats(rule)
	if iteration < st.bannedUntil {
		return false, 0
	}
	threshold := s.threshold(st)
	if threshold < 0 {
		return true, 0
	}
	// One past the threshold is enough to know it was crossed.
	return true, threshold + 1
}

// Observe implements Scheduler.
func (s *BackoffScheduler) Observe(iteration int, rule string, found int) bool {
	st := s.ruleStats(rule)
	threshold := s.threshold(st)
	if threshold >= 0 && found > threshold {
		_, banLength := s.limits(st)
		length := banLength << st.timesBanned
		st.timesBanned++
		st.bannedUntil = iteration + length
		return false
	}
	st.timesApplied++
	return true
}

// CanStop implements Scheduler. With rules banned it shifts every ban
// forward so that the earliest one ends now, and reports false.
func (s *BackoffScheduler) CanStop(iteration int) bool {
	minRemaining := -1
	for _, st := range s.stats {
		if remaining := st.bannedUntil - iteration; remaining > 0 {
			if minRemaining < 0 || remaining < minRemaining {
				minRemaining = remaining
			}
		}
	}
	if minRemaining < 0 {
		return true
	}
	for _, st := range s.stats {
		if st.bannedUntil > iteration {
			st.bannedUntil -= minRemaining
		}
	}
	return false
}

// Banned reports whether rule is banned in iteration.
func (s *BackoffScheduler) Banned(iteration int, rule string) bool {
	st, ok := s.stats[rule]
	return ok && iteration < st.bannedUntil
}

// TimesBanned returns how often rule has been banned.
func (s *BackoffScheduler) TimesBanned(rule string) int {
	if st, ok := s.stats[rule]; ok {
		return st.timesBanned
	}
	return 0
}
