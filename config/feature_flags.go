package config

import (
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles with gradual rollout and per-user
// overrides.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// telegramID -> feature -> enabled
	userOverrides map[int64]map[string]bool

	admins map[int64]bool
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// RolloutPercent (0-100) picks users by a hash of their ID, so a user
	// stays in the same bucket across restarts.
	RolloutPercent int
}

// Predefined feature flag names.
const (
	FeatureApplications        = "applications"         // Apply button on vacancy cards
	FeatureCompanyRegistration = "company.registration" // "New company" during recruiter sign-up
	FeatureNotifyApplicant     = "notify.new_applicant" // Message the recruiter on each application
)

// LoadFeatureFlags loads defaults, then FEATURE_* environment overrides.
// A value may be a bool or a rollout percentage, e.g. FEATURE_APPLICATIONS=25.
func LoadFeatureFlags() *FeatureFlags {
	ff := NewFeatureFlags()
	ff.loadFromEnvironment()
	return ff
}

// NewFeatureFlags returns the defaults: everything enabled for everyone.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[int64]map[string]bool),
		admins:        make(map[int64]bool),
	}
	ff.register(FeatureApplications, "Seekers can apply to vacancies from the search card")
	ff.register(FeatureCompanyRegistration, "Recruiters can register a new company")
	ff.register(FeatureNotifyApplicant, "Recruiters are notified about new applications")
	return ff
}

func (ff *FeatureFlags) register(name, description string) {
	ff.features[name] = &Feature{Name: name, Description: description, Enabled: true, RolloutPercent: 100}
}

func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		val := strings.TrimSpace(os.Getenv(featureNameToEnvKey(name)))
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			feature.RolloutPercent = 0
			if b {
				feature.RolloutPercent = 100
			}
			continue
		}
		if p, err := strconv.Atoi(strings.TrimSuffix(val, "%")); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// featureNameToEnvKey converts a feature name to its environment key:
// "notify.new_applicant" -> "FEATURE_NOTIFY_NEW_APPLICANT".
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// SetAdmins marks users that get every feature regardless of rollout.
func (ff *FeatureFlags) SetAdmins(ids []int64) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	ff.admins = make(map[int64]bool, len(ids))
	for _, id := range ids {
		ff.admins[id] = true
	}
}

// IsEnabled checks whether a feature is on for the user. userID 0 asks about
// the feature as a whole.
func (ff *FeatureFlags) IsEnabled(featureName string, userID int64) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if userID != 0 {
		if overrides, ok := ff.userOverrides[userID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}
	if ff.admins[userID] {
		return true
	}
	if !feature.Enabled {
		return false
	}
	if feature.RolloutPercent < 100 && userID != 0 {
		return isInRollout(userID, featureName, feature.RolloutPercent)
	}
	return feature.RolloutPercent > 0
}

// Gate returns the feature as a per-user predicate.
func (ff *FeatureFlags) Gate(featureName string) func(userID int64) bool {
	return func(userID int64) bool {
		return ff.IsEnabled(featureName, userID)
	}
}

func isInRollout(userID int64, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(strconv.FormatInt(userID, 10)))
	return int(h.Sum32()%100) < percent
}

// SetUserOverride forces a feature on or off for one user.
func (ff *FeatureFlags) SetUserOverride(userID int64, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	if ff.userOverrides[userID] == nil {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// ClearUserOverrides removes every override for the user.
func (ff *FeatureFlags) ClearUserOverrides(userID int64) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, userID)
}

// SetRolloutPercent changes a feature's rollout.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	if percent < 0 || percent > 100 {
		return &FeatureFlagError{Feature: featureName, Message: "rollout percent must be 0-100"}
	}
	ff.mu.Lock()
	defer ff.mu.Unlock()
	feature, ok := ff.features[featureName]
	if !ok {
		return &FeatureFlagError{Feature: featureName, Message: "unknown feature"}
	}
	feature.RolloutPercent = percent
	feature.Enabled = percent > 0
	return nil
}

// Disable turns a feature off for everyone without overrides.
func (ff *FeatureFlags) Disable(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// Features returns a copy of every flag, sorted by name.
func (ff *FeatureFlags) Features() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()
	out := make([]Feature, 0, len(ff.features))
	for _, f := range ff.features {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FeatureFlagError reports a bad flag operation.
type FeatureFlagError struct {
	Feature string
	Message string
}

func (e *FeatureFlagError) Error() string {
	return fmt.Sprintf("feature %q: %s", e.Feature, e.Message)
}
