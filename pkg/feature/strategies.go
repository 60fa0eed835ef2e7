package feature

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"slices"
	"time"

	"github.com/dmitrymomot/featurekit/pkg/environment"
	"github.com/dmitrymomot/featurekit/pkg/property"
)

// Built-in strategy types.
const (
	StrategyAlways      = "always"
	StrategyAllowList   = "allow-list"
	StrategyDenyList    = "deny-list"
	StrategyPercentage  = "percentage"
	StrategyEnvironment = "environment"
	StrategyReleaseDate = "release-date"
)

// Parameter names of the built-in strategies.
const (
	ParamValue        = "value"
	ParamUsers        = "users"
	ParamPercentage   = "percentage"
	ParamEnvironments = "environments"
	ParamReleaseDate  = "releaseDate"
)

// EnvironmentParam is the ToggleContext parameter the environment strategy
// reads before falling back to the environment stored in the context.
const EnvironmentParam = "environment"

func init() {
	RegisterStrategy(StrategyAlways, newAlwaysStrategy)
	RegisterStrategy(StrategyAllowList, newAllowListStrategy)
	RegisterStrategy(StrategyDenyList, newDenyListStrategy)
	RegisterStrategy(StrategyPercentage, newPercentageStrategy)
	RegisterStrategy(StrategyEnvironment, newEnvironmentStrategy)
	RegisterStrategy(StrategyReleaseDate, newReleaseDateStrategy)
}

func stringList() property.Codec[[]string] {
	return property.NewListCodec[string](property.StringCodec{}, property.WithDelimiter(property.ListDelimiter()))
}

// AlwaysStrategy returns the same answer for everyone.
type AlwaysStrategy struct {
	baseStrategy
	value bool
}

// NewAlways creates a strategy that is always value.
func NewAlways(value bool) ToggleStrategy {
	p, _ := property.NewBool(ParamValue, value)
	s, _ := newAlwaysStrategy("", Params{ParamValue: p})
	return s
}

func newAlwaysStrategy(owner string, params Params) (ToggleStrategy, error) {
	v, err := param(params, StrategyAlways, ParamValue, property.Codec[bool](property.BoolCodec{}))
	if err != nil {
		return nil, err
	}
	return &AlwaysStrategy{baseStrategy: newBase(StrategyAlways, owner, v), value: v.Value()}, nil
}

func (s *AlwaysStrategy) Evaluate(ctx context.Context, tc ToggleContext) (bool, error) {
	return s.value, nil
}

// AllowListStrategy is on only for the listed users.
type AllowListStrategy struct {
	baseStrategy
	users []string
}

// NewAllowList creates a strategy that is on for the given users only.
func NewAllowList(users ...string) (ToggleStrategy, error) {
	return newUserListStrategy(StrategyAllowList, users)
}

func newAllowListStrategy(owner string, params Params) (ToggleStrategy, error) {
	users, err := param(params, StrategyAllowList, ParamUsers, stringList())
	if err != nil {
		return nil, err
	}
	return &AllowListStrategy{baseStrategy: newBase(StrategyAllowList, owner, users), users: users.Value()}, nil
}

func (s *AllowListStrategy) Evaluate(ctx context.Context, tc ToggleContext) (bool, error) {
	return tc.UserID != "" && slices.Contains(s.users, tc.UserID), nil
}

// DenyListStrategy is off for the listed users and for anonymous callers.
type DenyListStrategy struct {
	baseStrategy
	users []string
}

// NewDenyList creates a strategy that is off for the given users.
func NewDenyList(users ...string) (ToggleStrategy, error) {
	return newUserListStrategy(StrategyDenyList, users)
}

func newDenyListStrategy(owner string, params Params) (ToggleStrategy, error) {
	users, err := param(params, StrategyDenyList, ParamUsers, stringList())
	if err != nil {
		return nil, err
	}
	return &DenyListStrategy{baseStrategy: newBase(StrategyDenyList, owner, users), users: users.Value()}, nil
}

func (s *DenyListStrategy) Evaluate(ctx context.Context, tc ToggleContext) (bool, error) {
	return tc.UserID != "" && !slices.Contains(s.users, tc.UserID), nil
}

func newUserListStrategy(typ string, users []string) (ToggleStrategy, error) {
	p, err := property.NewList(ParamUsers, property.StringCodec{}, users)
	if err != nil {
		return nil, errors.Join(ErrInvalidStrategy, err)
	}
	return NewStrategy(typ, "", p)
}

// PercentageStrategy turns the feature on for a stable share of users. The
// same feature and user always land in the same bucket.
type PercentageStrategy struct {
	baseStrategy
	percentage int
}

// NewPercentage creates a rollout strategy for percentage (0..100) of users.
func NewPercentage(percentage int) (ToggleStrategy, error) {
	p, err := property.NewInt(ParamPercentage, percentage)
	if err != nil {
		return nil, errors.Join(ErrInvalidStrategy, err)
	}
	return NewStrategy(StrategyPercentage, "", p)
}

func newPercentageStrategy(owner string, params Params) (ToggleStrategy, error) {
	p, err := param(params, StrategyPercentage, ParamPercentage, property.Codec[int](property.IntCodec{}))
	if err != nil {
		return nil, err
	}
	if v := p.Value(); v < 0 || v > 100 {
		return nil, errors.Join(ErrInvalidStrategy, fmt.Errorf("percentage must be between 0 and 100, got %d", v))
	}
	return &PercentageStrategy{baseStrategy: newBase(StrategyPercentage, owner, p), percentage: p.Value()}, nil
}

func (s *PercentageStrategy) Evaluate(ctx context.Context, tc ToggleContext) (bool, error) {
	switch {
	case s.percentage <= 0:
		return false, nil
	case s.percentage >= 100:
		return true, nil
	case tc.UserID == "":
		return false, nil
	}

	uid := tc.FeatureUID()
	if uid == "" {
		uid = s.owner
	}
	return Bucket(uid, tc.UserID) < s.percentage, nil
}

// Bucket maps a feature and user pair to a stable value in [0, 100).
func Bucket(featureUID, userID string) int {
	h := fnv.New32a()
	h.Write([]byte(featureUID))
	h.Write([]byte{':'})
	h.Write([]byte(userID))
	return int(h.Sum32() % 100)
}

// EnvironmentStrategy is on in the listed environments only.
type EnvironmentStrategy struct {
	baseStrategy
	environments []string
}

// NewEnvironment creates a strategy that is on in the given environments.
func NewEnvironment(environments ...string) (ToggleStrategy, error) {
	p, err := property.NewList(ParamEnvironments, property.StringCodec{}, environments)
	if err != nil {
		return nil, errors.Join(ErrInvalidStrategy, err)
	}
	return NewStrategy(StrategyEnvironment, "", p)
}

func newEnvironmentStrategy(owner string, params Params) (ToggleStrategy, error) {
	envs, err := param(params, StrategyEnvironment, ParamEnvironments, stringList())
	if err != nil {
		return nil, err
	}
	if len(envs.Value()) == 0 {
		return nil, errors.Join(ErrInvalidStrategy, errors.New("environment strategy requires at least one environment"))
	}
	return &EnvironmentStrategy{baseStrategy: newBase(StrategyEnvironment, owner, envs), environments: envs.Value()}, nil
}

func (s *EnvironmentStrategy) Evaluate(ctx context.Context, tc ToggleContext) (bool, error) {
	env := tc.ParamString(EnvironmentParam)
	if env == "" {
		env = environment.FromContext(ctx)
	}
	if env == "" {
		return false, nil
	}
	return slices.Contains(s.environments, env), nil
}

// ReleaseDateStrategy is on from the release date onwards.
type ReleaseDateStrategy struct {
	baseStrategy
	releaseDate time.Time
}

// NewReleaseDate creates a strategy that switches on at t.
func NewReleaseDate(t time.Time) (ToggleStrategy, error) {
	p, err := property.NewInstant(ParamReleaseDate, t)
	if err != nil {
		return nil, errors.Join(ErrInvalidStrategy, err)
	}
	return NewStrategy(StrategyReleaseDate, "", p)
}

func newReleaseDateStrategy(owner string, params Params) (ToggleStrategy, error) {
	p, err := param(params, StrategyReleaseDate, ParamReleaseDate, property.Codec[time.Time](property.InstantCodec{}))
	if err != nil {
		return nil, err
	}
	return &ReleaseDateStrategy{baseStrategy: newBase(StrategyReleaseDate, owner, p), releaseDate: p.Value()}, nil
}

func (s *ReleaseDateStrategy) Evaluate(ctx context.Context, tc ToggleContext) (bool, error) {
	return !time.Now().Before(s.releaseDate), nil
}
