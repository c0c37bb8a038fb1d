package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/realtyledger/internal/commission"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// LedgerPolicy holds the business rules applied by the sales ledger.
type LedgerPolicy struct {
	// PromotionThreshold is the total sales amount at which an L1 agent becomes L2.
	PromotionThreshold int64 `mapstructure:"promotionThreshold"`
	// CountCancelledSales controls whether cancelled sales contribute to an agent's total.
	CountCancelledSales    bool    `mapstructure:"countCancelledSales"`
	DefaultAgentPercentage float64 `mapstructure:"defaultAgentPercentage"`
}

func DefaultLedgerPolicy() LedgerPolicy {
	return LedgerPolicy{
		PromotionThreshold:     500_000,
		CountCancelledSales:    true,
		DefaultAgentPercentage: 60,
	}
}

type LedgerPolicyHolder struct {
	current atomic.Value // holds LedgerPolicy
}

// NewStaticLedgerPolicy returns a holder that never reloads.
func NewStaticLedgerPolicy(policy LedgerPolicy) *LedgerPolicyHolder {
	holder := &LedgerPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewLedgerPolicyHolder(cfg Config) (*LedgerPolicyHolder, error) {
	v := viper.New()

	if cfg.LedgerConfigPath != "" {
		v.SetConfigFile(cfg.LedgerConfigPath)
	} else {
		v.SetConfigName("ledger")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/realtyledger")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("REALTYLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultLedgerPolicy()
	v.SetDefault("ledger.promotionThreshold", defaults.PromotionThreshold)
	v.SetDefault("ledger.countCancelledSales", defaults.CountCancelledSales)
	v.SetDefault("ledger.defaultAgentPercentage", defaults.DefaultAgentPercentage)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	policy := readLedgerPolicy(v)
	if err := validateLedgerPolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticLedgerPolicy(policy)

	if watch {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated := readLedgerPolicy(v)
			if err := holder.Set(updated); err != nil {
				zap.L().Warn("invalid ledger policy ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			zap.L().Info("ledger policy reloaded",
				zap.String("file", e.Name),
				zap.Int64("promotion_threshold", updated.PromotionThreshold),
				zap.Bool("count_cancelled_sales", updated.CountCancelledSales),
			)
		})
	}

	return holder, nil
}

// readLedgerPolicy reads each key separately so defaults fill any key the file omits.
func readLedgerPolicy(v *viper.Viper) LedgerPolicy {
	return LedgerPolicy{
		PromotionThreshold:     v.GetInt64("ledger.promotionThreshold"),
		CountCancelledSales:    v.GetBool("ledger.countCancelledSales"),
		DefaultAgentPercentage: v.GetFloat64("ledger.defaultAgentPercentage"),
	}
}

func (h *LedgerPolicyHolder) Get() LedgerPolicy {
	if h == nil {
		return DefaultLedgerPolicy()
	}
	policy, ok := h.current.Load().(LedgerPolicy)
	if !ok {
		return DefaultLedgerPolicy()
	}
	return policy
}

// Set replaces the current policy. Sales already written keep the contribution
// they were recorded with; the new policy applies to later writes.
func (h *LedgerPolicyHolder) Set(policy LedgerPolicy) error {
	if err := validateLedgerPolicy(policy); err != nil {
		return err
	}
	h.current.Store(policy)
	return nil
}

func validateLedgerPolicy(policy LedgerPolicy) error {
	if policy.PromotionThreshold <= 0 {
		return errors.New("ledger.promotionThreshold must be positive")
	}
	if policy.DefaultAgentPercentage < 0 || policy.DefaultAgentPercentage > 100 {
		return errors.New("ledger.defaultAgentPercentage must be within [0, 100]")
	}
	if pct := decimal.NewFromFloat(policy.DefaultAgentPercentage); !pct.Equal(pct.Round(commission.PercentagePlaces)) {
		return errors.New("ledger.defaultAgentPercentage allows at most two decimal places")
	}
	return nil
}
