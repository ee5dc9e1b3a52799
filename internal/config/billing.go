package config

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Negative usage policies applied by the meter reading ledger.
const (
	NegativeUsageAllow  = "allow"
	NegativeUsageClamp  = "clamp"
	NegativeUsageReject = "reject"
)

type BillingConfig struct {
	Meter   MeterPolicy   `mapstructure:"meter"`
	Payment PaymentPolicy `mapstructure:"payment"`
	Invoice InvoicePolicy `mapstructure:"invoice"`
}

type MeterPolicy struct {
	NegativeUsagePolicy string `mapstructure:"negative_usage_policy"`
}

type PaymentPolicy struct {
	// ReadingKinds lists the utility kinds a payment may carry readings for.
	ReadingKinds []string `mapstructure:"reading_kinds"`
}

type InvoicePolicy struct {
	CurrencyLabel string `mapstructure:"currency_label"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		Meter:   MeterPolicy{NegativeUsagePolicy: NegativeUsageAllow},
		Payment: PaymentPolicy{ReadingKinds: []string{"electricity", "water"}},
	}
}

// AcceptsReadingKind reports whether payments may carry readings for kind.
func (c BillingConfig) AcceptsReadingKind(kind string) bool {
	kind = strings.ToLower(strings.TrimSpace(kind))
	for _, allowed := range c.Payment.ReadingKinds {
		if strings.EqualFold(strings.TrimSpace(allowed), kind) {
			return true
		}
	}
	return false
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewStaticBillingConfigHolder returns a holder that never reloads.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(normalizeBillingConfig(cfg))
	return holder
}

func NewBillingConfigHolder(appCfg Config, log *zap.Logger) (*BillingConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("billing.config")

	v := viper.New()
	if appCfg.BillingConfigFile != "" {
		v.SetConfigFile(appCfg.BillingConfigFile)
	} else {
		v.SetConfigName("billing")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/leasehold")
		v.AddConfigPath(".")
	}

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.meter.negative_usage_policy", defaults.Meter.NegativeUsagePolicy)
	v.SetDefault("billing.payment.reading_kinds", defaults.Payment.ReadingKinds)
	v.SetDefault("billing.invoice.currency_label", defaults.Invoice.CurrencyLabel)

	v.SetEnvPrefix("LEASEHOLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := unmarshalBillingConfig(v)
	if err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	if !fileLoaded {
		log.Info("billing config file not found, using defaults")
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalBillingConfig(v)
		if err != nil {
			log.Warn("billing config reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("billing config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	if h == nil {
		return DefaultBillingConfig()
	}
	cfg, ok := h.current.Load().(BillingConfig)
	if !ok {
		return DefaultBillingConfig()
	}
	return cfg
}

func unmarshalBillingConfig(v *viper.Viper) (BillingConfig, error) {
	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return BillingConfig{}, err
	}
	cfg = normalizeBillingConfig(cfg)
	if err := validateBillingConfig(cfg); err != nil {
		return BillingConfig{}, err
	}
	return cfg, nil
}

func normalizeBillingConfig(cfg BillingConfig) BillingConfig {
	cfg.Meter.NegativeUsagePolicy = strings.ToLower(strings.TrimSpace(cfg.Meter.NegativeUsagePolicy))
	if cfg.Meter.NegativeUsagePolicy == "" {
		cfg.Meter.NegativeUsagePolicy = NegativeUsageAllow
	}
	if len(cfg.Payment.ReadingKinds) == 0 {
		cfg.Payment.ReadingKinds = DefaultBillingConfig().Payment.ReadingKinds
	}
	cfg.Invoice.CurrencyLabel = strings.TrimSpace(cfg.Invoice.CurrencyLabel)
	return cfg
}

func validateBillingConfig(cfg BillingConfig) error {
	switch cfg.Meter.NegativeUsagePolicy {
	case NegativeUsageAllow, NegativeUsageClamp, NegativeUsageReject:
	default:
		return fmt.Errorf("billing.meter.negative_usage_policy: unsupported value %q", cfg.Meter.NegativeUsagePolicy)
	}
	return nil
}
