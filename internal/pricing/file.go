package pricing

import (
	"fmt"
	"time"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/enum"
	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// fileConfig mirrors the pricing YAML file:
//
//	prices:
//	  daily: 100
//	  breakfast: 50
//	  monthly_veg: 2800
//	  monthly_non_veg: 3500
//	delivery:
//	  base: 0
//	  per_km: 5
//	  tiers:
//	    - up_to_km: 2
//	      fee: 0
//	    - up_to_km: 5
//	      fee: 20
//
// Keys are snake_case because viper folds keys to lower case.
type fileConfig struct {
	Prices struct {
		Daily         *float64 `mapstructure:"daily"`
		Breakfast     *float64 `mapstructure:"breakfast"`
		MonthlyVeg    *float64 `mapstructure:"monthly_veg"`
		MonthlyNonVeg *float64 `mapstructure:"monthly_non_veg"`
	} `mapstructure:"prices"`
	Delivery struct {
		Base  float64 `mapstructure:"base"`
		PerKm float64 `mapstructure:"per_km"`
		Tiers []struct {
			UpToKm float64 `mapstructure:"up_to_km"`
			Fee    float64 `mapstructure:"fee"`
		} `mapstructure:"tiers"`
	} `mapstructure:"delivery"`
}

// LoadFile reads a pricing YAML file into a validated snapshot.
func LoadFile(path string) (*Snapshot, error) {
	v := newFileViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read pricing file: %w", err)
	}
	return snapshotFromViper(v)
}

// Watch loads path into src and keeps src in sync with later edits of the
// file. An edit that fails validation is logged and ignored, leaving the
// previous snapshot active.
func Watch(path string, src *Source, log *zap.Logger) error {
	v := newFileViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read pricing file: %w", err)
	}
	snap, err := snapshotFromViper(v)
	if err != nil {
		return err
	}
	src.Replace(snap)

	v.OnConfigChange(func(e fsnotify.Event) {
		reload(v, src, log, e.Name)
	})
	v.WatchConfig()
	return nil
}

func reload(v *viper.Viper, src *Source, log *zap.Logger, name string) {
	snap, err := snapshotFromViper(v)
	if err != nil {
		log.Warn("pricing reload rejected, keeping previous prices",
			zap.String("file", name), zap.Error(err))
		return
	}
	src.Replace(snap)
	log.Info("pricing reloaded", zap.String("file", name))
}

func newFileViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	return v
}

func snapshotFromViper(v *viper.Viper) (*Snapshot, error) {
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("decode pricing file: %w", err)
	}

	raw := map[string]*float64{
		enum.OrderTypeDaily:         fc.Prices.Daily,
		enum.OrderTypeBreakfast:     fc.Prices.Breakfast,
		enum.OrderTypeMonthlyVeg:    fc.Prices.MonthlyVeg,
		enum.OrderTypeMonthlyNonVeg: fc.Prices.MonthlyNonVeg,
	}
	prices := make(map[string]decimal.Decimal, len(raw))
	for typ, p := range raw {
		if p != nil {
			prices[typ] = decimal.NewFromFloat(*p)
		}
	}
	table, err := NewTable(prices)
	if err != nil {
		return nil, err
	}

	fees := &FeeSchedule{
		Base:  decimal.NewFromFloat(fc.Delivery.Base),
		PerKm: decimal.NewFromFloat(fc.Delivery.PerKm),
	}
	for _, t := range fc.Delivery.Tiers {
		fees.Tiers = append(fees.Tiers, FeeTier{UpToKm: t.UpToKm, Fee: decimal.NewFromFloat(t.Fee)})
	}
	return NewSnapshot(table, fees, time.Now())
}
