// Package config defines the data structures related to configuration and
// includes functions for loading and checking the config.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/iwvelando/commission-calculator/pkg/commission"
	"github.com/iwvelando/commission-calculator/pkg/constants"
	"github.com/iwvelando/commission-calculator/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for the commission calculator.
type Configuration struct {
	Tiers        []TierConfig        `mapstructure:"tiers" yaml:"tiers" validate:"dive"`
	Calculations []CalculationConfig `mapstructure:"calculations" yaml:"calculations" validate:"dive"`
	Logging      LoggingConfig       `mapstructure:"logging" yaml:"logging,omitempty"`
	Output       OutputConfig        `mapstructure:"output" yaml:"output,omitempty"`
	Display      DisplayConfig       `mapstructure:"display" yaml:"display,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty"`           // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format,omitempty"`         // json, console
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty"` // optional file output
	MaxSizeMB  int    `mapstructure:"maxSizeMB" yaml:"maxSizeMB,omitempty"`   // rotate after this size
	MaxBackups int    `mapstructure:"maxBackups" yaml:"maxBackups,omitempty"` // rotated files to keep
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format,omitempty"` // pretty, csv, xlsx
	File   string `mapstructure:"file" yaml:"file,omitempty"`     // required for xlsx
}

// DisplayConfig holds presentation options.
type DisplayConfig struct {
	Currency string `mapstructure:"currency" yaml:"currency,omitempty" validate:"omitempty,len=3,alpha"`
}

// TierConfig describes one commission tier of the catalog.
type TierConfig struct {
	ID                   string  `mapstructure:"id" yaml:"id" validate:"required"`
	Name                 string  `mapstructure:"name" yaml:"name"`
	BaseRatePercent      float64 `mapstructure:"baseRatePercent" yaml:"baseRatePercent" validate:"gte=0,lte=100"`
	BonusThresholdAmount float64 `mapstructure:"bonusThresholdAmount" yaml:"bonusThresholdAmount" validate:"gte=0"`
	BonusRatePercent     float64 `mapstructure:"bonusRatePercent" yaml:"bonusRatePercent" validate:"gte=0,lte=100"`
}

// CalculationConfig describes one commission request. Exactly one of TierID
// and CustomRatePercent may be set.
type CalculationConfig struct {
	Name              string        `mapstructure:"name" yaml:"name" validate:"required"`
	Active            bool          `mapstructure:"active" yaml:"active"`
	PlacementValue    float64       `mapstructure:"placementValue" yaml:"placementValue"`
	TierID            string        `mapstructure:"tierId" yaml:"tierId,omitempty"`
	CustomRatePercent *float64      `mapstructure:"customRatePercent" yaml:"customRatePercent,omitempty"`
	ApplyBonus        bool          `mapstructure:"applyBonus" yaml:"applyBonus,omitempty"`
	TeamSplits        []SplitConfig `mapstructure:"teamSplits" yaml:"teamSplits"`
}

// SplitConfig is one team split entry.
type SplitConfig struct {
	RecruiterName string  `mapstructure:"recruiterName" yaml:"recruiterName"`
	Percentage    float64 `mapstructure:"percentage" yaml:"percentage"`
}

// ErrAmbiguousRate is returned when a calculation names both a tier and a custom rate.
var ErrAmbiguousRate = errors.New("specify either tierId or customRatePercent, not both")

// LoadEnvFile loads KEY=value pairs from path into the process environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading env file %s: %w", path, err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}

	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %w", err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := validation.Struct(&configuration); err != nil {
		return nil, fmt.Errorf("invalid configuration: %s: %w", strings.Join(validation.Messages(err), "; "), err)
	}

	return &configuration, nil
}

// Catalog builds the tier catalog from the configured tiers.
func (conf *Configuration) Catalog() commission.Tiers {
	tiers := make(commission.Tiers, 0, len(conf.Tiers))
	for _, tier := range conf.Tiers {
		tiers = append(tiers, tier.ToTier())
	}
	return tiers
}

// ToTier converts the configured tier to the engine's representation.
func (tier TierConfig) ToTier() commission.Tier {
	name := tier.Name
	if name == "" {
		name = tier.ID
	}
	return commission.Tier{
		ID:                   tier.ID,
		Name:                 name,
		BaseRatePercent:      tier.BaseRatePercent,
		BonusThresholdAmount: tier.BonusThresholdAmount,
		BonusRatePercent:     tier.BonusRatePercent,
	}
}

// ToInput converts a configured calculation into an engine input. When
// neither a tier nor a custom rate is set the rate source is left nil so the
// engine reports the missing selection.
func (calc CalculationConfig) ToInput() (commission.Input, error) {
	input := commission.Input{
		PlacementValue: calc.PlacementValue,
		ApplyBonus:     calc.ApplyBonus,
	}

	tierID := strings.TrimSpace(calc.TierID)
	switch {
	case tierID != "" && calc.CustomRatePercent != nil:
		return input, fmt.Errorf("calculation %s: %w", calc.Name, ErrAmbiguousRate)
	case tierID != "":
		input.RateSource = commission.TierSelection{TierID: tierID}
	case calc.CustomRatePercent != nil:
		input.RateSource = commission.CustomRate{RatePercent: *calc.CustomRatePercent}
	}

	input.TeamSplits = make([]commission.TeamSplit, 0, len(calc.TeamSplits))
	for _, split := range calc.TeamSplits {
		input.TeamSplits = append(input.TeamSplits, commission.TeamSplit{
			RecruiterName: split.RecruiterName,
			Percentage:    split.Percentage,
		})
	}

	return input, nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (conf *Configuration) ValidateConfiguration() []string {
	var warnings []string

	seen := make(map[string]bool, len(conf.Tiers))
	for _, tier := range conf.Tiers {
		if seen[tier.ID] {
			warnings = append(warnings, fmt.Sprintf("Tier '%s' is defined more than once - the first definition is used", tier.ID))
		}
		seen[tier.ID] = true

		if tier.BonusRatePercent > 0 && tier.BonusThresholdAmount == 0 {
			warnings = append(warnings, fmt.Sprintf("Tier '%s' has a bonus rate with no threshold - the bonus applies to every placement", tier.ID))
		}
	}

	active := 0
	for _, calc := range conf.Calculations {
		if !calc.Active {
			continue
		}
		active++
		if calc.TierID != "" && !seen[strings.TrimSpace(calc.TierID)] {
			warnings = append(warnings, fmt.Sprintf("Calculation '%s' references unknown tier '%s'", calc.Name, calc.TierID))
		}
		if calc.ApplyBonus && calc.CustomRatePercent != nil && calc.TierID == "" {
			warnings = append(warnings, fmt.Sprintf("Calculation '%s' requests a bonus but uses a custom rate - the bonus is ignored", calc.Name))
		}
	}

	if len(conf.Calculations) > 0 && active == 0 {
		warnings = append(warnings, "No calculations are active")
	}

	return warnings
}
